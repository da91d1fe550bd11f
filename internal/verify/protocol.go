// Package verify provides the client and wire types for the face
// verification service's HTTP API.
package verify

import "github.com/jwulff/attend/internal/attendance"

// FaceResult is one per-face entry of a verification response.
type FaceResult struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// Response is returned by POST /verify_face/.
type Response struct {
	VerificationResults []FaceResult `json:"verification_results"`
	DetectedImagePath   string       `json:"detected_image_path,omitempty"`
	Message             string       `json:"message,omitempty"`
	CheckInTime         string       `json:"check_in_time,omitempty"`
	CheckOutTime        string       `json:"check_out_time,omitempty"`

	// Detail is where the service puts the text of rejected requests.
	Detail string `json:"detail,omitempty"`

	// DetectedImageURL is resolved by the client from DetectedImagePath.
	DetectedImageURL string `json:"-"`
}

// usable reports whether the reply carries face results or a message.
// A null body decodes to nil and is not usable either.
func (r *Response) usable() bool {
	if r == nil {
		return false
	}
	return r.VerificationResults != nil || r.Message != "" || r.Detail != ""
}

// Text returns the message, falling back to the rejection detail.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return r.Detail
}

// StatusResponse is returned by GET /attendance_status/.
type StatusResponse struct {
	CheckedIn  bool `json:"checked_in"`
	CheckedOut bool `json:"checked_out"`
}

// Mode picks the kiosk framing for the current attendance status.
func (s StatusResponse) Mode() attendance.Mode {
	switch {
	case s.CheckedIn && s.CheckedOut:
		return attendance.ModeComplete
	case s.CheckedIn:
		return attendance.ModeCheckOut
	default:
		return attendance.ModeCheckIn
	}
}

// Windows is returned by GET /get_times/. Times are "HH:MM".
type Windows struct {
	CheckInStart  string `json:"check_in_start"`
	CheckInEnd    string `json:"check_in_end"`
	CheckOutStart string `json:"check_out_start"`
	CheckOutEnd   string `json:"check_out_end"`
}
