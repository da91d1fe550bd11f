package verify

import (
	"errors"
	"strings"

	"github.com/jwulff/attend/internal/attendance"
)

var errNoResponse = errors.New("no usable response from verification service")

var windowPrefixes = []string{
	"Check-in is only allowed",
	"Check-out is only allowed",
}

// Interpret maps a raw service reply to an Outcome. The message is consulted
// before the per-face flags, so "already logged" wins over verified=false and
// a window violation wins over verified=true. err is the transport or status
// error from the call; resp may be non-nil alongside it when a rejected
// request still carried a decodable body.
func Interpret(resp *Response, err error) attendance.Outcome {
	msg := resp.Text()

	switch {
	case msg == attendance.MessageCheckIn || msg == attendance.MessageCheckOut:
		best := bestFace(resp.VerificationResults)
		return attendance.Verified{
			Similarity: best.Similarity,
			Distance:   best.Distance,
			Detail:     detail(resp),
		}
	case msg == attendance.MessageAlreadyLogged:
		return attendance.AlreadyLogged{Detail: detail(resp)}
	case hasWindowPrefix(msg):
		return attendance.OutsideWindow{Reason: msg}
	}

	if err != nil {
		return attendance.CaptureFailed{Cause: err}
	}
	if resp == nil {
		return attendance.CaptureFailed{Cause: errNoResponse}
	}

	for _, face := range resp.VerificationResults {
		if face.Verified {
			return attendance.Verified{
				Similarity: face.Similarity,
				Distance:   face.Distance,
				Detail:     detail(resp),
			}
		}
	}
	return attendance.NotVerified{}
}

func hasWindowPrefix(msg string) bool {
	for _, p := range windowPrefixes {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// bestFace prefers a verified face, then the highest similarity.
func bestFace(faces []FaceResult) FaceResult {
	var best FaceResult
	found := false
	for _, f := range faces {
		switch {
		case !found:
			best, found = f, true
		case f.Verified && !best.Verified:
			best = f
		case f.Verified == best.Verified && f.Similarity > best.Similarity:
			best = f
		}
	}
	return best
}

func detail(resp *Response) attendance.Detail {
	return attendance.Detail{
		Message:          resp.Text(),
		CheckInTime:      resp.CheckInTime,
		CheckOutTime:     resp.CheckOutTime,
		DetectedImageURL: resp.DetectedImageURL,
	}
}
