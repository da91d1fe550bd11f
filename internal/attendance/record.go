package attendance

import "time"

// Kind classifies a recorded attendance event.
type Kind string

const (
	KindCheckIn       Kind = "check_in"
	KindCheckOut      Kind = "check_out"
	KindAlreadyLogged Kind = "already_logged"
	KindVerified      Kind = "verified"
)

// Service messages that carry meaning for the kiosk.
const (
	MessageCheckIn       = "Check-in successful"
	MessageCheckOut      = "Check-out successful"
	MessageAlreadyLogged = "Attendance already logged for today"
)

// Record is the display form of a successful terminal outcome.
type Record struct {
	ID               string
	UserID           string
	DisplayName      string
	Kind             Kind
	Message          string
	CheckInTime      string
	CheckOutTime     string
	Similarity       float64
	Distance         float64
	DetectedImageURL string
	RecordedAt       time.Time
}

// NewRecord builds the record for a successful outcome. ok is false for
// outcomes that do not produce one.
func NewRecord(s Session, o Outcome, at time.Time) (Record, bool) {
	rec := Record{
		UserID:      s.UserID(),
		DisplayName: s.DisplayName(),
		RecordedAt:  at,
	}
	switch v := o.(type) {
	case Verified:
		rec.Kind = kindForMessage(v.Detail.Message)
		rec.Similarity = v.Similarity
		rec.Distance = v.Distance
		applyDetail(&rec, v.Detail)
	case AlreadyLogged:
		rec.Kind = KindAlreadyLogged
		applyDetail(&rec, v.Detail)
		if rec.Message == "" {
			rec.Message = MessageAlreadyLogged
		}
	default:
		return Record{}, false
	}
	return rec, true
}

func applyDetail(rec *Record, d Detail) {
	rec.Message = d.Message
	rec.CheckInTime = d.CheckInTime
	rec.CheckOutTime = d.CheckOutTime
	rec.DetectedImageURL = d.DetectedImageURL
}

func kindForMessage(msg string) Kind {
	switch msg {
	case MessageCheckIn:
		return KindCheckIn
	case MessageCheckOut:
		return KindCheckOut
	default:
		return KindVerified
	}
}

// Mode is the framing the kiosk shows: which action the capture loop performs.
type Mode int

const (
	ModeCheckIn Mode = iota
	ModeCheckOut
	ModeComplete
)

func (m Mode) String() string {
	switch m {
	case ModeCheckOut:
		return "CHECK OUT"
	case ModeComplete:
		return "COMPLETE"
	default:
		return "CHECK IN"
	}
}
