package attendance

// Outcome is the closed result of one verification call. The concrete types
// are Verified, AlreadyLogged, OutsideWindow, NotVerified and CaptureFailed.
type Outcome interface {
	isOutcome()
}

// Detail carries what the service reported alongside a successful match.
type Detail struct {
	Message          string
	CheckInTime      string
	CheckOutTime     string
	DetectedImageURL string
}

// Verified means the service matched the face and logged attendance.
type Verified struct {
	Similarity float64
	Distance   float64
	Detail     Detail
}

// AlreadyLogged means attendance for today was recorded earlier.
type AlreadyLogged struct {
	Detail Detail
}

// OutsideWindow means the service refused the check-in/out because of the
// configured time window. Reason is the service message, verbatim.
type OutsideWindow struct {
	Reason string
}

// NotVerified means no face matched this frame. The loop keeps going.
type NotVerified struct{}

// CaptureFailed covers every failure to obtain a usable answer: no frame,
// transport errors, timeouts and rejected requests.
type CaptureFailed struct {
	Cause error
}

func (Verified) isOutcome()      {}
func (AlreadyLogged) isOutcome() {}
func (OutsideWindow) isOutcome() {}
func (NotVerified) isOutcome()   {}
func (CaptureFailed) isOutcome() {}

// Terminal reports whether the outcome ends the capture loop.
func Terminal(o Outcome) bool {
	switch o.(type) {
	case NotVerified:
		return false
	case nil:
		return false
	default:
		return true
	}
}

// Succeeded reports whether the outcome ends the loop successfully.
func Succeeded(o Outcome) bool {
	switch o.(type) {
	case Verified, AlreadyLogged:
		return true
	default:
		return false
	}
}

// Reason returns the user-facing text for a terminal error outcome.
func Reason(o Outcome) string {
	switch v := o.(type) {
	case OutsideWindow:
		return v.Reason
	case CaptureFailed:
		if v.Cause == nil {
			return "Verification failed"
		}
		return v.Cause.Error()
	default:
		return ""
	}
}
