package attendance

import (
	"errors"
	"time"
)

var (
	// ErrCaptureUnavailable is returned when the camera cannot produce a frame
	// right now (device missing, busy or grabber failure).
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrPermissionDenied is returned when the process may not read the camera.
	ErrPermissionDenied = errors.New("camera permission denied")
)

// Frame is a single JPEG capture. Frames are consumed by one verification
// call and then dropped.
type Frame struct {
	Image      []byte
	Width      int
	Height     int
	CapturedAt time.Time
}
