package app

import (
	"time"

	"github.com/jwulff/attend/internal/attendance"
)

// CameraReadyMsg arms the controller once the camera is available.
type CameraReadyMsg struct{}

// CameraErrorMsg is sent when waiting for the camera fails.
type CameraErrorMsg struct {
	Err error
}

// TickMsg is one scheduler firing. Epoch identifies the arming that
// started the scheduler.
type TickMsg struct {
	Epoch uint64
	At    time.Time
}

// OutcomeMsg carries the result of one capture and verification.
type OutcomeMsg struct {
	Epoch     uint64
	RequestID string
	Outcome   attendance.Outcome
}

// StatusMsg carries the attendance status used to frame the screen.
type StatusMsg struct {
	Mode attendance.Mode
	Err  error
}

// DismissMsg acknowledges the result screen.
type DismissMsg struct{}

type recordSavedMsg struct {
	err error
}
