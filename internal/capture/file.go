package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jwulff/attend/internal/attendance"
)

// FileSource reads frames from a snapshot file that another process keeps
// up to date.
type FileSource struct {
	path   string
	maxAge time.Duration
	now    func() time.Time
}

// NewFileSource returns a source reading path. A positive maxAge rejects
// snapshots that have not been refreshed within that window.
func NewFileSource(path string, maxAge time.Duration) *FileSource {
	return &FileSource{path: path, maxAge: maxAge, now: time.Now}
}

// Device returns the snapshot path.
func (s *FileSource) Device() string { return s.path }

// Probe reports whether the snapshot is readable.
func (s *FileSource) Probe() error {
	return probePath(s.path, unix.R_OK)
}

// Capture reads the current snapshot.
func (s *FileSource) Capture(ctx context.Context) (attendance.Frame, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Frame{}, fmt.Errorf("%w: %v", attendance.ErrCaptureUnavailable, err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return attendance.Frame{}, fmt.Errorf("%w: %w", attendance.ErrCaptureUnavailable, attendance.ErrPermissionDenied)
		}
		return attendance.Frame{}, fmt.Errorf("%w: %v", attendance.ErrCaptureUnavailable, err)
	}
	now := s.now()
	if s.maxAge > 0 && now.Sub(info.ModTime()) > s.maxAge {
		return attendance.Frame{}, fmt.Errorf("%w: snapshot %s is stale (%s old)",
			attendance.ErrCaptureUnavailable, s.path, now.Sub(info.ModTime()).Round(time.Second))
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return attendance.Frame{}, fmt.Errorf("%w: %w", attendance.ErrCaptureUnavailable, attendance.ErrPermissionDenied)
		}
		return attendance.Frame{}, fmt.Errorf("%w: %v", attendance.ErrCaptureUnavailable, err)
	}
	return decodeFrame(data, now)
}
