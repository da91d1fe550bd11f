// Package capture produces JPEG frames from the kiosk camera and guards
// exclusive access to it.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jwulff/attend/internal/attendance"
)

var jpegSOI = []byte{0xFF, 0xD8}

// probePath checks that path exists and the process holds the given access
// bits on it. Missing paths are unavailable; access failures are denied.
func probePath(path string, mode uint32) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s not present", attendance.ErrCaptureUnavailable, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", attendance.ErrPermissionDenied, path)
		}
		return fmt.Errorf("%w: stat %s: %v", attendance.ErrCaptureUnavailable, path, err)
	}
	if err := unix.Access(path, mode); err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EROFS) {
			return fmt.Errorf("%w: %s", attendance.ErrPermissionDenied, path)
		}
		return fmt.Errorf("%w: access %s: %v", attendance.ErrCaptureUnavailable, path, err)
	}
	return nil
}

// decodeFrame validates a JPEG payload and reads its dimensions.
func decodeFrame(data []byte, at time.Time) (attendance.Frame, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		return attendance.Frame{}, fmt.Errorf("%w: grabber output is not a jpeg", attendance.ErrCaptureUnavailable)
	}
	data = data[start:]

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return attendance.Frame{}, fmt.Errorf("%w: decode jpeg: %v", attendance.ErrCaptureUnavailable, err)
	}
	return attendance.Frame{
		Image:      data,
		Width:      cfg.Width,
		Height:     cfg.Height,
		CapturedAt: at,
	}, nil
}
