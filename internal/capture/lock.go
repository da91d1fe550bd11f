package capture

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/jwulff/attend/internal/attendance"
)

// DeviceLock is an advisory file lock that keeps two kiosk processes from
// driving the same camera.
type DeviceLock struct {
	path string
	lock *flock.Flock
}

// NewDeviceLock returns the lock for device, stored under lockDir.
func NewDeviceLock(lockDir, device string) *DeviceLock {
	name := strings.Trim(strings.ReplaceAll(device, string(filepath.Separator), "_"), "_")
	if name == "" {
		name = "camera"
	}
	path := filepath.Join(lockDir, name+".lock")
	return &DeviceLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *DeviceLock) Path() string { return l.path }

// Acquire takes the lock without blocking.
func (l *DeviceLock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire camera lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: camera is in use by another attend process (%s)", attendance.ErrCaptureUnavailable, l.path)
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *DeviceLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release camera lock: %w", err)
	}
	return nil
}
