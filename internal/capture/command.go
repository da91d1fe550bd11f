package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jwulff/attend/internal/attendance"
)

const (
	deviceToken          = "{device}"
	defaultGrabTimeout   = 5 * time.Second
	maxStderrReportBytes = 512
)

// Runner executes the grabber and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// CommandSource grabs frames by running an external program (ffmpeg by
// default) that writes a single JPEG to stdout.
type CommandSource struct {
	device  string
	name    string
	args    []string
	timeout time.Duration
	run     Runner
	now     func() time.Time
}

// CommandOption customizes a CommandSource.
type CommandOption func(*CommandSource)

// WithRunner replaces process execution (tests).
func WithRunner(run Runner) CommandOption {
	return func(s *CommandSource) {
		if run != nil {
			s.run = run
		}
	}
}

// WithGrabTimeout bounds a single grab.
func WithGrabTimeout(d time.Duration) CommandOption {
	return func(s *CommandSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewCommandSource returns a source for device using the given grabber.
// Occurrences of "{device}" in args are replaced with device.
func NewCommandSource(device, grabber string, args []string, opts ...CommandOption) *CommandSource {
	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = strings.ReplaceAll(a, deviceToken, device)
	}
	s := &CommandSource{
		device:  device,
		name:    grabber,
		args:    expanded,
		timeout: defaultGrabTimeout,
		run:     execRunner,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Device returns the camera node this source reads.
func (s *CommandSource) Device() string { return s.device }

// Probe reports whether the camera can be opened for capture.
func (s *CommandSource) Probe() error {
	if _, err := exec.LookPath(s.name); err != nil {
		return fmt.Errorf("%w: grabber %q not found", attendance.ErrCaptureUnavailable, s.name)
	}
	return probePath(s.device, unix.R_OK|unix.W_OK)
}

// Capture grabs the current frame. Every failure wraps
// attendance.ErrCaptureUnavailable.
func (s *CommandSource) Capture(ctx context.Context) (attendance.Frame, error) {
	if err := probePath(s.device, unix.R_OK|unix.W_OK); err != nil {
		if errors.Is(err, attendance.ErrPermissionDenied) {
			return attendance.Frame{}, fmt.Errorf("%w: %w", attendance.ErrCaptureUnavailable, err)
		}
		return attendance.Frame{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	at := s.now()
	stdout, stderr, err := s.run(ctx, s.name, s.args...)
	if err != nil {
		detail := strings.TrimSpace(string(stderr))
		if len(detail) > maxStderrReportBytes {
			detail = detail[:maxStderrReportBytes]
		}
		if detail != "" {
			return attendance.Frame{}, fmt.Errorf("%w: %s: %v: %s", attendance.ErrCaptureUnavailable, s.name, err, detail)
		}
		return attendance.Frame{}, fmt.Errorf("%w: %s: %v", attendance.ErrCaptureUnavailable, s.name, err)
	}
	return decodeFrame(stdout, at)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
