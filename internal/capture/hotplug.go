package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"github.com/jwulff/attend/internal/logging"
)

const (
	videoSubsystem = "video4linux"
	pollInterval   = 500 * time.Millisecond
)

// WaitForDevice blocks until device exists or ctx ends. It listens for
// video4linux add events over netlink and falls back to polling when the
// netlink socket cannot be opened.
func WaitForDevice(ctx context.Context, device string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deviceExists(device) {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logger.Debug("netlink unavailable, polling for camera",
			logging.Error(err),
			logging.String(logging.FieldDevice, device),
		)
		return pollForDevice(ctx, device)
	}
	defer func() { _ = conn.Close() }()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := conn.Monitor(queue, errs, deviceMatcher())
	defer close(quit)

	// The node may have appeared between the first check and Monitor.
	if deviceExists(device) {
		return nil
	}

	logger.Info("waiting for camera",
		logging.String(logging.FieldEventType, "camera_wait"),
		logging.String(logging.FieldDevice, device),
	)

	recheck := time.NewTicker(5 * pollInterval)
	defer recheck.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case uevent := <-queue:
			if eventDevice(uevent) == device {
				logger.Info("camera attached",
					logging.String(logging.FieldEventType, "camera_attached"),
					logging.String(logging.FieldDevice, device),
				)
				return nil
			}
		case err := <-errs:
			logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
			)
		case <-recheck.C:
			if deviceExists(device) {
				return nil
			}
		}
	}
}

// deviceMatcher matches video4linux node additions.
func deviceMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": videoSubsystem,
		},
	})
	return rules
}

// eventDevice returns the /dev path named by a uevent.
func eventDevice(uevent netlink.UEvent) string {
	name := uevent.Env["DEVNAME"]
	if name == "" {
		return ""
	}
	if !strings.HasPrefix(name, "/") {
		name = filepath.Join("/dev", name)
	}
	return name
}

func pollForDevice(ctx context.Context, device string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if deviceExists(device) {
				return nil
			}
		}
	}
}

func deviceExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
