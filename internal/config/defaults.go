// Package config loads the kiosk's TOML configuration.
package config

const (
	defaultConfigPath     = "~/.config/attend/config.toml"
	defaultServerURL      = "http://127.0.0.1:8000"
	defaultTimeoutSeconds = 15
	defaultCameraDevice   = "/dev/video0"
	defaultGrabber        = "ffmpeg"
	defaultIntervalMS     = 1800
	defaultLockDir        = "~/.local/state/attend/locks"
	defaultDataDir        = "~/.local/share/attend"
	defaultLogDir         = "~/.local/state/attend/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// defaultGrabberArgs capture one MJPEG frame from the device to stdout.
// {device} is replaced with Camera.Device.
var defaultGrabberArgs = []string{
	"-hide_banner", "-loglevel", "error",
	"-f", "v4l2", "-i", "{device}",
	"-frames:v", "1",
	"-f", "image2pipe", "-vcodec", "mjpeg", "-",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	args := make([]string, len(defaultGrabberArgs))
	copy(args, defaultGrabberArgs)

	return Config{
		Server: Server{
			BaseURL:        defaultServerURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Camera: Camera{
			Device:        defaultCameraDevice,
			Grabber:       defaultGrabber,
			GrabberArgs:   args,
			IntervalMS:    defaultIntervalMS,
			LockDir:       defaultLockDir,
			WaitForDevice: true,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
