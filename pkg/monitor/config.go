// Package monitor assembles the capture pipeline, serial telemetry
// listener, and status server into one runnable application.
package monitor

import (
	"os"
	"time"

	"github.com/binsort/binwatch/internal/config"
	"github.com/binsort/binwatch/pkg/camera"
	"github.com/binsort/binwatch/pkg/classify"
)

// Default configuration values.
const (
	DefaultIntervalMs        = 4000
	DefaultMotionThreshold   = 2_000_000
	DefaultFrameWidth        = 1920
	DefaultFrameHeight       = 1080
	DefaultSerialBaud        = 115200
	DefaultStatusAddr        = ":8093"
	DefaultClassifyTimeoutMs = 20000
)

// Config holds all configuration for the binwatch application.
// Flag parsing is done in cmd/binwatch/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// IntervalMs is the pause between the end of one capture cycle
	// and the start of the next, in milliseconds.
	IntervalMs int

	// MotionThreshold is the number of changed pixels a frame pair
	// must exceed before classification runs.
	MotionThreshold int

	// Frame dimensions requested from the camera.
	FrameWidth  int
	FrameHeight int

	// CameraDevice selects the local capture device. Ignored when
	// SnapshotURL is set.
	CameraDevice string

	// SnapshotURL fetches frames over HTTP instead of a local device.
	SnapshotURL string

	// Serial telemetry. Empty SerialPath disables the listener.
	SerialPath string
	SerialBaud int

	// StatusAddr is the listen address of the status server.
	// Empty disables the server.
	StatusAddr string

	// ClassifyTimeoutMs bounds a single classification request.
	ClassifyTimeoutMs int

	// API configuration (typically from environment variables).
	GeminiKey   string
	GeminiModel string
}

// DefaultConfig returns sensible defaults for the binwatch monitor.
func DefaultConfig() Config {
	return Config{
		IntervalMs:        DefaultIntervalMs,
		MotionThreshold:   DefaultMotionThreshold,
		FrameWidth:        DefaultFrameWidth,
		FrameHeight:       DefaultFrameHeight,
		CameraDevice:      camera.DefaultDevice,
		SerialBaud:        DefaultSerialBaud,
		StatusAddr:        DefaultStatusAddr,
		ClassifyTimeoutMs: DefaultClassifyTimeoutMs,
		GeminiModel:       classify.DefaultModel,
	}
}

// LoadEnvConfig applies environment overrides on top of the current
// values. Call this before flag parsing so flags keep the last word.
func (c *Config) LoadEnvConfig() {
	c.IntervalMs = config.GetInt("BINWATCH_INTERVAL_MS", c.IntervalMs)
	c.MotionThreshold = config.GetInt("BINWATCH_MOTION_THRESHOLD", c.MotionThreshold)
	c.FrameWidth = config.GetInt("BINWATCH_FRAME_WIDTH", c.FrameWidth)
	c.FrameHeight = config.GetInt("BINWATCH_FRAME_HEIGHT", c.FrameHeight)
	c.CameraDevice = config.Get("BINWATCH_CAMERA_DEVICE", c.CameraDevice)
	c.SnapshotURL = config.Get("BINWATCH_SNAPSHOT_URL", c.SnapshotURL)
	c.SerialPath = config.Get("BINWATCH_SERIAL_PATH", c.SerialPath)
	c.SerialBaud = config.GetInt("BINWATCH_SERIAL_BAUD", c.SerialBaud)
	c.ClassifyTimeoutMs = config.GetInt("BINWATCH_CLASSIFY_TIMEOUT_MS", c.ClassifyTimeoutMs)
	c.GeminiKey = config.Get("GEMINI_API_KEY", c.GeminiKey)
	c.GeminiModel = config.Get("GEMINI_MODEL", c.GeminiModel)

	// An explicitly empty status addr disables the server.
	if v, ok := os.LookupEnv("BINWATCH_STATUS_ADDR"); ok {
		c.StatusAddr = v
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.GeminiKey == "" {
		return &ConfigError{Field: "GeminiKey", Message: "GEMINI_API_KEY environment variable is required"}
	}
	if c.IntervalMs <= 0 {
		return &ConfigError{Field: "IntervalMs", Message: "capture interval must be positive"}
	}
	if c.MotionThreshold < 0 {
		return &ConfigError{Field: "MotionThreshold", Message: "motion threshold must not be negative"}
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return &ConfigError{Field: "FrameWidth", Message: "frame dimensions must be positive"}
	}
	if c.ClassifyTimeoutMs <= 0 {
		return &ConfigError{Field: "ClassifyTimeoutMs", Message: "classification timeout must be positive"}
	}
	if c.SerialPath != "" && c.SerialBaud <= 0 {
		return &ConfigError{Field: "SerialBaud", Message: "serial baud rate must be positive"}
	}
	return nil
}

// Interval returns the capture cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ClassifyTimeout returns the per-classification budget as a duration.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutMs) * time.Millisecond
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
