package camera

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/binsort/binwatch/internal/httpc"
)

// Default capture geometry. The motion gate compares frames
// pixel-for-pixel, so every capture must come back at this size.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
	DefaultDevice = "0"
)

// Config holds source configuration.
type Config struct {
	// Device is the local capture device, an index ("0") or a path
	// ("/dev/video0"). Used by the webcam source.
	Device string

	// Width and Height are requested from the device and enforced on
	// snapshots.
	Width  int
	Height int

	// SnapshotURL is the still-image endpoint of a networked camera.
	// Used by the snapshot source.
	SnapshotURL string

	// HTTPClient performs snapshot requests.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring sources.
type Option func(*Config)

// WithDevice sets the local capture device index or path.
func WithDevice(device string) Option {
	return func(c *Config) { c.Device = device }
}

// WithSize sets the capture width and height.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithSnapshotURL sets the still-image endpoint.
func WithSnapshotURL(url string) Option {
	return func(c *Config) { c.SnapshotURL = url }
}

// WithHTTPClient sets the HTTP client used for snapshot requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for the fixed bin camera.
func DefaultConfig() *Config {
	return &Config{
		Device:     DefaultDevice,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid size %dx%d", c.Width, c.Height)
	}
	return nil
}
