package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/binsort/binwatch/pkg/frame"
)

// Webcam captures from a local V4L2 device through OpenCV.
type Webcam struct {
	vc     *gocv.VideoCapture
	config *Config
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewWebcam opens the configured device and requests the configured
// frame size. Some drivers silently keep their native size; the frame
// dimensions of each capture are whatever the driver delivered.
func NewWebcam(opts ...Option) (*Webcam, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %q: %w", cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	w := &Webcam{
		vc:     vc,
		config: cfg,
		logger: cfg.Logger.With("component", "camera.webcam"),
	}
	w.logger.Info("camera opened",
		"device", cfg.Device,
		"requested_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return w, nil
}

// Capture reads one frame from the device.
func (w *Webcam) Capture(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := w.vc.Read(&img); !ok || img.Empty() {
		return nil, fmt.Errorf("camera: read from device %q failed", w.config.Device)
	}

	src, err := img.ToImage()
	if err != nil {
		return nil, fmt.Errorf("camera: convert frame: %w", err)
	}

	return frame.FromImage(src), nil
}

// Close releases the device. Captures after Close return ErrClosed.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Info("camera closed", "device", w.config.Device)
	return w.vc.Close()
}

// Verify Webcam implements Source at compile time.
var _ Source = (*Webcam)(nil)
