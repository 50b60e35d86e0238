package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"

	// Board cameras serve JPEG; PNG shows up from test fixtures.
	_ "image/jpeg"
	_ "image/png"

	"github.com/binsort/binwatch/pkg/frame"
)

// Snapshot captures by fetching a still image from a networked camera,
// the /capture endpoint an ESP32-CAM style board exposes.
type Snapshot struct {
	url    string
	http   *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewSnapshot builds a snapshot source for the configured URL.
func NewSnapshot(opts ...Option) (*Snapshot, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.SnapshotURL == "" {
		return nil, fmt.Errorf("camera: snapshot URL required")
	}

	return &Snapshot{
		url:    cfg.SnapshotURL,
		http:   cfg.HTTPClient,
		logger: cfg.Logger.With("component", "camera.snapshot"),
	}, nil
}

// Capture fetches and decodes one still image.
func (s *Snapshot) Capture(ctx context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("camera: build snapshot request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camera: fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera: snapshot endpoint returned %d", resp.StatusCode)
	}

	src, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("camera: decode snapshot: %w", err)
	}

	f := frame.FromImage(src)
	s.logger.Debug("snapshot captured",
		"format", format,
		"size", fmt.Sprintf("%dx%d", f.Width, f.Height))
	return f, nil
}

// Close marks the source closed. The HTTP client is shared and stays
// open.
func (s *Snapshot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify Snapshot implements Source at compile time.
var _ Source = (*Snapshot)(nil)
