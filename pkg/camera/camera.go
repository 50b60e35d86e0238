// Package camera acquires frames from the fixed camera over the bin.
// Two sources exist: a local V4L2 device through OpenCV, and an HTTP
// snapshot endpoint for networked board cameras.
package camera

import (
	"context"
	"errors"

	"github.com/binsort/binwatch/pkg/frame"
)

// ErrClosed is returned by Capture after the source has been closed.
var ErrClosed = errors.New("camera: source closed")

// Source produces frames on demand. Capture blocks until a frame is
// available or the context is done; a failed capture is a per-cycle
// event, not a terminal condition.
type Source interface {
	Capture(ctx context.Context) (*frame.Frame, error)
	Close() error
}
