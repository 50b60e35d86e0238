package frame

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned by Diff when the two frames do not
// share the same width and height.
var ErrDimensionMismatch = errors.New("frame: dimension mismatch")

// Measurement reports how many pixels differ between two frames.
// ChangedFraction is diagnostic; trigger decisions use the count.
type Measurement struct {
	ChangedCount    int     `json:"changed_count"`
	ChangedFraction float64 `json:"changed_fraction"`
}

// Diff counts the pixels whose packed words differ between a and b.
// The comparison is exact, with no per-channel tolerance, and is
// symmetric in its arguments.
func Diff(a, b *Frame) (Measurement, error) {
	if a == nil || b == nil {
		return Measurement{}, errors.New("frame: diff of nil frame")
	}
	if a.Width != b.Width || a.Height != b.Height {
		return Measurement{}, fmt.Errorf("%w: %dx%d vs %dx%d",
			ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height)
	}

	changed := 0
	for i, p := range a.Pix {
		if p != b.Pix[i] {
			changed++
		}
	}

	m := Measurement{ChangedCount: changed}
	if total := len(a.Pix); total > 0 {
		m.ChangedFraction = float64(changed) / float64(total)
	}
	return m, nil
}
