package motion

import (
	"errors"
	"testing"

	"github.com/binsort/binwatch/pkg/frame"
)

// frameWithChanges builds a 20×20 frame with n pixels differing from
// the all-black base frame.
func frameWithChanges(t *testing.T, n int) *frame.Frame {
	t.Helper()
	pix := make([]uint32, 400)
	for i := 0; i < n; i++ {
		pix[i] = 0xffffffff
	}
	f, err := frame.New(20, 20, pix)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestEvaluateNoPreviousFrame(t *testing.T) {
	g := NewGate(0)
	current := frameWithChanges(t, 400)

	d, err := g.Evaluate(current, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Triggered {
		t.Error("first frame must never trigger")
	}
	if d.Measurement.ChangedCount != 0 {
		t.Errorf("ChangedCount = %d, want 0", d.Measurement.ChangedCount)
	}
}

func TestEvaluateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		changed   int
		threshold int
		want      bool
	}{
		{name: "above threshold triggers", changed: 150, threshold: 100, want: true},
		{name: "below threshold does not", changed: 50, threshold: 100, want: false},
		{name: "equal to threshold does not", changed: 100, threshold: 100, want: false},
		{name: "one over threshold triggers", changed: 101, threshold: 100, want: true},
		{name: "zero threshold with one change", changed: 1, threshold: 0, want: true},
		{name: "identical frames", changed: 0, threshold: 0, want: false},
	}

	previous := frameWithChanges(t, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.threshold)
			d, err := g.Evaluate(frameWithChanges(t, tt.changed), previous)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Triggered != tt.want {
				t.Errorf("Triggered = %v, want %v", d.Triggered, tt.want)
			}
			if d.Measurement.ChangedCount != tt.changed {
				t.Errorf("ChangedCount = %d, want %d", d.Measurement.ChangedCount, tt.changed)
			}
		})
	}
}

func TestEvaluateDimensionMismatch(t *testing.T) {
	g := NewGate(100)
	current := frameWithChanges(t, 0)

	pix := make([]uint32, 100)
	previous, err := frame.New(10, 10, pix)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := g.Evaluate(current, previous); !errors.Is(err, frame.ErrDimensionMismatch) {
		t.Errorf("Evaluate error = %v, want ErrDimensionMismatch", err)
	}
}
