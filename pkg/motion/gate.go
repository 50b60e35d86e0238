// Package motion decides whether two consecutive frames differ enough
// to mean something moved in the bin.
package motion

import (
	"github.com/binsort/binwatch/pkg/frame"
)

// Gate compares consecutive frames against a changed-pixel threshold.
type Gate struct {
	// Threshold is the changed-pixel count that must be exceeded to
	// trigger. Strictly greater: a count equal to the threshold does
	// not trigger.
	Threshold int
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Triggered   bool
	Measurement frame.Measurement
}

// NewGate returns a gate with the given threshold.
func NewGate(threshold int) *Gate {
	return &Gate{Threshold: threshold}
}

// Evaluate compares current against previous. A nil previous frame
// (nothing captured yet) never triggers. A dimension mismatch between
// the frames is reported as an error from the diff.
func (g *Gate) Evaluate(current, previous *frame.Frame) (Decision, error) {
	if previous == nil {
		return Decision{}, nil
	}

	m, err := frame.Diff(current, previous)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Triggered:   m.ChangedCount > g.Threshold,
		Measurement: m,
	}, nil
}
