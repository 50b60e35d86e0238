// Package pipeline drives the capture, motion, and classification
// stages as one serialized cycle loop. At most one cycle, and so at
// most one classification, is ever in flight: the next tick is armed
// only after the current cycle has fully completed.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/binsort/binwatch/pkg/camera"
	"github.com/binsort/binwatch/pkg/classify"
	"github.com/binsort/binwatch/pkg/frame"
	"github.com/binsort/binwatch/pkg/motion"
)

// DefaultInterval is the pause between the end of one cycle and the
// start of the next.
const DefaultInterval = 4000 * time.Millisecond

// Outcome says how a cycle ended.
type Outcome string

// The possible cycle outcomes.
const (
	OutcomeCaptureFailed     Outcome = "capture_failed"
	OutcomeDimensionMismatch Outcome = "dimension_mismatch"
	OutcomeNoMotion          Outcome = "no_motion"
	OutcomeClassified        Outcome = "classified"
)

// State carries everything one cycle hands to the next. The
// orchestrator keeps no hidden frame state; callers own the State and
// thread it through RunCycle.
type State struct {
	// Previous is the frame most recently captured, nil before the
	// first successful capture.
	Previous *frame.Frame

	// Cycle counts completed cycles.
	Cycle uint64
}

// Event describes one completed cycle.
type Event struct {
	ID          string            `json:"id"`
	Cycle       uint64            `json:"cycle"`
	Start       time.Time         `json:"start"`
	ElapsedMs   int64             `json:"elapsed_ms"`
	Outcome     Outcome           `json:"outcome"`
	Measurement frame.Measurement `json:"measurement"`
	Label       classify.Label    `json:"label,omitempty"`
	Raw         string            `json:"raw,omitempty"`
	Err         string            `json:"error,omitempty"`
}

// Orchestrator owns the cycle loop.
type Orchestrator struct {
	source     camera.Source
	gate       *motion.Gate
	classifier *classify.Client
	interval   time.Duration
	onEvent    func(Event)
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInterval sets the end-to-start pause between cycles.
func WithInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithOnEvent sets a callback invoked after every cycle. It runs on
// the cycle goroutine and must not block.
func WithOnEvent(fn func(Event)) Option {
	return func(o *Orchestrator) { o.onEvent = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an orchestrator over a frame source, a motion gate, and
// a classification client.
func New(source camera.Source, gate *motion.Gate, classifier *classify.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		gate:       gate,
		classifier: classifier,
		interval:   DefaultInterval,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "pipeline")
	return o
}

// RunCycle executes one capture-compare-classify cycle and returns
// the updated state plus the cycle's event. It never returns an
// error: capture failures, dimension mismatches, and classification
// failures are all absorbed into the event outcome.
func (o *Orchestrator) RunCycle(ctx context.Context, state State) (State, Event) {
	start := time.Now()
	state.Cycle++
	ev := Event{
		ID:    uuid.NewString(),
		Cycle: state.Cycle,
		Start: start,
	}

	current, err := o.source.Capture(ctx)
	if err != nil {
		// The previous frame is kept; next cycle compares against it.
		ev.Outcome = OutcomeCaptureFailed
		ev.Err = err.Error()
		ev.ElapsedMs = time.Since(start).Milliseconds()
		o.logger.Warn("capture failed", "cycle", ev.Cycle, "error", err)
		o.emit(ev)
		return state, ev
	}

	decision, err := o.gate.Evaluate(current, state.Previous)
	if err != nil {
		// Comparison impossible, usually a resolution change. Adopt
		// the new frame so the next cycle compares against what the
		// camera now delivers; one cycle is lost, not the pipeline.
		state.Previous = current
		ev.Outcome = OutcomeDimensionMismatch
		ev.Err = err.Error()
		ev.ElapsedMs = time.Since(start).Milliseconds()
		o.logger.Warn("frame comparison skipped", "cycle", ev.Cycle, "error", err)
		o.emit(ev)
		return state, ev
	}

	state.Previous = current
	ev.Measurement = decision.Measurement

	if !decision.Triggered {
		ev.Outcome = OutcomeNoMotion
		ev.ElapsedMs = time.Since(start).Milliseconds()
		o.logger.Debug("no motion",
			"cycle", ev.Cycle,
			"changed_pixels", decision.Measurement.ChangedCount)
		o.emit(ev)
		return state, ev
	}

	o.logger.Info("motion detected",
		"cycle", ev.Cycle,
		"changed_pixels", decision.Measurement.ChangedCount,
		"changed_fraction", decision.Measurement.ChangedFraction)

	res := o.classifier.Classify(ctx, current)
	ev.Outcome = OutcomeClassified
	ev.Label = res.Label
	ev.Raw = res.Raw
	ev.ElapsedMs = time.Since(start).Milliseconds()
	o.logger.Info("cycle classified",
		"cycle", ev.Cycle,
		"label", res.Label,
		"elapsed_ms", ev.ElapsedMs)
	o.emit(ev)
	return state, ev
}

// Run executes cycles until ctx is done. The first cycle starts
// immediately; each later cycle starts interval after the previous
// one finished. Run returns only after any in-flight cycle has
// completed.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline started",
		"interval", o.interval,
		"threshold", o.gate.Threshold)

	state := State{}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("pipeline stopped", "cycles", state.Cycle)
			return nil
		case <-timer.C:
			state, _ = o.RunCycle(ctx, state)
			timer.Reset(o.interval)
		}
	}
}

func (o *Orchestrator) emit(ev Event) {
	if o.onEvent != nil {
		o.onEvent(ev)
	}
}
