package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/binsort/binwatch/pkg/camera"
	"github.com/binsort/binwatch/pkg/classify"
	"github.com/binsort/binwatch/pkg/frame"
	"github.com/binsort/binwatch/pkg/motion"
)

func uniformFrame(t *testing.T, v uint32) *frame.Frame {
	t.Helper()
	pix := make([]uint32, 64)
	for i := range pix {
		pix[i] = v
	}
	f, err := frame.New(8, 8, pix)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// countingSource serves a fresh frame on every capture so consecutive
// frames always differ in all 64 pixels.
func countingSource() *camera.Mock {
	var n atomic.Uint32
	return &camera.Mock{
		CaptureFunc: func(ctx context.Context) (*frame.Frame, error) {
			v := n.Add(1)
			pix := make([]uint32, 64)
			for i := range pix {
				pix[i] = v
			}
			return frame.New(8, 8, pix)
		},
	}
}

func TestRunCycleFirstFrameNeverTriggers(t *testing.T) {
	mock := classify.WithAnswer("plastic")
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock))

	state, ev := o.RunCycle(context.Background(), State{})

	if ev.Outcome != OutcomeNoMotion {
		t.Errorf("Outcome = %q, want no_motion on first frame", ev.Outcome)
	}
	if mock.CallCount("Analyze") != 0 {
		t.Error("first frame must not reach the classifier")
	}
	if state.Previous == nil {
		t.Error("first capture must become the previous frame")
	}
	if state.Cycle != 1 || ev.Cycle != 1 {
		t.Errorf("cycle = %d/%d, want 1", state.Cycle, ev.Cycle)
	}
	if ev.ID == "" {
		t.Error("event ID must be set")
	}
}

func TestRunCycleMotionClassifies(t *testing.T) {
	mock := classify.WithAnswer("organic")
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock))

	ctx := context.Background()
	state, _ := o.RunCycle(ctx, State{})
	state, ev := o.RunCycle(ctx, state)

	if ev.Outcome != OutcomeClassified {
		t.Fatalf("Outcome = %q, want classified", ev.Outcome)
	}
	if ev.Label != classify.LabelOrganic {
		t.Errorf("Label = %q, want organic", ev.Label)
	}
	if ev.Measurement.ChangedCount != 64 {
		t.Errorf("ChangedCount = %d, want 64", ev.Measurement.ChangedCount)
	}
	if mock.CallCount("Analyze") != 1 {
		t.Errorf("Analyze calls = %d, want 1", mock.CallCount("Analyze"))
	}
	if state.Cycle != 2 {
		t.Errorf("state.Cycle = %d, want 2", state.Cycle)
	}
}

func TestRunCycleNoMotionSkipsClassifier(t *testing.T) {
	same := uniformFrame(t, 7)
	mock := classify.WithAnswer("plastic")
	o := New(camera.WithFrames(same, same), motion.NewGate(0), classify.NewClient(mock))

	ctx := context.Background()
	state, _ := o.RunCycle(ctx, State{})
	_, ev := o.RunCycle(ctx, state)

	if ev.Outcome != OutcomeNoMotion {
		t.Errorf("Outcome = %q, want no_motion for identical frames", ev.Outcome)
	}
	if ev.Measurement.ChangedCount != 0 {
		t.Errorf("ChangedCount = %d, want 0", ev.Measurement.ChangedCount)
	}
	if mock.CallCount("Analyze") != 0 {
		t.Error("identical frames must not reach the classifier")
	}
}

func TestRunCycleThresholdIsStrict(t *testing.T) {
	base := uniformFrame(t, 0)
	exactly := uniformFrame(t, 0)
	for i := 0; i < 10; i++ {
		exactly.Pix[i] = 1
	}

	mock := classify.WithAnswer("metal")
	o := New(camera.WithFrames(exactly), motion.NewGate(10), classify.NewClient(mock))

	_, ev := o.RunCycle(context.Background(), State{Previous: base})
	if ev.Outcome != OutcomeNoMotion {
		t.Errorf("Outcome = %q, want no_motion when count equals threshold", ev.Outcome)
	}
	if ev.Measurement.ChangedCount != 10 {
		t.Errorf("ChangedCount = %d, want 10", ev.Measurement.ChangedCount)
	}
}

func TestRunCycleCaptureFailureKeepsPrevious(t *testing.T) {
	prev := uniformFrame(t, 3)
	o := New(camera.WithError(errors.New("device busy")), motion.NewGate(10),
		classify.NewClient(classify.NewMock()))

	state, ev := o.RunCycle(context.Background(), State{Previous: prev, Cycle: 4})

	if ev.Outcome != OutcomeCaptureFailed {
		t.Errorf("Outcome = %q, want capture_failed", ev.Outcome)
	}
	if ev.Err == "" {
		t.Error("event must carry the capture error")
	}
	if state.Previous != prev {
		t.Error("capture failure must not touch the previous frame")
	}
	if state.Cycle != 5 {
		t.Errorf("state.Cycle = %d, want 5", state.Cycle)
	}
}

func TestRunCycleDimensionMismatchAdoptsNewFrame(t *testing.T) {
	small, err := frame.New(4, 4, make([]uint32, 16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mock := classify.WithAnswer("plastic")
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock))

	ctx := context.Background()
	state, ev := o.RunCycle(ctx, State{Previous: small})

	if ev.Outcome != OutcomeDimensionMismatch {
		t.Fatalf("Outcome = %q, want dimension_mismatch", ev.Outcome)
	}
	if state.Previous == small {
		t.Error("mismatch must replace the previous frame with the new capture")
	}
	if mock.CallCount("Analyze") != 0 {
		t.Error("mismatched cycle must not classify")
	}

	// The pipeline recovers on the very next cycle.
	_, ev = o.RunCycle(ctx, state)
	if ev.Outcome != OutcomeClassified {
		t.Errorf("next Outcome = %q, want classified after recovery", ev.Outcome)
	}
}

func TestRunCycleClassifierFailureYieldsUnknown(t *testing.T) {
	mock := classify.WithError(errors.New("upstream down"))
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock))

	ctx := context.Background()
	state, _ := o.RunCycle(ctx, State{})
	_, ev := o.RunCycle(ctx, state)

	if ev.Outcome != OutcomeClassified {
		t.Errorf("Outcome = %q, want classified; failures become a label", ev.Outcome)
	}
	if ev.Label != classify.LabelUnknown {
		t.Errorf("Label = %q, want unknown", ev.Label)
	}
	if ev.Err != "" {
		t.Errorf("Err = %q, classification failures must not surface as cycle errors", ev.Err)
	}
}

func TestThreeCyclesClassifyInOrder(t *testing.T) {
	answers := []string{"plastic", "organic", "metal"}
	next := 0
	mock := &classify.Mock{
		AnalyzeFunc: func(ctx context.Context, jpegData []byte, prompt string) (string, error) {
			raw := answers[next]
			next++
			return raw, nil
		},
	}

	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock))

	ctx := context.Background()
	state := State{Previous: uniformFrame(t, 1000)}

	var labels []classify.Label
	var ev Event
	for i := 0; i < 3; i++ {
		state, ev = o.RunCycle(ctx, state)
		if ev.Outcome != OutcomeClassified {
			t.Fatalf("cycle %d outcome = %q, want classified", i+1, ev.Outcome)
		}
		labels = append(labels, ev.Label)
	}

	want := []classify.Label{classify.LabelPlastic, classify.LabelOrganic, classify.LabelMetal}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
	if mock.CallCount("Analyze") != 3 {
		t.Errorf("Analyze calls = %d, want exactly 3", mock.CallCount("Analyze"))
	}
}

func TestRunSerializesClassifications(t *testing.T) {
	var inFlight atomic.Int32
	var overlapped atomic.Bool
	mock := &classify.Mock{
		AnalyzeFunc: func(ctx context.Context, jpegData []byte, prompt string) (string, error) {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			defer inFlight.Add(-1)
			// Slower than the interval: overlap would show here.
			time.Sleep(30 * time.Millisecond)
			return "metal", nil
		},
	}

	events := make(chan Event, 64)
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock),
		WithInterval(5*time.Millisecond),
		WithOnEvent(func(ev Event) { events <- ev }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	classified := 0
	var lastCycle uint64
	deadline := time.After(10 * time.Second)
	for classified < 3 {
		select {
		case ev := <-events:
			if ev.Cycle <= lastCycle {
				t.Errorf("cycle %d emitted after cycle %d", ev.Cycle, lastCycle)
			}
			lastCycle = ev.Cycle
			if ev.Outcome == OutcomeClassified {
				classified++
			}
		case <-deadline:
			t.Fatal("timed out waiting for three classifications")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if overlapped.Load() {
		t.Error("two classifications were in flight at once")
	}
}

func TestRunWaitsIntervalAfterCycleEnd(t *testing.T) {
	const interval = 60 * time.Millisecond

	mock := &classify.Mock{
		AnalyzeFunc: func(ctx context.Context, jpegData []byte, prompt string) (string, error) {
			time.Sleep(25 * time.Millisecond)
			return "plastic", nil
		},
	}

	events := make(chan Event, 16)
	o := New(countingSource(), motion.NewGate(10), classify.NewClient(mock),
		WithInterval(interval),
		WithOnEvent(func(ev Event) { events <- ev }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	var starts []time.Time
	deadline := time.After(10 * time.Second)
	for len(starts) < 3 {
		select {
		case ev := <-events:
			if ev.Outcome == OutcomeClassified {
				starts = append(starts, ev.Start)
			}
		case <-deadline:
			t.Fatal("timed out collecting cycles")
		}
	}

	// The pause is end-to-start, so consecutive starts must be at
	// least interval plus the classification time apart. Allow slack
	// for scheduling.
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < interval {
			t.Errorf("cycle %d started %v after previous, want >= %v", i+1, gap, interval)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	o := New(countingSource(), motion.NewGate(10),
		classify.NewClient(classify.NewMock()),
		WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Let the immediate first cycle run, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil on shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
