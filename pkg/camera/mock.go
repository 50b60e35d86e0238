package camera

import (
	"context"
	"sync"
	"time"

	"github.com/binsort/binwatch/pkg/frame"
)

// Mock implements Source for testing.
type Mock struct {
	// CaptureFunc is called when Capture is invoked.
	CaptureFunc func(ctx context.Context) (*frame.Frame, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock source that returns an all-black 8x8 frame.
func NewMock() *Mock {
	return &Mock{
		CaptureFunc: func(ctx context.Context) (*frame.Frame, error) {
			f, _ := frame.New(8, 8, make([]uint32, 64))
			return f, nil
		},
	}
}

// WithFrames returns a mock that serves the given frames in order and
// keeps serving the last one once the sequence is exhausted.
func WithFrames(frames ...*frame.Frame) *Mock {
	i := 0
	var mu sync.Mutex
	return &Mock{
		CaptureFunc: func(ctx context.Context) (*frame.Frame, error) {
			mu.Lock()
			defer mu.Unlock()
			f := frames[i]
			if i < len(frames)-1 {
				i++
			}
			return f, nil
		},
	}
}

// WithError returns a mock whose captures always fail with err.
func WithError(err error) *Mock {
	return &Mock{
		CaptureFunc: func(ctx context.Context) (*frame.Frame, error) {
			return nil, err
		},
	}
}

// Capture calls CaptureFunc and records the call.
func (m *Mock) Capture(ctx context.Context) (*frame.Frame, error) {
	m.record("Capture")
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx)
	}
	return nil, ErrClosed
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Source at compile time.
var _ Source = (*Mock)(nil)
