package serial

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Listener reads CRLF-terminated lines from an open device and logs
// each one as it arrives. It runs on its own goroutine, independent of
// the capture pipeline: telemetry keeps flowing while a classification
// is in flight.
type Listener struct {
	dev    io.ReadWriteCloser
	logger *slog.Logger
	onLine func(string)

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	workers    sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool

	lines atomic.Uint64
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithOnLine sets a callback invoked for every received line, after
// the terminator has been stripped. The callback runs on the read
// goroutine and must not block.
func WithOnLine(fn func(line string)) ListenerOption {
	return func(l *Listener) { l.onLine = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// NewListener wraps an open device.
func NewListener(dev io.ReadWriteCloser, opts ...ListenerOption) *Listener {
	l := &Listener{
		dev:    dev,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "serial")
	return l
}

// Start launches the read goroutine. It returns immediately; lines
// are logged as they arrive until the device closes or ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("serial: listener closed")
	}
	if l.started {
		return errors.New("serial: listener already started")
	}
	l.started = true
	l.cancelCtx, l.cancelFunc = context.WithCancel(ctx)

	l.workers.Add(1)
	go l.readLoop()
	return nil
}

func (l *Listener) readLoop() {
	defer l.workers.Done()

	r := bufio.NewReader(l.dev)
	for {
		select {
		case <-l.cancelCtx.Done():
			return
		default:
		}

		line, err := r.ReadString('\n')
		if err != nil {
			switch {
			case l.cancelCtx.Err() != nil:
				// Shutdown closed the device under us.
			case errors.Is(err, io.EOF):
				l.logger.Warn("serial device closed the line")
			default:
				l.logger.Error("serial read failed", "error", err)
			}
			return
		}

		// Lines end "\r\n"; strip the whole terminator.
		line = strings.TrimRight(line, "\r\n")
		l.lines.Add(1)
		l.logger.Info("telemetry line", "line", line)
		if l.onLine != nil {
			l.onLine(line)
		}
	}
}

// Lines returns how many lines have been received so far.
func (l *Listener) Lines() uint64 {
	return l.lines.Load()
}

// Close stops the read goroutine, closes the device, and waits for
// the goroutine to exit. Safe to call more than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	cancel := l.cancelFunc
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Closing the device unblocks a pending read.
	err := l.dev.Close()
	l.workers.Wait()
	return err
}
