package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/binsort/binwatch/internal/log"
	"github.com/binsort/binwatch/pkg/camera"
	"github.com/binsort/binwatch/pkg/classify"
	"github.com/binsort/binwatch/pkg/motion"
	"github.com/binsort/binwatch/pkg/pipeline"
	"github.com/binsort/binwatch/pkg/serial"
	"github.com/binsort/binwatch/pkg/web"
)

// App owns every component of the running monitor and manages their
// lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Capture and classification
	source       camera.Source
	gate         *motion.Gate
	classifier   *classify.Client
	orchestrator *pipeline.Orchestrator

	// Telemetry sidecar
	listener *serial.Listener

	// Status surface
	web *web.Server

	shutdownOnce sync.Once
}

// New creates the application from cfg. Call Init before Run.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		config: cfg,
		logger: log.With("component", "monitor"),
	}, nil
}

// Init builds all components. Call this after New() and before Run().
func (a *App) Init() error {
	if err := a.initSource(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := a.initClassifier(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	a.gate = motion.NewGate(a.config.MotionThreshold)

	if a.config.StatusAddr != "" {
		a.web = web.NewServer(a.config.StatusAddr, a.logger)
	}
	if err := a.initSerial(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	a.orchestrator = pipeline.New(a.source, a.gate, a.classifier,
		pipeline.WithInterval(a.config.Interval()),
		pipeline.WithOnEvent(a.onEvent),
		pipeline.WithLogger(a.logger),
	)
	return nil
}

// Run starts the telemetry listener and status server, then drives
// the capture loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.orchestrator == nil {
		return errors.New("monitor: Init not called")
	}

	if a.listener != nil {
		if err := a.listener.Start(ctx); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}
	if a.web != nil {
		a.web.StartAsync()
	}

	a.logger.Info("binwatch running",
		"interval", a.config.Interval(),
		"threshold", a.config.MotionThreshold,
		"serial", a.config.SerialPath != "",
		"status_addr", a.config.StatusAddr,
	)
	return a.orchestrator.Run(ctx)
}

// RunOnce captures a baseline frame and then runs one evaluated
// cycle. It verifies camera and model wiring in the field without
// starting the loop.
func (a *App) RunOnce(ctx context.Context) error {
	if a.orchestrator == nil {
		return errors.New("monitor: Init not called")
	}

	state, ev := a.orchestrator.RunCycle(ctx, pipeline.State{})
	if ev.Outcome == pipeline.OutcomeCaptureFailed {
		return fmt.Errorf("baseline capture: %s", ev.Err)
	}
	_, ev = a.orchestrator.RunCycle(ctx, state)
	if ev.Outcome == pipeline.OutcomeCaptureFailed {
		return fmt.Errorf("capture: %s", ev.Err)
	}
	return nil
}

// Shutdown gracefully stops all components. Safe to call more than
// once.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		if a.web != nil {
			if err := a.web.Shutdown(); err != nil {
				a.logger.Warn("status server shutdown", "error", err)
			}
		}
		if a.listener != nil {
			if err := a.listener.Close(); err != nil {
				a.logger.Warn("serial close", "error", err)
			}
		}
		if a.source != nil {
			if err := a.source.Close(); err != nil {
				a.logger.Warn("camera close", "error", err)
			}
		}
		a.logger.Info("binwatch stopped")
	})
}

// initSource builds the frame source. A snapshot URL takes precedence
// over a local device.
func (a *App) initSource() error {
	if a.config.SnapshotURL != "" {
		src, err := camera.NewSnapshot(
			camera.WithSnapshotURL(a.config.SnapshotURL),
			camera.WithLogger(a.logger),
		)
		if err != nil {
			return err
		}
		a.source = src
		return nil
	}

	src, err := camera.NewWebcam(
		camera.WithDevice(a.config.CameraDevice),
		camera.WithSize(a.config.FrameWidth, a.config.FrameHeight),
		camera.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.source = src
	return nil
}

// initClassifier builds the Gemini provider and the absorbing client
// around it.
func (a *App) initClassifier() error {
	opts := []classify.Option{
		classify.WithAPIKey(a.config.GeminiKey),
		classify.WithLogger(a.logger),
	}
	if a.config.GeminiModel != "" {
		opts = append(opts, classify.WithModel(a.config.GeminiModel))
	}
	provider, err := classify.NewGemini(opts...)
	if err != nil {
		return err
	}

	a.classifier = classify.NewClient(provider,
		classify.WithTimeout(a.config.ClassifyTimeout()),
		classify.WithLogger(a.logger),
	)
	return nil
}

// initSerial opens the telemetry port when one is configured.
func (a *App) initSerial() error {
	if a.config.SerialPath == "" {
		return nil
	}

	opts := serial.DefaultOptions()
	opts.BaudRate = a.config.SerialBaud
	dev, err := serial.Open(a.config.SerialPath, opts)
	if err != nil {
		return err
	}

	a.listener = serial.NewListener(dev,
		serial.WithLogger(a.logger),
		serial.WithOnLine(a.onTelemetryLine),
	)
	return nil
}

// onEvent mirrors each cycle into the status server and fans it out
// to websocket observers.
func (a *App) onEvent(ev pipeline.Event) {
	if a.web == nil {
		return
	}
	a.web.UpdateStatus(func(s *web.Status) {
		s.Cycles = ev.Cycle
		s.LastOutcome = string(ev.Outcome)
		s.LastChangedPixels = ev.Measurement.ChangedCount
		s.LastCycleAt = ev.Start
		if ev.Outcome == pipeline.OutcomeClassified {
			s.LastLabel = string(ev.Label)
		}
	})
	a.web.PublishEvent(ev)
}

// onTelemetryLine runs on the listener's read goroutine, so it only
// bumps the status counter.
func (a *App) onTelemetryLine(string) {
	if a.web == nil || a.listener == nil {
		return
	}
	n := a.listener.Lines()
	a.web.UpdateStatus(func(s *web.Status) {
		s.SerialLines = n
	})
}
