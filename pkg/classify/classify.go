// Package classify turns captured frames into waste labels by asking
// an external vision model what sits in the bin.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/binsort/binwatch/pkg/frame"
)

// Prompt is sent with every frame. The fixed single-word question
// keeps answers machine-parseable.
const Prompt = "Look at the sorting bin in this image and answer with exactly one word: " +
	"plastic if the most prominent item is plastic, " +
	"organic if it is food or plant waste, " +
	"metal if it is metal, " +
	"or null if the bin is empty. " +
	"Answer with only that one word and nothing else."

// Provider answers a free-form question about one JPEG image.
type Provider interface {
	// Analyze returns the raw model text for the image and prompt.
	Analyze(ctx context.Context, jpegData []byte, prompt string) (string, error)

	// Name identifies the provider in logs and errors.
	Name() string
}

// Result is one classification outcome.
type Result struct {
	Label Label

	// Raw is the verbatim model text, empty when the request failed.
	Raw string

	Elapsed time.Duration
}

// Client classifies frames through a Provider. Every failure mode,
// from JPEG encoding through transport and timeout to an unparseable
// answer, is absorbed into LabelUnknown so a bad cycle never stalls
// the pipeline.
type Client struct {
	provider Provider
	prompt   string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClient wraps a provider with the fixed prompt and the
// per-classification timeout.
func NewClient(p Provider, opts ...Option) *Client {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Client{
		provider: p,
		prompt:   Prompt,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With("component", "classify"),
	}
}

// Classify sends f to the provider and returns a Result. It never
// returns an error: the caller always gets a label, worst case
// LabelUnknown.
func (c *Client) Classify(ctx context.Context, f *frame.Frame) Result {
	start := time.Now()

	if f == nil {
		c.logger.Error("classify called with nil frame")
		return Result{Label: LabelUnknown, Elapsed: time.Since(start)}
	}

	jpegData, err := EncodeJPEG(f)
	if err != nil {
		c.logger.Error("frame encode failed", "error", err)
		return Result{Label: LabelUnknown, Elapsed: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.provider.Analyze(ctx, jpegData, c.prompt)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("classification timed out",
				"provider", c.provider.Name(),
				"timeout", c.timeout,
				"elapsed_ms", elapsed.Milliseconds())
		} else {
			c.logger.Warn("classification failed",
				"provider", c.provider.Name(),
				"elapsed_ms", elapsed.Milliseconds(),
				"error", err)
		}
		return Result{Label: LabelUnknown, Elapsed: elapsed}
	}

	label := ParseLabel(raw)
	switch label {
	case LabelUnknown:
		// The request succeeded but the model ignored the one-word
		// contract. Distinct from a clean empty-bin answer.
		c.logger.Warn("unparseable model answer",
			"provider", c.provider.Name(),
			"raw", raw,
			"elapsed_ms", elapsed.Milliseconds())
	case LabelNone:
		c.logger.Debug("bin empty",
			"elapsed_ms", elapsed.Milliseconds())
	default:
		c.logger.Info("frame classified",
			"label", label,
			"elapsed_ms", elapsed.Milliseconds())
	}

	return Result{Label: label, Raw: raw, Elapsed: elapsed}
}
