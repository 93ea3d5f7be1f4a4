package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/imaging"
)

// Recognizer runs an Engine over captures with the product-code settings.
type Recognizer struct {
	engine     Engine
	opts       Options
	preprocess *imaging.Options
	logger     *slog.Logger
}

// RecognizerOption configures a Recognizer.
type RecognizerOption func(*Recognizer)

// WithOptions replaces the engine options. An empty Whitelist falls back to
// DefaultWhitelist.
func WithOptions(opts Options) RecognizerOption {
	return func(r *Recognizer) { r.opts = opts }
}

// WithPreprocess prepares every capture with imaging.Preprocess before
// recognition.
func WithPreprocess(opts imaging.Options) RecognizerOption {
	return func(r *Recognizer) { r.preprocess = &opts }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RecognizerOption {
	return func(r *Recognizer) { r.logger = l }
}

// NewRecognizer wraps engine. A nil engine uses TesseractEngine.
func NewRecognizer(engine Engine, opts ...RecognizerOption) *Recognizer {
	if engine == nil {
		engine = TesseractEngine{}
	}
	r := &Recognizer{
		engine: engine,
		opts:   DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.opts.Whitelist == "" {
		r.opts.Whitelist = DefaultWhitelist
	}
	return r
}

// Options returns the engine options in effect.
func (r *Recognizer) Options() Options { return r.opts }

// Recognize returns the raw text found in c.
//
// onProgress, when set, receives values in [0, 100] that never decrease; a
// successful call always ends with 100. Engine failures come back as
// *EngineError. Context cancellation is returned as is.
func (r *Recognizer) Recognize(ctx context.Context, c *capture.RawCapture, onProgress ProgressFunc) (string, error) {
	if c == nil || c.Image == nil {
		return "", &EngineError{Err: errors.New("no image to recognize")}
	}

	p := newProgress(onProgress)
	p.report(0)

	img := c.Image
	if r.preprocess != nil {
		prepared, err := imaging.Preprocess(img, *r.preprocess)
		if err != nil {
			return "", &EngineError{Err: fmt.Errorf("failed to preprocess image: %w", err)}
		}
		img = prepared
	}

	r.logger.Debug("recognizing", "source", c.Source, "format", c.Format,
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	text, err := r.engine.Recognize(ctx, img, r.opts, p.report)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		r.logger.Warn("recognition failed", "error", err)
		var ee *EngineError
		if errors.As(err, &ee) {
			return "", ee
		}
		return "", &EngineError{Err: err}
	}

	p.report(100)
	r.logger.Debug("recognized", "chars", len(text))
	return text, nil
}

// progress clamps and orders reports before passing them on.
type progress struct {
	mu   sync.Mutex
	last int
	fn   ProgressFunc
}

func newProgress(fn ProgressFunc) *progress {
	return &progress{last: -1, fn: fn}
}

func (p *progress) report(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	p.mu.Lock()
	if pct <= p.last {
		p.mu.Unlock()
		return
	}
	p.last = pct
	p.mu.Unlock()

	if p.fn != nil {
		p.fn(pct)
	}
}
