package scan

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/ocr"
)

// Config wires a Scanner to its collaborators.
type Config struct {
	// Camera backs camera sessions. Nil means no camera is available.
	Camera capture.Camera

	// AcquirerOptions are applied to every session's Acquirer.
	AcquirerOptions []capture.AcquirerOption

	// Recognizer defaults to an ocr.Recognizer over Tesseract.
	Recognizer Recognizer

	// Finder is searched by Session.Lookup.
	Finder collection.Finder

	// Flow is the default for new sessions.
	Flow Flow

	Logger *slog.Logger
}

// Scanner hands out sessions. At most one session is open at a time; opening
// a new one closes the previous one and releases its camera.
type Scanner struct {
	cfg Config

	mu      sync.Mutex
	current *Session
}

// NewScanner creates a Scanner.
func NewScanner(cfg Config) *Scanner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Flow == "" {
		cfg.Flow = FlowStructured
	}
	if cfg.Recognizer == nil {
		cfg.Recognizer = ocr.NewRecognizer(nil, ocr.WithLogger(cfg.Logger))
	}
	return &Scanner{cfg: cfg}
}

// SessionOption configures a Session at Open.
type SessionOption func(*Session)

// WithFlow overrides the scanner's default flow.
func WithFlow(f Flow) SessionOption {
	return func(s *Session) {
		if f != "" {
			s.flow = f
		}
	}
}

// WithListener sets the event listener.
func WithListener(l Listener) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.listener = l
		}
	}
}

// Open closes the current session, if any, and starts a new one in Idle.
func (sc *Scanner) Open(opts ...SessionOption) *Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.current != nil {
		sc.current.Close()
	}

	id := uuid.NewString()
	logger := sc.cfg.Logger.With("session", id)

	acqOpts := append([]capture.AcquirerOption{capture.WithLogger(logger)}, sc.cfg.AcquirerOptions...)
	s := &Session{
		id:         id,
		acq:        capture.NewAcquirer(sc.cfg.Camera, acqOpts...),
		recognizer: sc.cfg.Recognizer,
		finder:     sc.cfg.Finder,
		flow:       sc.cfg.Flow,
		listener:   Callbacks{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = s.flow.extractor()

	sc.current = s
	logger.Debug("session opened", "flow", s.flow)
	return s
}

// Current returns the open session, or nil.
func (sc *Scanner) Current() *Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.current
}

// Close closes the open session.
func (sc *Scanner) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.current != nil {
		sc.current.Close()
		sc.current = nil
	}
}
