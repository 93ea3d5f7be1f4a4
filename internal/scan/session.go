package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ironsheep/diecast-scan/internal/basecode"
	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/ocr"
)

// Recognizer turns a capture into raw text. *ocr.Recognizer implements it.
type Recognizer interface {
	Recognize(ctx context.Context, c *capture.RawCapture, onProgress ocr.ProgressFunc) (string, error)
}

// Session is one capture attempt. It is safe for concurrent use; in
// particular Cancel may be called while Capture or UploadFile is running.
type Session struct {
	id         string
	acq        *capture.Acquirer
	recognizer Recognizer
	finder     collection.Finder
	flow       Flow
	extractor  basecode.Extractor
	listener   Listener
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	mode     Mode
	reason   Reason
	progress int
	text     string
	result   basecode.Extraction
	flag     Reason
	// gen increases whenever an attempt starts or is abandoned. Work that
	// finishes under an older generation is discarded.
	gen    uint64
	// abort cancels the context of the running attempt, which unblocks a
	// pending camera request or recognition.
	abort  context.CancelFunc
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Flow returns the extraction flow of the session.
func (s *Session) Flow() Flow { return s.flow }

// StartCamera moves Idle to Capturing(camera). On a camera fault the session
// moves to Failed and the returned error is a *Failure.
func (s *Session) StartCamera(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkLocked(Idle, Succeeded); err != nil {
		s.mu.Unlock()
		return err
	}
	gen, ctx, cancel := s.beginLocked(ctx, ModeCamera)
	s.mu.Unlock()
	s.emitState()

	err := s.acq.StartCamera(ctx)

	s.mu.Lock()
	if gen != s.gen {
		// The superseding call canceled ctx before releasing the camera, so
		// a stream that got installed first is stopped by that release.
		s.mu.Unlock()
		return ErrSuperseded
	}
	if errors.Is(err, capture.ErrCameraStartAborted) {
		// The caller's context ended before the platform answered.
		cancel()
		s.abort = nil
		s.resetLocked()
		s.mu.Unlock()
		s.emitState()
		return err
	}
	if err != nil {
		f := &Failure{Reason: reasonForCamera(err), Err: err}
		s.failLocked(f)
		s.mu.Unlock()
		s.emitState()
		return f
	}
	s.mu.Unlock()

	s.logger.Debug("camera streaming")
	return nil
}

// Capture snapshots the camera, releases it, and runs recognition.
//
// It requires Capturing(camera). The result is Succeeded with the extracted
// code, or Failed with OcrEngineError or NoCodeFound. If the session is
// canceled while OCR runs, Capture returns ErrSuperseded and the session is
// left as Cancel set it.
func (s *Session) Capture(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if s.state != Capturing || s.mode != ModeCamera {
		state := s.state
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: capture in %s", ErrInvalidState, state)
	}

	raw, err := s.acq.CaptureImage()
	if err != nil {
		// A camera request may still be pending; it must not revive the
		// attempt.
		s.abortLocked()
		s.acq.StopCamera()
		f := &Failure{Reason: reasonForCamera(err), Err: err}
		s.failLocked(f)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.emitState()
		return snap, f
	}

	s.acq.StopCamera()
	s.state = Processing
	s.progress = 0
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.abort != nil {
		s.abort()
	}
	s.abort = cancel
	s.mu.Unlock()
	s.emitState()

	return s.process(ctx, gen, raw)
}

// UploadFile decodes an image and runs recognition on it.
//
// It is allowed from Idle, Succeeded, or Capturing(camera), in which case the
// camera is released first. An undecodable file fails with InvalidImage.
func (s *Session) UploadFile(ctx context.Context, r io.Reader, contentType string) (Snapshot, error) {
	s.mu.Lock()
	if err := s.checkLocked(Idle, Succeeded, Capturing); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	if s.state == Capturing && s.mode != ModeCamera {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: upload already in progress", ErrInvalidState)
	}
	gen, ctx, cancel := s.beginLocked(ctx, ModeFile)
	defer cancel()
	s.acq.StopCamera()
	s.mu.Unlock()
	s.emitState()

	raw, err := s.acq.HandleFileUpload(r, contentType)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return Snapshot{}, ErrSuperseded
	}
	if err != nil {
		f := &Failure{Reason: InvalidImage, Err: err}
		s.failLocked(f)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.emitState()
		return snap, f
	}
	s.state = Processing
	s.progress = 0
	s.mu.Unlock()
	s.emitState()

	return s.process(ctx, gen, raw)
}

// process runs OCR and extraction for generation gen.
func (s *Session) process(ctx context.Context, gen uint64, raw *capture.RawCapture) (Snapshot, error) {
	s.logger.Debug("processing", "source", raw.Source, "width", raw.Width(), "height", raw.Height())

	text, err := s.recognizer.Recognize(ctx, raw, func(p int) {
		s.reportProgress(gen, p)
	})

	s.mu.Lock()
	if gen != s.gen || s.state != Processing {
		s.mu.Unlock()
		s.logger.Debug("discarding late recognition result")
		return Snapshot{}, ErrSuperseded
	}

	if err != nil {
		f := &Failure{Reason: OcrEngineError, Err: err}
		s.failLocked(f)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Warn("recognition failed", "error", err)
		s.emitState()
		return snap, f
	}

	s.text = text
	ext, ok := s.extractor.Extract(text)
	s.result = ext
	if !ok {
		f := &Failure{Reason: NoCodeFound}
		s.failLocked(f)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Info("no product code in recognized text", "text", text)
		s.emitState()
		return snap, f
	}

	s.state = Succeeded
	s.progress = 100
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("code detected", "code", ext.Code, "flow", s.flow)
	s.emitState()
	s.announce(ext)
	return snap, nil
}

// Cancel releases the camera and returns to Idle. Any capture or recognition
// still running is superseded. OnCancel fires after the camera is released.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.abortLocked()
	s.acq.StopCamera()
	s.resetLocked()
	s.mu.Unlock()

	s.logger.Debug("canceled")
	s.emitState()
	s.listener.OnCancel()
}

// Retry moves Failed back to Idle.
func (s *Session) Retry() error {
	s.mu.Lock()
	if err := s.checkLocked(Failed); err != nil {
		s.mu.Unlock()
		return err
	}
	s.resetLocked()
	s.mu.Unlock()

	s.emitState()
	return nil
}

// SubmitManual treats typed text as if it had been recognized.
//
// It is allowed in any state and supersedes whatever was running. The session
// always ends in Succeeded; text without a recognizable code is kept as typed
// and flagged InvalidManualInput so it can still be searched. The flag is set
// whenever the text has no SERIES-COLLECTOR pattern, in either flow.
func (s *Session) SubmitManual(text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, ErrEmptyInput
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	s.abortLocked()
	s.acq.StopCamera()
	s.resetLocked()

	ext, ok := s.extractor.Extract(text)
	if !ok && ext.Code == "" {
		ext.Code = text
	}
	if !basecode.IsValidBaseCode(text) {
		s.flag = InvalidManualInput
	}
	s.mode = ModeManual
	s.state = Succeeded
	s.text = text
	s.result = ext
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emitState()
	s.announce(ext)
	return snap, nil
}

// Lookup searches the collection for the last successful result.
func (s *Session) Lookup() (Outcome, error) {
	s.mu.Lock()
	if err := s.checkLocked(Succeeded); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	text, ext, flag := s.text, s.result, s.flag
	s.mu.Unlock()

	out, err := lookup(s.finder, text, ext, flag)
	if err != nil {
		return Outcome{}, err
	}
	s.logger.Info("lookup", "found", out.Found, "matched_by", out.MatchedBy, "code", out.Code)
	return out, nil
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close releases the camera and makes every later call fail with ErrClosed.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.abortLocked()
	s.acq.StopCamera()
	s.resetLocked()
	s.logger.Debug("session closed")
}

func (s *Session) checkLocked(allowed ...State) error {
	if s.closed {
		return ErrClosed
	}
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, s.state)
}

// beginLocked supersedes any running attempt and starts a new one in
// Capturing. It returns the new generation and a context that Cancel, Close
// and later attempts cancel.
func (s *Session) beginLocked(parent context.Context, mode Mode) (uint64, context.Context, context.CancelFunc) {
	s.abortLocked()
	ctx, cancel := context.WithCancel(parent)
	s.abort = cancel
	s.resetLocked()
	s.state = Capturing
	s.mode = mode
	return s.gen, ctx, cancel
}

// abortLocked invalidates the running attempt. Callers release the camera
// afterwards, so a stream installed before the abort is still stopped.
func (s *Session) abortLocked() {
	s.gen++
	if s.abort != nil {
		s.abort()
		s.abort = nil
	}
}

func (s *Session) resetLocked() {
	s.state = Idle
	s.mode = ModeNone
	s.reason = ReasonNone
	s.progress = 0
	s.text = ""
	s.result = basecode.Extraction{}
	s.flag = ReasonNone
}

func (s *Session) failLocked(f *Failure) {
	s.state = Failed
	s.reason = f.Reason
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		State:        s.state,
		Mode:         s.mode,
		Flow:         s.flow,
		Reason:       s.reason,
		MessageKey:   s.reason.MessageKey(),
		Progress:     s.progress,
		Text:         s.text,
		Code:         s.result.Code,
		Flag:         s.flag,
		CameraActive: s.acq.Active(),
	}
	if snap.MessageKey == "" {
		snap.MessageKey = s.flag.MessageKey()
	}
	if s.result.Parsed != nil {
		p := *s.result.Parsed
		snap.Parsed = &p
	}
	return snap
}

func (s *Session) reportProgress(gen uint64, p int) {
	s.mu.Lock()
	if gen != s.gen || s.state != Processing {
		s.mu.Unlock()
		return
	}
	s.progress = p
	s.mu.Unlock()

	s.listener.OnProgress(p)
}

func (s *Session) emitState() {
	s.listener.OnStateChange(s.Snapshot())
}

func (s *Session) announce(ext basecode.Extraction) {
	if s.flow == FlowLegacy {
		s.listener.OnCodeDetected(ext.Code)
		return
	}
	if ext.Parsed != nil {
		s.listener.OnBaseCodeDetected(*ext.Parsed)
	}
}
