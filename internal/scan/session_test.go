package scan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/diecast-scan/internal/basecode"
	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/i18n"
	"github.com/ironsheep/diecast-scan/internal/ocr"
)

// fakeRecognizer reports progress 10, optionally blocks, then 90.
type fakeRecognizer struct {
	text    string
	err     error
	started chan struct{}
	block   chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, c *capture.RawCapture, onProgress ocr.ProgressFunc) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	onProgress(10)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	onProgress(90)
	return f.text, f.err
}

type memFinder struct {
	records []*collection.Record
	err     error
}

func (m *memFinder) FindByCollectorNumber(id string) (*collection.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if r.CollectorNumber != "" && strings.EqualFold(r.CollectorNumber, id) {
			return r, nil
		}
	}
	return nil, collection.ErrNotFound
}

func (m *memFinder) FindByCodeSubstring(text string) (*collection.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if strings.Contains(strings.ToLower(r.Codigo), strings.ToLower(text)) {
			return r, nil
		}
	}
	return nil, collection.ErrNotFound
}

// recorder collects listener events.
type recorder struct {
	mu       sync.Mutex
	codes    []string
	parsed   []basecode.ParsedCode
	progress []int
	states   []State
	cancels  int
	// busyAtCancel is sampled from cam inside OnCancel.
	cam          *capture.StillCamera
	busyAtCancel bool
}

func (r *recorder) OnCodeDetected(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func (r *recorder) OnBaseCodeDetected(p basecode.ParsedCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsed = append(r.parsed, p)
}

func (r *recorder) OnCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
	if r.cam != nil {
		r.busyAtCancel = r.cam.Busy()
	}
}

func (r *recorder) OnProgress(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnStateChange(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

type deniedCamera struct{ name string }

func (c deniedCamera) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	return nil, &capture.DeviceError{Name: c.name, Message: "refused"}
}

// pendingCamera holds every Open until release is closed or ctx ends, like a
// platform permission prompt.
type pendingCamera struct {
	requested chan struct{}
	release   chan struct{}
}

func newPendingCamera() *pendingCamera {
	return &pendingCamera{requested: make(chan struct{}, 2), release: make(chan struct{})}
}

func (c *pendingCamera) Open(ctx context.Context, _ capture.Constraints) (capture.Stream, error) {
	c.requested <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.release:
		return nil, &capture.DeviceError{Name: capture.ErrNameNotAllowed}
	}
}

func returnsWithin(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked for more than %s", what, d)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func newTestScanner(cam capture.Camera, rec Recognizer, finder collection.Finder) *Scanner {
	return NewScanner(Config{
		Camera:     cam,
		Recognizer: rec,
		Finder:     finder,
		Logger:     quietLogger(),
	})
}

func TestCaptureFlow_Structured(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	rec := &fakeRecognizer{text: "JJJ26-N521\n21A"}
	events := &recorder{}
	s := newTestScanner(cam, rec, nil).Open(WithListener(events))

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if snap := s.Snapshot(); snap.State != Capturing || snap.Mode != ModeCamera || !snap.CameraActive {
		t.Fatalf("after start: %+v", snap)
	}

	snap, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if snap.State != Succeeded {
		t.Errorf("state = %s, want succeeded", snap.State)
	}
	if snap.Code != "JJJ26-N521 21A" {
		t.Errorf("code = %q", snap.Code)
	}
	if snap.Parsed == nil || snap.Parsed.CollectorNumber != "N521" || snap.Parsed.ProductionYear != "21" {
		t.Errorf("parsed = %+v", snap.Parsed)
	}
	if snap.Progress != 100 {
		t.Errorf("progress = %d, want 100", snap.Progress)
	}
	if cam.Busy() || snap.CameraActive {
		t.Error("camera still held after capture")
	}

	if len(events.parsed) != 1 || events.parsed[0].SeriesCode != "JJJ26" {
		t.Errorf("OnBaseCodeDetected events = %+v", events.parsed)
	}
	if len(events.codes) != 0 {
		t.Errorf("OnCodeDetected fired in structured flow: %v", events.codes)
	}
	wantStates := []State{Capturing, Processing, Succeeded}
	if len(events.states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", events.states, wantStates)
	}
	for i, st := range wantStates {
		if events.states[i] != st {
			t.Errorf("states[%d] = %s, want %s", i, events.states[i], st)
		}
	}
	if len(events.progress) != 2 || events.progress[0] != 10 || events.progress[1] != 90 {
		t.Errorf("progress events = %v", events.progress)
	}
}

func TestStartCamera_FallsBackToAnyCamera(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	cam.FacingModes = []string{capture.FacingUser}
	s := newTestScanner(cam, &fakeRecognizer{}, nil).Open()

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if !cam.Busy() {
		t.Error("camera should be held after fallback")
	}
}

func TestStartCamera_FailureReasons(t *testing.T) {
	tests := []struct {
		name    string
		errName string
		reason  Reason
		key     string
	}{
		{"not allowed", capture.ErrNameNotAllowed, CameraPermissionDenied, i18n.KeyCameraPermissionDenied},
		{"permission denied", capture.ErrNamePermissionDenied, CameraPermissionDenied, i18n.KeyCameraPermissionDenied},
		{"not found", capture.ErrNameNotFound, CameraNotFound, i18n.KeyCameraNotFound},
		{"not readable", capture.ErrNameNotReadable, CameraInUse, i18n.KeyCameraInUse},
		{"unknown", "SomethingElseError", CameraNotFound, i18n.KeyCameraNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(deniedCamera{name: tt.errName}, &fakeRecognizer{}, nil).Open()

			err := s.StartCamera(context.Background())
			var f *Failure
			if !errors.As(err, &f) {
				t.Fatalf("error = %v, want *Failure", err)
			}
			if f.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", f.Reason, tt.reason)
			}
			snap := s.Snapshot()
			if snap.State != Failed || snap.MessageKey != tt.key {
				t.Errorf("snapshot = %+v", snap)
			}
		})
	}
}

func TestStartCamera_NoCamera(t *testing.T) {
	s := newTestScanner(nil, &fakeRecognizer{}, nil).Open()

	err := s.StartCamera(context.Background())
	var f *Failure
	if !errors.As(err, &f) || f.Reason != CameraNotFound {
		t.Fatalf("error = %v, want CameraNotFound", err)
	}
}

func TestCapture_RequiresCamera(t *testing.T) {
	s := newTestScanner(nil, &fakeRecognizer{}, nil).Open()

	if _, err := s.Capture(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Capture from idle: err = %v, want ErrInvalidState", err)
	}
	if s.Snapshot().State != Idle {
		t.Error("state changed on rejected call")
	}
}

func TestCapture_Failures(t *testing.T) {
	tests := []struct {
		name   string
		rec    *fakeRecognizer
		reason Reason
	}{
		{"engine error", &fakeRecognizer{err: errors.New("tesseract crashed")}, OcrEngineError},
		{"no code", &fakeRecognizer{text: "MADE IN MALAYSIA"}, NoCodeFound},
		{"empty text", &fakeRecognizer{text: ""}, NoCodeFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := capture.NewStillCamera(testImage())
			events := &recorder{}
			s := newTestScanner(cam, tt.rec, nil).Open(WithListener(events))

			if err := s.StartCamera(context.Background()); err != nil {
				t.Fatalf("StartCamera: %v", err)
			}
			snap, err := s.Capture(context.Background())
			var f *Failure
			if !errors.As(err, &f) || f.Reason != tt.reason {
				t.Fatalf("error = %v, want %s", err, tt.reason)
			}
			if snap.State != Failed || snap.Reason != tt.reason {
				t.Errorf("snapshot = %+v", snap)
			}
			if cam.Busy() {
				t.Error("camera held after failed capture")
			}
			if len(events.parsed) != 0 || len(events.codes) != 0 {
				t.Error("detection callback fired on failure")
			}

			if err := s.Retry(); err != nil {
				t.Fatalf("Retry: %v", err)
			}
			if s.Snapshot().State != Idle {
				t.Error("Retry did not return to idle")
			}
		})
	}
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	s := newTestScanner(nil, &fakeRecognizer{}, nil).Open()
	if err := s.Retry(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Retry from idle: err = %v, want ErrInvalidState", err)
	}
}

func TestCancel_ReleasesCameraBeforeNotifying(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	events := &recorder{cam: cam}
	s := newTestScanner(cam, &fakeRecognizer{}, nil).Open(WithListener(events))

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	s.Cancel()

	if events.cancels != 1 {
		t.Errorf("OnCancel fired %d times", events.cancels)
	}
	if events.busyAtCancel {
		t.Error("camera still busy when OnCancel fired")
	}
	if snap := s.Snapshot(); snap.State != Idle || snap.CameraActive {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStartCamera_CanceledOnCapturingState(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	sc := newTestScanner(cam, &fakeRecognizer{}, nil)

	var s *Session
	var once sync.Once
	s = sc.Open(WithListener(Callbacks{StateChange: func(snap Snapshot) {
		if snap.State == Capturing {
			once.Do(s.Cancel)
		}
	}}))

	if err := s.StartCamera(context.Background()); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("StartCamera err = %v, want ErrSuperseded", err)
	}
	if snap := s.Snapshot(); snap.State != Idle || snap.CameraActive {
		t.Errorf("snapshot = %+v", snap)
	}
	if cam.Busy() {
		t.Fatal("canceled session still holds the camera")
	}

	next := sc.Open()
	if err := next.StartCamera(context.Background()); err != nil {
		t.Errorf("next session StartCamera: %v", err)
	}
	sc.Close()
}

func TestStartCamera_NewSessionOnCapturingState(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	sc := newTestScanner(cam, &fakeRecognizer{}, nil)

	var second *Session
	first := sc.Open(WithListener(Callbacks{StateChange: func(snap Snapshot) {
		if snap.State == Capturing && second == nil {
			second = sc.Open()
		}
	}}))

	if err := first.StartCamera(context.Background()); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first StartCamera err = %v, want ErrSuperseded", err)
	}
	if cam.Busy() {
		t.Fatal("closed session still holds the camera")
	}
	if err := second.StartCamera(context.Background()); err != nil {
		t.Fatalf("second StartCamera: %v", err)
	}
	if !cam.Busy() {
		t.Error("second session has no camera")
	}
	sc.Close()
}

func TestCancel_DoesNotWaitForCameraRequest(t *testing.T) {
	cam := newPendingCamera()
	events := &recorder{}
	s := newTestScanner(cam, &fakeRecognizer{}, nil).Open(WithListener(events))

	errc := make(chan error, 1)
	go func() { errc <- s.StartCamera(context.Background()) }()
	<-cam.requested

	returnsWithin(t, time.Second, "Snapshot", func() { s.Snapshot() })
	returnsWithin(t, time.Second, "Cancel", s.Cancel)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("StartCamera err = %v, want ErrSuperseded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("StartCamera still waiting after Cancel")
	}
	if snap := s.Snapshot(); snap.State != Idle || snap.CameraActive {
		t.Errorf("snapshot = %+v", snap)
	}
	events.mu.Lock()
	defer events.mu.Unlock()
	if events.cancels != 1 {
		t.Errorf("OnCancel fired %d times", events.cancels)
	}
}

func TestStartCamera_CallerContextCanceled(t *testing.T) {
	cam := newPendingCamera()
	s := newTestScanner(cam, &fakeRecognizer{}, nil).Open()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.StartCamera(ctx) }()
	<-cam.requested
	cancel()

	if err := <-errc; !errors.Is(err, capture.ErrCameraStartAborted) {
		t.Fatalf("StartCamera err = %v, want ErrCameraStartAborted", err)
	}
	if snap := s.Snapshot(); snap.State != Idle {
		t.Errorf("state = %s, want idle", snap.State)
	}
}

func TestCancel_DiscardsLateRecognition(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	rec := &fakeRecognizer{
		text:    "JJJ26-N521 21A",
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	events := &recorder{}
	s := newTestScanner(cam, rec, nil).Open(WithListener(events))

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := s.Capture(context.Background())
		done <- result{snap, err}
	}()

	<-rec.started
	s.Cancel()
	close(rec.block)
	res := <-done

	if !errors.Is(res.err, ErrSuperseded) {
		t.Errorf("Capture err = %v, want ErrSuperseded", res.err)
	}
	if snap := s.Snapshot(); snap.State != Idle || snap.Code != "" {
		t.Errorf("late result leaked into session: %+v", snap)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.parsed) != 0 {
		t.Errorf("OnBaseCodeDetected fired after cancel: %+v", events.parsed)
	}
	for _, p := range events.progress {
		if p == 90 {
			t.Error("progress reported after cancel")
		}
	}
}

func TestUploadFile(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	events := &recorder{}
	s := newTestScanner(cam, &fakeRecognizer{text: "JJJ26-N521 21A"}, nil).Open(WithListener(events))

	// Switching from a live camera to a file releases the camera.
	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}

	snap, err := s.UploadFile(context.Background(), bytes.NewReader(pngBytes(t)), "image/png")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if snap.State != Succeeded || snap.Mode != ModeFile {
		t.Errorf("snapshot = %+v", snap)
	}
	if cam.Busy() {
		t.Error("camera held during file upload")
	}
	if len(events.parsed) != 1 {
		t.Errorf("OnBaseCodeDetected fired %d times", len(events.parsed))
	}
}

func TestUploadFile_InvalidImage(t *testing.T) {
	rec := &fakeRecognizer{text: "JJJ26-N521"}
	s := newTestScanner(nil, rec, nil).Open()

	snap, err := s.UploadFile(context.Background(), strings.NewReader("not an image"), "")
	var f *Failure
	if !errors.As(err, &f) || f.Reason != InvalidImage {
		t.Fatalf("err = %v, want InvalidImage", err)
	}
	if snap.State != Failed || snap.MessageKey != i18n.KeyInvalidImage {
		t.Errorf("snapshot = %+v", snap)
	}
	if rec.calls != 0 {
		t.Error("recognizer ran on an undecodable file")
	}
}

func TestLegacyFlow(t *testing.T) {
	events := &recorder{}
	s := newTestScanner(nil, &fakeRecognizer{text: "made in\nJBC17-N521\n21A thailand"}, nil).
		Open(WithFlow(FlowLegacy), WithListener(events))

	snap, err := s.UploadFile(context.Background(), bytes.NewReader(pngBytes(t)), "image/png")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if snap.Code != "JBC17-N521 21A" || snap.Parsed != nil {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(events.codes) != 1 || events.codes[0] != "JBC17-N521 21A" {
		t.Errorf("OnCodeDetected events = %v", events.codes)
	}
	if len(events.parsed) != 0 {
		t.Error("OnBaseCodeDetected fired in legacy flow")
	}
}

func TestSubmitManual(t *testing.T) {
	tests := []struct {
		name     string
		flow     Flow
		input    string
		wantCode string
		wantFlag Reason
	}{
		{"valid", FlowStructured, "  jjj26-n521 21a ", "JJJ26-N521 21A", ReasonNone},
		{"top line only", FlowStructured, "HTB04-N521", "HTB04-N521", ReasonNone},
		{"invalid kept as typed", FlowStructured, "red ferrari", "red ferrari", InvalidManualInput},
		{"legacy valid", FlowLegacy, "JBC17-N521 21A", "JBC17-N521 21A", ReasonNone},
		{"legacy match without base code", FlowLegacy, "ABCDE-N521 21A", "ABCDE-N521 21A", InvalidManualInput},
		{"legacy invalid kept as typed", FlowLegacy, "red ferrari", "red ferrari", InvalidManualInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &recorder{}
			s := newTestScanner(nil, &fakeRecognizer{}, nil).Open(WithFlow(tt.flow), WithListener(events))

			snap, err := s.SubmitManual(tt.input)
			if err != nil {
				t.Fatalf("SubmitManual: %v", err)
			}
			if snap.State != Succeeded || snap.Mode != ModeManual {
				t.Errorf("snapshot = %+v", snap)
			}
			if snap.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", snap.Code, tt.wantCode)
			}
			if snap.Flag != tt.wantFlag {
				t.Errorf("flag = %q, want %q", snap.Flag, tt.wantFlag)
			}
			detections := len(events.parsed)
			if tt.flow == FlowLegacy {
				detections = len(events.codes)
			}
			if detections != 1 {
				t.Errorf("detection callback fired %d times", detections)
			}
		})
	}
}

func TestSubmitManual_Empty(t *testing.T) {
	s := newTestScanner(nil, &fakeRecognizer{}, nil).Open()
	if _, err := s.SubmitManual("   "); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
	if s.Snapshot().State != Idle {
		t.Error("state changed on empty input")
	}
}

func TestSubmitManual_ReleasesCamera(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	s := newTestScanner(cam, &fakeRecognizer{}, nil).Open()

	if err := s.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}
	if _, err := s.SubmitManual("JJJ26-N521"); err != nil {
		t.Fatalf("SubmitManual: %v", err)
	}
	if cam.Busy() {
		t.Error("camera held after manual entry")
	}
}

func TestSessionLookup(t *testing.T) {
	finder := &memFinder{records: []*collection.Record{
		{ID: "1", Modelo: "Porsche 911", Codigo: "JJJ26-N521 21A", CollectorNumber: "N521"},
	}}
	s := newTestScanner(nil, &fakeRecognizer{}, finder).Open()

	if _, err := s.Lookup(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Lookup before success: err = %v, want ErrInvalidState", err)
	}

	if _, err := s.SubmitManual("jjj26-n521"); err != nil {
		t.Fatalf("SubmitManual: %v", err)
	}
	out, err := s.Lookup()
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !out.Found || out.Record.ID != "1" || out.MatchedBy != MatchCollectorNumber {
		t.Errorf("outcome = %+v", out)
	}
	if out.MessageKey != i18n.KeyFound {
		t.Errorf("message key = %q", out.MessageKey)
	}
}

func TestOpen_ClosesPreviousSession(t *testing.T) {
	cam := capture.NewStillCamera(testImage())
	sc := newTestScanner(cam, &fakeRecognizer{}, nil)

	first := sc.Open()
	if err := first.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera: %v", err)
	}

	second := sc.Open()
	if cam.Busy() {
		t.Error("previous session kept the camera")
	}
	if err := first.StartCamera(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("closed session StartCamera: err = %v, want ErrClosed", err)
	}
	if err := second.StartCamera(context.Background()); err != nil {
		t.Errorf("new session StartCamera: %v", err)
	}
	if sc.Current() != second {
		t.Error("Current is not the newest session")
	}
	if first.ID() == second.ID() {
		t.Error("sessions share an ID")
	}

	sc.Close()
	if cam.Busy() {
		t.Error("Close did not release the camera")
	}
}

func TestParseFlow(t *testing.T) {
	tests := map[string]Flow{"": FlowStructured, "structured": FlowStructured, "legacy": FlowLegacy}
	for in, want := range tests {
		got, err := ParseFlow(in)
		if err != nil || got != want {
			t.Errorf("ParseFlow(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFlow("fuzzy"); err == nil {
		t.Error("ParseFlow accepted an unknown flow")
	}
}
