package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
)

// Source records where a RawCapture came from.
type Source string

const (
	SourceCamera Source = "camera"
	SourceFile   Source = "file"
)

// RawCapture is a still image ready for recognition.
//
// It is owned by whoever holds it and is discarded once OCR completes.
type RawCapture struct {
	Image  image.Image
	Source Source
	// Format is the decoder name for files ("png", "jpeg", "heic", ...) and
	// "frame" for camera snapshots.
	Format string
}

// Width returns the image width in pixels.
func (c *RawCapture) Width() int { return c.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (c *RawCapture) Height() int { return c.Image.Bounds().Dy() }

// Acquirer owns at most one camera stream at a time.
//
// It is safe for concurrent use. The zero value is not usable; call
// NewAcquirer.
type Acquirer struct {
	camera    Camera
	preferred Constraints
	maxUpload int64
	logger    *slog.Logger

	mu     sync.Mutex
	stream Stream
	// epoch advances on every StartCamera and StopCamera. A pending request
	// only installs its stream if the epoch it started under is current.
	epoch uint64
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithPreferredConstraints overrides the first camera request.
func WithPreferredConstraints(c Constraints) AcquirerOption {
	return func(a *Acquirer) { a.preferred = c }
}

// WithMaxUploadBytes caps HandleFileUpload input size. 0 means no limit.
func WithMaxUploadBytes(n int64) AcquirerOption {
	return func(a *Acquirer) { a.maxUpload = n }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) AcquirerOption {
	return func(a *Acquirer) { a.logger = l }
}

// NewAcquirer creates an Acquirer for camera. A nil camera behaves like
// NoCamera.
func NewAcquirer(camera Camera, opts ...AcquirerOption) *Acquirer {
	if camera == nil {
		camera = NoCamera{}
	}
	a := &Acquirer{
		camera:    camera,
		preferred: PreferredConstraints,
		maxUpload: DefaultMaxUploadBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartCamera acquires a camera stream.
//
// The preferred constraints are tried first; if the platform rejects them the
// request is repeated without constraints. Any stream already held is released
// before the first request. On failure the returned error is a *Failure.
//
// The lock is not held while the platform answers, so StopCamera and Active
// never wait on a pending request. A stream that arrives after StopCamera, a
// newer StartCamera, or cancellation of ctx is stopped at once and
// ErrCameraStartAborted is returned.
func (a *Acquirer) StartCamera(ctx context.Context) error {
	a.mu.Lock()
	a.releaseLocked()
	a.epoch++
	epoch := a.epoch
	a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCameraStartAborted, err)
	}

	stream, err := a.camera.Open(ctx, a.preferred)
	if err != nil && !a.preferred.IsZero() && ctx.Err() == nil {
		a.logger.Debug("preferred camera unavailable, trying default camera",
			"constraints", a.preferred, "error", err)
		stream, err = a.camera.Open(ctx, Constraints{})
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if epoch != a.epoch || ctx.Err() != nil {
		if stream != nil {
			stream.Stop()
		}
		a.logger.Debug("camera start aborted", "error", ctx.Err())
		return ErrCameraStartAborted
	}
	if err != nil {
		f := Classify(err)
		a.logger.Warn("camera start failed", "kind", f.Kind.String(), "error", err)
		return f
	}

	a.stream = stream
	a.logger.Debug("camera started")
	return nil
}

// CaptureImage snapshots the current frame into a new RGBA buffer.
//
// The stream stays open; callers release it with StopCamera. Returns
// ErrCameraNotActive when no stream is held.
func (a *Acquirer) CaptureImage() (*RawCapture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stream == nil {
		return nil, ErrCameraNotActive
	}

	frame, err := a.stream.Frame()
	if err != nil {
		return nil, fmt.Errorf("failed to read camera frame: %w", err)
	}

	bounds := frame.Bounds()
	snapshot := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(snapshot, snapshot.Bounds(), frame, bounds.Min, draw.Src)

	return &RawCapture{Image: snapshot, Source: SourceCamera, Format: "frame"}, nil
}

// StopCamera releases the stream, if any. It is safe to call at any time.
func (a *Acquirer) StopCamera() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	a.releaseLocked()
}

// Active reports whether a stream is held.
func (a *Acquirer) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream != nil
}

func (a *Acquirer) releaseLocked() {
	if a.stream == nil {
		return
	}
	a.stream.Stop()
	a.stream = nil
	a.logger.Debug("camera stopped")
}
