package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
)

// StillCamera is a Camera that serves a fixed image as every frame.
//
// Like a real device it is exclusive: a second Open while a stream is live
// fails with NotReadableError. When FacingModes is non-empty, requests for
// any other facing mode fail with OverconstrainedError.
type StillCamera struct {
	// Load returns the frame. It is called on every Open so the backing file
	// can change between sessions.
	Load func() (image.Image, error)

	// FacingModes lists the modes this camera satisfies. Empty accepts any.
	FacingModes []string

	mu   sync.Mutex
	open bool
}

// NewStillCameraFromFile serves the image at path.
func NewStillCameraFromFile(path string) *StillCamera {
	return &StillCamera{
		Load: func() (image.Image, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open image: %w", err)
			}
			img, _, err := DecodeImage(data, "")
			return img, err
		},
	}
}

// NewStillCamera serves img.
func NewStillCamera(img image.Image) *StillCamera {
	return &StillCamera{
		Load: func() (image.Image, error) { return img, nil },
	}
}

// Open implements Camera.
func (c *StillCamera) Open(ctx context.Context, cons Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.satisfies(cons) {
		return nil, &DeviceError{Name: ErrNameOverconstrained, Message: fmt.Sprintf("facing mode %q unavailable", cons.FacingMode)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return nil, &DeviceError{Name: ErrNameNotReadable, Message: "device is busy"}
	}

	img, err := c.Load()
	if err != nil {
		return nil, &DeviceError{Name: ErrNameNotFound, Message: err.Error()}
	}

	c.open = true
	return &stillStream{cam: c, img: img}, nil
}

// Busy reports whether a stream currently holds the camera.
func (c *StillCamera) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *StillCamera) satisfies(cons Constraints) bool {
	if cons.FacingMode == "" || len(c.FacingModes) == 0 {
		return true
	}
	for _, m := range c.FacingModes {
		if m == cons.FacingMode {
			return true
		}
	}
	return false
}

type stillStream struct {
	cam     *StillCamera
	img     image.Image
	once    sync.Once
	stopped bool
	mu      sync.Mutex
}

func (s *stillStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("stream stopped")
	}
	return s.img, nil
}

func (s *stillStream) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.cam.mu.Lock()
		s.cam.open = false
		s.cam.mu.Unlock()
	})
}

// NoCamera is a Camera for hosts without any video device.
type NoCamera struct{}

// Open implements Camera.
func (NoCamera) Open(context.Context, Constraints) (Stream, error) {
	return nil, &DeviceError{Name: ErrNameNotFound, Message: "no camera available"}
}
