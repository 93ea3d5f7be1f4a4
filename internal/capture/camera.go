package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Facing modes understood by camera backends.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Constraints describe a camera request. Zero values mean "no preference".
type Constraints struct {
	FacingMode string `json:"facing_mode,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// IsZero reports whether c carries no preference at all.
func (c Constraints) IsZero() bool {
	return c == Constraints{}
}

// PreferredConstraints asks for the rear camera at 1080p.
var PreferredConstraints = Constraints{
	FacingMode: FacingEnvironment,
	Width:      1920,
	Height:     1080,
}

// Camera requests access to a video device.
type Camera interface {
	// Open starts a stream matching c. It fails with a *DeviceError when the
	// platform refuses.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live video stream holding the device.
type Stream interface {
	// Frame returns the current frame at native resolution.
	Frame() (image.Image, error)

	// Stop releases every track of the stream. Calling it twice is a no-op.
	Stop()
}

// Platform error names reported by camera backends.
const (
	ErrNameNotAllowed             = "NotAllowedError"
	ErrNamePermissionDenied       = "PermissionDeniedError"
	ErrNameNotFound               = "NotFoundError"
	ErrNameDevicesNotFound        = "DevicesNotFoundError"
	ErrNameNotReadable            = "NotReadableError"
	ErrNameTrackStart             = "TrackStartError"
	ErrNameOverconstrained        = "OverconstrainedError"
	ErrNameConstraintNotSatisfied = "ConstraintNotSatisfiedError"
)

// DeviceError is a platform camera error.
type DeviceError struct {
	Name    string
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// FailureKind classifies a camera failure by the remedy it suggests.
type FailureKind int

const (
	// NotFound means no usable camera; use a file or type the code.
	NotFound FailureKind = iota
	// PermissionDenied means the user or OS refused access.
	PermissionDenied
	// InUse means another process or session holds the device.
	InUse
)

func (k FailureKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case InUse:
		return "in_use"
	default:
		return "not_found"
	}
}

// Failure is a categorized camera failure.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("camera %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify converts a platform error into a *Failure. Errors that are already
// a *Failure pass through. Unknown errors count as NotFound.
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	var de *DeviceError
	if errors.As(err, &de) {
		switch de.Name {
		case ErrNameNotAllowed, ErrNamePermissionDenied:
			return &Failure{Kind: PermissionDenied, Err: err}
		case ErrNameNotReadable, ErrNameTrackStart:
			return &Failure{Kind: InUse, Err: err}
		}
	}
	return &Failure{Kind: NotFound, Err: err}
}

// ErrCameraNotActive is returned by CaptureImage when no stream is held.
var ErrCameraNotActive = errors.New("camera is not active")

// ErrCameraStartAborted is returned by StartCamera when the request was
// superseded or its context canceled before the platform answered.
var ErrCameraStartAborted = errors.New("camera start aborted")
