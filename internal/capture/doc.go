// Package capture obtains still images for recognition, from a camera or a file.
//
// # Camera Lifecycle
//
// A camera device is an exclusive, shared resource. The Acquirer is the owned
// handle for it: StartCamera acquires a stream, CaptureImage snapshots the
// current frame, and StopCamera releases it. StopCamera is idempotent, and
// StartCamera releases any stream it already holds before requesting a new one,
// so an Acquirer never holds the device twice.
//
// Camera access goes through the Camera interface, which mirrors a browser's
// getUserMedia: a request carries Constraints (facing mode, resolution hint)
// and fails with a DeviceError named after the platform error. StartCamera
// first asks for the rear camera at 1920x1080 and, when the platform rejects
// that, retries once with no constraints.
//
// # Failures
//
// Platform errors never leave this package raw. They are converted to a
// *Failure with one of three kinds:
//
//   - PermissionDenied: NotAllowedError, PermissionDeniedError
//   - NotFound: NotFoundError, DevicesNotFoundError, and anything unrecognized
//   - InUse: NotReadableError, TrackStartError
//
// # Files
//
// HandleFileUpload decodes PNG, JPEG, GIF, BMP, TIFF and WebP with the
// standard registry, and HEIC/HEIF (the iPhone default) with gen2brain/heic.
// Files and camera snapshots produce the same RawCapture, so later stages do
// not care where an image came from.
//
// # Backends
//
// StillCamera serves frames from a fixed image and is used when the host has
// no camera bridge and in tests. NoCamera always reports NotFoundError.
package capture
