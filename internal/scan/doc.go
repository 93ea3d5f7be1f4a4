// Package scan drives one product-code capture attempt from camera or file
// through OCR and parsing to a collection lookup.
//
// A Session is a small state machine:
//
//	Idle -> Capturing(camera|file) -> Processing -> Succeeded | Failed
//
// Failed returns to Idle through Retry. SubmitManual skips capture and OCR
// and feeds typed text straight to the parser. Cancel releases the camera and
// returns to Idle from any state; an OCR result that arrives after a Cancel
// is discarded.
//
// Every fault is reported as a *Failure carrying a Reason and the session
// stays usable. Nothing is retried automatically.
//
// A Scanner hands out sessions and closes the previous one before opening the
// next, so the camera is never held twice.
package scan
