package scan

import (
	"errors"
	"fmt"

	"github.com/ironsheep/diecast-scan/internal/basecode"
	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/i18n"
)

// State is the position of a Session in the capture flow.
type State int

const (
	Idle State = iota
	Capturing
	Processing
	Succeeded
	Failed
)

var stateNames = [...]string{"idle", "capturing", "processing", "succeeded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode is the acquisition path of the current attempt.
type Mode string

const (
	ModeNone   Mode = ""
	ModeCamera Mode = "camera"
	ModeFile   Mode = "file"
	ModeManual Mode = "manual"
)

// Reason enumerates user-visible failures.
type Reason string

const (
	ReasonNone             Reason = ""
	CameraPermissionDenied Reason = "camera_permission_denied"
	CameraNotFound         Reason = "camera_not_found"
	CameraInUse            Reason = "camera_in_use"
	OcrEngineError         Reason = "ocr_engine_error"
	NoCodeFound            Reason = "no_code_found"
	InvalidManualInput     Reason = "invalid_manual_input"
	InvalidImage           Reason = "invalid_image"
)

// MessageKey returns the localization key describing r.
func (r Reason) MessageKey() string {
	switch r {
	case CameraPermissionDenied:
		return i18n.KeyCameraPermissionDenied
	case CameraNotFound:
		return i18n.KeyCameraNotFound
	case CameraInUse:
		return i18n.KeyCameraInUse
	case OcrEngineError:
		return i18n.KeyOCREngineError
	case NoCodeFound:
		return i18n.KeyNoCodeFound
	case InvalidManualInput:
		return i18n.KeyInvalidManualInput
	case InvalidImage:
		return i18n.KeyInvalidImage
	}
	return ""
}

// reasonForCamera maps a camera failure to a Reason.
func reasonForCamera(err error) Reason {
	switch capture.Classify(err).Kind {
	case capture.PermissionDenied:
		return CameraPermissionDenied
	case capture.InUse:
		return CameraInUse
	default:
		return CameraNotFound
	}
}

// Flow selects how recognized text becomes a code.
type Flow string

const (
	// FlowStructured parses two-line base codes and reports them through
	// OnBaseCodeDetected.
	FlowStructured Flow = "structured"
	// FlowLegacy extracts flat product codes and reports them through
	// OnCodeDetected.
	FlowLegacy Flow = "legacy"
)

// ParseFlow validates a flow name. "" selects FlowStructured.
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case "", FlowStructured:
		return FlowStructured, nil
	case FlowLegacy:
		return FlowLegacy, nil
	}
	return "", fmt.Errorf("unknown flow %q (want %q or %q)", s, FlowStructured, FlowLegacy)
}

func (f Flow) extractor() basecode.Extractor {
	if f == FlowLegacy {
		return basecode.Legacy{}
	}
	return basecode.Structured{}
}

// Failure is a categorized fault. The session is left in Failed, except for
// InvalidManualInput which never blocks.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// MessageKey returns the localization key for the failure.
func (f *Failure) MessageKey() string { return f.Reason.MessageKey() }

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state. The state is unchanged.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrSuperseded is returned when the session was canceled or restarted
	// while the operation was in flight. Its result was discarded.
	ErrSuperseded = errors.New("session superseded")

	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrEmptyInput is returned by SubmitManual for blank text.
	ErrEmptyInput = errors.New("no code entered")
)

// MatchKind records which lookup step found the record.
type MatchKind string

const (
	MatchNone                MatchKind = ""
	MatchCollectorNumber     MatchKind = "collector_number"
	MatchCodeContainsNumber  MatchKind = "code_contains_collector_number"
	MatchCodeContainsScanned MatchKind = "code_contains_scanned_text"
	MatchCodeContainsLegacy  MatchKind = "code_contains_legacy_code"
)

// Outcome is the result of looking up a successful scan.
type Outcome struct {
	Found bool `json:"found"`

	// Record is set when Found.
	Record *collection.Record `json:"record,omitempty"`

	MatchedBy MatchKind `json:"matched_by,omitempty"`

	// ScannedText is the recognized or typed text, kept for an "add new
	// record" flow when nothing matched.
	ScannedText string `json:"scanned_text"`

	// Code is the identifier shown to the user.
	Code string `json:"code"`

	Parsed *basecode.ParsedCode `json:"parsed,omitempty"`

	// Flag is InvalidManualInput when typed text had no structured code.
	Flag Reason `json:"flag,omitempty"`

	MessageKey string `json:"message_key"`
}

// Snapshot is a read-only view of a Session.
type Snapshot struct {
	ID           string               `json:"id"`
	State        State                `json:"state"`
	Mode         Mode                 `json:"mode,omitempty"`
	Flow         Flow                 `json:"flow"`
	Reason       Reason               `json:"reason,omitempty"`
	MessageKey   string               `json:"message_key,omitempty"`
	Progress     int                  `json:"progress"`
	Text         string               `json:"text,omitempty"`
	Code         string               `json:"code,omitempty"`
	Parsed       *basecode.ParsedCode `json:"parsed,omitempty"`
	Flag         Reason               `json:"flag,omitempty"`
	CameraActive bool                 `json:"camera_active"`
}
