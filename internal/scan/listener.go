package scan

import "github.com/ironsheep/diecast-scan/internal/basecode"

// Listener receives session events. Methods are called without any session
// lock held, from the goroutine that triggered the event.
type Listener interface {
	// OnCodeDetected fires with the flat code in FlowLegacy.
	OnCodeDetected(code string)

	// OnBaseCodeDetected fires with the parsed code in FlowStructured.
	OnBaseCodeDetected(parsed basecode.ParsedCode)

	// OnCancel fires after Cancel has released the camera.
	OnCancel()

	// OnProgress fires with OCR progress while Processing.
	OnProgress(percent int)

	// OnStateChange fires after every transition.
	OnStateChange(s Snapshot)
}

// Callbacks adapts optional functions to Listener. Nil fields are skipped.
type Callbacks struct {
	CodeDetected     func(code string)
	BaseCodeDetected func(parsed basecode.ParsedCode)
	Cancel           func()
	Progress         func(percent int)
	StateChange      func(s Snapshot)
}

func (c Callbacks) OnCodeDetected(code string) {
	if c.CodeDetected != nil {
		c.CodeDetected(code)
	}
}

func (c Callbacks) OnBaseCodeDetected(parsed basecode.ParsedCode) {
	if c.BaseCodeDetected != nil {
		c.BaseCodeDetected(parsed)
	}
}

func (c Callbacks) OnCancel() {
	if c.Cancel != nil {
		c.Cancel()
	}
}

func (c Callbacks) OnProgress(percent int) {
	if c.Progress != nil {
		c.Progress(percent)
	}
}

func (c Callbacks) OnStateChange(s Snapshot) {
	if c.StateChange != nil {
		c.StateChange(s)
	}
}
