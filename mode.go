package hyperviz

import "fmt"

// Mode is the rendering state of a surface.
//
//	Uninitialized ─┬─> HardwareActive <─> SoftwareFallback
//	               └──────────────────────────┘
//	any ─> Disposed
type Mode int

// Surface modes.
const (
	Uninitialized Mode = iota
	HardwareActive
	SoftwareFallback
	Disposed
)

func (m Mode) String() string {
	switch m {
	case Uninitialized:
		return "uninitialized"
	case HardwareActive:
		return "hardware"
	case SoftwareFallback:
		return "software"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// canTransition reports whether the state machine allows from → to.
func canTransition(from, to Mode) bool {
	switch to {
	case HardwareActive, SoftwareFallback:
		return from != to && from != Disposed
	case Disposed:
		return from != Disposed
	}
	return false
}

// Fallback reasons reported to observers and logs.
const (
	reasonForced    = "forced"
	reasonExhausted = "exhausted"
	reasonCompile   = "compile"
	reasonLost      = "lost"
	reasonEvicted   = "evicted"
	reasonDraw      = "draw"
	reasonResize    = "resize"
)
