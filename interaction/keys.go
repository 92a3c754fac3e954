package interaction

import (
	"github.com/gogpu/gpucontext"
)

// KeyPressHandler returns a callback suitable for a gpucontext event
// source's OnKeyPress. Space counts as a full-strength pulse; other keys
// register at KeyIntensity. clock supplies the current time in
// milliseconds.
func (t *Tracker) KeyPressHandler(clock func() float64) func(gpucontext.Key, gpucontext.Modifiers) {
	return func(key gpucontext.Key, _ gpucontext.Modifiers) {
		v := KeyIntensity
		if key == gpucontext.KeySpace {
			v = HoldIntensity
		}
		t.Pulse(Key, v, clock())
	}
}
