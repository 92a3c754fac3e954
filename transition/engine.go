package transition

import (
	"github.com/gogpu/hyperviz/params"
)

// Spec describes how a parameter change is animated.
// A zero DurationMs assigns the target immediately.
type Spec struct {
	DurationMs float64
	Easing     Easing
}

// Immediate is the Spec for a hard cut.
var Immediate = Spec{}

// Engine interpolates from a start snapshot toward a target snapshot.
//
// Engine is not safe for concurrent use; the owning surface serializes
// access.
type Engine struct {
	start   params.Set
	target  params.Set
	startMs float64
	spec    Spec
	active  bool
}

// NewEngine returns an engine at rest on initial.
func NewEngine(initial params.Set) *Engine {
	return &Engine{
		start:  initial.Clone(),
		target: initial.Clone(),
	}
}

// Active reports whether a transition is in flight at nowMs.
func (e *Engine) Active(nowMs float64) bool {
	return e.active && nowMs-e.startMs < e.spec.DurationMs
}

// Target returns a copy of the target snapshot.
func (e *Engine) Target() params.Set {
	return e.target.Clone()
}

// Progress returns the linear progress of the current transition in [0, 1].
func (e *Engine) Progress(nowMs float64) float64 {
	if !e.active || e.spec.DurationMs <= 0 {
		return 1
	}
	p := (nowMs - e.startMs) / e.spec.DurationMs
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Sample returns the interpolated snapshot at nowMs. Keys present only in
// the target are passed through. Once the duration has elapsed the
// snapshot equals the target exactly and the transition completes.
func (e *Engine) Sample(nowMs float64) params.Set {
	if !e.active {
		return e.target.Clone()
	}
	if nowMs-e.startMs >= e.spec.DurationMs {
		e.active = false
		e.start = e.target.Clone()
		return e.target.Clone()
	}

	k := e.spec.Easing.Apply(e.Progress(nowMs))
	out := make(params.Set, len(e.target))
	for name, to := range e.target {
		from, ok := e.start[name]
		if !ok {
			out[name] = to
			continue
		}
		out[name] = from + (to-from)*k
	}
	return out
}

// Retarget starts a transition toward target at nowMs. The new start is the
// snapshot at nowMs, so an in-flight transition continues without a jump.
func (e *Engine) Retarget(target params.Set, spec Spec, nowMs float64) {
	current := e.Sample(nowMs)
	e.target = target.Clone()
	if spec.DurationMs <= 0 {
		e.start = e.target.Clone()
		e.active = false
		return
	}
	e.start = current
	e.startMs = nowMs
	e.spec = spec
	e.active = true
}

// Update merges partial into the current target and retargets.
func (e *Engine) Update(partial params.Set, spec Spec, nowMs float64) {
	e.Retarget(e.target.Merge(partial), spec, nowMs)
}
