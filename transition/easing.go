// Package transition interpolates parameter sets over time.
package transition

import (
	"fmt"
	"math"
	"strings"
)

// Easing shapes the progress of a transition.
type Easing int

// Easing curves.
const (
	Linear Easing = iota
	EaseIn
	EaseOut
	EaseInOut
	Parabolic
	Cosine
)

var easingNames = map[Easing]string{
	Linear:    "linear",
	EaseIn:    "easeIn",
	EaseOut:   "easeOut",
	EaseInOut: "easeInOut",
	Parabolic: "parabolic",
	Cosine:    "cosine",
}

func (e Easing) String() string {
	if s, ok := easingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("Easing(%d)", int(e))
}

// ParseEasing resolves an easing name, case-insensitively.
// The empty string selects EaseOut.
func ParseEasing(name string) (Easing, error) {
	if name == "" {
		return EaseOut, nil
	}
	for e, s := range easingNames {
		if strings.EqualFold(s, name) {
			return e, nil
		}
	}
	return EaseOut, fmt.Errorf("transition: unknown easing %q", name)
}

// Apply maps linear progress t to eased progress. t is clamped to [0, 1].
func (e Easing) Apply(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	switch e {
	case Linear:
		return t
	case EaseIn:
		return t * t
	case EaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		u := -2*t + 2
		return 1 - u*u/2
	case Parabolic:
		return t * t * (3 - 2*t)
	case Cosine:
		return 0.5 - 0.5*math.Cos(math.Pi*t)
	default:
		u := 1 - t
		return 1 - u*u
	}
}
