package transition

import (
	"fmt"

	"github.com/gogpu/hyperviz/params"
)

// Op combines a change value with the current target value.
type Op int

// Target operations.
const (
	OpSet Op = iota
	OpMultiply
	OpAdd
	OpReset
)

func (o Op) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpMultiply:
		return "multiply"
	case OpAdd:
		return "add"
	case OpReset:
		return "reset"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp resolves an operation name.
func ParseOp(name string) (Op, error) {
	for _, o := range []Op{OpSet, OpMultiply, OpAdd, OpReset} {
		if o.String() == name {
			return o, nil
		}
	}
	return OpSet, fmt.Errorf("transition: unknown op %q", name)
}

// Apply computes new target values for the keys of changes relative to
// base. OpReset ignores the change values and restores schema defaults.
// Results are clamped to the schema ranges.
func Apply(base params.Set, op Op, changes params.Set) params.Set {
	out := make(params.Set, len(changes))
	for name, v := range changes {
		r, ok := params.Lookup(name)
		if !ok {
			continue
		}
		cur := base.Get(name)
		switch op {
		case OpMultiply:
			out[name] = r.Clamp(cur * v)
		case OpAdd:
			out[name] = r.Clamp(cur + v)
		case OpReset:
			out[name] = r.Default
		default:
			out[name] = r.Clamp(v)
		}
	}
	return out
}
