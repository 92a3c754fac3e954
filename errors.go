package hyperviz

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned by operations on a disposed surface.
var ErrDisposed = errors.New("hyperviz: surface disposed")

// ErrNotInitialized is returned by orchestrator operations before
// Initialize.
var ErrNotInitialized = errors.New("hyperviz: orchestrator not initialized")

// InvariantError reports a state that can only arise from a logic bug,
// such as an illegal mode transition or a missing roster role.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("hyperviz: invariant violated in %s: %s", e.Op, e.Detail)
}
