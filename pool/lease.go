package pool

import (
	"fmt"
	"sync/atomic"
)

// Lease is an owner's claim on a pooled context for one generation.
type Lease[C Context] struct {
	pool     *Pool[C]
	id       ID
	gen      uint64
	ctx      C
	released atomic.Bool
}

// ID returns the entry id.
func (l *Lease[C]) ID() ID { return l.id }

// Generation returns the generation this lease was issued for.
func (l *Lease[C]) Generation() uint64 { return l.gen }

// Context returns the leased context. Callers must check Valid before
// issuing draw calls against it.
func (l *Lease[C]) Context() C { return l.ctx }

// Valid reports whether the lease still owns a usable context: it has not
// been released, its entry has not been reassigned or swept, and the
// context is not lost.
func (l *Lease[C]) Valid() bool {
	if l == nil || l.released.Load() {
		return false
	}
	p := l.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(l.id)
	return e != nil && e.gen == l.gen && e.inUse && !e.lost
}

// Current reports whether the lease still owns its entry, lost or not.
func (l *Lease[C]) Current() bool {
	if l == nil || l.released.Load() {
		return false
	}
	p := l.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(l.id)
	return e != nil && e.gen == l.gen && e.inUse
}

// Touch marks the context as just used for LRU ordering.
func (l *Lease[C]) Touch() {
	if l == nil || l.released.Load() {
		return
	}
	p := l.pool
	p.mu.Lock()
	defer p.mu.Unlock()
	if e := p.find(l.id); e != nil && e.gen == l.gen {
		p.clock++
		e.lastUsed = p.clock
	}
}

// ReportLoss signals that a draw against this lease failed because the
// context is gone. It is a no-op for stale leases.
func (l *Lease[C]) ReportLoss() {
	if l.Current() {
		l.pool.Lose(l.id)
	}
}

// Release returns the context to the pool without destroying it, unless
// the context is lost: a lost context is destroyed and its slot freed.
// Releasing a stale lease does nothing; releasing twice is a no-op.
func (l *Lease[C]) Release() {
	if l == nil || l.released.Swap(true) {
		return
	}
	p := l.pool
	p.mu.Lock()
	e := p.find(l.id)
	if e == nil || e.gen != l.gen {
		p.mu.Unlock()
		return
	}
	if !e.inUse {
		p.mu.Unlock()
		panic(&InvariantError{Op: "release", ID: l.id, Detail: "current lease on an entry that is not in use"})
	}
	e.inUse = false
	e.owner = Request{}
	lost := e.lost
	if lost {
		e.gen++
		p.remove(e)
	}
	inUse, total := p.occupancy()
	p.mu.Unlock()
	if lost {
		p.destroy([]C{e.ctx})
	}
	p.observer.Occupancy(inUse, total)
}

// InvariantError reports a pool state that can only arise from a logic
// bug, such as two owners holding the same context.
type InvariantError struct {
	Op     string
	ID     ID
	Detail string
}

func (e *InvariantError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("pool: invariant violated in %s (entry %d): %s", e.Op, e.ID, e.Detail)
	}
	return fmt.Sprintf("pool: invariant violated in %s: %s", e.Op, e.Detail)
}
