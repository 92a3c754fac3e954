// Package pool manages a bounded set of hardware drawing contexts shared by
// many render surfaces.
//
// The platform caps the number of live hardware contexts, so surfaces borrow
// them through a Pool. When the pool is full the least recently used context
// is taken from its owner and handed to the new requester. Owners hold a
// Lease carrying a generation number; after eviction the old lease reports
// itself invalid, so the evicted surface never draws into a context it no
// longer owns.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// DefaultMaxContexts is the platform context budget assumed when none is
// configured.
const DefaultMaxContexts = 4

// ErrExhausted is logged when Acquire cannot provide a context. It is never
// returned; callers see a nil lease.
var ErrExhausted = errors.New("pool: no hardware context available")

// Context is a hardware drawing context managed by the pool.
type Context interface {
	Resize(width, height int) error
	Destroy()
}

// Factory creates hardware contexts. Implementations walk their own
// preference order of graphics APIs and return an error only when none
// succeeds.
type Factory[C Context] interface {
	Create(width, height int) (C, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc[C Context] func(width, height int) (C, error)

// Create calls f.
func (f FactoryFunc[C]) Create(width, height int) (C, error) { return f(width, height) }

// Anchor is the host surface a pooled context draws into. A context whose
// anchor is no longer attached to the visible document is an orphan.
type Anchor interface {
	Attached() bool
}

// ID identifies a pool entry.
type ID int

// Request describes an acquisition and the owner's callbacks.
type Request struct {
	Width, Height int
	Anchor        Anchor

	// OnEvict runs when the context is taken from this owner, after the
	// owner's lease has been invalidated and before the context is handed
	// to its new owner.
	OnEvict func(ID)
	// OnLoss runs when the platform reports the context unusable.
	OnLoss func(ID)
	// OnRestore runs when the platform reports the context usable again.
	OnRestore func(ID)
}

// Observer receives pool events. The metrics package provides one backed by
// Prometheus collectors.
type Observer interface {
	Created()
	CreateFailed()
	Evicted()
	Lost()
	Restored()
	Swept(n int)
	Occupancy(inUse, total int)
}

type nopObserver struct{}

func (nopObserver) Created()           {}
func (nopObserver) CreateFailed()      {}
func (nopObserver) Evicted()           {}
func (nopObserver) Lost()              {}
func (nopObserver) Restored()          {}
func (nopObserver) Swept(int)          {}
func (nopObserver) Occupancy(int, int) {}

type entry[C Context] struct {
	id       ID
	ctx      C
	anchor   Anchor
	inUse    bool
	lost     bool
	gen      uint64
	lastUsed uint64
	width    int
	height   int
	owner    Request
}

// Stats is a point-in-time summary of the pool.
type Stats struct {
	Max     int
	Total   int
	InUse   int
	Lost    int
	Created uint64
	Evicted uint64
	Failed  uint64
}

// EntryInfo is a read-only view of one entry.
type EntryInfo struct {
	ID         ID
	InUse      bool
	Lost       bool
	Generation uint64
	Width      int
	Height     int
}

// Pool hands out at most Max hardware contexts.
//
// All methods are safe for concurrent use. Owner callbacks never run while
// the pool lock is held.
type Pool[C Context] struct {
	mu       sync.Mutex
	factory  Factory[C]
	max      int
	entries  []*entry[C]
	nextID   ID
	pending  int // slots reserved by creations in progress
	clock    uint64
	closed   bool
	logger   *slog.Logger
	observer Observer

	created, evicted, failed uint64
}

type config struct {
	max      int
	logger   *slog.Logger
	observer Observer
}

// Option configures a Pool.
type Option func(*config)

// WithMaxContexts sets the context budget. Values below 1 are ignored.
func WithMaxContexts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.max = n
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver installs an event observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// New returns an empty pool creating contexts through f.
func New[C Context](f Factory[C], opts ...Option) *Pool[C] {
	cfg := config{
		max:      DefaultMaxContexts,
		logger:   slog.New(discardHandler{}),
		observer: nopObserver{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Pool[C]{
		factory:  f,
		max:      cfg.max,
		logger:   cfg.logger,
		observer: cfg.observer,
	}
}

// Max returns the context budget.
func (p *Pool[C]) Max() int { return p.max }

// Acquire returns a lease on a hardware context sized width×height, or nil
// when no context can be provided. nil is the caller's signal to render in
// software; it is never an error condition.
//
// A free context is reused first. Free contexts that were lost are
// destroyed, which frees their slots. Below the budget a new context is
// created. At the budget the least recently used context is evicted from
// its owner and reassigned.
func (p *Pool[C]) Acquire(req Request) *Lease[C] {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	if e := p.freeEntry(); e != nil {
		p.assign(e, req)
		lease := p.lease(e)
		p.mu.Unlock()
		return p.finish(lease, req, nil)
	}

	stale := p.reclaimLost()
	if len(p.entries)+p.pending < p.max {
		p.pending++
		p.mu.Unlock()
		p.destroy(stale)
		return p.create(req)
	}

	victim := p.lruEntry()
	if victim == nil {
		p.mu.Unlock()
		p.destroy(stale)
		p.logger.Warn("pool: every context is lost, none to recycle", "err", ErrExhausted)
		return nil
	}
	prev := victim.owner
	p.evicted++
	p.assign(victim, req)
	lease := p.lease(victim)
	p.mu.Unlock()
	p.destroy(stale)

	p.observer.Evicted()
	p.logger.Info("pool: recycled least recently used context", "id", victim.id)
	return p.finish(lease, req, prev.OnEvict)
}

// create opens a context in a slot Acquire reserved. It runs without the
// lock so a slow device open does not stall other owners; the reservation
// is returned even if the factory panics.
func (p *Pool[C]) create(req Request) *Lease[C] {
	reserved := true
	defer func() {
		if reserved {
			p.mu.Lock()
			p.pending--
			p.mu.Unlock()
		}
	}()

	ctx, err := p.factory.Create(req.Width, req.Height)

	p.mu.Lock()
	p.pending--
	reserved = false
	if err != nil {
		p.failed++
		p.mu.Unlock()
		p.observer.CreateFailed()
		p.logger.Warn("pool: context creation failed",
			"width", req.Width, "height", req.Height, "err", fmt.Errorf("%w: %w", ErrExhausted, err))
		return nil
	}
	if p.closed {
		p.mu.Unlock()
		ctx.Destroy()
		return nil
	}
	p.nextID++
	e := &entry[C]{id: p.nextID, ctx: ctx, width: req.Width, height: req.Height}
	p.entries = append(p.entries, e)
	p.created++
	p.assign(e, req)
	p.checkInvariants("acquire")
	lease := p.lease(e)
	inUse, total := p.occupancy()
	p.mu.Unlock()

	p.observer.Created()
	p.observer.Occupancy(inUse, total)
	p.logger.Debug("pool: context created", "id", e.id, "total", total)
	return lease
}

// finish notifies an evicted owner, then resizes the context for its new
// owner. Called without the lock.
func (p *Pool[C]) finish(l *Lease[C], req Request, onEvict func(ID)) *Lease[C] {
	if onEvict != nil {
		onEvict(l.id)
	}
	if err := l.ctx.Resize(req.Width, req.Height); err != nil {
		p.logger.Warn("pool: resize on reuse failed", "id", l.id, "err", err)
		l.Release()
		return nil
	}
	p.mu.Lock()
	if e := p.find(l.id); e != nil && e.gen == l.gen {
		e.width, e.height = req.Width, req.Height
	}
	inUse, total := p.occupancy()
	p.mu.Unlock()
	p.observer.Occupancy(inUse, total)
	return l
}

// assign gives e to a new owner. Caller holds p.mu.
func (p *Pool[C]) assign(e *entry[C], req Request) {
	e.inUse = true
	e.gen++
	e.owner = req
	e.anchor = req.Anchor
	p.clock++
	e.lastUsed = p.clock
}

func (p *Pool[C]) lease(e *entry[C]) *Lease[C] {
	return &Lease[C]{pool: p, id: e.id, gen: e.gen, ctx: e.ctx}
}

// freeEntry returns the first entry that is neither in use nor lost.
func (p *Pool[C]) freeEntry() *entry[C] {
	for _, e := range p.entries {
		if !e.inUse && !e.lost {
			return e
		}
	}
	return nil
}

// lruEntry returns the least recently used in-use entry that is not lost.
func (p *Pool[C]) lruEntry() *entry[C] {
	var best *entry[C]
	for _, e := range p.entries {
		if !e.inUse || e.lost {
			continue
		}
		if best == nil || e.lastUsed < best.lastUsed {
			best = e
		}
	}
	return best
}

// reclaimLost drops free entries that are lost and returns their contexts
// for destruction. No restore signal can reach a context nobody owns.
// Caller holds p.mu.
func (p *Pool[C]) reclaimLost() []C {
	var stale []C
	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.lost && !e.inUse {
			e.gen++
			stale = append(stale, e.ctx)
			continue
		}
		kept = append(kept, e)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	return stale
}

// remove drops e from the entry list. Caller holds p.mu.
func (p *Pool[C]) remove(e *entry[C]) {
	if i := slices.Index(p.entries, e); i >= 0 {
		p.entries = slices.Delete(p.entries, i, i+1)
	}
}

// destroy tears contexts down. Called without the lock.
func (p *Pool[C]) destroy(ctxs []C) {
	for _, c := range ctxs {
		c.Destroy()
	}
	if n := len(ctxs); n > 0 {
		p.logger.Info("pool: destroyed lost contexts", "count", n)
	}
}

func (p *Pool[C]) find(id ID) *entry[C] {
	for _, e := range p.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (p *Pool[C]) occupancy() (inUse, total int) {
	for _, e := range p.entries {
		if e.inUse {
			inUse++
		}
	}
	return inUse, len(p.entries)
}

// checkInvariants panics if the pool state is impossible. Caller holds p.mu.
func (p *Pool[C]) checkInvariants(op string) {
	if len(p.entries)+p.pending > p.max {
		panic(&InvariantError{Op: op, Detail: fmt.Sprintf("%d entries and %d reservations exceed budget %d", len(p.entries), p.pending, p.max)})
	}
	seen := make(map[ID]bool, len(p.entries))
	for _, e := range p.entries {
		if seen[e.id] {
			panic(&InvariantError{Op: op, ID: e.id, Detail: "duplicate entry id"})
		}
		seen[e.id] = true
	}
}

// Lose marks a context unusable, as when the platform reports a driver
// reset, and runs the owner's OnLoss.
func (p *Pool[C]) Lose(id ID) {
	p.mu.Lock()
	e := p.find(id)
	if e == nil || e.lost {
		p.mu.Unlock()
		return
	}
	e.lost = true
	var h func(ID)
	if e.inUse {
		h = e.owner.OnLoss
	}
	p.mu.Unlock()

	p.observer.Lost()
	p.logger.Warn("pool: context lost", "id", id)
	if h != nil {
		h(id)
	}
}

// Restore marks a lost context usable again and runs the owner's
// OnRestore. The owner's lease becomes valid again.
func (p *Pool[C]) Restore(id ID) {
	p.mu.Lock()
	e := p.find(id)
	if e == nil || !e.lost {
		p.mu.Unlock()
		return
	}
	e.lost = false
	var h func(ID)
	if e.inUse {
		h = e.owner.OnRestore
	}
	p.mu.Unlock()

	p.observer.Restored()
	p.logger.Info("pool: context restored", "id", id)
	if h != nil {
		h(id)
	}
}

// SweepOrphans destroys entries whose anchor is no longer attached and
// returns how many were removed. Owners of removed entries are notified
// through OnEvict.
func (p *Pool[C]) SweepOrphans() int {
	p.mu.Lock()
	var removed []*entry[C]
	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.anchor != nil && !e.anchor.Attached() {
			e.gen++
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	p.entries = kept
	inUse, total := p.occupancy()
	p.mu.Unlock()

	for _, e := range removed {
		e.ctx.Destroy()
		if e.inUse && e.owner.OnEvict != nil {
			e.owner.OnEvict(e.id)
		}
	}
	if n := len(removed); n > 0 {
		p.observer.Swept(n)
		p.observer.Occupancy(inUse, total)
		p.logger.Info("pool: swept orphaned contexts", "count", n)
	}
	return len(removed)
}

// Stats returns a summary of the pool.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Max: p.max, Total: len(p.entries), Created: p.created, Evicted: p.evicted, Failed: p.failed}
	for _, e := range p.entries {
		if e.inUse {
			s.InUse++
		}
		if e.lost {
			s.Lost++
		}
	}
	return s
}

// Entries returns a view of every entry in creation order.
func (p *Pool[C]) Entries() []EntryInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EntryInfo, len(p.entries))
	for i, e := range p.entries {
		out[i] = EntryInfo{ID: e.id, InUse: e.inUse, Lost: e.lost, Generation: e.gen, Width: e.width, Height: e.height}
	}
	return out
}

// Close destroys every context. Leases become invalid and later Acquire
// calls return nil.
func (p *Pool[C]) Close() {
	p.mu.Lock()
	entries := p.entries
	p.entries = nil
	p.closed = true
	p.mu.Unlock()

	for _, e := range entries {
		e.ctx.Destroy()
	}
}

// discardHandler drops all records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
