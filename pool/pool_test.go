package pool

import (
	"errors"
	"testing"
)

type fakeContext struct {
	id        int
	w, h      int
	destroyed bool
	resizeErr error
}

func (c *fakeContext) Resize(w, h int) error {
	if c.resizeErr != nil {
		return c.resizeErr
	}
	c.w, c.h = w, h
	return nil
}

func (c *fakeContext) Destroy() { c.destroyed = true }

type fakeFactory struct {
	made []*fakeContext
	err  error
}

func (f *fakeFactory) Create(w, h int) (*fakeContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := &fakeContext{id: len(f.made) + 1, w: w, h: h}
	f.made = append(f.made, c)
	return c, nil
}

type fakeAnchor struct{ attached bool }

func (a *fakeAnchor) Attached() bool { return a.attached }

type countingObserver struct {
	created, failed, evicted, lost, restored, swept int
	lastInUse, lastTotal                            int
}

func (o *countingObserver) Created()      { o.created++ }
func (o *countingObserver) CreateFailed() { o.failed++ }
func (o *countingObserver) Evicted()      { o.evicted++ }
func (o *countingObserver) Lost()         { o.lost++ }
func (o *countingObserver) Restored()     { o.restored++ }
func (o *countingObserver) Swept(n int)   { o.swept += n }
func (o *countingObserver) Occupancy(inUse, total int) {
	o.lastInUse, o.lastTotal = inUse, total
}

func newTestPool(max int) (*Pool[*fakeContext], *fakeFactory) {
	f := &fakeFactory{}
	return New[*fakeContext](f, WithMaxContexts(max)), f
}

func TestAcquireCreatesUpToMax(t *testing.T) {
	p, f := newTestPool(3)
	for i := 0; i < 3; i++ {
		if l := p.Acquire(Request{Width: 10, Height: 10}); l == nil {
			t.Fatalf("Acquire #%d = nil", i)
		}
	}
	if len(f.made) != 3 {
		t.Errorf("created %d contexts, want 3", len(f.made))
	}
	if s := p.Stats(); s.InUse != 3 || s.Total != 3 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDefaultMax(t *testing.T) {
	p := New[*fakeContext](&fakeFactory{})
	if p.Max() != DefaultMaxContexts {
		t.Errorf("Max() = %d, want %d", p.Max(), DefaultMaxContexts)
	}
}

// The number of in-use entries never exceeds the budget.
func TestPoolBound(t *testing.T) {
	p, f := newTestPool(4)
	var leases []*Lease[*fakeContext]
	for i := 0; i < 25; i++ {
		l := p.Acquire(Request{Width: 100 + i, Height: 100})
		if l == nil {
			t.Fatalf("Acquire #%d = nil", i)
		}
		leases = append(leases, l)
		if i%3 == 0 {
			leases[i/2].Release()
		}
		s := p.Stats()
		if s.InUse > 4 || s.Total > 4 {
			t.Fatalf("after #%d: Stats() = %+v, exceeds budget", i, s)
		}
	}
	if len(f.made) > 4 {
		t.Errorf("created %d contexts, want at most 4", len(f.made))
	}

	valid := 0
	for _, l := range leases {
		if l.Valid() {
			valid++
		}
	}
	if valid > 4 {
		t.Errorf("%d valid leases, want at most 4", valid)
	}
}

func TestReleaseKeepsContextWarm(t *testing.T) {
	p, f := newTestPool(2)
	l := p.Acquire(Request{Width: 10, Height: 10})
	l.Release()
	if l.Valid() {
		t.Error("released lease still valid")
	}
	if f.made[0].destroyed {
		t.Error("Release destroyed the context")
	}

	l2 := p.Acquire(Request{Width: 30, Height: 20})
	if l2 == nil || l2.ID() != l.ID() {
		t.Fatalf("reacquire got %v, want entry %d reused", l2, l.ID())
	}
	if len(f.made) != 1 {
		t.Errorf("created %d contexts, want 1", len(f.made))
	}
	if c := l2.Context(); c.w != 30 || c.h != 20 {
		t.Errorf("reused context size = %dx%d, want 30x20", c.w, c.h)
	}

	// A stale release must not free the new owner's entry.
	l.Release()
	if !l2.Valid() {
		t.Error("stale Release invalidated the new owner")
	}
}

// Budget 2, acquire S1, S2, S3: S1 is evicted before S3 gets its context.
func TestEvictsLeastRecentlyUsed(t *testing.T) {
	p, _ := newTestPool(2)

	var order []string
	s1 := p.Acquire(Request{Width: 1, Height: 1, OnEvict: func(ID) { order = append(order, "evict s1") }})
	s2 := p.Acquire(Request{Width: 1, Height: 1, OnEvict: func(ID) { order = append(order, "evict s2") }})
	s3 := p.Acquire(Request{Width: 5, Height: 5})
	order = append(order, "s3 acquired")

	if s3 == nil || !s3.Valid() {
		t.Fatal("s3 did not obtain a valid context")
	}
	if s1.Valid() {
		t.Error("s1 still valid after eviction")
	}
	if !s2.Valid() {
		t.Error("s2 lost its context")
	}
	if s3.ID() != s1.ID() {
		t.Errorf("s3 got entry %d, want s1's entry %d", s3.ID(), s1.ID())
	}
	if s3.Generation() == s1.Generation() {
		t.Error("generation not bumped on reassignment")
	}
	want := []string{"evict s1", "s3 acquired"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("event order = %v, want %v", order, want)
	}
}

func TestTouchChangesVictim(t *testing.T) {
	p, _ := newTestPool(2)
	s1 := p.Acquire(Request{})
	s2 := p.Acquire(Request{})
	s1.Touch()
	s3 := p.Acquire(Request{})
	if s3.ID() != s2.ID() {
		t.Errorf("victim = %d, want touched-later s2 %d", s3.ID(), s2.ID())
	}
	if !s1.Valid() || s2.Valid() {
		t.Errorf("valid: s1 %v s2 %v, want true false", s1.Valid(), s2.Valid())
	}
}

func TestCreationFailureReturnsNil(t *testing.T) {
	f := &fakeFactory{err: errors.New("no adapter")}
	obs := &countingObserver{}
	p := New[*fakeContext](f, WithObserver(obs))
	if l := p.Acquire(Request{Width: 10, Height: 10}); l != nil {
		t.Errorf("Acquire() = %v, want nil", l)
	}
	if obs.failed != 1 {
		t.Errorf("failed = %d, want 1", obs.failed)
	}
	if s := p.Stats(); s.Failed != 1 || s.Total != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestResizeFailureOnReuse(t *testing.T) {
	p, f := newTestPool(1)
	l := p.Acquire(Request{})
	l.Release()
	f.made[0].resizeErr = errors.New("too large")
	if got := p.Acquire(Request{Width: 1 << 20, Height: 1 << 20}); got != nil {
		t.Error("Acquire with failing resize returned a lease")
	}
	if s := p.Stats(); s.InUse != 0 {
		t.Errorf("InUse = %d after failed reuse, want 0", s.InUse)
	}
}

func TestLossAndRestore(t *testing.T) {
	obs := &countingObserver{}
	p := New[*fakeContext](&fakeFactory{}, WithObserver(obs))

	var events []string
	l := p.Acquire(Request{
		OnLoss:    func(ID) { events = append(events, "loss") },
		OnRestore: func(ID) { events = append(events, "restore") },
	})
	p.Lose(l.ID())
	if l.Valid() {
		t.Error("lease valid while lost")
	}
	if !l.Current() {
		t.Error("lost lease should still be current")
	}
	p.Lose(l.ID()) // duplicate signal ignored
	p.Restore(l.ID())
	if !l.Valid() {
		t.Error("lease invalid after restore")
	}
	if len(events) != 2 || events[0] != "loss" || events[1] != "restore" {
		t.Errorf("events = %v", events)
	}
	if obs.lost != 1 || obs.restored != 1 {
		t.Errorf("observer lost=%d restored=%d", obs.lost, obs.restored)
	}
}

func TestLostEntriesAreNotRecycled(t *testing.T) {
	p, _ := newTestPool(1)
	l := p.Acquire(Request{})
	p.Lose(l.ID())
	if got := p.Acquire(Request{}); got != nil {
		t.Error("Acquire recycled a lost context")
	}
	if !l.Current() {
		t.Error("failed Acquire took the lost context from its owner")
	}
}

// A lost context whose owner lets go is destroyed and its slot reused.
func TestReleaseDestroysLostContext(t *testing.T) {
	p, f := newTestPool(1)
	l := p.Acquire(Request{})
	p.Lose(l.ID())
	l.Release()

	if !f.made[0].destroyed {
		t.Error("released lost context not destroyed")
	}
	if s := p.Stats(); s.Total != 0 || s.Lost != 0 {
		t.Errorf("Stats() = %+v, want empty pool", s)
	}
	l2 := p.Acquire(Request{Width: 8, Height: 8})
	if l2 == nil || !l2.Valid() {
		t.Fatal("Acquire after releasing a lost context = nil")
	}
	if len(f.made) != 2 || l2.Context() != f.made[1] {
		t.Errorf("created %d contexts, want a fresh second one", len(f.made))
	}
}

// A free entry lost without an owner never gets a restore, so Acquire
// replaces it.
func TestAcquireReclaimsLostFreeEntry(t *testing.T) {
	p, f := newTestPool(1)
	l := p.Acquire(Request{})
	l.Release()
	p.Lose(l.ID())

	l2 := p.Acquire(Request{})
	if l2 == nil {
		t.Fatal("Acquire() = nil with a lost free entry")
	}
	if !f.made[0].destroyed {
		t.Error("lost free context not destroyed")
	}
	if l2.ID() == l.ID() || len(f.made) != 2 {
		t.Errorf("got entry %d after %d creations, want a new entry", l2.ID(), len(f.made))
	}
	if s := p.Stats(); s.Total != 1 || s.InUse != 1 || s.Lost != 0 {
		t.Errorf("Stats() = %+v", s)
	}
	p.Restore(l.ID()) // late signal for a destroyed entry
	if !l2.Valid() {
		t.Error("restore of a destroyed entry disturbed the new owner")
	}
}

func TestReportLossIgnoresStaleLease(t *testing.T) {
	p, _ := newTestPool(1)
	old := p.Acquire(Request{})
	cur := p.Acquire(Request{})
	old.ReportLoss()
	if !cur.Valid() {
		t.Error("stale ReportLoss marked the new owner's context lost")
	}
	cur.ReportLoss()
	if cur.Valid() {
		t.Error("ReportLoss on the current lease had no effect")
	}
}

func TestSweepOrphans(t *testing.T) {
	obs := &countingObserver{}
	f := &fakeFactory{}
	p := New[*fakeContext](f, WithObserver(obs))

	gone := &fakeAnchor{attached: true}
	kept := &fakeAnchor{attached: true}
	evicted := false
	a := p.Acquire(Request{Anchor: gone, OnEvict: func(ID) { evicted = true }})
	b := p.Acquire(Request{Anchor: kept})

	if n := p.SweepOrphans(); n != 0 {
		t.Fatalf("SweepOrphans() = %d with everything attached", n)
	}
	gone.attached = false
	if n := p.SweepOrphans(); n != 1 {
		t.Fatalf("SweepOrphans() = %d, want 1", n)
	}
	if a.Valid() || !b.Valid() {
		t.Errorf("valid: orphan %v kept %v", a.Valid(), b.Valid())
	}
	if !f.made[0].destroyed {
		t.Error("orphaned context not destroyed")
	}
	if !evicted {
		t.Error("orphan owner not notified")
	}
	if obs.swept != 1 || obs.lastTotal != 1 {
		t.Errorf("observer swept=%d total=%d", obs.swept, obs.lastTotal)
	}
}

type callbackFactory struct {
	fakeFactory
	create func()
}

func (f *callbackFactory) Create(w, h int) (*fakeContext, error) {
	if f.create != nil {
		f.create()
	}
	return f.fakeFactory.Create(w, h)
}

// Other owners keep using the pool while a context is being created.
func TestCreateRunsWithoutLock(t *testing.T) {
	f := &callbackFactory{}
	p := New[*fakeContext](f, WithMaxContexts(2))
	first := p.Acquire(Request{})

	var during Stats
	f.create = func() {
		first.Touch()
		if !first.Valid() {
			t.Error("existing lease invalid during creation")
		}
		during = p.Stats()
	}
	if p.Acquire(Request{}) == nil {
		t.Fatal("second Acquire() = nil")
	}
	if during.Total != 1 || during.InUse != 1 {
		t.Errorf("Stats() during creation = %+v", during)
	}
	if s := p.Stats(); s.Total != 2 {
		t.Errorf("Total = %d, want 2", s.Total)
	}
}

func TestFactoryPanicReleasesReservation(t *testing.T) {
	f := &callbackFactory{create: func() { panic("driver crashed") }}
	p := New[*fakeContext](f, WithMaxContexts(1))

	func() {
		defer func() {
			if recover() == nil {
				t.Error("factory panic did not propagate")
			}
		}()
		p.Acquire(Request{})
	}()

	f.create = nil
	l := p.Acquire(Request{})
	if l == nil {
		t.Fatal("pool unusable after a factory panic")
	}
	if s := p.Stats(); s.Total != 1 || s.InUse != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestCloseDuringCreation(t *testing.T) {
	f := &callbackFactory{}
	p := New[*fakeContext](f)
	f.create = func() { p.Close() }
	if l := p.Acquire(Request{}); l != nil {
		t.Error("Acquire() returned a lease from a closed pool")
	}
	if len(f.made) != 1 || !f.made[0].destroyed {
		t.Error("context created after Close was not destroyed")
	}
}

func TestClose(t *testing.T) {
	p, f := newTestPool(2)
	l := p.Acquire(Request{})
	p.Close()
	if l.Valid() {
		t.Error("lease valid after Close")
	}
	if !f.made[0].destroyed {
		t.Error("Close did not destroy contexts")
	}
	if p.Acquire(Request{}) != nil {
		t.Error("Acquire after Close returned a lease")
	}
}

func TestInvariantError(t *testing.T) {
	p, _ := newTestPool(1)
	l := p.Acquire(Request{})

	defer func() {
		r := recover()
		var ie *InvariantError
		err, ok := r.(error)
		if !ok || !errors.As(err, &ie) {
			t.Fatalf("recover() = %v, want *InvariantError", r)
		}
		if ie.Op != "release" {
			t.Errorf("Op = %q, want release", ie.Op)
		}
	}()

	// Corrupt the entry to simulate a second owner having freed it.
	p.mu.Lock()
	p.entries[0].inUse = false
	p.mu.Unlock()
	l.Release()
}
