package hyperviz

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/gogpu/hyperviz/device"
	"github.com/gogpu/hyperviz/interaction"
	"github.com/gogpu/hyperviz/internal/software"
	"github.com/gogpu/hyperviz/layout"
	"github.com/gogpu/hyperviz/params"
	"github.com/gogpu/hyperviz/pool"
	"github.com/gogpu/hyperviz/schedule"
	"github.com/gogpu/hyperviz/transition"
)

// Container is the host element a surface draws into. Its Attached
// method tells the pool whether the element is still part of the
// document.
type Container interface {
	pool.Anchor
}

// Sizer is implemented by containers that know their own size.
// Responsive surfaces follow it.
type Sizer interface {
	Size() (width, height int)
}

// Detacher is implemented by containers a surface may remove from the
// document when it owns them.
type Detacher interface {
	Detach()
}

// ContextPool is the pool type surfaces draw from.
type ContextPool = pool.Pool[device.Context]

// paramTransition animates geometry and theme changes.
var paramTransition = transition.Spec{DurationMs: 800, Easing: transition.Cosine}

// RenderSurface is one animated visualization. It draws through a pooled
// hardware context when it holds one and through the software renderer
// otherwise. Mode changes only through the state machine documented on
// Mode.
//
// All methods are safe for concurrent use. Frames are rendered by
// RenderFrame, either from a schedule.Loop or directly by the host.
type RenderSurface struct {
	mu sync.Mutex

	id        uuid.UUID
	opts      options
	container Container
	pool      *ContextPool
	catalog   *params.Catalog

	mode  Mode
	lease *pool.Lease[device.Context]

	// Set by pool callbacks, which may run while another surface holds
	// its own lock. Consumed under s.mu.
	evicted  atomic.Bool
	lost     atomic.Bool
	restored atomic.Bool

	engine   *transition.Engine
	geometry params.Geometry
	theme    string
	themeSet params.Set
	roleSet  params.Set
	override params.Set

	local    *interaction.Tracker
	software *software.Renderer

	width, height int
	bounds        layout.Rect
	active        bool
	paused        bool

	frameCount  uint64
	startMs     float64
	lastFrameMs float64
	nowMs       float64
	fps         float64
	lastInter   interaction.Snapshot

	hardwareDisabled bool
	compileLogged    bool
	restore          backoff.BackOff
	restoreAt        float64
	restorePending   bool
	restoreAttempts  int

	tokens []*schedule.Token
}

// NewRenderSurface creates a surface in container drawing from p. The
// surface acquires a hardware context immediately unless it is forced to
// software or created inactive. A nil pool forces software rendering.
func NewRenderSurface(container Container, p *ContextPool, opts ...Option) *RenderSurface {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		o.catalog = params.DefaultCatalog()
	}

	s := &RenderSurface{
		id:        uuid.New(),
		opts:      o,
		container: container,
		pool:      p,
		catalog:   o.catalog,
		roleSet:   params.Set{},
		override:  params.Set{},
		local:     interaction.NewTracker(interaction.DefaultConfig()),
		restore:   o.restorePolicy(),
	}
	s.width, s.height = clampSize(o.width, o.height)
	s.bounds = layout.Rect{Width: float64(s.width), Height: float64(s.height)}

	s.geometry = params.Hypercube
	if g, err := params.ParseGeometry(o.geometry); err == nil {
		s.geometry = g
	} else {
		Logger().Warn("hyperviz: unknown geometry, using default", "geometry", o.geometry, "err", err)
	}
	s.theme = params.Hypercube.String()
	if t, err := s.catalog.Theme(o.theme); err == nil {
		s.theme = t.ID
		s.themeSet = t.Set()
	} else {
		Logger().Warn("hyperviz: unknown theme, using default", "theme", o.theme, "err", err)
		t, _ := s.catalog.Theme(s.theme)
		s.themeSet = t.Set()
	}
	s.engine = transition.NewEngine(s.targetLocked())

	if o.loop != nil {
		s.tokens = append(s.tokens,
			o.loop.Every(s.RenderFrame),
			o.loop.Interval(s.local.Config().PollIntervalMs, s.local.Poll),
		)
	}

	if !o.inactive {
		s.mu.Lock()
		s.active = true
		s.initLocked()
		s.mu.Unlock()
	}
	return s
}

func clampSize(w, h int) (int, int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ID returns the surface instance id.
func (s *RenderSurface) ID() string { return s.id.String() }

// Role returns the role label set with WithRole.
func (s *RenderSurface) Role() string { return s.opts.role }

func (s *RenderSurface) log() []any {
	return []any{"surface", s.id.String(), "role", s.opts.role}
}

// setModeLocked moves the state machine. Illegal transitions are logic
// bugs.
func (s *RenderSurface) setModeLocked(to Mode) {
	if !canTransition(s.mode, to) {
		panic(&InvariantError{Op: "mode", Detail: s.mode.String() + " -> " + to.String()})
	}
	s.mode = to
}

// initLocked leaves Uninitialized: it acquires and builds a hardware
// context, or falls back to software.
func (s *RenderSurface) initLocked() {
	if s.mode != Uninitialized {
		return
	}
	switch {
	case s.opts.forceSoftware:
		s.hardwareDisabled = true
		s.fallbackLocked(reasonForced, nil)
	case s.pool == nil:
		s.fallbackLocked(reasonExhausted, pool.ErrExhausted)
	default:
		if !s.acquireLocked() {
			return
		}
		s.setModeLocked(HardwareActive)
		Logger().Info("hyperviz: surface rendering on hardware",
			append(s.log(), "backend", s.lease.Context().Backend())...)
	}
}

// acquireLocked obtains and builds a context. On failure the surface is
// in SoftwareFallback and false is returned.
func (s *RenderSurface) acquireLocked() bool {
	s.evicted.Store(false)
	s.lost.Store(false)
	s.restored.Store(false)

	lease := s.pool.Acquire(pool.Request{
		Width:     s.width,
		Height:    s.height,
		Anchor:    s.container,
		OnEvict:   func(pool.ID) { s.evicted.Store(true) },
		OnLoss:    func(pool.ID) { s.lost.Store(true) },
		OnRestore: func(pool.ID) { s.restored.Store(true) },
	})
	if lease == nil {
		s.fallbackLocked(reasonExhausted, pool.ErrExhausted)
		return false
	}
	s.lease = lease
	if err := lease.Context().Build(s.geometry); err != nil {
		s.buildFailedLocked(err)
		return false
	}
	return true
}

// buildFailedLocked handles a Build error on the held lease.
func (s *RenderSurface) buildFailedLocked(err error) {
	if errors.Is(err, device.ErrCompile) {
		// A broken program stays broken: never retry it.
		s.hardwareDisabled = true
		s.releaseLeaseLocked()
		if !s.compileLogged {
			s.compileLogged = true
			Logger().Warn("hyperviz: shader build failed", append(s.log(), "err", err)...)
		}
		s.fallbackLocked(reasonCompile, nil)
		return
	}
	// No restore signal follows a failed build. Report the context lost
	// and let go of it so the pool destroys it and frees the slot; a later
	// Activate starts over on a fresh context.
	s.lease.ReportLoss()
	s.lost.Store(false)
	s.releaseLeaseLocked()
	s.fallbackLocked(reasonLost, err)
}

func (s *RenderSurface) releaseLeaseLocked() {
	if s.lease != nil {
		s.lease.Release()
		s.lease = nil
	}
}

// fallbackLocked enters SoftwareFallback.
func (s *RenderSurface) fallbackLocked(reason string, err error) {
	if s.mode == SoftwareFallback {
		return
	}
	s.setModeLocked(SoftwareFallback)
	s.opts.observer.FellBack(s.opts.role, reason)
	if reason == reasonForced {
		Logger().Debug("hyperviz: software rendering forced", s.log()...)
		return
	}
	Logger().Warn("hyperviz: falling back to software rendering",
		append(s.log(), "reason", reason, "err", err)...)
}

// syncLocked applies pool signals received since the last call.
func (s *RenderSurface) syncLocked(nowMs float64) {
	if s.lease != nil && s.evicted.Swap(false) && !s.lease.Current() {
		s.lease = nil
		s.restorePending = false
		if s.mode == HardwareActive {
			s.fallbackLocked(reasonEvicted, nil)
		}
	}
	if s.lost.Swap(false) && s.mode == HardwareActive {
		s.fallbackLocked(reasonLost, device.ErrContextLost)
	}
	if s.restored.Swap(false) && s.mode == SoftwareFallback && s.lease != nil && !s.hardwareDisabled {
		s.scheduleRestoreLocked(nowMs)
	}
}

// scheduleRestoreLocked consumes one step of the restore policy.
func (s *RenderSurface) scheduleRestoreLocked(nowMs float64) {
	d := s.restore.NextBackOff()
	if d == backoff.Stop {
		s.hardwareDisabled = true
		s.restorePending = false
		s.releaseLeaseLocked()
		Logger().Warn("hyperviz: restoration attempts exhausted, staying in software", s.log()...)
		return
	}
	s.restorePending = true
	s.restoreAt = nowMs + float64(d)/float64(time.Millisecond)
}

// tryRestoreLocked rebuilds the program on the restored context once the
// backoff delay has passed.
func (s *RenderSurface) tryRestoreLocked(nowMs float64) {
	if !s.restorePending || nowMs < s.restoreAt {
		return
	}
	if s.lease == nil || !s.lease.Current() {
		s.restorePending = false
		s.lease = nil
		return
	}
	if !s.lease.Valid() {
		// Lost again before the attempt; wait for the next restore signal.
		return
	}
	s.restorePending = false
	s.restoreAttempts++
	if err := s.lease.Context().Build(s.geometry); err != nil {
		s.opts.observer.RestoreAttempted(s.opts.role, false)
		s.hardwareDisabled = true
		s.releaseLeaseLocked()
		Logger().Warn("hyperviz: restoration failed, staying in software", append(s.log(), "err", err)...)
		return
	}
	s.setModeLocked(HardwareActive)
	s.opts.observer.RestoreAttempted(s.opts.role, true)
	Logger().Info("hyperviz: hardware rendering restored", append(s.log(), "attempt", s.restoreAttempts)...)
}

// RenderFrame draws one frame at nowMs. Inactive, paused and disposed
// surfaces do nothing.
func (s *RenderSurface) RenderFrame(nowMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed || s.mode == Uninitialized || !s.active || s.paused {
		return
	}
	start := time.Now()

	if s.frameCount == 0 {
		s.startMs = nowMs
	} else if dt := nowMs - s.lastFrameMs; dt > 0 {
		inst := 1000 / dt
		if s.fps == 0 {
			s.fps = inst
		} else {
			s.fps = s.fps*0.9 + inst*0.1
		}
	}
	if nowMs > s.nowMs {
		s.nowMs = nowMs
	}
	timeSec := (nowMs - s.startMs) / 1000

	if s.opts.responsive {
		if sz, ok := s.container.(Sizer); ok {
			w, h := sz.Size()
			s.resizeLocked(w, h)
		}
	}

	sample := s.engine.Sample(nowMs)
	inter := s.interactionLocked(nowMs)
	p := derive(sample, inter)

	s.syncLocked(nowMs)
	s.tryRestoreLocked(nowMs)

	if s.mode == HardwareActive {
		s.drawHardwareLocked(p, timeSec)
	}
	if s.mode == SoftwareFallback {
		s.drawSoftwareLocked(p, inter, timeSec)
	}

	s.frameCount++
	s.lastFrameMs = nowMs
	s.opts.observer.FrameRendered(s.opts.role, s.mode.String(), time.Since(start))
}

// drawHardwareLocked draws through the lease. Any failure leaves the
// surface in SoftwareFallback so the caller can draw the same frame in
// software.
func (s *RenderSurface) drawHardwareLocked(p params.Set, timeSec float64) {
	if !s.lease.Valid() {
		// Evicted or lost between signals: never draw into a context this
		// surface no longer owns.
		reason := reasonLost
		if !s.lease.Current() {
			reason = reasonEvicted
			s.lease = nil
		}
		s.fallbackLocked(reason, nil)
		return
	}
	s.lease.Touch()
	u := device.UniformsFrom(p, s.geometry, s.width, s.height, timeSec)
	if err := s.lease.Context().Draw(u); err != nil {
		if errors.Is(err, device.ErrContextLost) {
			s.lease.ReportLoss()
			s.lost.Store(false)
		}
		s.fallbackLocked(reasonDraw, err)
	}
}

func (s *RenderSurface) drawSoftwareLocked(p params.Set, inter interaction.Snapshot, timeSec float64) {
	if s.software == nil {
		s.software = software.NewRenderer(s.width, s.height)
	}
	s.software.Render(software.Frame{
		Geometry:    s.geometry,
		Params:      p,
		TimeSec:     timeSec,
		Interaction: inter.Intensity,
	})
}

// interactionLocked merges the shared tracker with the surface's own
// pulses, keeping the stronger signal.
func (s *RenderSurface) interactionLocked(nowMs float64) interaction.Snapshot {
	snap := s.local.Frame(nowMs)
	if s.opts.tracker != nil {
		if shared := s.opts.tracker.Frame(nowMs); shared.Intensity >= snap.Intensity {
			snap = shared
		}
	}
	s.lastInter = snap
	return snap
}

// derive applies the interaction-driven adjustments to a parameter
// snapshot.
func derive(sample params.Set, inter interaction.Snapshot) params.Set {
	p := sample.Clone()
	i := inter.Intensity
	p[params.GridDensity] = p.Get(params.GridDensity) * (1 + i*0.2)
	if inter.HoldDurationMs > 0 {
		p[params.Dimension] = p.Get(params.Dimension) + math.Min(inter.HoldDurationMs/2000, 1)*0.5
	}
	p[params.InteractionIntensity] = i
	return p.Clamped()
}

// targetLocked is the merged transition target: base, theme, geometry,
// role, then explicit overrides.
func (s *RenderSurface) targetLocked() params.Set {
	return params.Defaults().
		Merge(s.themeSet).
		Merge(s.catalog.GeometryDefaults(s.geometry)).
		Merge(s.roleSet).
		Merge(s.override)
}

func (s *RenderSurface) now() float64 {
	n := s.nowMs
	if s.opts.loop != nil {
		if ln := s.opts.loop.Now(); ln > n {
			n = ln
		}
	}
	return n
}

// SetGeometry switches the drawn geometry. The geometry's default
// parameters are reached through a transition. Unknown ids change nothing.
func (s *RenderSurface) SetGeometry(id string) error {
	g, err := params.ParseGeometry(id)
	if err != nil {
		Logger().Warn("hyperviz: ignoring unknown geometry", append(s.log(), "geometry", id)...)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return ErrDisposed
	}
	if g == s.geometry {
		return nil
	}
	s.geometry = g
	s.dropOverridesLocked(s.catalog.GeometryDefaults(g))
	if s.mode == HardwareActive && s.lease.Valid() {
		if err := s.lease.Context().Build(g); err != nil {
			s.buildFailedLocked(err)
		}
	}
	s.engine.Retarget(s.targetLocked(), paramTransition, s.now())
	return nil
}

// setCatalog replaces the theme and geometry tables. The current theme
// keeps its parameters until the next SetTheme.
func (s *RenderSurface) setCatalog(c *params.Catalog) {
	if c == nil {
		return
	}
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()
}

// SetTheme switches the palette and theme parameters through a transition.
// Unknown ids change nothing.
func (s *RenderSurface) SetTheme(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.catalog.Theme(id)
	if err != nil {
		Logger().Warn("hyperviz: ignoring unknown theme", append(s.log(), "theme", id)...)
		return err
	}
	if s.mode == Disposed {
		return ErrDisposed
	}
	s.theme = t.ID
	s.themeSet = t.Set()
	s.dropOverridesLocked(s.themeSet)
	s.engine.Retarget(s.targetLocked(), paramTransition, s.now())
	return nil
}

// UpdateParameters merges partial into the target and starts a transition
// from the current snapshot. A zero duration assigns immediately. Unknown
// keys or out-of-range values reject the whole update.
//
// Updated keys take precedence over theme and geometry values until a
// later SetTheme or SetGeometry supplies the same key.
func (s *RenderSurface) UpdateParameters(partial params.Set, spec transition.Spec) error {
	return s.AdjustParameters(transition.OpSet, partial, spec)
}

// AdjustParameters is UpdateParameters with a combining operation:
// OpMultiply and OpAdd scale or offset the current target, OpReset returns
// the named keys to their schema defaults.
func (s *RenderSurface) AdjustParameters(op transition.Op, changes params.Set, spec transition.Spec) error {
	if op == transition.OpSet {
		if err := changes.Validate(); err != nil {
			Logger().Warn("hyperviz: rejected parameter update", append(s.log(), "err", err)...)
			return err
		}
	} else {
		for name := range changes {
			if !params.Known(name) {
				err := fmt.Errorf("%w: %q", params.ErrUnknownParameter, name)
				Logger().Warn("hyperviz: rejected parameter update", append(s.log(), "err", err)...)
				return err
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return ErrDisposed
	}
	s.override = s.override.Merge(transition.Apply(s.engine.Target(), op, changes))
	s.engine.Retarget(s.targetLocked(), spec, s.now())
	return nil
}

// dropOverridesLocked forgets explicit values for the keys in layer, so
// the newly selected layer shows through.
func (s *RenderSurface) dropOverridesLocked(layer params.Set) {
	for k := range layer {
		delete(s.override, k)
	}
}

// SetRoleParameters replaces the role layer of the target, as derived by
// params.InstanceParameters.
func (s *RenderSurface) SetRoleParameters(p params.Set, spec transition.Spec) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return ErrDisposed
	}
	s.roleSet = p.Clone()
	s.engine.Retarget(s.targetLocked(), spec, s.now())
	return nil
}

// SetInteraction injects an interaction pulse into this surface only.
func (s *RenderSurface) SetInteraction(kind interaction.Kind, intensity float64) {
	s.local.Pulse(kind, intensity, s.now())
}

// Resize changes the drawing size. Resizing to the current size does
// nothing.
func (s *RenderSurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return ErrDisposed
	}
	s.resizeLocked(width, height)
	return nil
}

func (s *RenderSurface) resizeLocked(width, height int) {
	width, height = clampSize(width, height)
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.bounds.Width, s.bounds.Height = float64(width), float64(height)
	if s.software != nil {
		s.software.Resize(width, height)
	}
	if s.mode == HardwareActive && s.lease.Valid() {
		if err := s.lease.Context().Resize(width, height); err != nil {
			s.lease.ReportLoss()
			s.lost.Store(false)
			s.fallbackLocked(reasonResize, err)
		}
	}
}

// Place positions the surface over r and resizes it to match.
func (s *RenderSurface) Place(r layout.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return ErrDisposed
	}
	w, h := r.Size()
	s.resizeLocked(w, h)
	s.bounds = r
	return nil
}

// Activate shows the surface. An Uninitialized surface initializes now; a
// surface whose context was evicted tries to obtain a new one.
func (s *RenderSurface) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return
	}
	s.active = true
	if s.mode == Uninitialized {
		s.initLocked()
		return
	}
	s.syncLocked(s.now())
	if s.mode == SoftwareFallback && s.lease == nil && !s.hardwareDisabled && s.pool != nil {
		if s.acquireLocked() {
			s.setModeLocked(HardwareActive)
			Logger().Info("hyperviz: hardware context reacquired", s.log()...)
		}
	}
}

// Deactivate hides the surface. It keeps its context, which the pool will
// recycle first since it is no longer used.
func (s *RenderSurface) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Pause stops rendering without hiding the surface, as when the document
// is not visible.
func (s *RenderSurface) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume undoes Pause.
func (s *RenderSurface) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Dispose cancels the frame schedule and returns the context to the pool.
// It is safe to call more than once.
func (s *RenderSurface) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Disposed {
		return
	}
	for _, t := range s.tokens {
		t.Cancel()
	}
	s.tokens = nil
	s.releaseLeaseLocked()
	s.setModeLocked(Disposed)
	s.active = false
	if s.opts.ownsContainer {
		if d, ok := s.container.(Detacher); ok {
			d.Detach()
		}
	}
	Logger().Debug("hyperviz: surface disposed", s.log()...)
}

// Mode returns the current mode after applying pending pool signals.
func (s *RenderSurface) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Disposed {
		s.syncLocked(s.now())
	}
	return s.mode
}

// Snapshot returns the parameters a frame at nowMs would use, before
// interaction adjustments.
func (s *RenderSurface) Snapshot(nowMs float64) params.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Sample(nowMs)
}

// Image returns the most recent software frame, or nil if the surface has
// never rendered in software.
func (s *RenderSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.software == nil {
		return nil
	}
	return s.software.Image()
}

// State is a read-only diagnostic view of a surface.
type State struct {
	ID               string
	Role             string
	Mode             Mode
	Backend          string
	Active           bool
	Paused           bool
	FPS              float64
	FrameCount       uint64
	LastFrameMs      float64
	Geometry         params.Geometry
	Theme            string
	Params           params.Set
	Width, Height    int
	Bounds           layout.Rect
	Interaction      interaction.Snapshot
	RestoreAttempts  int
	HardwareDisabled bool
}

// State returns a diagnostic snapshot.
func (s *RenderSurface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Disposed {
		s.syncLocked(s.now())
	}
	st := State{
		ID:               s.id.String(),
		Role:             s.opts.role,
		Mode:             s.mode,
		Active:           s.active,
		Paused:           s.paused,
		FPS:              s.fps,
		FrameCount:       s.frameCount,
		LastFrameMs:      s.lastFrameMs,
		Geometry:         s.geometry,
		Theme:            s.theme,
		Params:           s.engine.Sample(s.now()),
		Width:            s.width,
		Height:           s.height,
		Bounds:           s.bounds,
		Interaction:      s.lastInter,
		RestoreAttempts:  s.restoreAttempts,
		HardwareDisabled: s.hardwareDisabled,
	}
	if s.mode == HardwareActive && s.lease != nil {
		st.Backend = s.lease.Context().Backend()
	}
	return st
}
