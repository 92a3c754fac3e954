package hyperviz

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/hyperviz/config"
	"github.com/gogpu/hyperviz/interaction"
	"github.com/gogpu/hyperviz/layout"
	"github.com/gogpu/hyperviz/params"
	"github.com/gogpu/hyperviz/schedule"
	"github.com/gogpu/hyperviz/transition"
)

// Role is a fixed slot of the surface roster.
type Role string

// Roster roles.
const (
	RoleBackground Role = "background"
	RoleContentA   Role = "content_a"
	RoleContentB   Role = "content_b"
	RoleContentC   Role = "content_c"
	RoleContentD   Role = "content_d"
	RoleNavigation Role = "navigation"
	RoleEffects    Role = "effects"
)

// Roles lists the roster in creation order.
var Roles = []Role{
	RoleBackground, RoleContentA, RoleContentB, RoleContentC, RoleContentD,
	RoleNavigation, RoleEffects,
}

// ContentRoles are the slots cards are assigned to, in assignment order.
var ContentRoles = []Role{RoleContentA, RoleContentB, RoleContentC, RoleContentD}

// MaxContent is the number of cards shown at once.
const MaxContent = 4

var roleGeometry = map[Role]params.Geometry{
	RoleBackground: params.Hypercube,
	RoleContentA:   params.Tetrahedron,
	RoleContentB:   params.Sphere,
	RoleContentC:   params.Torus,
	RoleContentD:   params.Fractal,
	RoleNavigation: params.Crystal,
	RoleEffects:    params.Wave,
}

// Content reports whether r is a card slot.
func (r Role) Content() bool {
	switch r {
	case RoleContentA, RoleContentB, RoleContentC, RoleContentD:
		return true
	}
	return false
}

// DefaultGeometry returns the geometry a role starts with.
func (r Role) DefaultGeometry() params.Geometry { return roleGeometry[r] }

// Layers used with params.InstanceParameters.
const (
	backgroundLayer = "background"
	navigationLayer = "bezel"
)

// rosterTransition animates face changes.
var rosterTransition = transition.Spec{DurationMs: 600, Easing: transition.EaseInOut}

// ContentAssignment binds a content role to one card of the active face.
type ContentAssignment struct {
	Role      Role
	ElementID string
	CardID    string
	Geometry  string
	Theme     string
	Bounds    layout.Rect
}

// Orchestrator keeps one RenderSurface per role for its whole lifetime and
// binds the content roles to the visible cards of the active face.
type Orchestrator struct {
	mu sync.Mutex

	pool     *ContextPool
	source   layout.Source
	loop     *schedule.Loop
	tracker  *interaction.Tracker
	observer SurfaceObserver
	master   params.Master
	surfOpts []Option

	provider    config.Provider
	surfaces    map[Role]*RenderSurface
	slots       map[Role]*slot
	assignments []ContentAssignment
	currentFace int
	initialized bool
	disposed    atomic.Bool
	hidden      bool
	pollToken   *schedule.Token
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLoop drives every roster surface from loop.
func WithOrchestratorLoop(l *schedule.Loop) OrchestratorOption {
	return func(o *Orchestrator) { o.loop = l }
}

// WithInputTracker shares t with every roster surface. The orchestrator
// polls it when it also has a loop.
func WithInputTracker(t *interaction.Tracker) OrchestratorOption {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithOrchestratorMetrics installs obs on every roster surface.
func WithOrchestratorMetrics(obs SurfaceObserver) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithMaster sets the global visual state roles derive from.
func WithMaster(m params.Master) OrchestratorOption {
	return func(o *Orchestrator) { o.master = m }
}

// WithSurfaceOptions appends options to every roster surface, such as
// WithForceSoftware or WithRestorePolicy.
func WithSurfaceOptions(opts ...Option) OrchestratorOption {
	return func(o *Orchestrator) { o.surfOpts = append(o.surfOpts, opts...) }
}

// NewOrchestrator returns an orchestrator drawing from p and positioning
// cards with source. Call Initialize before use.
func NewOrchestrator(p *ContextPool, source layout.Source, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pool:   p,
		source: source,
		master: params.DefaultMaster,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// slot is the container of a roster surface. Fullscreen slots are attached
// while the orchestrator lives; content slots follow their assigned
// element.
type slot struct {
	o         *Orchestrator
	mu        sync.Mutex
	elementID string
}

func (s *slot) assign(elementID string) {
	s.mu.Lock()
	s.elementID = elementID
	s.mu.Unlock()
}

func (s *slot) element() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elementID
}

// Attached implements pool.Anchor.
func (s *slot) Attached() bool {
	if s.o.disposed.Load() {
		return false
	}
	id := s.element()
	if id == "" {
		return true
	}
	return layout.Anchor{Source: s.o.source, ElementID: id}.Attached()
}

// Initialize creates the roster and shows face 0. Calling it again
// replaces the provider and reloads the current face.
func (o *Orchestrator) Initialize(provider config.Provider) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed.Load() {
		return ErrDisposed
	}
	if provider == nil {
		return errors.New("hyperviz: nil face provider")
	}
	o.provider = provider
	if o.initialized {
		for _, r := range Roles {
			o.surfaces[r].setCatalog(provider.Catalog())
		}
		o.loadFaceLocked(o.currentFace)
		return nil
	}

	vw, vh := o.source.Viewport()
	o.surfaces = make(map[Role]*RenderSurface, len(Roles))
	o.slots = make(map[Role]*slot, len(Roles))
	for _, role := range Roles {
		sl := &slot{o: o}
		opts := []Option{
			WithRole(string(role)),
			WithGeometry(role.DefaultGeometry().String()),
			WithTheme(role.DefaultGeometry().String()),
			WithCatalog(provider.Catalog()),
		}
		if role.Content() {
			opts = append(opts, WithSize(DefaultWidth, DefaultHeight), WithInactive())
		} else {
			opts = append(opts, WithSize(vw, vh))
		}
		if o.loop != nil {
			opts = append(opts, WithLoop(o.loop))
		}
		if o.tracker != nil {
			opts = append(opts, WithTracker(o.tracker))
		}
		if o.observer != nil {
			opts = append(opts, WithMetrics(o.observer))
		}
		opts = append(opts, o.surfOpts...)
		o.slots[role] = sl
		o.surfaces[role] = NewRenderSurface(sl, o.pool, opts...)
	}
	o.checkRosterLocked("initialize")

	if o.loop != nil && o.tracker != nil {
		o.pollToken = o.loop.Interval(o.tracker.Config().PollIntervalMs, o.tracker.Poll)
	}
	o.initialized = true
	Logger().Info("hyperviz: orchestrator initialized", "faces", provider.FaceCount(), "viewport", [2]int{vw, vh})
	o.loadFaceLocked(0)
	return nil
}

// checkRosterLocked panics unless exactly one surface exists per role.
func (o *Orchestrator) checkRosterLocked(op string) {
	if len(o.surfaces) != len(Roles) {
		panic(&InvariantError{Op: op, Detail: "roster size mismatch"})
	}
	for _, r := range Roles {
		if o.surfaces[r] == nil {
			panic(&InvariantError{Op: op, Detail: "missing role " + string(r)})
		}
	}
}

// Surface returns the surface of role.
func (o *Orchestrator) Surface(role Role) (*RenderSurface, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.surfaces[role]
	return s, ok
}

// LoadFaceContent shows face: the background and navigation surfaces take
// the face theme, and the first four cards are bound to the content roles.
// Roles left without a card stay hidden. An unknown face shows face 0's
// theme with no cards.
func (o *Orchestrator) LoadFaceContent(face int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return ErrNotInitialized
	}
	if o.disposed.Load() {
		return ErrDisposed
	}
	o.loadFaceLocked(face)
	return nil
}

func (o *Orchestrator) loadFaceLocked(face int) {
	cfg, ok := o.provider.Face(face)
	if !ok {
		Logger().Warn("hyperviz: unknown face, using face 0 without cards", "face", face)
		cfg, _ = o.provider.Face(0)
		cfg.Cards = nil
	}
	o.currentFace = face

	bg := o.surfaces[RoleBackground]
	_ = bg.SetTheme(cfg.Theme)
	_ = bg.SetGeometry(cfg.BackgroundGeometry)
	o.applyLayer(bg, face, backgroundLayer)

	nav := o.surfaces[RoleNavigation]
	_ = nav.SetTheme(cfg.Theme)
	_ = nav.SetGeometry(params.Crystal.String())
	o.applyLayer(nav, face, navigationLayer)

	_ = o.surfaces[RoleEffects].SetTheme(cfg.Theme)

	for _, r := range ContentRoles {
		o.surfaces[r].Deactivate()
		o.slots[r].assign("")
	}
	o.assignments = o.assignments[:0]

	cards := cfg.Cards
	if len(cards) > MaxContent {
		Logger().Debug("hyperviz: face has more cards than content roles",
			"face", face, "cards", len(cards), "shown", MaxContent)
		cards = cards[:MaxContent]
	}
	for i, card := range cards {
		role := ContentRoles[i]
		rect, ok := o.source.Rect(card.ElementID)
		if !ok {
			Logger().Warn("hyperviz: card element not visible", "element", card.ElementID, "role", role)
			continue
		}
		s := o.surfaces[role]
		o.slots[role].assign(card.ElementID)
		_ = s.Place(rect)
		_ = s.SetTheme(card.Theme)
		_ = s.SetGeometry(card.Geometry)
		o.applyLayer(s, face, card.Role)
		s.Activate()
		o.assignments = append(o.assignments, ContentAssignment{
			Role:      role,
			ElementID: card.ElementID,
			CardID:    card.ID,
			Geometry:  card.Geometry,
			Theme:     card.Theme,
			Bounds:    rect,
		})
	}
	Logger().Debug("hyperviz: face loaded", "face", face, "assigned", len(o.assignments))
}

func (o *Orchestrator) applyLayer(s *RenderSurface, face int, layer string) {
	p, ok := params.InstanceParameters(o.master, face, layer)
	if !ok {
		if _, known := params.RoleModifiers[layer]; !known {
			Logger().Warn("hyperviz: unknown visual layer, using content", "layer", layer)
		}
	}
	_ = s.SetRoleParameters(p, rosterTransition)
}

// TransitionToFace switches to face, pulsing the effects surface. It
// reports false when face is already shown.
func (o *Orchestrator) TransitionToFace(face int) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return false, ErrNotInitialized
	}
	if o.disposed.Load() {
		return false, ErrDisposed
	}
	if face == o.currentFace {
		return false, nil
	}
	o.surfaces[RoleEffects].SetInteraction(interaction.Transition, 1.0)
	o.loadFaceLocked(face)
	return true, nil
}

// CurrentFace returns the face last loaded.
func (o *Orchestrator) CurrentFace() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentFace
}

// Assignments returns the active content assignments.
func (o *Orchestrator) Assignments() []ContentAssignment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ContentAssignment(nil), o.assignments...)
}

// Resize gives the fullscreen roles the new viewport and re-syncs every
// assigned card to its element. Cards whose element disappeared are
// hidden.
func (o *Orchestrator) Resize(viewportW, viewportH int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized {
		return ErrNotInitialized
	}
	full := layout.Rect{Width: float64(viewportW), Height: float64(viewportH)}
	for _, r := range []Role{RoleBackground, RoleNavigation, RoleEffects} {
		_ = o.surfaces[r].Place(full)
	}
	o.resyncLocked()
	return nil
}

// resyncLocked moves assigned cards to their current rects and drops the
// ones that are gone.
func (o *Orchestrator) resyncLocked() {
	kept := o.assignments[:0]
	for _, a := range o.assignments {
		s := o.surfaces[a.Role]
		rect, ok := o.source.Rect(a.ElementID)
		if !ok {
			s.Deactivate()
			o.slots[a.Role].assign("")
			continue
		}
		_ = s.Place(rect)
		a.Bounds = rect
		kept = append(kept, a)
	}
	o.assignments = kept
}

// SetVisible pauses every surface while the document is hidden and
// resumes them when it is shown again.
func (o *Orchestrator) SetVisible(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.initialized || o.hidden == !visible {
		return
	}
	o.hidden = !visible
	for _, r := range Roles {
		if visible {
			o.surfaces[r].Resume()
		} else {
			o.surfaces[r].Pause()
		}
	}
}

// SweepOrphans reclaims pooled contexts whose elements are gone, then
// hides the cards whose element disappeared. It returns the number of
// contexts removed from the pool.
func (o *Orchestrator) SweepOrphans() int {
	n := 0
	if o.pool != nil {
		n = o.pool.SweepOrphans()
	}
	o.mu.Lock()
	if o.initialized {
		o.resyncLocked()
	}
	o.mu.Unlock()
	return n
}

// CanvasState describes one roster surface.
type CanvasState struct {
	IsActive       bool
	CurrentContent string
	LastUpdate     float64
	HasVisualizer  bool
	Fallback2D     bool
	Mode           Mode
}

// SystemState is a diagnostic view of the orchestrator.
type SystemState struct {
	PoolSize     int
	PoolInUse    int
	CurrentFace  int
	VisibleCards int
	Canvases     map[Role]CanvasState
	Assignments  []ContentAssignment
}

// SystemState returns a diagnostic snapshot.
func (o *Orchestrator) SystemState() SystemState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := SystemState{
		CurrentFace:  o.currentFace,
		VisibleCards: len(o.assignments),
		Canvases:     make(map[Role]CanvasState, len(o.surfaces)),
		Assignments:  append([]ContentAssignment(nil), o.assignments...),
	}
	if o.pool != nil {
		ps := o.pool.Stats()
		st.PoolSize, st.PoolInUse = ps.Total, ps.InUse
	}
	for role, s := range o.surfaces {
		ss := s.State()
		st.Canvases[role] = CanvasState{
			IsActive:       ss.Active,
			CurrentContent: o.slots[role].element(),
			LastUpdate:     ss.LastFrameMs,
			HasVisualizer:  ss.Mode == HardwareActive || ss.Mode == SoftwareFallback,
			Fallback2D:     ss.Mode == SoftwareFallback,
			Mode:           ss.Mode,
		}
	}
	return st
}

// Dispose disposes every roster surface. The orchestrator cannot be used
// afterwards.
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed.Swap(true) {
		return
	}
	o.pollToken.Cancel()
	for _, s := range o.surfaces {
		s.Dispose()
	}
	o.assignments = nil
}
