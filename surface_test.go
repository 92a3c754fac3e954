package hyperviz

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gogpu/hyperviz/device"
	"github.com/gogpu/hyperviz/interaction"
	"github.com/gogpu/hyperviz/params"
	"github.com/gogpu/hyperviz/schedule"
	"github.com/gogpu/hyperviz/transition"
)

// oneRestore allows a single immediate restoration.
func oneRestore() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
}

func TestHardwareSurfaceDraws(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p, WithGeometry("torus"))

	if got := s.Mode(); got != HardwareActive {
		t.Fatalf("Mode() = %v, want %v", got, HardwareActive)
	}
	for i := 0; i < 3; i++ {
		s.RenderFrame(float64(i) * 16)
	}
	d := f.device(0)
	if d.drawCount() != 3 {
		t.Errorf("draws = %d, want 3", d.drawCount())
	}
	if len(d.builds) != 1 || d.builds[0] != params.Torus {
		t.Errorf("builds = %v, want [torus]", d.builds)
	}
	st := s.State()
	if st.Backend != "fake" || st.FrameCount != 3 {
		t.Errorf("State() backend=%q frames=%d", st.Backend, st.FrameCount)
	}
	if st.FPS <= 0 {
		t.Errorf("FPS = %v, want > 0", st.FPS)
	}
	if st.ID == "" {
		t.Error("State().ID is empty")
	}
}

// Scenario C.
func TestForceSoftware(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p, WithForceSoftware(true))

	if got := s.Mode(); got != SoftwareFallback {
		t.Fatalf("Mode() = %v, want %v", got, SoftwareFallback)
	}
	if f.count() != 0 {
		t.Errorf("factory called %d times, want 0", f.count())
	}

	if err := s.SetGeometry("sphere"); err != nil {
		t.Fatalf("SetGeometry() error = %v", err)
	}
	if err := s.UpdateParameters(params.Set{params.Intensity: 1.5}, transition.Immediate); err != nil {
		t.Fatalf("UpdateParameters() error = %v", err)
	}
	s.RenderFrame(0)
	s.RenderFrame(16)

	st := s.State()
	if st.Geometry != params.Sphere {
		t.Errorf("Geometry = %v, want sphere", st.Geometry)
	}
	if st.FrameCount != 2 {
		t.Errorf("FrameCount = %d, want 2", st.FrameCount)
	}
	if got := s.Snapshot(16)[params.Intensity]; got != 1.5 {
		t.Errorf("intensity = %v, want 1.5", got)
	}
	if s.Image() == nil {
		t.Error("Image() = nil after software frames")
	}
	if !st.HardwareDisabled {
		t.Error("forced surface reports hardware enabled")
	}
}

func TestExhaustedFallsBack(t *testing.T) {
	p, f := newTestPool(4)
	f.fail = true
	obs := newRecordingObserver()
	s := NewRenderSurface(newContainer(), p, WithMetrics(obs))

	if got := s.Mode(); got != SoftwareFallback {
		t.Fatalf("Mode() = %v, want %v", got, SoftwareFallback)
	}
	s.RenderFrame(0)
	if len(obs.fallbacks) != 1 || obs.fallbacks[0] != reasonExhausted {
		t.Errorf("fallbacks = %v, want [%s]", obs.fallbacks, reasonExhausted)
	}
	if obs.frames["software"] != 1 {
		t.Errorf("software frames = %d, want 1", obs.frames["software"])
	}
}

func TestNilPoolRendersSoftware(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	if got := s.Mode(); got != SoftwareFallback {
		t.Errorf("Mode() = %v, want %v", got, SoftwareFallback)
	}
}

func TestCompileFailureIsFinal(t *testing.T) {
	p, f := newTestPool(4)
	f.prepare = func(d *fakeDevice) { d.buildErr = fmt.Errorf("%w: bad shader", device.ErrCompile) }
	s := NewRenderSurface(newContainer(), p)

	if got := s.Mode(); got != SoftwareFallback {
		t.Fatalf("Mode() = %v, want %v", got, SoftwareFallback)
	}
	if in := p.Stats().InUse; in != 0 {
		t.Errorf("InUse = %d, want 0 after compile failure", in)
	}
	s.Deactivate()
	s.Activate()
	if f.count() != 1 {
		t.Errorf("factory called %d times, want 1", f.count())
	}
	if !s.State().HardwareDisabled {
		t.Error("HardwareDisabled = false")
	}
	s.RenderFrame(0)
	if s.State().FrameCount != 1 {
		t.Error("surface stopped rendering after compile failure")
	}
}

// Scenario A and P2.
func TestEvictedSurfaceNeverDraws(t *testing.T) {
	p, f := newTestPool(2)
	s1 := NewRenderSurface(newContainer(), p)
	s2 := NewRenderSurface(newContainer(), p)
	s3 := NewRenderSurface(newContainer(), p)

	if f.count() != 2 {
		t.Fatalf("created %d contexts, want 2", f.count())
	}
	if got := s3.Mode(); got != HardwareActive {
		t.Fatalf("s3 Mode() = %v, want %v", got, HardwareActive)
	}
	if got := s2.Mode(); got != HardwareActive {
		t.Errorf("s2 Mode() = %v, want %v", got, HardwareActive)
	}

	shared := f.device(0) // created for s1, now owned by s3
	s1.RenderFrame(0)
	if n := shared.drawCount(); n != 0 {
		t.Fatalf("evicted surface drew into reassigned context (%d draws)", n)
	}
	if got := s1.Mode(); got != SoftwareFallback {
		t.Errorf("s1 Mode() = %v, want %v", got, SoftwareFallback)
	}
	if s1.State().FrameCount != 1 {
		t.Error("evicted surface did not render in software")
	}

	s3.RenderFrame(0)
	if n := shared.drawCount(); n != 1 {
		t.Errorf("draws on reassigned context = %d, want 1", n)
	}
	if st := p.Stats(); st.InUse > p.Max() {
		t.Errorf("InUse = %d exceeds max %d", st.InUse, p.Max())
	}
}

func TestActivateReacquiresAfterEviction(t *testing.T) {
	p, _ := newTestPool(1)
	s1 := NewRenderSurface(newContainer(), p)
	s2 := NewRenderSurface(newContainer(), p)
	if s1.Mode() != SoftwareFallback {
		t.Fatalf("s1 not evicted")
	}
	s2.Dispose()
	s1.Activate()
	if got := s1.Mode(); got != HardwareActive {
		t.Errorf("Mode() after Activate = %v, want %v", got, HardwareActive)
	}
}

// Scenario D plus the bounded restore policy.
func TestContextLossAndRestore(t *testing.T) {
	p, f := newTestPool(4)
	obs := newRecordingObserver()
	s := NewRenderSurface(newContainer(), p, WithRestorePolicy(oneRestore), WithMetrics(obs))
	id := p.Entries()[0].ID
	d := f.device(0)

	s.RenderFrame(0)
	p.Lose(id)
	if got := s.Mode(); got != SoftwareFallback {
		t.Fatalf("Mode() after loss = %v, want %v", got, SoftwareFallback)
	}
	s.RenderFrame(16)
	s.RenderFrame(32)
	if got := s.State().FrameCount; got != 3 {
		t.Errorf("FrameCount = %d, want 3", got)
	}
	if d.drawCount() != 1 {
		t.Errorf("draws = %d, want 1", d.drawCount())
	}

	p.Restore(id)
	s.RenderFrame(48)
	if got := s.Mode(); got != HardwareActive {
		t.Fatalf("Mode() after restore = %v, want %v", got, HardwareActive)
	}
	if d.drawCount() != 2 {
		t.Errorf("draws = %d, want 2", d.drawCount())
	}

	// The policy allows one restoration; the second loss is final.
	p.Lose(id)
	p.Restore(id)
	s.RenderFrame(64)
	st := s.State()
	if st.Mode != SoftwareFallback || !st.HardwareDisabled {
		t.Errorf("State() mode=%v disabled=%v, want software/true", st.Mode, st.HardwareDisabled)
	}
	if st.RestoreAttempts != 1 {
		t.Errorf("RestoreAttempts = %d, want 1", st.RestoreAttempts)
	}
	if len(obs.restores) != 1 || !obs.restores[0] {
		t.Errorf("restores = %v, want [true]", obs.restores)
	}
	if p.Stats().InUse != 0 {
		t.Error("disabled surface still holds its context")
	}
}

func TestRestoreWaitsForBackoff(t *testing.T) {
	p, _ := newTestPool(4)
	policy := func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 3)
	}
	s := NewRenderSurface(newContainer(), p, WithRestorePolicy(policy))
	id := p.Entries()[0].ID

	s.RenderFrame(0)
	p.Lose(id)
	p.Restore(id)
	s.RenderFrame(10)
	if s.Mode() != SoftwareFallback {
		t.Fatal("restored before the backoff delay")
	}
	s.RenderFrame(120)
	if got := s.Mode(); got != HardwareActive {
		t.Errorf("Mode() = %v, want %v", got, HardwareActive)
	}
}

func TestRestoreRebuildFailureStaysSoftware(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p, WithRestorePolicy(oneRestore))
	id := p.Entries()[0].ID

	p.Lose(id)
	f.device(0).setBuildErr(errors.New("device removed"))
	p.Restore(id)
	s.RenderFrame(0)
	st := s.State()
	if st.Mode != SoftwareFallback || !st.HardwareDisabled {
		t.Errorf("State() mode=%v disabled=%v, want software/true", st.Mode, st.HardwareDisabled)
	}
}

func TestDrawErrorFallsBackSameFrame(t *testing.T) {
	p, f := newTestPool(4)
	f.prepare = func(d *fakeDevice) { d.drawErr = fmt.Errorf("%w: fence timeout", device.ErrContextLost) }
	s := NewRenderSurface(newContainer(), p)

	s.RenderFrame(0)
	if got := s.Mode(); got != SoftwareFallback {
		t.Fatalf("Mode() = %v, want %v", got, SoftwareFallback)
	}
	if s.Image() == nil {
		t.Error("frame was not drawn in software")
	}
	if st := p.Stats(); st.Lost != 1 {
		t.Errorf("pool Lost = %d, want 1", st.Lost)
	}
}

func TestBuildErrorFreesContextSlot(t *testing.T) {
	p, f := newTestPool(1)
	first := true
	f.prepare = func(d *fakeDevice) {
		if first {
			d.buildErr = errors.New("out of device memory")
			first = false
		}
	}
	s1 := NewRenderSurface(newContainer(), p)
	if got := s1.Mode(); got != SoftwareFallback {
		t.Fatalf("s1 Mode() = %v, want %v", got, SoftwareFallback)
	}
	if st := p.Stats(); st.Total != 0 || st.Lost != 0 {
		t.Errorf("pool after failed build = %+v, want empty", st)
	}
	if !f.device(0).destroy {
		t.Error("context with a failed build was not destroyed")
	}

	s2 := NewRenderSurface(newContainer(), p)
	if got := s2.Mode(); got != HardwareActive {
		t.Fatalf("s2 Mode() = %v, want %v", got, HardwareActive)
	}
	if f.count() != 2 {
		t.Errorf("created %d contexts, want 2", f.count())
	}

	s1.RenderFrame(0)
	if s1.State().FrameCount != 1 {
		t.Error("s1 stopped rendering in software")
	}
	s1.Dispose()
	if got := s2.Mode(); got != HardwareActive {
		t.Errorf("s2 Mode() after s1 disposed = %v", got)
	}
}

func TestFailSoftConfiguration(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil, WithGeometry("torus"), WithTheme("wave"))
	before := s.State()

	if err := s.SetGeometry("cube"); !errors.Is(err, params.ErrUnknownGeometry) {
		t.Errorf("SetGeometry(cube) error = %v, want ErrUnknownGeometry", err)
	}
	if err := s.SetTheme("nope"); !errors.Is(err, params.ErrUnknownTheme) {
		t.Errorf("SetTheme(nope) error = %v, want ErrUnknownTheme", err)
	}
	if err := s.UpdateParameters(params.Set{"bogus": 1}, transition.Immediate); !errors.Is(err, params.ErrUnknownParameter) {
		t.Errorf("UpdateParameters(bogus) error = %v, want ErrUnknownParameter", err)
	}
	if err := s.UpdateParameters(params.Set{params.Dimension: 9}, transition.Immediate); !errors.Is(err, params.ErrOutOfRange) {
		t.Errorf("UpdateParameters(dimension=9) error = %v, want ErrOutOfRange", err)
	}
	if err := s.AdjustParameters(transition.OpAdd, params.Set{"bogus": 1}, transition.Immediate); !errors.Is(err, params.ErrUnknownParameter) {
		t.Errorf("AdjustParameters(bogus) error = %v, want ErrUnknownParameter", err)
	}

	after := s.State()
	if after.Geometry != before.Geometry || after.Theme != before.Theme {
		t.Errorf("state changed: %v/%s -> %v/%s", before.Geometry, before.Theme, after.Geometry, after.Theme)
	}
	for k, v := range before.Params {
		if after.Params[k] != v {
			t.Errorf("param %s changed: %v -> %v", k, v, after.Params[k])
		}
	}
}

func TestUnknownInitialIdsUseDefaults(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil, WithGeometry("cube"), WithTheme("nope"))
	st := s.State()
	if st.Geometry != params.Hypercube || st.Theme != "hypercube" {
		t.Errorf("State() = %v/%s, want hypercube/hypercube", st.Geometry, st.Theme)
	}
}

// Scenario B, P3 and P4 through the surface API.
func TestUpdateParametersTransition(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	s.RenderFrame(1000)

	if err := s.UpdateParameters(params.Set{params.Intensity: 0}, transition.Immediate); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateParameters(params.Set{params.Intensity: 1}, transition.Spec{DurationMs: 1000, Easing: transition.Linear}); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot(1000)[params.Intensity]; got != 0 {
		t.Errorf("intensity at start = %v, want 0", got)
	}
	if got := s.Snapshot(1500)[params.Intensity]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("intensity at 500ms = %v, want 0.5", got)
	}

	s.RenderFrame(1500)
	before := s.Snapshot(1500)[params.Intensity]
	if err := s.UpdateParameters(params.Set{params.Intensity: 0.2}, transition.Spec{DurationMs: 1000, Easing: transition.Linear}); err != nil {
		t.Fatal(err)
	}
	if after := s.Snapshot(1500)[params.Intensity]; math.Abs(after-before) > 1e-9 {
		t.Errorf("re-target jumped from %v to %v", before, after)
	}
	if got := s.Snapshot(2500)[params.Intensity]; got != 0.2 {
		t.Errorf("intensity after duration = %v, want 0.2", got)
	}
}

func TestAdjustParameters(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	if err := s.UpdateParameters(params.Set{params.GridDensity: 10}, transition.Immediate); err != nil {
		t.Fatal(err)
	}
	if err := s.AdjustParameters(transition.OpMultiply, params.Set{params.GridDensity: 2}, transition.Immediate); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot(0)[params.GridDensity]; got != 20 {
		t.Errorf("gridDensity = %v, want 20", got)
	}
	if err := s.AdjustParameters(transition.OpReset, params.Set{params.GridDensity: 0}, transition.Immediate); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot(0)[params.GridDensity]; got != params.Default(params.GridDensity) {
		t.Errorf("gridDensity after reset = %v, want default", got)
	}
}

func TestLayerChangeReplacesOverlappingUpdates(t *testing.T) {
	catalog, err := params.NewCatalog([]params.Theme{
		{ID: "a", Primary: params.RGB(1, 0, 0), Params: params.Set{params.Intensity: 0.4}},
		{ID: "b", Primary: params.RGB(0, 0, 1), Params: params.Set{params.Intensity: 0.6}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := NewRenderSurface(newContainer(), nil, WithCatalog(catalog), WithTheme("a"))
	err = s.UpdateParameters(params.Set{
		params.Intensity:   0.9,
		params.PrimaryR:    0.5,
		params.GridDensity: 30,
		params.MorphFactor: 0.1,
	}, transition.Immediate)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetTheme("b"); err != nil {
		t.Fatal(err)
	}
	got := s.Snapshot(1e6)
	if got[params.Intensity] != 0.6 || got[params.PrimaryR] != 0 || got[params.PrimaryB] != 1 {
		t.Errorf("after SetTheme: intensity=%v primary=%v/%v, want theme b values",
			got[params.Intensity], got[params.PrimaryR], got[params.PrimaryB])
	}
	if got[params.GridDensity] != 30 || got[params.MorphFactor] != 0.1 {
		t.Errorf("unrelated updates lost: gridDensity=%v morphFactor=%v", got[params.GridDensity], got[params.MorphFactor])
	}

	if err := s.SetGeometry("torus"); err != nil {
		t.Fatal(err)
	}
	got = s.Snapshot(2e6)
	if want := params.Torus.Defaults()[params.MorphFactor]; got[params.MorphFactor] != want {
		t.Errorf("morphFactor after SetGeometry = %v, want %v", got[params.MorphFactor], want)
	}
	if got[params.GridDensity] != 30 {
		t.Errorf("gridDensity after SetGeometry = %v, want 30", got[params.GridDensity])
	}
}

func TestSetGeometryTransitionsDefaults(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p)
	s.RenderFrame(0)
	if err := s.SetGeometry("fractal"); err != nil {
		t.Fatal(err)
	}
	d := f.device(0)
	if last := d.builds[len(d.builds)-1]; last != params.Fractal {
		t.Errorf("last build = %v, want fractal", last)
	}
	want := params.DefaultCatalog().GeometryDefaults(params.Fractal)[params.MorphFactor]
	if got := s.Snapshot(10000)[params.MorphFactor]; got != want {
		t.Errorf("morphFactor after transition = %v, want %v", got, want)
	}
}

func TestResize(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p, WithSize(300, 200))
	d := f.device(0)
	base := d.resizes

	if err := s.Resize(300, 200); err != nil {
		t.Fatal(err)
	}
	if d.resizes != base {
		t.Error("same-size Resize reached the device")
	}
	if err := s.Resize(640, 480); err != nil {
		t.Fatal(err)
	}
	if d.w != 640 || d.h != 480 {
		t.Errorf("device size = %dx%d, want 640x480", d.w, d.h)
	}
	if st := s.State(); st.Width != 640 || st.Height != 480 {
		t.Errorf("State() size = %dx%d", st.Width, st.Height)
	}
}

func TestResponsiveFollowsContainer(t *testing.T) {
	c := newContainer()
	s := NewRenderSurface(c, nil, WithResponsive(true))
	c.mu.Lock()
	c.w, c.h = 500, 250
	c.mu.Unlock()
	s.RenderFrame(0)
	if st := s.State(); st.Width != 500 || st.Height != 250 {
		t.Errorf("size = %dx%d, want 500x250", st.Width, st.Height)
	}
}

func TestDisposeCancelsSchedule(t *testing.T) {
	p, _ := newTestPool(4)
	loop := schedule.NewLoop()
	c := newContainer()
	s := NewRenderSurface(c, p, WithLoop(loop), WithOwnedContainer())

	loop.Tick(0)
	if s.State().FrameCount != 1 {
		t.Fatalf("FrameCount = %d, want 1", s.State().FrameCount)
	}
	s.Dispose()
	loop.Tick(16)
	if got := s.State().FrameCount; got != 1 {
		t.Errorf("FrameCount after Dispose = %d, want 1", got)
	}
	if got := s.Mode(); got != Disposed {
		t.Errorf("Mode() = %v, want %v", got, Disposed)
	}
	if p.Stats().InUse != 0 {
		t.Error("context not released")
	}
	if !c.detached {
		t.Error("owned container not detached")
	}
	if err := s.UpdateParameters(params.Set{params.Intensity: 1}, transition.Immediate); !errors.Is(err, ErrDisposed) {
		t.Errorf("UpdateParameters after Dispose error = %v, want ErrDisposed", err)
	}
	s.Dispose()
}

func TestInactiveSurfaceWaitsForActivate(t *testing.T) {
	p, f := newTestPool(4)
	s := NewRenderSurface(newContainer(), p, WithInactive())
	if s.Mode() != Uninitialized || f.count() != 0 {
		t.Fatalf("inactive surface initialized: mode=%v contexts=%d", s.Mode(), f.count())
	}
	s.RenderFrame(0)
	if s.State().FrameCount != 0 {
		t.Error("inactive surface rendered")
	}
	s.Activate()
	if s.Mode() != HardwareActive {
		t.Errorf("Mode() after Activate = %v", s.Mode())
	}
}

func TestPauseResume(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	s.Pause()
	s.RenderFrame(0)
	if s.State().FrameCount != 0 {
		t.Error("paused surface rendered")
	}
	s.Resume()
	s.RenderFrame(16)
	if s.State().FrameCount != 1 {
		t.Error("resumed surface did not render")
	}
}

func TestSetInteractionPulse(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	s.RenderFrame(100)
	s.SetInteraction(interaction.Transition, 1)
	s.RenderFrame(100)
	in := s.State().Interaction
	if in.Kind != interaction.Transition || in.Intensity != 1 {
		t.Errorf("Interaction = %v/%v, want transition/1", in.Kind, in.Intensity)
	}
}

func TestSharedTrackerDrivesSurface(t *testing.T) {
	tr := interaction.NewTracker(interaction.DefaultConfig())
	s := NewRenderSurface(newContainer(), nil, WithTracker(tr))
	tr.PointerDown(10, 10, 0)
	s.RenderFrame(1000)
	in := s.State().Interaction
	if in.Kind != interaction.Hold || in.HoldDurationMs != 1000 {
		t.Errorf("Interaction = %v hold=%v, want hold/1000", in.Kind, in.HoldDurationMs)
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		inter     interaction.Snapshot
		grid, dim float64
	}{
		{"idle", interaction.Snapshot{}, 10, 3.5},
		{"half", interaction.Snapshot{Intensity: 0.5}, 11, 3.5},
		{"hold 1s", interaction.Snapshot{Intensity: 1, HoldDurationMs: 1000}, 12, 3.75},
		{"hold capped", interaction.Snapshot{Intensity: 1, HoldDurationMs: 10000}, 12, 4.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := derive(params.Set{params.GridDensity: 10, params.Dimension: 3.5}, tt.inter)
			if math.Abs(p[params.GridDensity]-tt.grid) > 1e-9 {
				t.Errorf("gridDensity = %v, want %v", p[params.GridDensity], tt.grid)
			}
			if math.Abs(p[params.Dimension]-tt.dim) > 1e-9 {
				t.Errorf("dimension = %v, want %v", p[params.Dimension], tt.dim)
			}
			if p[params.InteractionIntensity] != tt.inter.Intensity {
				t.Errorf("interactionIntensity = %v, want %v", p[params.InteractionIntensity], tt.inter.Intensity)
			}
		})
	}
}

func TestModeTransitions(t *testing.T) {
	tests := []struct {
		from, to Mode
		ok       bool
	}{
		{Uninitialized, HardwareActive, true},
		{Uninitialized, SoftwareFallback, true},
		{HardwareActive, SoftwareFallback, true},
		{SoftwareFallback, HardwareActive, true},
		{HardwareActive, Disposed, true},
		{HardwareActive, HardwareActive, false},
		{Disposed, HardwareActive, false},
		{Disposed, Disposed, false},
		{SoftwareFallback, Uninitialized, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("canTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	s := NewRenderSurface(newContainer(), nil)
	s.Dispose()
	defer func() {
		r := recover()
		if _, ok := r.(*InvariantError); !ok {
			t.Errorf("recover() = %v, want *InvariantError", r)
		}
	}()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setModeLocked(HardwareActive)
}
