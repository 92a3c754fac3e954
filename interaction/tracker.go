// Package interaction turns raw input events into a normalized,
// time-decaying interaction signal shared by render surfaces.
package interaction

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/harmonica"
)

// Kind classifies the most recent interaction.
type Kind int

// Interaction kinds.
const (
	Idle Kind = iota
	Move
	Hold
	Release
	Scroll
	Key
	Transition
)

var kindNames = [...]string{"idle", "move", "hold", "release", "scroll", "key", "transition"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event intensities.
const (
	MoveIntensity    = 0.3
	HoldIntensity    = 1.0
	ReleaseIntensity = 0.1
	KeyIntensity     = 0.5
)

// Config tunes decay and idle detection.
type Config struct {
	// DecayFactor scales the previous intensity when a new event arrives.
	DecayFactor float64
	// FrameDecay is applied once per 60Hz frame without activity.
	FrameDecay float64
	// IdleThresholdMs is the quiet time after which the tracker goes idle.
	IdleThresholdMs float64
	// PollIntervalMs is how often the owner should call Poll.
	PollIntervalMs float64
	// HoldSlop is the pointer travel that cancels a hold gesture.
	HoldSlop float64
	// SpringFrequency and SpringDamping shape pointer smoothing.
	SpringFrequency float64
	SpringDamping   float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DecayFactor:     0.9,
		FrameDecay:      0.98,
		IdleThresholdMs: 3000,
		PollIntervalMs:  1000,
		HoldSlop:        4,
		SpringFrequency: 10,
		SpringDamping:   0.7,
	}
}

const (
	frameMs      = 1000.0 / 60
	intensityEps = 1e-3
	// scrollBurstGapMs separates wheel bursts.
	scrollBurstGapMs = 250
)

// Snapshot is a read-only view of the tracker.
type Snapshot struct {
	Kind           Kind
	Intensity      float64
	LastActivityMs float64
	HoldDurationMs float64
	// Position is the smoothed pointer position.
	Position [2]float64
	// Velocity is the smoothed pointer velocity, the directional component
	// of the signal.
	Velocity [2]float64
	// ScrollVelocity is the last measured scroll speed.
	ScrollVelocity float64
}

// Tracker accumulates interaction events. It is safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	cfg Config

	kind       Kind
	intensity  float64
	lastActive float64
	lastDecay  float64

	holding   bool
	holdStart float64
	holdX     float64
	holdY     float64

	scrollAt  float64
	hasScroll bool
	scrollVel float64

	spring   harmonica.Spring
	target   [2]float64
	pos      [2]float64
	vel      [2]float64
	springAt float64
}

// NewTracker returns an idle tracker using cfg.
func NewTracker(cfg Config) *Tracker {
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = DefaultConfig().DecayFactor
	}
	if cfg.FrameDecay <= 0 || cfg.FrameDecay >= 1 {
		cfg.FrameDecay = DefaultConfig().FrameDecay
	}
	if cfg.IdleThresholdMs <= 0 {
		cfg.IdleThresholdMs = DefaultConfig().IdleThresholdMs
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = DefaultConfig().PollIntervalMs
	}
	if cfg.SpringFrequency <= 0 {
		cfg.SpringFrequency = DefaultConfig().SpringFrequency
	}
	if cfg.SpringDamping <= 0 {
		cfg.SpringDamping = DefaultConfig().SpringDamping
	}
	return &Tracker{
		cfg:    cfg,
		spring: harmonica.NewSpring(harmonica.FPS(60), cfg.SpringFrequency, cfg.SpringDamping),
	}
}

// Config returns the tracker tuning.
func (t *Tracker) Config() Config {
	return t.cfg
}

// record applies intensity = max(intensity*decay, v). Caller holds t.mu.
func (t *Tracker) record(k Kind, v, nowMs float64) {
	t.kind = k
	t.intensity = math.Max(t.intensity*t.cfg.DecayFactor, math.Min(1, math.Max(0, v)))
	t.lastActive = nowMs
	t.lastDecay = nowMs
}

// PointerMove records pointer motion to (x, y).
func (t *Tracker) PointerMove(x, y, nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.target = [2]float64{x, y}
	if t.holding {
		if math.Hypot(x-t.holdX, y-t.holdY) <= t.cfg.HoldSlop {
			t.lastActive = nowMs
			return
		}
		t.holding = false
	}
	t.record(Move, MoveIntensity, nowMs)
}

// PointerDown starts a hold gesture at (x, y).
func (t *Tracker) PointerDown(x, y, nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.target = [2]float64{x, y}
	t.holding = true
	t.holdStart = nowMs
	t.holdX, t.holdY = x, y
	t.record(Hold, HoldIntensity, nowMs)
}

// PointerUp ends any hold gesture.
func (t *Tracker) PointerUp(nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holding = false
	t.record(Release, ReleaseIntensity, nowMs)
}

// Scroll records a wheel or page scroll of deltaY units. Velocity is
// measured against the previous scroll; the first event of a burst is
// taken to span one frame.
func (t *Tracker) Scroll(deltaY, nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dt := nowMs - t.scrollAt
	if !t.hasScroll || dt <= 0 || dt > scrollBurstGapMs {
		dt = frameMs
	}
	t.scrollVel = deltaY / dt * 100
	t.record(Scroll, math.Min(math.Abs(t.scrollVel)/20, 1), nowMs)
	t.hasScroll = true
	t.scrollAt = nowMs
}

// TouchStart is PointerDown for touch input.
func (t *Tracker) TouchStart(x, y, nowMs float64) { t.PointerDown(x, y, nowMs) }

// TouchMove is PointerMove for touch input.
func (t *Tracker) TouchMove(x, y, nowMs float64) { t.PointerMove(x, y, nowMs) }

// TouchEnd is PointerUp for touch input.
func (t *Tracker) TouchEnd(nowMs float64) { t.PointerUp(nowMs) }

// Pulse injects a synthetic interaction, such as a face transition.
func (t *Tracker) Pulse(k Kind, intensity, nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(k, intensity, nowMs)
}

// Poll runs idle detection. Owners call it every PollIntervalMs. Once the
// tracker has been quiet past the idle threshold it reports Idle and the
// intensity decays toward zero on every poll.
func (t *Tracker) Poll(nowMs float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.holding || nowMs-t.lastActive <= t.cfg.IdleThresholdMs {
		return
	}
	t.kind = Idle
	t.intensity *= t.cfg.DecayFactor
	if t.intensity < intensityEps {
		t.intensity = 0
	}
}

// Frame advances time-based decay and pointer smoothing to nowMs and
// returns the resulting snapshot. Decay is proportional to the time since
// the last event or decay step, so several surfaces sharing one tracker
// do not compound it.
func (t *Tracker) Frame(nowMs float64) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if dt := nowMs - t.lastDecay; dt > 0 && !t.holding {
		t.intensity *= math.Pow(t.cfg.FrameDecay, dt/frameMs)
		if t.intensity < intensityEps {
			t.intensity = 0
		}
		t.lastDecay = nowMs
	}

	for t.springAt+frameMs <= nowMs {
		t.pos[0], t.vel[0] = t.spring.Update(t.pos[0], t.vel[0], t.target[0])
		t.pos[1], t.vel[1] = t.spring.Update(t.pos[1], t.vel[1], t.target[1])
		t.springAt += frameMs
		if nowMs-t.springAt > 1000 {
			// Long gap: settle instead of replaying every frame.
			t.pos, t.vel = t.target, [2]float64{}
			t.springAt = nowMs
		}
	}
	return t.snapshot(nowMs)
}

// Snapshot returns the current state without advancing decay.
func (t *Tracker) Snapshot(nowMs float64) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(nowMs)
}

func (t *Tracker) snapshot(nowMs float64) Snapshot {
	s := Snapshot{
		Kind:           t.kind,
		Intensity:      t.intensity,
		LastActivityMs: t.lastActive,
		Position:       t.pos,
		Velocity:       t.vel,
		ScrollVelocity: t.scrollVel,
	}
	if t.holding && nowMs > t.holdStart {
		s.HoldDurationMs = nowMs - t.holdStart
	}
	return s
}
