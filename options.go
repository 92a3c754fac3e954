package hyperviz

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gogpu/hyperviz/interaction"
	"github.com/gogpu/hyperviz/params"
	"github.com/gogpu/hyperviz/schedule"
)

// Default surface size, used for content cards before they are placed.
const (
	DefaultWidth  = 300
	DefaultHeight = 200
)

// Option configures a RenderSurface during creation.
//
// Example:
//
//	s := hyperviz.NewRenderSurface(container, p,
//	    hyperviz.WithSize(800, 600),
//	    hyperviz.WithGeometry("torus"),
//	    hyperviz.WithLoop(loop),
//	)
type Option func(*options)

type options struct {
	width, height int
	geometry      string
	theme         string
	responsive    bool
	forceSoftware bool
	inactive      bool
	ownsContainer bool
	role          string
	catalog       *params.Catalog
	tracker       *interaction.Tracker
	loop          *schedule.Loop
	observer      SurfaceObserver
	restorePolicy func() backoff.BackOff
}

func defaultOptions() options {
	return options{
		width:         DefaultWidth,
		height:        DefaultHeight,
		geometry:      params.Hypercube.String(),
		theme:         params.Hypercube.String(),
		observer:      nopObserver{},
		restorePolicy: DefaultRestorePolicy,
	}
}

// WithSize sets the initial drawing size.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithGeometry sets the initial geometry by name. Unknown names keep the
// default and are logged when the surface is created.
func WithGeometry(id string) Option {
	return func(o *options) {
		o.geometry = id
	}
}

// WithTheme sets the initial theme by id.
func WithTheme(id string) Option {
	return func(o *options) {
		o.theme = id
	}
}

// WithResponsive makes the surface follow its container size on every
// frame. The container must implement Sizer.
func WithResponsive(responsive bool) Option {
	return func(o *options) {
		o.responsive = responsive
	}
}

// WithForceSoftware skips hardware context acquisition entirely.
func WithForceSoftware(force bool) Option {
	return func(o *options) {
		o.forceSoftware = force
	}
}

// WithInactive creates the surface hidden. It stays Uninitialized until
// Activate.
func WithInactive() Option {
	return func(o *options) {
		o.inactive = true
	}
}

// WithOwnedContainer makes Dispose detach the container if it implements
// Detacher.
func WithOwnedContainer() Option {
	return func(o *options) {
		o.ownsContainer = true
	}
}

// WithRole labels the surface for logs, metrics and state snapshots.
func WithRole(role string) Option {
	return func(o *options) {
		o.role = role
	}
}

// WithCatalog sets the theme and geometry tables. The default is
// params.DefaultCatalog.
func WithCatalog(c *params.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithTracker shares an input tracker with the surface. The owner of the
// tracker is responsible for polling it.
func WithTracker(t *interaction.Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// WithLoop registers the surface's frame task on loop. Without a loop the
// host calls RenderFrame itself.
func WithLoop(l *schedule.Loop) Option {
	return func(o *options) {
		o.loop = l
	}
}

// WithMetrics installs a surface observer, typically *metrics.Collectors.
func WithMetrics(obs SurfaceObserver) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithRestorePolicy sets the factory of the backoff that bounds hardware
// restoration attempts. Each surface builds its own policy once. A policy
// returning backoff.Stop disables hardware for the rest of the surface's
// lifetime.
func WithRestorePolicy(policy func() backoff.BackOff) Option {
	return func(o *options) {
		if policy != nil {
			o.restorePolicy = policy
		}
	}
}

// DefaultRestorePolicy allows three restorations, the first after 500ms
// and each later one waiting twice as long.
func DefaultRestorePolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, 3)
}

// SurfaceObserver receives surface events. *metrics.Collectors implements
// it.
type SurfaceObserver interface {
	FrameRendered(role, mode string, d time.Duration)
	FellBack(role, reason string)
	RestoreAttempted(role string, ok bool)
}

type nopObserver struct{}

func (nopObserver) FrameRendered(string, string, time.Duration) {}
func (nopObserver) FellBack(string, string)                     {}
func (nopObserver) RestoreAttempted(string, bool)               {}
