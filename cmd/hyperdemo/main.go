// Command hyperdemo runs the surface orchestrator headlessly: it animates
// every face for a while, cycling faces and moving a simulated pointer,
// and writes the software-rendered roster to a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fogleman/gg"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/hyperviz"
	"github.com/gogpu/hyperviz/config"
	"github.com/gogpu/hyperviz/device"
	"github.com/gogpu/hyperviz/interaction"
	"github.com/gogpu/hyperviz/layout"
	"github.com/gogpu/hyperviz/metrics"
	"github.com/gogpu/hyperviz/pool"
	"github.com/gogpu/hyperviz/schedule"
)

func main() {
	var (
		width    = flag.Int("width", 1280, "viewport width")
		height   = flag.Int("height", 720, "viewport height")
		fps      = flag.Int("fps", 60, "frame rate")
		duration = flag.Duration("duration", 5*time.Second, "run time, 0 runs until interrupted")
		cycle    = flag.Duration("cycle", 1500*time.Millisecond, "face change interval, 0 disables cycling")
		cfgPath  = flag.String("config", "", "face table (.json or .js); reloaded on change")
		software = flag.Bool("software", true, "render every surface on the CPU")
		addr     = flag.String("metrics", "", "serve Prometheus metrics on this address")
		output   = flag.String("output", "hyperdemo.png", "output file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	hyperviz.SetLogger(logger)

	cfg := config.Default()
	if *cfgPath != "" {
		c, err := config.LoadFile(*cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = c
	}

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg)

	registry := device.DefaultRegistry(nil)
	device.RegisterNoop(registry)
	p := pool.New[device.Context](pool.FactoryFunc[device.Context](registry.Create),
		pool.WithLogger(logger), pool.WithObserver(collectors))
	defer p.Close()

	src := layout.NewStatic(*width, *height)
	placeCards(src, cfg, *width, *height)

	loop := schedule.NewLoop()
	tracker := interaction.NewTracker(interaction.DefaultConfig())
	o := hyperviz.NewOrchestrator(p, src,
		hyperviz.WithOrchestratorLoop(loop),
		hyperviz.WithInputTracker(tracker),
		hyperviz.WithOrchestratorMetrics(collectors),
		hyperviz.WithSurfaceOptions(hyperviz.WithForceSoftware(*software)),
	)
	if err := o.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer o.Dispose()

	// Pointer orbiting the viewport center.
	cx, cy := float64(*width)/2, float64(*height)/2
	loop.Every(func(now float64) {
		a := now / 1000
		tracker.PointerMove(cx+math.Cos(a)*cx/2, cy+math.Sin(a)*cy/2, now)
	})
	if *cycle > 0 {
		faces := cfg.FaceCount()
		loop.Interval(float64(cycle.Milliseconds()), func(float64) {
			if _, err := o.TransitionToFace((o.CurrentFace() + 1) % faces); err != nil {
				logger.Warn("face transition failed", "err", err)
			}
		})
	}
	loop.Interval(5000, func(float64) {
		if n := o.SweepOrphans(); n > 0 {
			logger.Info("reclaimed orphaned contexts", "count", n)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx, *fps) })

	if *cfgPath != "" {
		w, err := config.NewWatcher(*cfgPath, func(c *config.Config) {
			placeCards(src, c, *width, *height)
			if err := o.Initialize(c); err != nil {
				logger.Warn("configuration rejected", "err", err)
			}
		}, config.WithWatchLogger(logger))
		if err != nil {
			log.Fatalf("Failed to watch config: %v", err)
		}
		defer w.Stop()
		g.Go(func() error { return w.Run(ctx) })
	}

	if *addr != "" {
		srv := metrics.NewServer(*addr, reg)
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatalf("Demo failed: %v", err)
	}

	if err := compose(o, *width, *height).SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	st := o.SystemState()
	log.Printf("Demo saved to %s (face %d, %d cards, %d/%d contexts in use)\n",
		*output, st.CurrentFace, st.VisibleCards, st.PoolInUse, st.PoolSize)
}

// placeCards lays every face's cards out in one row along the bottom of
// the viewport. Faces share positions since only one is shown at a time.
func placeCards(src *layout.Static, cfg *config.Config, width, height int) {
	const gap = 20.0
	w := (float64(width) - gap*(hyperviz.MaxContent+1)) / hyperviz.MaxContent
	h := w * 2 / 3
	for i := 0; i < cfg.FaceCount(); i++ {
		f, _ := cfg.Face(i)
		for j, card := range f.Cards {
			x := gap + float64(j%hyperviz.MaxContent)*(w+gap)
			src.Set(card.ElementID, layout.Rect{X: x, Y: float64(height) - h - gap, Width: w, Height: h})
		}
	}
}

// compose draws the last software frame of every roster surface at its
// bounds, in roster order.
func compose(o *hyperviz.Orchestrator, width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	for _, role := range hyperviz.Roles {
		s, ok := o.Surface(role)
		if !ok {
			continue
		}
		st := s.State()
		if !st.Active {
			continue
		}
		if img := s.Image(); img != nil {
			dc.DrawImage(img, int(st.Bounds.X), int(st.Bounds.Y))
		}
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("face %d", o.CurrentFace()), 10, 20)
	return dc
}
