// Package hyperviz renders many parameter-driven 4D visualizations that
// share a small, capped pool of hardware drawing contexts.
//
// # Overview
//
// A RenderSurface animates one visualization. It borrows a hardware
// context from a pool.Pool when one is available and draws the 4D
// wireframe of its geometry through the device package; otherwise it draws
// the same geometry with the CPU renderer. Parameter changes are
// interpolated by the transition package and modulated by the interaction
// signal of an interaction.Tracker.
//
// An Orchestrator owns a fixed roster of seven surfaces (background, four
// content slots, navigation and effects) and binds the content slots to
// the visible cards of the active face.
//
// # Quick Start
//
//	registry := device.DefaultRegistry(nil)
//	p := pool.New[device.Context](pool.FactoryFunc[device.Context](registry.Create))
//	defer p.Close()
//
//	loop := schedule.NewLoop()
//	o := hyperviz.NewOrchestrator(p, layoutSource, hyperviz.WithOrchestratorLoop(loop))
//	if err := o.Initialize(config.Default()); err != nil {
//	    log.Fatal(err)
//	}
//	go loop.Run(ctx, 60)
//
// # Modes
//
// Every surface is in exactly one Mode. Context creation failure, shader
// build failure, eviction and context loss move a surface to
// SoftwareFallback; it keeps animating. A restored context brings it back
// to HardwareActive if the program rebuilds, a bounded number of times set
// by WithRestorePolicy.
//
// # Logging
//
// hyperviz is silent by default. See SetLogger.
package hyperviz
