package hyperviz

import (
	"errors"
	"sync"
	"time"

	"github.com/gogpu/hyperviz/device"
	"github.com/gogpu/hyperviz/params"
	"github.com/gogpu/hyperviz/pool"
)

// fakeDevice is a device.Context that records calls.
type fakeDevice struct {
	mu       sync.Mutex
	w, h     int
	draws    int
	builds   []params.Geometry
	resizes  int
	buildErr error
	drawErr  error
	destroy  bool
}

func (d *fakeDevice) Backend() string { return "fake" }

func (d *fakeDevice) Resize(w, h int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.w, d.h = w, h
	d.resizes++
	return nil
}

func (d *fakeDevice) Build(g params.Geometry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.buildErr != nil {
		return d.buildErr
	}
	d.builds = append(d.builds, g)
	return nil
}

func (d *fakeDevice) Draw(device.Uniforms) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawErr != nil {
		return d.drawErr
	}
	d.draws++
	return nil
}

func (d *fakeDevice) Destroy() {
	d.mu.Lock()
	d.destroy = true
	d.mu.Unlock()
}

func (d *fakeDevice) drawCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

func (d *fakeDevice) setBuildErr(err error) {
	d.mu.Lock()
	d.buildErr = err
	d.mu.Unlock()
}

// fakeFactory creates fakeDevices. Setting fail makes creation fail;
// prepare, when set, configures each new device.
type fakeFactory struct {
	mu      sync.Mutex
	made    []*fakeDevice
	fail    bool
	prepare func(*fakeDevice)
}

func (f *fakeFactory) Create(w, h int) (device.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("no adapter")
	}
	d := &fakeDevice{w: w, h: h}
	if f.prepare != nil {
		f.prepare(d)
	}
	f.made = append(f.made, d)
	return d, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made)
}

func (f *fakeFactory) device(i int) *fakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.made[i]
}

func newTestPool(size int) (*ContextPool, *fakeFactory) {
	f := &fakeFactory{}
	return pool.New[device.Context](f, pool.WithMaxContexts(size)), f
}

// fakeContainer is an attached element of a fixed size.
type fakeContainer struct {
	mu       sync.Mutex
	attached bool
	w, h     int
	detached bool
}

func newContainer() *fakeContainer { return &fakeContainer{attached: true, w: 300, h: 200} }

func (c *fakeContainer) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

func (c *fakeContainer) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w, c.h
}

func (c *fakeContainer) Detach() {
	c.mu.Lock()
	c.attached = false
	c.detached = true
	c.mu.Unlock()
}

// recordingObserver captures surface events.
type recordingObserver struct {
	mu        sync.Mutex
	frames    map[string]int
	fallbacks []string
	restores  []bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{frames: map[string]int{}}
}

func (o *recordingObserver) FrameRendered(role, mode string, _ time.Duration) {
	o.mu.Lock()
	o.frames[mode]++
	o.mu.Unlock()
}

func (o *recordingObserver) FellBack(role, reason string) {
	o.mu.Lock()
	o.fallbacks = append(o.fallbacks, reason)
	o.mu.Unlock()
}

func (o *recordingObserver) RestoreAttempted(role string, ok bool) {
	o.mu.Lock()
	o.restores = append(o.restores, ok)
	o.mu.Unlock()
}
