// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan hal backend
)

// Backend names.
const (
	BackendHost   = "host"
	BackendVulkan = "vulkan"
	BackendNoop   = "noop"
)

// openedDevice is a standalone hal device owned by one context.
type openedDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string
}

func (d *openedDevice) close() {
	if d.device != nil {
		d.device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
}

// openAdapter picks a discrete or integrated GPU when present and opens
// it.
func openAdapter(instance hal.Instance) (*openedDevice, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, errors.New("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	return &openedDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		adapter:  selected.Info.Name,
	}, nil
}

// HALFactory returns a factory opening a fresh device on the hal backend
// id for every context. Each context owns its device and closes it on
// Destroy.
func HALFactory(name string, id gputypes.Backend) Factory {
	return func(width, height int) (Context, error) {
		backend, ok := hal.GetBackend(id)
		if !ok {
			return nil, &BackendUnavailableError{Name: name}
		}
		instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			return nil, fmt.Errorf("create instance: %w", err)
		}
		dev, err := openAdapter(instance)
		if err != nil {
			instance.Destroy()
			return nil, err
		}
		ctx, err := NewHALContext(name, dev.device, dev.queue, width, height, WithRelease(dev.close))
		if err != nil {
			return nil, err
		}
		slogger().Info("device: adapter opened", "backend", name, "adapter", dev.adapter)
		return ctx, nil
	}
}

// HALAvailable reports whether the hal backend id is linked in.
func HALAvailable(id gputypes.Backend) func() bool {
	return func() bool {
		_, ok := hal.GetBackend(id)
		return ok
	}
}

// RegisterHAL registers a hal backend. Backends become available when
// their hal package is imported for its side effects; Vulkan is linked by
// this package.
func RegisterHAL(r *Registry, name string, priority int, id gputypes.Backend) {
	r.Register(name, priority, HALFactory(name, id), HALAvailable(id))
}

// RegisterVulkan registers the Vulkan backend.
func RegisterVulkan(r *Registry) {
	RegisterHAL(r, BackendVulkan, PriorityNative, gputypes.BackendVulkan)
}

// HostFactory returns a factory sharing the host application's device.
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. Contexts never destroy the shared device.
func HostFactory(provider gpucontext.DeviceProvider) (Factory, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("device: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("device: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("device: provider HalQueue is not hal.Queue")
	}

	var opts []HALOption
	var zero gputypes.TextureFormat
	if f := provider.SurfaceFormat(); f != zero {
		opts = append(opts, WithTargetFormat(f))
	}
	return func(width, height int) (Context, error) {
		return NewHALContext(BackendHost, device, queue, width, height, opts...)
	}, nil
}

// RegisterHost registers the host application's device as the preferred
// backend.
func RegisterHost(r *Registry, provider gpucontext.DeviceProvider) error {
	f, err := HostFactory(provider)
	if err != nil {
		return err
	}
	r.Register(BackendHost, PriorityHost, f, nil)
	return nil
}

// NoopFactory opens contexts on the hal noop device. Draws succeed without
// producing pixels, which suits headless runs and tests.
func NoopFactory(width, height int) (Context, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	dev, err := openAdapter(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	return NewHALContext(BackendNoop, dev.device, dev.queue, width, height, WithRelease(dev.close))
}

// RegisterNoop registers the noop backend at the lowest priority.
func RegisterNoop(r *Registry) {
	r.Register(BackendNoop, PriorityNoop, NoopFactory, nil)
}

// DefaultRegistry returns a registry with the host device (when provider
// is non-nil and exposes hal types) followed by Vulkan.
func DefaultRegistry(provider gpucontext.DeviceProvider) *Registry {
	r := NewRegistry()
	if provider != nil {
		if err := RegisterHost(r, provider); err != nil {
			slogger().Warn("device: host provider ignored", "err", err)
		}
	}
	RegisterVulkan(r)
	return r
}
