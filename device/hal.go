// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hyperviz/internal/mesh"
	"github.com/gogpu/hyperviz/internal/shader"
	"github.com/gogpu/hyperviz/params"
)

// drawTimeout bounds the fence wait after each submit. A device that does
// not signal within it is treated as lost.
const drawTimeout = 2 * time.Second

// Clear color, equal to params.Background.
const (
	clearR = 0.02
	clearG = 0.05
	clearB = 0.1
)

// HALContext draws the wireframe program into an offscreen texture on a
// wgpu hal device.
//
// Pipeline objects are created on the first Build and reused; the vertex
// buffer is replaced when the geometry changes. Resize only reallocates
// the target texture.
type HALContext struct {
	mu sync.Mutex

	backend string
	device  hal.Device
	queue   hal.Queue
	format  gputypes.TextureFormat
	release func()
	source  string

	width, height int
	target        hal.Texture
	view          hal.TextureView

	module         hal.ShaderModule
	uniformLayout  hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
	uniformBuf     hal.Buffer
	bindGroup      hal.BindGroup

	vertexBuf   hal.Buffer
	vertexCount uint32
	geometry    params.Geometry
	built       bool
	destroyed   bool
}

// HALOption configures a HALContext.
type HALOption func(*HALContext)

// WithTargetFormat sets the render target format. The default is
// BGRA8Unorm.
func WithTargetFormat(f gputypes.TextureFormat) HALOption {
	return func(c *HALContext) { c.format = f }
}

// WithRelease registers a function run after Destroy has released every
// resource, typically closing a device the context owns.
func WithRelease(fn func()) HALOption {
	return func(c *HALContext) { c.release = fn }
}

// WithShaderSource replaces the built-in WGSL program.
func WithShaderSource(src string) HALOption {
	return func(c *HALContext) { c.source = src }
}

// NewHALContext creates a context drawing on device and queue with a
// width×height target.
func NewHALContext(backend string, device hal.Device, queue hal.Queue, width, height int, opts ...HALOption) (*HALContext, error) {
	if device == nil || queue == nil {
		return nil, errors.New("device: nil hal device or queue")
	}
	c := &HALContext{
		backend: backend,
		device:  device,
		queue:   queue,
		format:  gputypes.TextureFormatBGRA8Unorm,
		source:  shader.Source(),
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.Resize(width, height); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

// Backend implements Context.
func (c *HALContext) Backend() string { return c.backend }

// Size returns the current target size.
func (c *HALContext) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Resize implements Context.
func (c *HALContext) Resize(width, height int) error {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if c.target != nil && width == c.width && height == c.height {
		return nil
	}
	c.destroyTarget()

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label: "hyperviz_target",
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // clamped above
			Height:             uint32(height), //nolint:gosec // clamped above
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        c.format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("device: create target texture: %w", err)
	}
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "hyperviz_target_view"})
	if err != nil {
		c.device.DestroyTexture(tex)
		return fmt.Errorf("device: create target view: %w", err)
	}
	c.target, c.view = tex, view
	c.width, c.height = width, height
	return nil
}

// Build implements Context.
func (c *HALContext) Build(g params.Geometry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if c.pipeline == nil {
		if err := c.createPipeline(); err != nil {
			c.destroyPipeline()
			return err
		}
	}
	if c.built && c.geometry == g {
		return nil
	}
	if err := c.uploadMesh(g); err != nil {
		return err
	}
	c.geometry = g
	c.built = true
	return nil
}

func (c *HALContext) createPipeline() error {
	if err := shader.Validate(c.source); err != nil {
		return fmt.Errorf("%w: %w", ErrCompile, err)
	}

	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "hyperviz_shader",
		Source: hal.ShaderSource{WGSL: c.source},
	})
	if err != nil {
		return fmt.Errorf("%w: create shader module: %w", ErrCompile, err)
	}
	c.module = module

	c.uniformLayout, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "hyperviz_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type: gputypes.BufferBindingTypeUniform,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create bind group layout: %w", ErrCompile, err)
	}

	c.pipelineLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "hyperviz_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("%w: create pipeline layout: %w", ErrCompile, err)
	}

	blend := gputypes.BlendStatePremultiplied()
	c.pipeline, err = c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "hyperviz_pipeline",
		Layout: c.pipelineLayout,
		Vertex: hal.VertexState{
			Module:     c.module,
			EntryPoint: shader.VertexEntry,
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: mesh.VertexStride,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
						{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 1},
						{Format: gputypes.VertexFormatFloat32, Offset: 32, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     c.module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    c.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create render pipeline: %w", ErrCompile, err)
	}

	c.uniformBuf, err = c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hyperviz_uniforms",
		Size:  UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("device: create uniform buffer: %w", err)
	}

	c.bindGroup, err = c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "hyperviz_uniform_bind",
		Layout: c.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: c.uniformBuf.NativeHandle(), Offset: 0, Size: UniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("device: create bind group: %w", err)
	}
	slogger().Debug("device: pipeline created", "backend", c.backend)
	return nil
}

func (c *HALContext) uploadMesh(g params.Geometry) error {
	verts := mesh.Vertices(mesh.Edges(g))
	data := mesh.Bytes(verts)

	if c.vertexBuf != nil {
		c.device.DestroyBuffer(c.vertexBuf)
		c.vertexBuf = nil
		c.vertexCount = 0
	}
	if len(data) == 0 {
		return nil
	}
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hyperviz_vertices",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("device: create vertex buffer: %w", err)
	}
	c.queue.WriteBuffer(buf, 0, data)
	c.vertexBuf = buf
	c.vertexCount = uint32(len(verts) / mesh.FloatsPerVertex) //nolint:gosec // bounded by mesh size
	return nil
}

// Draw implements Context.
func (c *HALContext) Draw(u Uniforms) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	if !c.built {
		return ErrNotBuilt
	}

	u.Width, u.Height = float32(c.width), float32(c.height)
	c.queue.WriteBuffer(c.uniformBuf, 0, u.Bytes())

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "hyperviz_frame"})
	if err != nil {
		return fmt.Errorf("%w: create command encoder: %w", ErrContextLost, err)
	}
	if err := encoder.BeginEncoding("hyperviz_frame"); err != nil {
		return fmt.Errorf("%w: begin encoding: %w", ErrContextLost, err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "hyperviz_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    c.view,
				LoadOp:  gputypes.LoadOpClear,
				StoreOp: gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: clearR, G: clearG, B: clearB, A: 1},
			},
		},
	})
	if c.vertexCount > 0 {
		rp.SetPipeline(c.pipeline)
		rp.SetBindGroup(0, c.bindGroup, nil)
		rp.SetVertexBuffer(0, c.vertexBuf, 0)
		rp.Draw(c.vertexCount, 1, 0, 0)
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("%w: end encoding: %w", ErrContextLost, err)
	}
	defer c.device.FreeCommandBuffer(cmd)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("%w: create fence: %w", ErrContextLost, err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("%w: submit: %w", ErrContextLost, err)
	}
	ok, err := c.device.Wait(fence, 1, drawTimeout)
	if err != nil || !ok {
		return fmt.Errorf("%w: wait for GPU: ok=%v err=%v", ErrContextLost, ok, err)
	}
	return nil
}

// Destroy implements Context. It is safe to call more than once.
func (c *HALContext) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.destroyPipeline()
	c.destroyTarget()
	release := c.release
	c.mu.Unlock()

	if release != nil {
		release()
	}
}

func (c *HALContext) destroyTarget() {
	if c.view != nil {
		c.device.DestroyTextureView(c.view)
		c.view = nil
	}
	if c.target != nil {
		c.device.DestroyTexture(c.target)
		c.target = nil
	}
}

func (c *HALContext) destroyPipeline() {
	if c.vertexBuf != nil {
		c.device.DestroyBuffer(c.vertexBuf)
		c.vertexBuf = nil
	}
	if c.bindGroup != nil {
		c.device.DestroyBindGroup(c.bindGroup)
		c.bindGroup = nil
	}
	if c.uniformBuf != nil {
		c.device.DestroyBuffer(c.uniformBuf)
		c.uniformBuf = nil
	}
	if c.pipeline != nil {
		c.device.DestroyRenderPipeline(c.pipeline)
		c.pipeline = nil
	}
	if c.pipelineLayout != nil {
		c.device.DestroyPipelineLayout(c.pipelineLayout)
		c.pipelineLayout = nil
	}
	if c.uniformLayout != nil {
		c.device.DestroyBindGroupLayout(c.uniformLayout)
		c.uniformLayout = nil
	}
	if c.module != nil {
		c.device.DestroyShaderModule(c.module)
		c.module = nil
	}
	c.vertexCount = 0
	c.built = false
}
