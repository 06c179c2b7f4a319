//go:build !nogpu

// Package gpu implements the GPU rendering backend on a wgpu HAL device.
//
// GPU tasks are scheduled on the reserved GPU worker, so they never run
// concurrently with each other. Each task uploads its parameters and the
// pixels it touches into device buffers, records one compute pass of its
// kernel and waits for the queue to drain. The device result is not read
// back: the staging image of the target texture is updated by the software
// implementation of the same operation. Tasks whose target is not a texture
// are handled by the software implementation alone.
//
// The device is taken from Options: either a hal.Device and hal.Queue
// directly, or a gpucontext.DeviceProvider that also exposes its HAL
// objects through HalDevice() any and HalQueue() any. Without a device, Init
// fails with ErrNoDevice and the rendering system skips the backend.
//
// Build with the nogpu tag to leave the backend out.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/optimizer"
	"github.com/gogpu/rendering/surface"
)

var (
	// ErrNoDevice is returned by Init when no HAL device is configured.
	ErrNoDevice = errors.New("gpu: no device")

	// ErrClosed is returned when a closed backend is used.
	ErrClosed = errors.New("gpu: backend closed")
)

// Options selects the device of the backend.
type Options struct {
	// Device and Queue are used when both are set.
	Device hal.Device
	Queue  hal.Queue

	// Provider supplies the device when Device is nil, and the preferred
	// surface format in any case.
	Provider gpucontext.DeviceProvider
}

var defaultOptions atomic.Pointer[Options]

// Configure sets the options used by the registered backend factory.
// It must be called before the rendering system is initialized.
func Configure(opts Options) {
	defaultOptions.Store(&opts)
}

func init() {
	backend.Register(backend.NameGPU, func() backend.Backend {
		var opts Options
		if o := defaultOptions.Load(); o != nil {
			opts = *o
		}
		return New(opts)
	})
}

// Backend is the GPU backend.
type Backend struct {
	opts Options

	mu          sync.Mutex
	device      hal.Device
	queue       hal.Queue
	format      gputypes.TextureFormat
	pipelines   map[kernel]*pipeline
	uniforms    hal.Buffer
	initialized bool

	dispatches atomic.Uint64
}

// New creates a GPU backend. Nothing is acquired until Init.
func New(opts Options) *Backend {
	return &Backend{opts: opts}
}

// Name returns backend.NameGPU.
func (b *Backend) Name() string { return backend.NameGPU }

// Init resolves the device, builds one compute pipeline per kernel and
// allocates the uniform buffer.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	device, queue, err := resolveDevice(b.opts)
	if err != nil {
		return err
	}
	b.device, b.queue = device, queue
	b.format = preferredFormat(b.opts.Provider)

	if err := b.createResources(); err != nil {
		b.destroyResources()
		return err
	}

	b.initialized = true
	backend.Logger().Info("gpu: backend initialized",
		"format", b.format,
		"kernels", len(b.pipelines))
	return nil
}

// Close releases the pipelines and the uniform buffer. The device belongs
// to the caller and is not destroyed.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	b.destroyResources()
	b.initialized = false
	backend.Logger().Debug("gpu: backend closed", "dispatches", b.dispatches.Load())
}

// Optimizers returns the common passes plus GPU specialization.
func (b *Backend) Optimizers() []optimizer.Optimizer {
	return append(optimizer.Common(), &Specialize{backend: b})
}

// Format returns the texture format of surfaces created by the backend.
func (b *Backend) Format() gputypes.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format
}

// NewTexture creates a texture surface in the backend's format.
func (b *Backend) NewTexture(width, height int, opts ...surface.Option) (*surface.Texture, error) {
	return surface.NewTexture(width, height, b.Format(), opts...)
}

// Dispatches returns the number of compute passes submitted so far.
func (b *Backend) Dispatches() uint64 {
	return b.dispatches.Load()
}

// pipeline holds the device objects of one kernel.
type pipeline struct {
	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	compute  hal.ComputePipeline
}

func (b *Backend) createResources() error {
	b.pipelines = make(map[kernel]*pipeline, len(kernels))
	for _, k := range kernels {
		p := &pipeline{}
		b.pipelines[k.id] = p
		if err := b.createPipeline(k.id, p); err != nil {
			return fmt.Errorf("gpu: %s: %w", k.name, err)
		}
	}

	uniforms, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rendering_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: failed to create uniform buffer: %w", err)
	}
	b.uniforms = uniforms
	return nil
}

func (b *Backend) createPipeline(k kernel, p *pipeline) error {
	code, err := compileShader(kernels[k].source)
	if err != nil {
		return err
	}
	label := "rendering_" + k.String()

	p.module, err = b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return fmt.Errorf("failed to create shader module: %w", err)
	}

	p.bgLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: bindGroupLayoutEntries(k),
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group layout: %w", err)
	}

	p.layout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{p.bgLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	p.compute, err = b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: p.layout,
		Compute: hal.ComputeState{
			Module:     p.module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create compute pipeline: %w", err)
	}
	return nil
}

// bindGroupLayoutEntries mirrors the bindings declared by the kernel's WGSL:
// params at 0, destination pixels at 1 and, for kernels with a source,
// source pixels at 2.
func bindGroupLayoutEntries(k kernel) []gputypes.BindGroupLayoutEntry {
	entry := func(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	entries := []gputypes.BindGroupLayoutEntry{
		entry(0, gputypes.BufferBindingTypeUniform),
		entry(1, gputypes.BufferBindingTypeStorage),
	}
	if kernels[k].sourced {
		entries = append(entries, entry(2, gputypes.BufferBindingTypeReadOnlyStorage))
	}
	return entries
}

// destroyResources must be called with mu held.
func (b *Backend) destroyResources() {
	if b.device == nil {
		return
	}
	if b.uniforms != nil {
		b.device.DestroyBuffer(b.uniforms)
		b.uniforms = nil
	}
	for id, p := range b.pipelines {
		if p.compute != nil {
			b.device.DestroyComputePipeline(p.compute)
		}
		if p.layout != nil {
			b.device.DestroyPipelineLayout(p.layout)
		}
		if p.bgLayout != nil {
			b.device.DestroyBindGroupLayout(p.bgLayout)
		}
		if p.module != nil {
			b.device.DestroyShaderModule(p.module)
		}
		delete(b.pipelines, id)
	}
}

// workgroupSize matches @workgroup_size in every kernel.
const workgroupSize = 8

// workgroups returns the dispatch size covering r.
func workgroups(r image.Rectangle) (x, y uint32) {
	if r.Empty() {
		return 0, 0
	}
	x = uint32((r.Dx() + workgroupSize - 1) / workgroupSize)
	y = uint32((r.Dy() + workgroupSize - 1) / workgroupSize)
	return x, y
}

// dispatchResources tracks the per-dispatch device objects.
type dispatchResources struct {
	device    hal.Device
	buffers   []hal.Buffer
	bindGroup hal.BindGroup
	encoder   hal.CommandEncoder
	cmdBuf    hal.CommandBuffer
}

func (r *dispatchResources) cleanup() {
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	if r.encoder != nil {
		r.encoder.Destroy()
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
	}
	for _, buf := range r.buffers {
		r.device.DestroyBuffer(buf)
	}
}

// dispatch runs kernel k over pr.Rect of dst. src is bound for kernels
// that read a source and may be nil. An empty rectangle dispatches nothing.
func (b *Backend) dispatch(k kernel, pr params, dst, src surface.Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrClosed
	}
	p, ok := b.pipelines[k]
	if !ok {
		return fmt.Errorf("gpu: kernel %s not loaded", k)
	}
	wx, wy := workgroups(pr.Rect)
	if wx == 0 || wy == 0 {
		return nil
	}

	if err := b.queue.WriteBuffer(b.uniforms, 0, pr.toBytes()); err != nil {
		return fmt.Errorf("gpu: %s: upload params: %w", k, err)
	}

	res := &dispatchResources{device: b.device}
	defer res.cleanup()

	bindings := []hal.Buffer{b.uniforms}
	dstBuf, err := b.upload(res, k.String()+"_dst", dst)
	if err != nil {
		return err
	}
	bindings = append(bindings, dstBuf)
	if kernels[k].sourced {
		srcBuf, err := b.upload(res, k.String()+"_src", src)
		if err != nil {
			return err
		}
		bindings = append(bindings, srcBuf)
	}

	entries := make([]gputypes.BindGroupEntry, len(bindings))
	for i, buf := range bindings {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle()},
		}
	}
	res.bindGroup, err = b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "rendering_" + k.String() + "_bg",
		Layout:  p.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("gpu: %s: create bind group: %w", k, err)
	}

	res.encoder, err = b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "rendering_" + k.String(),
	})
	if err != nil {
		return fmt.Errorf("gpu: %s: create command encoder: %w", k, err)
	}
	if err := res.encoder.BeginEncoding("rendering_" + k.String()); err != nil {
		return fmt.Errorf("gpu: %s: begin encoding: %w", k, err)
	}

	pass := res.encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "rendering_" + k.String(),
	})
	pass.SetPipeline(p.compute)
	pass.SetBindGroup(0, res.bindGroup, nil)
	pass.Dispatch(wx, wy, 1)
	pass.End()

	res.cmdBuf, err = res.encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: %s: end encoding: %w", k, err)
	}
	if _, err := b.queue.Submit([]hal.CommandBuffer{res.cmdBuf}); err != nil {
		return fmt.Errorf("gpu: %s: submit: %w", k, err)
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("gpu: %s: wait: %w", k, err)
	}

	b.dispatches.Add(1)
	backend.Logger().Debug("gpu: dispatched kernel",
		"kernel", k.String(),
		"workgroups_x", wx,
		"workgroups_y", wy)
	return nil
}

// upload copies the CPU pixels of s into a new storage buffer. Surfaces
// without CPU pixels get a single transparent texel.
func (b *Backend) upload(res *dispatchResources, label string, s surface.Surface) (hal.Buffer, error) {
	data := make([]byte, 4)
	if s != nil {
		if img, ok := surface.RasterOf(s); ok && len(img.Pix) > 0 {
			data = img.Pix
		}
	}
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rendering_" + label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: create buffer: %w", label, err)
	}
	res.buffers = append(res.buffers, buf)
	if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("gpu: %s: upload: %w", label, err)
	}
	return buf, nil
}

// resolveDevice picks the HAL device and queue from opts.
func resolveDevice(opts Options) (hal.Device, hal.Queue, error) {
	if opts.Device != nil && opts.Queue != nil {
		return opts.Device, opts.Queue, nil
	}
	if opts.Provider == nil {
		return nil, nil, ErrNoDevice
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := opts.Provider.(halProvider)
	if !ok {
		return nil, nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoDevice)
	}
	return device, queue, nil
}

// preferredFormat returns the provider's surface format when textures can
// use it, RGBA8Unorm otherwise.
func preferredFormat(p gpucontext.DeviceProvider) gputypes.TextureFormat {
	if p != nil {
		switch f := p.SurfaceFormat(); f {
		case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
			return f
		}
	}
	return gputypes.TextureFormatRGBA8Unorm
}
