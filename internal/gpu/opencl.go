//go:build opencl

package gpu

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/jgillich/go-opencl/cl"
)

// clPrelude is prepended to every kernel. Textures are float4 buffers with
// row zero first; samplers clamp to the edge.
const clPrelude = `
#define FRAGMENT_BEGIN \
    int idx = get_global_id(0); \
    if (idx >= width * height) { \
        return; \
    } \
    int px = idx % width; \
    int py = idx / width; \
    float2 uv = (float2)(((float)px + 0.5f) / (float)width, ((float)py + 0.5f) / (float)height);

float4 sample_nearest(__global const float4* tex, const int w, const int h, float2 uv) {
    int x = clamp((int)floor(uv.x * (float)w), 0, w - 1);
    int y = clamp((int)floor(uv.y * (float)h), 0, h - 1);
    return tex[y * w + x];
}

float4 sample_bilerp(__global const float4* tex, const int w, const int h, float2 uv) {
    float2 st = uv * (float2)((float)w, (float)h) - 0.5f;
    float2 base = floor(st);
    float2 f = st - base;
    int x0 = clamp((int)base.x, 0, w - 1);
    int x1 = clamp((int)base.x + 1, 0, w - 1);
    int y0 = clamp((int)base.y, 0, h - 1);
    int y1 = clamp((int)base.y + 1, 0, h - 1);
    float4 a = tex[y0 * w + x0];
    float4 b = tex[y0 * w + x1];
    float4 c = tex[y1 * w + x0];
    float4 d = tex[y1 * w + x1];
    return mix(mix(a, b, f.x), mix(c, d, f.x), f.y);
}

float2 sample_wall(__global const float4* tex, const int w, const int h, float2 uv) {
    float2 m = (float2)(1.0f, 1.0f);
    if (uv.x < 0.0f) { uv.x = 0.0f; m.x = -1.0f; }
    if (uv.x > 1.0f) { uv.x = 1.0f; m.x = -1.0f; }
    if (uv.y < 0.0f) { uv.y = 0.0f; m.y = -1.0f; }
    if (uv.y > 1.0f) { uv.y = 1.0f; m.y = -1.0f; }
    return m * sample_nearest(tex, w, h, uv).xy;
}
`

type clDevice struct {
	context  *cl.Context
	queue    *cl.CommandQueue
	device   *cl.Device
	caps     Capabilities
	zeros    []float32
	programs []*clProgram
}

type clTexture struct {
	owner  *clDevice
	label  string
	width  int
	height int
	format gputypes.TextureFormat
	buf    *cl.MemObject
}

func (t *clTexture) Width() int                     { return t.width }
func (t *clTexture) Height() int                    { return t.height }
func (t *clTexture) Format() gputypes.TextureFormat { return t.format }
func (t *clTexture) Label() string                  { return t.label }

type clProgram struct {
	program *cl.Program
	kernel  *cl.Kernel
}

// NewOpenCLDevice selects the first GPU of any platform, falling back to a
// CPU device, and returns a device that runs every pass as a kernel.
func NewOpenCLDevice() (Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w: %w", msg, ErrNoUsableFormat, err)
	}
	device := firstDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = firstDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, fmt.Errorf("no suitable OpenCL devices found: %w", ErrNoUsableFormat)
	}
	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	return &clDevice{
		context: context,
		queue:   queue,
		device:  device,
		caps: Capabilities{
			Name:  device.Name(),
			Float: true,
			// Buffers are always float4; half storage and hardware
			// filtering are not exposed through this backend.
			HalfFloat:       false,
			PartialChannels: false,
		},
	}, nil
}

func firstDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (d *clDevice) Capabilities() Capabilities { return d.caps }

func (d *clDevice) live() error {
	if d.context == nil {
		return ErrDeviceClosed
	}
	return nil
}

func (d *clDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gpu: texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if _, half, ok := formatLayout(desc.Format); !ok || half {
		return nil, fmt.Errorf("gpu: texture %q: unsupported format %v", desc.Label, desc.Format)
	}
	n := desc.Width * desc.Height * 4
	buf, err := d.context.CreateEmptyBuffer(cl.MemReadWrite, n*4)
	if err != nil {
		return nil, fmt.Errorf("allocating %q: %w", desc.Label, err)
	}
	if cap(d.zeros) < n {
		d.zeros = make([]float32, n)
	}
	if _, err := d.queue.EnqueueWriteBufferFloat32(buf, true, 0, d.zeros[:n], nil); err != nil {
		buf.Release()
		return nil, fmt.Errorf("clearing %q: %w", desc.Label, err)
	}
	return &clTexture{
		owner:  d,
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		buf:    buf,
	}, nil
}

func (d *clDevice) texture(t Texture) (*clTexture, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	ct, ok := t.(*clTexture)
	if !ok || ct.owner != d {
		return nil, ErrForeignTexture
	}
	if ct.buf == nil {
		return nil, fmt.Errorf("gpu: texture %q used after release", ct.label)
	}
	return ct, nil
}

func (d *clDevice) WriteTexture(t Texture, rgba []float32) error {
	ct, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(rgba) != ct.width*ct.height*4 {
		return fmt.Errorf("gpu: texture %q: write of %d floats, want %d", ct.label, len(rgba), ct.width*ct.height*4)
	}
	if _, err := d.queue.EnqueueWriteBufferFloat32(ct.buf, true, 0, rgba, nil); err != nil {
		return fmt.Errorf("writing %q: %w", ct.label, err)
	}
	return nil
}

func (d *clDevice) ReadTexture(t Texture, rgba []float32) error {
	ct, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(rgba) != ct.width*ct.height*4 {
		return fmt.Errorf("gpu: texture %q: read into %d floats, want %d", ct.label, len(rgba), ct.width*ct.height*4)
	}
	if _, err := d.queue.EnqueueReadBufferFloat32(ct.buf, true, 0, rgba, nil); err != nil {
		return fmt.Errorf("reading %q: %w", ct.label, err)
	}
	channels, _, _ := formatLayout(ct.format)
	if channels < 4 {
		for i := 0; i < len(rgba); i += 4 {
			for c := channels; c < 4; c++ {
				rgba[i+c] = 0
			}
		}
	}
	return nil
}

func (d *clDevice) ReleaseTexture(t Texture) {
	if ct, ok := t.(*clTexture); ok && ct.owner == d && ct.buf != nil {
		ct.buf.Release()
		ct.buf = nil
	}
}

func (d *clDevice) CompileProgram(spec ProgramSpec) (*Program, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	if spec.Kernel == "" {
		return nil, fmt.Errorf("%w: %s: no kernel source", ErrProgramBuild, spec.Name)
	}
	program, err := d.context.CreateProgramWithSource([]string{clPrelude, spec.Kernel})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: creating program: %w", ErrProgramBuild, spec.Name, err)
	}
	if err := program.BuildProgram([]*cl.Device{d.device}, ""); err != nil {
		program.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("%w: %s: %s", ErrProgramBuild, spec.Name, string(buildErr))
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrProgramBuild, spec.Name, err)
	}
	kernel, err := program.CreateKernel(spec.Name)
	if err != nil {
		program.Release()
		return nil, fmt.Errorf("%w: %s: creating kernel: %w", ErrProgramBuild, spec.Name, err)
	}
	handle := &clProgram{program: program, kernel: kernel}
	p, err := newProgram(spec, handle)
	if err != nil {
		kernel.Release()
		program.Release()
		return nil, err
	}
	d.programs = append(d.programs, handle)
	return p, nil
}

// Draw binds arguments in kernel order: target size, output buffer, then
// (buffer, width, height) per sampler, then every uniform component.
func (d *clDevice) Draw(p *Program, b *Bindings, target Texture) error {
	if b.Program() != p {
		return fmt.Errorf("gpu: %s: bindings belong to %s", p.name, b.prog.name)
	}
	if err := b.Err(); err != nil {
		return err
	}
	handle, ok := p.handle.(*clProgram)
	if !ok {
		return fmt.Errorf("gpu: %s: not compiled by this device", p.name)
	}
	dst, err := d.texture(target)
	if err != nil {
		return err
	}
	if err := checkFeedback(b, target); err != nil {
		return fmt.Errorf("%s into %q: %w", p.name, dst.label, err)
	}
	args := []interface{}{int32(dst.width), int32(dst.height), dst.buf}
	for i := range b.textures {
		src, err := d.texture(b.textures[i])
		if err != nil {
			return fmt.Errorf("%s: sampler %d: %w", p.name, i, err)
		}
		args = append(args, src.buf, int32(src.width), int32(src.height))
	}
	for loc := range b.values {
		v := b.Value(loc)
		for c := 0; c < b.Kind(loc).Components(); c++ {
			args = append(args, v[c])
		}
	}
	if err := handle.kernel.SetArgs(args...); err != nil {
		return fmt.Errorf("%s: setting kernel arguments: %w", p.name, err)
	}
	global := []int{dst.width * dst.height}
	if _, err := d.queue.EnqueueNDRangeKernel(handle.kernel, nil, global, nil, nil); err != nil {
		return fmt.Errorf("%s: enqueueing kernel: %w", p.name, err)
	}
	return nil
}

func (d *clDevice) Close() {
	for _, p := range d.programs {
		p.kernel.Release()
		p.program.Release()
	}
	d.programs = nil
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.context != nil {
		d.context.Release()
		d.context = nil
	}
}
