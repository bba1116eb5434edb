package gpu

import (
	"fmt"
	"math"
	"runtime"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// SoftwareOption configures a software device.
type SoftwareOption func(*softDevice)

// WithWorkers sets the number of goroutines that share each pass. Values
// below one keep the GOMAXPROCS default.
func WithWorkers(n int) SoftwareOption {
	return func(d *softDevice) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithCapabilities overrides the reported capabilities, for example to force
// the manual bilinear advection path.
func WithCapabilities(c Capabilities) SoftwareOption {
	return func(d *softDevice) { d.caps = c }
}

// softDevice executes passes on the CPU. Texels of one pass are spread over
// a worker pool; passes themselves run strictly one after another.
type softDevice struct {
	caps    Capabilities
	workers int
	pool    *workerPool
	scratch []Fragment
	closed  bool
}

// NewSoftwareDevice returns a device that runs every pass on the CPU.
func NewSoftwareDevice(opts ...SoftwareOption) Device {
	d := &softDevice{
		caps: Capabilities{
			Name:            "software",
			Float:           true,
			HalfFloat:       true,
			FloatLinear:     true,
			HalfFloatLinear: true,
			PartialChannels: true,
		},
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool = newWorkerPool(d.workers)
	d.scratch = make([]Fragment, d.pool.size())
	return d
}

func (d *softDevice) Capabilities() Capabilities { return d.caps }

type softTexture struct {
	owner    *softDevice
	label    string
	width    int
	height   int
	format   gputypes.TextureFormat
	linear   bool
	channels int
	full     []float32
	packed   []half
}

func (t *softTexture) Width() int                     { return t.width }
func (t *softTexture) Height() int                    { return t.height }
func (t *softTexture) Format() gputypes.TextureFormat { return t.format }
func (t *softTexture) Label() string                  { return t.label }

// load returns texel (x, y) with missing channels as zero.
func (t *softTexture) load(x, y int) f32.Vec4 {
	var v f32.Vec4
	base := (y*t.width + x) * t.channels
	if t.packed != nil {
		for c := 0; c < t.channels; c++ {
			v[c] = t.packed[base+c].float32()
		}
		return v
	}
	for c := 0; c < t.channels; c++ {
		v[c] = t.full[base+c]
	}
	return v
}

func (t *softTexture) store(x, y int, v f32.Vec4) {
	base := (y*t.width + x) * t.channels
	if t.packed != nil {
		for c := 0; c < t.channels; c++ {
			t.packed[base+c] = toHalf(v[c])
		}
		return
	}
	for c := 0; c < t.channels; c++ {
		t.full[base+c] = v[c]
	}
}

// sample reads t at normalized uv with clamp-to-edge addressing, filtered
// according to the texture's filter mode.
func (t *softTexture) sample(uv f32.Vec2) f32.Vec4 {
	if !t.linear {
		x := clampInt(int(math.Floor(float64(uv[0]*float32(t.width)))), 0, t.width-1)
		y := clampInt(int(math.Floor(float64(uv[1]*float32(t.height)))), 0, t.height-1)
		return t.load(x, y)
	}
	px := uv[0]*float32(t.width) - 0.5
	py := uv[1]*float32(t.height) - 0.5
	fx0 := float32(math.Floor(float64(px)))
	fy0 := float32(math.Floor(float64(py)))
	ax, ay := px-fx0, py-fy0
	x0 := clampInt(int(fx0), 0, t.width-1)
	x1 := clampInt(int(fx0)+1, 0, t.width-1)
	y0 := clampInt(int(fy0), 0, t.height-1)
	y1 := clampInt(int(fy0)+1, 0, t.height-1)
	a, b := t.load(x0, y0), t.load(x1, y0)
	c, e := t.load(x0, y1), t.load(x1, y1)
	var out f32.Vec4
	for i := range out {
		bottom := a[i] + (b[i]-a[i])*ax
		top := c[i] + (e[i]-c[i])*ax
		out[i] = bottom + (top-bottom)*ay
	}
	return out
}

func (d *softDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gpu: texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	channels, isHalf, ok := formatLayout(desc.Format)
	if !ok {
		return nil, fmt.Errorf("gpu: texture %q: unsupported format %v", desc.Label, desc.Format)
	}
	if isHalf && !d.caps.HalfFloat || !isHalf && !d.caps.Float {
		return nil, fmt.Errorf("gpu: texture %q: format %v not renderable: %w", desc.Label, desc.Format, ErrNoUsableFormat)
	}
	t := &softTexture{
		owner:    d,
		label:    desc.Label,
		width:    desc.Width,
		height:   desc.Height,
		format:   desc.Format,
		linear:   desc.Filter == gputypes.FilterModeLinear,
		channels: channels,
	}
	n := desc.Width * desc.Height * channels
	if isHalf {
		t.packed = make([]half, n)
	} else {
		t.full = make([]float32, n)
	}
	return t, nil
}

func (d *softDevice) texture(t Texture) (*softTexture, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	st, ok := t.(*softTexture)
	if !ok || st.owner != d {
		return nil, ErrForeignTexture
	}
	if st.full == nil && st.packed == nil {
		return nil, fmt.Errorf("gpu: texture %q used after release", st.label)
	}
	return st, nil
}

func (d *softDevice) WriteTexture(t Texture, rgba []float32) error {
	st, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(rgba) != st.width*st.height*4 {
		return fmt.Errorf("gpu: texture %q: write of %d floats, want %d", st.label, len(rgba), st.width*st.height*4)
	}
	for y := 0; y < st.height; y++ {
		for x := 0; x < st.width; x++ {
			i := (y*st.width + x) * 4
			st.store(x, y, f32.Vec4{rgba[i], rgba[i+1], rgba[i+2], rgba[i+3]})
		}
	}
	return nil
}

func (d *softDevice) ReadTexture(t Texture, rgba []float32) error {
	st, err := d.texture(t)
	if err != nil {
		return err
	}
	if len(rgba) != st.width*st.height*4 {
		return fmt.Errorf("gpu: texture %q: read into %d floats, want %d", st.label, len(rgba), st.width*st.height*4)
	}
	for y := 0; y < st.height; y++ {
		for x := 0; x < st.width; x++ {
			v := st.load(x, y)
			copy(rgba[(y*st.width+x)*4:], v[:])
		}
	}
	return nil
}

func (d *softDevice) ReleaseTexture(t Texture) {
	if st, ok := t.(*softTexture); ok && st.owner == d {
		st.full, st.packed = nil, nil
	}
}

func (d *softDevice) CompileProgram(spec ProgramSpec) (*Program, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	p, err := newProgram(spec, nil)
	if err != nil {
		return nil, err
	}
	if err := linkFragment(p, spec.Fragment); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *softDevice) Draw(p *Program, b *Bindings, target Texture) error {
	if b.Program() != p {
		return fmt.Errorf("gpu: %s: bindings belong to %s", p.name, b.prog.name)
	}
	if err := b.Err(); err != nil {
		return err
	}
	dst, err := d.texture(target)
	if err != nil {
		return err
	}
	if err := checkFeedback(b, target); err != nil {
		return fmt.Errorf("%s into %q: %w", p.name, dst.label, err)
	}
	units := make([]*softTexture, len(b.textures))
	for i, t := range b.textures {
		if units[i], err = d.texture(t); err != nil {
			return fmt.Errorf("%s: sampler %d: %w", p.name, i, err)
		}
	}

	texel := f32.Vec2{1 / float32(dst.width), 1 / float32(dst.height)}
	for i := range d.scratch {
		d.scratch[i] = Fragment{TexelSize: texel, units: units, values: b.values}
	}
	fragment := p.fragment
	d.pool.run(dst.height, func(worker, y0, y1 int) {
		f := &d.scratch[worker]
		for y := y0; y < y1; y++ {
			cy := float32(y) + 0.5
			for x := 0; x < dst.width; x++ {
				cx := float32(x) + 0.5
				f.Coord = f32.Vec2{cx, cy}
				f.UV = f32.Vec2{cx * texel[0], cy * texel[1]}
				dst.store(x, y, fragment(f))
			}
		}
	})
	return nil
}

func (d *softDevice) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.pool.close()
}

// Fragment is the per texel input of a software pass.
type Fragment struct {
	// UV is the normalized texel center of the target.
	UV f32.Vec2
	// Coord is the texel center in target pixels.
	Coord f32.Vec2
	// TexelSize is one target texel in normalized units.
	TexelSize f32.Vec2

	units  []*softTexture
	values []f32.Vec4
}

// Sample reads the texture bound at unit with clamp-to-edge addressing.
func (f *Fragment) Sample(unit int, uv f32.Vec2) f32.Vec4 {
	return f.units[unit].sample(uv)
}

// Float reads a scalar uniform.
func (f *Fragment) Float(loc int) float32 { return f.values[loc][0] }

// Vec2 reads a two component uniform.
func (f *Fragment) Vec2(loc int) f32.Vec2 {
	v := f.values[loc]
	return f32.Vec2{v[0], v[1]}
}

// Vec3 reads a three component uniform.
func (f *Fragment) Vec3(loc int) f32.Vec3 {
	v := f.values[loc]
	return f32.Vec3{v[0], v[1], v[2]}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
