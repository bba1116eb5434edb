package fluid

import (
	"fmt"

	"go.uber.org/zap"

	"cursorfluid/internal/gpu"
	"cursorfluid/internal/logger"
)

// Fields is one generation of simulation state. Every field of a generation
// was allocated by the same ReallocateAll call.
type Fields struct {
	// SurfaceWidth and SurfaceHeight are the drawing surface size the
	// generation was derived from.
	SurfaceWidth  int
	SurfaceHeight int

	Dye        *DoubleField
	Velocity   *DoubleField
	Pressure   *DoubleField
	Divergence *Field
	Curl       *Field
	// Display receives the composite pass at dye resolution.
	Display *Field
}

// AspectRatio is the surface width over its height.
func (f *Fields) AspectRatio() float32 {
	return float32(f.SurfaceWidth) / float32(f.SurfaceHeight)
}

// Manager owns every simulation field. Handles from a previous generation
// are released by ReallocateAll and must not be retained across it.
type Manager struct {
	dev      gpu.Device
	format   gpu.Format
	dyeShift int
	simShift int
	log      *zap.Logger

	fields *Fields
	owned  []gpu.Texture
}

// NewManager returns a manager allocating with the negotiated format. The
// shifts are the dye and simulation downsample factors.
func NewManager(dev gpu.Device, format gpu.Format, dyeShift, simShift int, log *zap.Logger) *Manager {
	return &Manager{
		dev:      dev,
		format:   format,
		dyeShift: dyeShift,
		simShift: simShift,
		log:      logger.OrNop(log),
	}
}

// Format returns the negotiated format fields are stored in.
func (m *Manager) Format() gpu.Format { return m.format }

// Fields returns the current generation, or nil before the first
// ReallocateAll.
func (m *Manager) Fields() *Fields { return m.fields }

// allocation collects the textures of a generation under construction so a
// failed build can be unwound.
type allocation struct {
	m        *Manager
	textures []gpu.Texture
}

func (a *allocation) release() {
	for _, t := range a.textures {
		a.m.dev.ReleaseTexture(t)
	}
	a.textures = nil
}

func (a *allocation) field(label string, w, h int, layout Layout, linear bool) (*Field, error) {
	tex, err := a.m.dev.CreateTexture(gpu.TextureDesc{
		Label:  label,
		Width:  w,
		Height: h,
		Format: a.m.format.ForChannels(layout.Channels()),
		Filter: a.m.format.Filter(linear),
	})
	if err != nil {
		return nil, fmt.Errorf("creating field %q: %w", label, err)
	}
	a.textures = append(a.textures, tex)
	return &Field{tex: tex, layout: layout}, nil
}

func (a *allocation) double(label string, w, h int, layout Layout, linear bool) (*DoubleField, error) {
	first, err := a.field(label+".0", w, h, layout, linear)
	if err != nil {
		return nil, err
	}
	second, err := a.field(label+".1", w, h, layout, linear)
	if err != nil {
		return nil, err
	}
	return &DoubleField{bufs: [2]*Field{first, second}}, nil
}

// CreateField allocates a zero cleared single buffered field. linear asks
// for hardware filtering, which degrades to nearest when the format lacks it.
// The caller owns the result and releases it with ReleaseField.
func (m *Manager) CreateField(label string, w, h int, layout Layout, linear bool) (*Field, error) {
	a := allocation{m: m}
	return a.field(label, w, h, layout, linear)
}

// CreateDoubleField allocates a zero cleared read/write pair.
func (m *Manager) CreateDoubleField(label string, w, h int, layout Layout, linear bool) (*DoubleField, error) {
	a := allocation{m: m}
	d, err := a.double(label, w, h, layout, linear)
	if err != nil {
		a.release()
		return nil, err
	}
	return d, nil
}

// ReleaseField frees a field created with CreateField.
func (m *Manager) ReleaseField(f *Field) {
	if f != nil {
		m.dev.ReleaseTexture(f.tex)
	}
}

// ReleaseDoubleField frees both buffers of a pair created with CreateDoubleField.
func (m *Manager) ReleaseDoubleField(d *DoubleField) {
	if d != nil {
		m.dev.ReleaseTexture(d.bufs[0].tex)
		m.dev.ReleaseTexture(d.bufs[1].tex)
	}
}

// ReallocateAll replaces the whole generation with zero cleared fields sized
// from the surface. The previous generation stays current if allocation
// fails; otherwise it is released.
func (m *Manager) ReallocateAll(surfaceW, surfaceH int) (*Fields, error) {
	if surfaceW <= 0 || surfaceH <= 0 {
		return nil, fmt.Errorf("fluid: invalid surface size %dx%d", surfaceW, surfaceH)
	}
	dyeW, dyeH := downsample(surfaceW, m.dyeShift), downsample(surfaceH, m.dyeShift)
	simW, simH := downsample(surfaceW, m.simShift), downsample(surfaceH, m.simShift)

	a := allocation{m: m}
	next, err := a.generation(surfaceW, surfaceH, dyeW, dyeH, simW, simH)
	if err != nil {
		a.release()
		return nil, err
	}

	prev := allocation{m: m, textures: m.owned}
	prev.release()
	m.fields, m.owned = next, a.textures
	m.log.Info("fluid fields allocated",
		zap.Int("surface_width", surfaceW),
		zap.Int("surface_height", surfaceH),
		zap.Int("dye_width", dyeW),
		zap.Int("dye_height", dyeH),
		zap.Int("sim_width", simW),
		zap.Int("sim_height", simH),
		zap.Stringer("type", m.format.Type),
	)
	return next, nil
}

func (a *allocation) generation(surfaceW, surfaceH, dyeW, dyeH, simW, simH int) (*Fields, error) {
	f := &Fields{SurfaceWidth: surfaceW, SurfaceHeight: surfaceH}
	var err error
	if f.Dye, err = a.double("dye", dyeW, dyeH, LayoutColor, true); err != nil {
		return nil, err
	}
	if f.Velocity, err = a.double("velocity", simW, simH, LayoutVector, true); err != nil {
		return nil, err
	}
	if f.Divergence, err = a.field("divergence", simW, simH, LayoutScalar, false); err != nil {
		return nil, err
	}
	if f.Curl, err = a.field("curl", simW, simH, LayoutScalar, false); err != nil {
		return nil, err
	}
	if f.Pressure, err = a.double("pressure", simW, simH, LayoutScalar, false); err != nil {
		return nil, err
	}
	if f.Display, err = a.field("display", dyeW, dyeH, LayoutColor, false); err != nil {
		return nil, err
	}
	return f, nil
}

// Release frees the current generation.
func (m *Manager) Release() {
	prev := allocation{m: m, textures: m.owned}
	prev.release()
	m.fields, m.owned = nil, nil
}

// downsample shifts a surface dimension right, never below one texel.
func downsample(size, shift int) int {
	if v := size >> shift; v > 0 {
		return v
	}
	return 1
}
