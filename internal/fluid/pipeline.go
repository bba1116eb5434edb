package fluid

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"

	"cursorfluid/internal/gpu"
)

// ErrNoFields is returned when a stage runs before the first allocation.
var ErrNoFields = errors.New("fluid: fields not allocated")

// Params are the solver constants of one session.
type Params struct {
	VelocityDissipation float32
	DensityDissipation  float32
	PressureDissipation float32
	PressureIterations  int
	Curl                float32
	SplatRadius         float32
	// DyeSplatScale attenuates splat colors added to the dye.
	DyeSplatScale float32
}

// Splat is one Gaussian impulse. Point is normalized with the origin at the
// bottom left; Force is added to velocity and Color to the dye.
type Splat struct {
	Point f32.Vec2
	Force f32.Vec2
	Color f32.Vec3
}

// Programs is the compiled program set of a pipeline.
type Programs struct {
	Advection        *gpu.Program
	Curl             *gpu.Program
	Vorticity        *gpu.Program
	Divergence       *gpu.Program
	Clear            *gpu.Program
	Pressure         *gpu.Program
	GradientSubtract *gpu.Program
	Splat            *gpu.Program
	Display          *gpu.Program

	// ManualAdvection is set when the advection program interpolates in the
	// shader because the format cannot be filtered.
	ManualAdvection bool
}

// CompilePrograms builds every stage program once. The advection variant is
// chosen by the format's filtering support.
func CompilePrograms(dev gpu.Device, format gpu.Format) (*Programs, error) {
	p := &Programs{ManualAdvection: !format.LinearFiltering}
	advection := advectionSpec()
	if p.ManualAdvection {
		advection = advectionManualSpec()
	}
	for _, b := range []struct {
		dst  **gpu.Program
		spec gpu.ProgramSpec
	}{
		{&p.Advection, advection},
		{&p.Curl, curlSpec()},
		{&p.Vorticity, vorticitySpec()},
		{&p.Divergence, divergenceSpec()},
		{&p.Clear, clearSpec()},
		{&p.Pressure, pressureSpec()},
		{&p.GradientSubtract, gradientSubtractSpec()},
		{&p.Splat, splatSpec()},
		{&p.Display, displaySpec()},
	} {
		prog, err := dev.CompileProgram(b.spec)
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", b.spec.Name, err)
		}
		*b.dst = prog
	}
	return p, nil
}

// Pipeline runs the ordered stage passes over a generation of fields.
type Pipeline struct {
	dev    gpu.Device
	progs  *Programs
	params Params
}

// NewPipeline returns a pipeline over compiled programs.
func NewPipeline(dev gpu.Device, progs *Programs, params Params) *Pipeline {
	return &Pipeline{dev: dev, progs: progs, params: params}
}

// Params returns the solver constants.
func (p *Pipeline) Params() Params { return p.params }

func (p *Pipeline) draw(prog *gpu.Program, b *gpu.Bindings, target *Field) error {
	if err := p.dev.Draw(prog, b, target.Texture()); err != nil {
		return fmt.Errorf("%s pass: %w", prog.Name(), err)
	}
	return nil
}

// Step advances the simulation by dt. Bursts land before advection, so the
// flow carries them on the same step; splats are applied after dye advection
// and before the curl pass.
func (p *Pipeline) Step(f *Fields, dt float32, bursts, splats []Splat) error {
	if f == nil {
		return ErrNoFields
	}
	if err := p.applySplats(f, bursts); err != nil {
		return err
	}
	if err := p.AdvectVelocity(f, dt); err != nil {
		return err
	}
	if err := p.AdvectDye(f, dt); err != nil {
		return err
	}
	if err := p.applySplats(f, splats); err != nil {
		return err
	}
	if err := p.Curl(f); err != nil {
		return err
	}
	if err := p.Vorticity(f, dt); err != nil {
		return err
	}
	return p.Project(f, p.params.PressureIterations)
}

func (p *Pipeline) applySplats(f *Fields, splats []Splat) error {
	for _, s := range splats {
		if err := p.ApplySplat(f, s); err != nil {
			return err
		}
	}
	return nil
}

// Project makes velocity divergence reduced: divergence, pressure decay,
// iterations Jacobi steps, then gradient subtraction.
func (p *Pipeline) Project(f *Fields, iterations int) error {
	if err := p.Divergence(f); err != nil {
		return err
	}
	if err := p.DissipatePressure(f); err != nil {
		return err
	}
	if err := p.SolvePressure(f, iterations); err != nil {
		return err
	}
	return p.SubtractGradient(f)
}

func (p *Pipeline) advect(f *Fields, target *DoubleField, dt, dissipation float32) error {
	ts := f.Velocity.TexelSize()
	sts := target.TexelSize()
	b := p.progs.Advection.Bind().
		Texture("uVelocity", f.Velocity.Read().Texture()).
		Texture("uSource", target.Read().Texture()).
		Vec2("texelSize", ts[0], ts[1]).
		Vec2("sourceTexelSize", sts[0], sts[1]).
		Float("dt", dt).
		Float("dissipation", dissipation)
	if err := p.draw(p.progs.Advection, b, target.Write()); err != nil {
		return err
	}
	target.Swap()
	return nil
}

// AdvectVelocity transports velocity along itself.
func (p *Pipeline) AdvectVelocity(f *Fields, dt float32) error {
	// Velocity is both the flow and the source; the pass reads Read only.
	return p.advect(f, f.Velocity, dt, p.params.VelocityDissipation)
}

// AdvectDye transports the dye along the freshly advected velocity.
func (p *Pipeline) AdvectDye(f *Fields, dt float32) error {
	return p.advect(f, f.Dye, dt, p.params.DensityDissipation)
}

// ApplySplat adds s to velocity and then to the dye, one pass and swap each.
func (p *Pipeline) ApplySplat(f *Fields, s Splat) error {
	aspect := f.AspectRatio()
	force := f32.Vec3{s.Force[0], s.Force[1], 1}
	if err := p.splat(f.Velocity, s.Point, force, aspect); err != nil {
		return err
	}
	k := p.params.DyeSplatScale
	color := f32.Vec3{s.Color[0] * k, s.Color[1] * k, s.Color[2] * k}
	return p.splat(f.Dye, s.Point, color, aspect)
}

func (p *Pipeline) splat(target *DoubleField, point f32.Vec2, color f32.Vec3, aspect float32) error {
	b := p.progs.Splat.Bind().
		Texture("uTarget", target.Read().Texture()).
		Float("aspectRatio", aspect).
		Vec3("color", color).
		Vec2("point", point[0], point[1]).
		Float("radius", p.params.SplatRadius)
	if err := p.draw(p.progs.Splat, b, target.Write()); err != nil {
		return err
	}
	target.Swap()
	return nil
}

// Curl recomputes the scalar vorticity of velocity.
func (p *Pipeline) Curl(f *Fields) error {
	ts := f.Velocity.TexelSize()
	b := p.progs.Curl.Bind().
		Texture("uVelocity", f.Velocity.Read().Texture()).
		Vec2("texelSize", ts[0], ts[1])
	return p.draw(p.progs.Curl, b, f.Curl)
}

// Vorticity adds the confinement force derived from the curl field.
func (p *Pipeline) Vorticity(f *Fields, dt float32) error {
	ts := f.Velocity.TexelSize()
	b := p.progs.Vorticity.Bind().
		Texture("uVelocity", f.Velocity.Read().Texture()).
		Texture("uCurl", f.Curl.Texture()).
		Vec2("texelSize", ts[0], ts[1]).
		Float("curl", p.params.Curl).
		Float("dt", dt)
	if err := p.draw(p.progs.Vorticity, b, f.Velocity.Write()); err != nil {
		return err
	}
	f.Velocity.Swap()
	return nil
}

// Divergence recomputes the divergence of velocity.
func (p *Pipeline) Divergence(f *Fields) error {
	ts := f.Velocity.TexelSize()
	b := p.progs.Divergence.Bind().
		Texture("uVelocity", f.Velocity.Read().Texture()).
		Vec2("texelSize", ts[0], ts[1])
	return p.draw(p.progs.Divergence, b, f.Divergence)
}

// DissipatePressure scales the previous pressure before the solve.
func (p *Pipeline) DissipatePressure(f *Fields) error {
	b := p.progs.Clear.Bind().
		Texture("uTexture", f.Pressure.Read().Texture()).
		Float("value", p.params.PressureDissipation)
	if err := p.draw(p.progs.Clear, b, f.Pressure.Write()); err != nil {
		return err
	}
	f.Pressure.Swap()
	return nil
}

// SolvePressure runs iterations Jacobi steps; each one reads the previous
// step's output.
func (p *Pipeline) SolvePressure(f *Fields, iterations int) error {
	ts := f.Pressure.TexelSize()
	for i := 0; i < iterations; i++ {
		b := p.progs.Pressure.Bind().
			Texture("uPressure", f.Pressure.Read().Texture()).
			Texture("uDivergence", f.Divergence.Texture()).
			Vec2("texelSize", ts[0], ts[1])
		if err := p.draw(p.progs.Pressure, b, f.Pressure.Write()); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		f.Pressure.Swap()
	}
	return nil
}

// SubtractGradient removes the pressure gradient from velocity.
func (p *Pipeline) SubtractGradient(f *Fields) error {
	ts := f.Velocity.TexelSize()
	b := p.progs.GradientSubtract.Bind().
		Texture("uPressure", f.Pressure.Read().Texture()).
		Texture("uVelocity", f.Velocity.Read().Texture()).
		Vec2("texelSize", ts[0], ts[1])
	if err := p.draw(p.progs.GradientSubtract, b, f.Velocity.Write()); err != nil {
		return err
	}
	f.Velocity.Swap()
	return nil
}

// Display renders the dye into the display target with alpha taken from the
// brightest channel.
func (p *Pipeline) Display(f *Fields) error {
	if f == nil {
		return ErrNoFields
	}
	b := p.progs.Display.Bind().Texture("uTexture", f.Dye.Read().Texture())
	return p.draw(p.progs.Display, b, f.Display)
}
