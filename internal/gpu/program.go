package gpu

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"
)

// ErrProgramBuild wraps every program compile or link failure.
var ErrProgramBuild = errors.New("gpu: program build failed")

// UniformKind is the value shape of a uniform.
type UniformKind int

const (
	UniformFloat UniformKind = iota + 1
	UniformVec2
	UniformVec3
)

// Components returns the number of float components in the uniform.
func (k UniformKind) Components() int {
	switch k {
	case UniformVec2:
		return 2
	case UniformVec3:
		return 3
	default:
		return 1
	}
}

// Uniform declares one program input.
type Uniform struct {
	Name string
	Kind UniformKind
}

// FragmentFunc computes the output texel of a full screen pass.
type FragmentFunc func(f *Fragment) f32.Vec4

// Locator resolves sampler and uniform names to locations while a program is
// being built.
type Locator interface {
	Sampler(name string) int
	Uniform(name string) int
}

// ProgramSpec is the source of a stage program. Fragment is used by the
// software device, Kernel by the OpenCL device. Samplers and uniforms
// are assigned locations in declaration order.
type ProgramSpec struct {
	Name     string
	Samplers []string
	Uniforms []Uniform

	// Fragment resolves its locations once and returns the per texel function.
	Fragment func(l Locator) FragmentFunc
	// Kernel is OpenCL C source defining a kernel called Name.
	Kernel string
}

// Program is a compiled stage program with its location tables. It is never
// mutated after construction.
type Program struct {
	name     string
	samplers map[string]int
	uniforms map[string]int
	kinds    []UniformKind
	fragment FragmentFunc
	handle   any
}

// Name returns the program's name.
func (p *Program) Name() string { return p.name }

// SamplerCount reports the number of sampler locations.
func (p *Program) SamplerCount() int { return len(p.samplers) }

// UniformLocation returns the location of a uniform.
func (p *Program) UniformLocation(name string) (int, bool) {
	loc, ok := p.uniforms[name]
	return loc, ok
}

// SamplerLocation returns the texture unit of a sampler.
func (p *Program) SamplerLocation(name string) (int, bool) {
	loc, ok := p.samplers[name]
	return loc, ok
}

// newProgram validates spec and builds the location tables. handle is the
// device specific compiled object.
func newProgram(spec ProgramSpec, handle any) (*Program, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: unnamed program", ErrProgramBuild)
	}
	p := &Program{
		name:     spec.Name,
		samplers: make(map[string]int, len(spec.Samplers)),
		uniforms: make(map[string]int, len(spec.Uniforms)),
		kinds:    make([]UniformKind, len(spec.Uniforms)),
		handle:   handle,
	}
	for i, name := range spec.Samplers {
		if _, dup := p.samplers[name]; dup {
			return nil, fmt.Errorf("%w: %s: sampler %q declared twice", ErrProgramBuild, spec.Name, name)
		}
		p.samplers[name] = i
	}
	for i, u := range spec.Uniforms {
		if _, dup := p.uniforms[u.Name]; dup {
			return nil, fmt.Errorf("%w: %s: uniform %q declared twice", ErrProgramBuild, spec.Name, u.Name)
		}
		if u.Kind < UniformFloat || u.Kind > UniformVec3 {
			return nil, fmt.Errorf("%w: %s: uniform %q has no kind", ErrProgramBuild, spec.Name, u.Name)
		}
		p.uniforms[u.Name] = i
		p.kinds[i] = u.Kind
	}
	return p, nil
}

// linkFragment resolves the fragment's locations against p. Any unknown name
// fails the build.
func linkFragment(p *Program, build func(Locator) FragmentFunc) error {
	if build == nil {
		return fmt.Errorf("%w: %s: no fragment source", ErrProgramBuild, p.name)
	}
	l := &linker{p: p}
	fn := build(l)
	if len(l.missing) > 0 {
		return fmt.Errorf("%w: %s: undeclared %v", ErrProgramBuild, p.name, l.missing)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s: fragment is nil", ErrProgramBuild, p.name)
	}
	p.fragment = fn
	return nil
}

type linker struct {
	p       *Program
	missing []string
}

func (l *linker) Sampler(name string) int {
	loc, ok := l.p.samplers[name]
	if !ok {
		l.missing = append(l.missing, name)
		return 0
	}
	return loc
}

func (l *linker) Uniform(name string) int {
	loc, ok := l.p.uniforms[name]
	if !ok {
		l.missing = append(l.missing, name)
		return 0
	}
	return loc
}

// Bindings holds the textures and uniform values of one pass.
type Bindings struct {
	prog     *Program
	textures []Texture
	values   []f32.Vec4
	set      []bool
	err      error
}

// Bind starts a new set of bindings for p.
func (p *Program) Bind() *Bindings {
	return &Bindings{
		prog:     p,
		textures: make([]Texture, len(p.samplers)),
		values:   make([]f32.Vec4, len(p.kinds)),
		set:      make([]bool, len(p.kinds)),
	}
}

// Texture binds t to the named sampler.
func (b *Bindings) Texture(name string, t Texture) *Bindings {
	loc, ok := b.prog.samplers[name]
	if !ok {
		b.fail("unknown sampler %q", name)
		return b
	}
	b.textures[loc] = t
	return b
}

// Float sets a scalar uniform.
func (b *Bindings) Float(name string, v float32) *Bindings {
	b.setValue(name, UniformFloat, f32.Vec4{v})
	return b
}

// Vec2 sets a two component uniform.
func (b *Bindings) Vec2(name string, x, y float32) *Bindings {
	b.setValue(name, UniformVec2, f32.Vec4{x, y})
	return b
}

// Vec3 sets a three component uniform.
func (b *Bindings) Vec3(name string, v f32.Vec3) *Bindings {
	b.setValue(name, UniformVec3, f32.Vec4{v[0], v[1], v[2]})
	return b
}

// Err reports the first binding mistake, or a sampler or uniform left unset.
func (b *Bindings) Err() error {
	if b.err != nil {
		return b.err
	}
	for name, loc := range b.prog.samplers {
		if b.textures[loc] == nil {
			return fmt.Errorf("gpu: %s: sampler %q not bound", b.prog.name, name)
		}
	}
	for name, loc := range b.prog.uniforms {
		if !b.set[loc] {
			return fmt.Errorf("gpu: %s: uniform %q not set", b.prog.name, name)
		}
	}
	return nil
}

// Program returns the program the bindings belong to.
func (b *Bindings) Program() *Program { return b.prog }

// TextureAt returns the texture bound to a sampler location.
func (b *Bindings) TextureAt(loc int) Texture { return b.textures[loc] }

// Value returns the uniform value at a location, padded to four components.
func (b *Bindings) Value(loc int) f32.Vec4 { return b.values[loc] }

// Kind returns the declared kind of the uniform at a location.
func (b *Bindings) Kind(loc int) UniformKind { return b.prog.kinds[loc] }

func (b *Bindings) setValue(name string, kind UniformKind, v f32.Vec4) {
	loc, ok := b.prog.uniforms[name]
	if !ok {
		b.fail("unknown uniform %q", name)
		return
	}
	if b.prog.kinds[loc] != kind {
		b.fail("uniform %q set with %d components, declared %d", name, kind.Components(), b.prog.kinds[loc].Components())
		return
	}
	b.values[loc] = v
	b.set[loc] = true
}

func (b *Bindings) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("gpu: %s: "+format, append([]any{b.prog.name}, args...)...)
	}
}
