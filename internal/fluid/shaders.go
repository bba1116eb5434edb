package fluid

import (
	"math"

	"golang.org/x/image/math/f32"

	"cursorfluid/internal/gpu"
)

// Stage program names. On the OpenCL device each is also the kernel name.
const (
	progAdvection        = "advection"
	progAdvectionManual  = "advection_manual"
	progCurl             = "curl"
	progVorticity        = "vorticity"
	progDivergence       = "divergence"
	progClear            = "clear"
	progPressure         = "pressure"
	progGradientSubtract = "gradient_subtract"
	progSplat            = "splat"
	progDisplay          = "display"
)

var (
	texelSizeUniform = gpu.Uniform{Name: "texelSize", Kind: gpu.UniformVec2}
	dtUniform        = gpu.Uniform{Name: "dt", Kind: gpu.UniformFloat}
)

// advectionUniforms is shared by both advection variants so the pipeline
// binds them identically. sourceTexelSize is only read by the manual one.
var advectionUniforms = []gpu.Uniform{
	texelSizeUniform,
	{Name: "sourceTexelSize", Kind: gpu.UniformVec2},
	dtUniform,
	{Name: "dissipation", Kind: gpu.UniformFloat},
}

func offset(uv f32.Vec2, dx, dy float32) f32.Vec2 {
	return f32.Vec2{uv[0] + dx, uv[1] + dy}
}

func scale(v f32.Vec4, s float32) f32.Vec4 {
	return f32.Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

func mix(a, b f32.Vec4, t float32) f32.Vec4 {
	var out f32.Vec4
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t
	}
	return out
}

func floor32(v float32) float32 { return float32(math.Floor(float64(v))) }

func abs32(v float32) float32 { return float32(math.Abs(float64(v))) }

// sampleWall reads velocity with the free-slip wall: outside the domain the
// coordinate clamps to the edge and the crossing component is negated.
func sampleWall(f *gpu.Fragment, unit int, uv f32.Vec2) f32.Vec2 {
	mx, my := float32(1), float32(1)
	if uv[0] < 0 {
		uv[0], mx = 0, -1
	}
	if uv[0] > 1 {
		uv[0], mx = 1, -1
	}
	if uv[1] < 0 {
		uv[1], my = 0, -1
	}
	if uv[1] > 1 {
		uv[1], my = 1, -1
	}
	v := f.Sample(unit, uv)
	return f32.Vec2{mx * v[0], my * v[1]}
}

// bilerp interpolates the four texels around uv out of a nearest sampled
// texture of the given texel size.
func bilerp(f *gpu.Fragment, unit int, uv, texel f32.Vec2) f32.Vec4 {
	sx := uv[0]/texel[0] - 0.5
	sy := uv[1]/texel[1] - 0.5
	ix, iy := floor32(sx), floor32(sy)
	fx, fy := sx-ix, sy-iy
	at := func(ox, oy float32) f32.Vec2 {
		return f32.Vec2{(ix + 0.5 + ox) * texel[0], (iy + 0.5 + oy) * texel[1]}
	}
	a := f.Sample(unit, at(0, 0))
	b := f.Sample(unit, at(1, 0))
	c := f.Sample(unit, at(0, 1))
	d := f.Sample(unit, at(1, 1))
	return mix(mix(a, b, fx), mix(c, d, fx), fy)
}

func advectionSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progAdvection,
		Samplers: []string{"uVelocity", "uSource"},
		Uniforms: advectionUniforms,
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			velocity, source := l.Sampler("uVelocity"), l.Sampler("uSource")
			texel, dt, dissipation := l.Uniform("texelSize"), l.Uniform("dt"), l.Uniform("dissipation")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts, step := f.Vec2(texel), f.Float(dt)
				v := f.Sample(velocity, f.UV)
				coord := f32.Vec2{f.UV[0] - step*v[0]*ts[0], f.UV[1] - step*v[1]*ts[1]}
				return scale(f.Sample(source, coord), f.Float(dissipation))
			}
		},
		Kernel: advectionKernel,
	}
}

func advectionManualSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progAdvectionManual,
		Samplers: []string{"uVelocity", "uSource"},
		Uniforms: advectionUniforms,
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			velocity, source := l.Sampler("uVelocity"), l.Sampler("uSource")
			texel, sourceTexel := l.Uniform("texelSize"), l.Uniform("sourceTexelSize")
			dt, dissipation := l.Uniform("dt"), l.Uniform("dissipation")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts, step := f.Vec2(texel), f.Float(dt)
				v := bilerp(f, velocity, f.UV, ts)
				coord := f32.Vec2{f.UV[0] - step*v[0]*ts[0], f.UV[1] - step*v[1]*ts[1]}
				return scale(bilerp(f, source, coord, f.Vec2(sourceTexel)), f.Float(dissipation))
			}
		},
		Kernel: advectionManualKernel,
	}
}

func curlSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progCurl,
		Samplers: []string{"uVelocity"},
		Uniforms: []gpu.Uniform{texelSizeUniform},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			velocity, texel := l.Sampler("uVelocity"), l.Uniform("texelSize")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts := f.Vec2(texel)
				left := sampleWall(f, velocity, offset(f.UV, -ts[0], 0))[1]
				right := sampleWall(f, velocity, offset(f.UV, ts[0], 0))[1]
				top := sampleWall(f, velocity, offset(f.UV, 0, ts[1]))[0]
				bottom := sampleWall(f, velocity, offset(f.UV, 0, -ts[1]))[0]
				return f32.Vec4{0.5 * (right - left - top + bottom), 0, 0, 1}
			}
		},
		Kernel: curlKernel,
	}
}

func vorticitySpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progVorticity,
		Samplers: []string{"uVelocity", "uCurl"},
		Uniforms: []gpu.Uniform{texelSizeUniform, {Name: "curl", Kind: gpu.UniformFloat}, dtUniform},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			velocity, curlTex := l.Sampler("uVelocity"), l.Sampler("uCurl")
			texel, strength, dt := l.Uniform("texelSize"), l.Uniform("curl"), l.Uniform("dt")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts := f.Vec2(texel)
				left := f.Sample(curlTex, offset(f.UV, -ts[0], 0))[0]
				right := f.Sample(curlTex, offset(f.UV, ts[0], 0))[0]
				top := f.Sample(curlTex, offset(f.UV, 0, ts[1]))[0]
				bottom := f.Sample(curlTex, offset(f.UV, 0, -ts[1]))[0]
				center := f.Sample(curlTex, f.UV)[0]

				fx := 0.5 * (abs32(top) - abs32(bottom))
				fy := 0.5 * (abs32(right) - abs32(left))
				n := float32(math.Sqrt(float64(fx*fx+fy*fy))) + 0.0001
				k := f.Float(strength) * center / n
				fx, fy = fx*k, -fy*k

				v := f.Sample(velocity, f.UV)
				step := f.Float(dt)
				return f32.Vec4{v[0] + fx*step, v[1] + fy*step, 0, 1}
			}
		},
		Kernel: vorticityKernel,
	}
}

func divergenceSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progDivergence,
		Samplers: []string{"uVelocity"},
		Uniforms: []gpu.Uniform{texelSizeUniform},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			velocity, texel := l.Sampler("uVelocity"), l.Uniform("texelSize")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts := f.Vec2(texel)
				left := sampleWall(f, velocity, offset(f.UV, -ts[0], 0))[0]
				right := sampleWall(f, velocity, offset(f.UV, ts[0], 0))[0]
				top := sampleWall(f, velocity, offset(f.UV, 0, ts[1]))[1]
				bottom := sampleWall(f, velocity, offset(f.UV, 0, -ts[1]))[1]
				return f32.Vec4{0.5 * (right - left + top - bottom), 0, 0, 1}
			}
		},
		Kernel: divergenceKernel,
	}
}

func clearSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progClear,
		Samplers: []string{"uTexture"},
		Uniforms: []gpu.Uniform{{Name: "value", Kind: gpu.UniformFloat}},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			tex, value := l.Sampler("uTexture"), l.Uniform("value")
			return func(f *gpu.Fragment) f32.Vec4 {
				return scale(f.Sample(tex, f.UV), f.Float(value))
			}
		},
		Kernel: clearKernel,
	}
}

func pressureSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progPressure,
		Samplers: []string{"uPressure", "uDivergence"},
		Uniforms: []gpu.Uniform{texelSizeUniform},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			pressure, divergence := l.Sampler("uPressure"), l.Sampler("uDivergence")
			texel := l.Uniform("texelSize")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts := f.Vec2(texel)
				left := f.Sample(pressure, offset(f.UV, -ts[0], 0))[0]
				right := f.Sample(pressure, offset(f.UV, ts[0], 0))[0]
				top := f.Sample(pressure, offset(f.UV, 0, ts[1]))[0]
				bottom := f.Sample(pressure, offset(f.UV, 0, -ts[1]))[0]
				div := f.Sample(divergence, f.UV)[0]
				return f32.Vec4{(left + right + bottom + top - div) * 0.25, 0, 0, 1}
			}
		},
		Kernel: pressureKernel,
	}
}

func gradientSubtractSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progGradientSubtract,
		Samplers: []string{"uPressure", "uVelocity"},
		Uniforms: []gpu.Uniform{texelSizeUniform},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			pressure, velocity := l.Sampler("uPressure"), l.Sampler("uVelocity")
			texel := l.Uniform("texelSize")
			return func(f *gpu.Fragment) f32.Vec4 {
				ts := f.Vec2(texel)
				left := f.Sample(pressure, offset(f.UV, -ts[0], 0))[0]
				right := f.Sample(pressure, offset(f.UV, ts[0], 0))[0]
				top := f.Sample(pressure, offset(f.UV, 0, ts[1]))[0]
				bottom := f.Sample(pressure, offset(f.UV, 0, -ts[1]))[0]
				v := f.Sample(velocity, f.UV)
				return f32.Vec4{v[0] - 0.5*(right-left), v[1] - 0.5*(top-bottom), 0, 1}
			}
		},
		Kernel: gradientSubtractKernel,
	}
}

func splatSpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progSplat,
		Samplers: []string{"uTarget"},
		Uniforms: []gpu.Uniform{
			{Name: "aspectRatio", Kind: gpu.UniformFloat},
			{Name: "color", Kind: gpu.UniformVec3},
			{Name: "point", Kind: gpu.UniformVec2},
			{Name: "radius", Kind: gpu.UniformFloat},
		},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			target := l.Sampler("uTarget")
			aspect, color, point, radius := l.Uniform("aspectRatio"), l.Uniform("color"), l.Uniform("point"), l.Uniform("radius")
			return func(f *gpu.Fragment) f32.Vec4 {
				p := f.Vec2(point)
				dx := (f.UV[0] - p[0]) * f.Float(aspect)
				dy := f.UV[1] - p[1]
				w := float32(math.Exp(float64(-(dx*dx + dy*dy) / f.Float(radius))))
				c := f.Vec3(color)
				base := f.Sample(target, f.UV)
				return f32.Vec4{base[0] + w*c[0], base[1] + w*c[1], base[2] + w*c[2], 1}
			}
		},
		Kernel: splatKernel,
	}
}

func displaySpec() gpu.ProgramSpec {
	return gpu.ProgramSpec{
		Name:     progDisplay,
		Samplers: []string{"uTexture"},
		Fragment: func(l gpu.Locator) gpu.FragmentFunc {
			tex := l.Sampler("uTexture")
			return func(f *gpu.Fragment) f32.Vec4 {
				c := f.Sample(tex, f.UV)
				a := max(c[0], c[1], c[2])
				return f32.Vec4{c[0], c[1], c[2], a}
			}
		},
		Kernel: displayKernel,
	}
}
