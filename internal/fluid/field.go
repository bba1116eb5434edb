package fluid

import (
	"golang.org/x/image/math/f32"

	"cursorfluid/internal/gpu"
)

// Layout is the channel layout of a field.
type Layout int

const (
	LayoutScalar Layout = 1
	LayoutVector Layout = 2
	LayoutColor  Layout = 4
)

// Channels returns the number of meaningful channels.
func (l Layout) Channels() int { return int(l) }

// Field is one 2D grid sampled at texel centers.
type Field struct {
	tex    gpu.Texture
	layout Layout
}

// Width is the field width in texels.
func (f *Field) Width() int { return f.tex.Width() }

// Height is the field height in texels.
func (f *Field) Height() int { return f.tex.Height() }

// Layout reports which channels the field uses.
func (f *Field) Layout() Layout { return f.layout }

// Texture is the device storage backing the field.
func (f *Field) Texture() gpu.Texture { return f.tex }

// TexelSize is one texel in normalized units.
func (f *Field) TexelSize() f32.Vec2 {
	return f32.Vec2{1 / float32(f.tex.Width()), 1 / float32(f.tex.Height())}
}

// DoubleField is a read/write pair of same shaped fields. A pass reads Read
// and writes Write; Swap exchanges them without copying.
type DoubleField struct {
	bufs [2]*Field
	read int
}

// Read is the field holding the current state.
func (d *DoubleField) Read() *Field { return d.bufs[d.read] }

// Write is the field the next pass renders into.
func (d *DoubleField) Write() *Field { return d.bufs[1-d.read] }

// Swap makes the last written field current.
func (d *DoubleField) Swap() { d.read = 1 - d.read }

func (d *DoubleField) Width() int          { return d.bufs[0].Width() }
func (d *DoubleField) Height() int         { return d.bufs[0].Height() }
func (d *DoubleField) TexelSize() f32.Vec2 { return d.bufs[0].TexelSize() }
