package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// ErrNoUsableFormat means the device cannot render into any floating point
// texture. The effect cannot run on such a device.
var ErrNoUsableFormat = errors.New("gpu: no renderable floating point texture format")

// PixelType is the element type of texture storage.
type PixelType int

const (
	PixelTypeHalfFloat PixelType = iota + 1
	PixelTypeFloat
)

func (t PixelType) String() string {
	switch t {
	case PixelTypeHalfFloat:
		return "half-float"
	case PixelTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Capabilities is what a device reports about its texture support.
type Capabilities struct {
	Name string

	// Float and HalfFloat report renderable storage of that precision.
	Float     bool
	HalfFloat bool
	// FloatLinear and HalfFloatLinear report hardware linear filtering of
	// that precision.
	FloatLinear     bool
	HalfFloatLinear bool
	// PartialChannels reports one and two channel render targets. Without it
	// every field is stored as RGBA.
	PartialChannels bool
}

// Format is the negotiated texture format descriptor. It is immutable input
// to every texture allocation and program build.
type Format struct {
	RGBA gputypes.TextureFormat
	RG   gputypes.TextureFormat
	R    gputypes.TextureFormat
	Type PixelType
	// LinearFiltering reports whether samplers may use hardware linear
	// filtering for this format.
	LinearFiltering bool
}

// Negotiate picks the highest fidelity storage and filtering combination the
// device supports. preferHalf selects half-float storage when both are
// available.
func Negotiate(caps Capabilities, preferHalf bool) (Format, error) {
	var typ PixelType
	switch {
	case preferHalf && caps.HalfFloat:
		typ = PixelTypeHalfFloat
	case caps.Float:
		typ = PixelTypeFloat
	case caps.HalfFloat:
		typ = PixelTypeHalfFloat
	default:
		return Format{}, fmt.Errorf("%w (device %q)", ErrNoUsableFormat, caps.Name)
	}

	f := Format{Type: typ}
	if typ == PixelTypeHalfFloat {
		f.RGBA = gputypes.TextureFormatRGBA16Float
		f.RG = gputypes.TextureFormatRG16Float
		f.R = gputypes.TextureFormatR16Float
		f.LinearFiltering = caps.HalfFloatLinear
	} else {
		f.RGBA = gputypes.TextureFormatRGBA32Float
		f.RG = gputypes.TextureFormatRG32Float
		f.R = gputypes.TextureFormatR32Float
		f.LinearFiltering = caps.FloatLinear
	}
	if !caps.PartialChannels {
		f.RG = f.RGBA
		f.R = f.RGBA
	}
	return f, nil
}

// ForChannels returns the storage format for a field of n channels.
func (f Format) ForChannels(n int) gputypes.TextureFormat {
	switch n {
	case 1:
		return f.R
	case 2:
		return f.RG
	default:
		return f.RGBA
	}
}

// Filter returns the sampler filter to use when linear filtering is wanted.
// It degrades to nearest when the format cannot be filtered.
func (f Format) Filter(wantLinear bool) gputypes.FilterMode {
	if wantLinear && f.LinearFiltering {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// formatLayout reports channel count and half precision for a texture format.
func formatLayout(format gputypes.TextureFormat) (channels int, half bool, ok bool) {
	switch format {
	case gputypes.TextureFormatR16Float:
		return 1, true, true
	case gputypes.TextureFormatRG16Float:
		return 2, true, true
	case gputypes.TextureFormatRGBA16Float:
		return 4, true, true
	case gputypes.TextureFormatR32Float:
		return 1, false, true
	case gputypes.TextureFormatRG32Float:
		return 2, false, true
	case gputypes.TextureFormatRGBA32Float:
		return 4, false, true
	}
	return 0, false, false
}
