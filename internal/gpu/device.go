// Package gpu is the rendering device abstraction used by the fluid
// simulation: negotiated texture formats, zero-cleared 2D textures, immutable
// stage programs, and full screen passes that read bound textures and write
// one target.
package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
)

var (
	// ErrFeedbackLoop is returned when a pass targets a texture that is also
	// bound as one of its samplers.
	ErrFeedbackLoop = errors.New("gpu: pass target is bound as a sampler")
	// ErrDeviceClosed is returned by every operation after Close.
	ErrDeviceClosed = errors.New("gpu: device closed")
	// ErrForeignTexture is returned when a texture from another device is used.
	ErrForeignTexture = errors.New("gpu: texture belongs to another device")
)

// TextureDesc describes a 2D render target.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat
	Filter gputypes.FilterMode
}

// Texture is a device owned 2D render target.
type Texture interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	Label() string
}

// Device runs the full screen passes of the simulation. Calls are made from a
// single goroutine; a device may parallelize the texels of one pass
// internally.
type Device interface {
	Capabilities() Capabilities
	// CreateTexture allocates a texture whose every texel is zero.
	CreateTexture(desc TextureDesc) (Texture, error)
	// WriteTexture uploads four floats per texel, row zero first.
	WriteTexture(t Texture, rgba []float32) error
	// ReadTexture downloads four floats per texel, missing channels read as zero.
	ReadTexture(t Texture, rgba []float32) error
	ReleaseTexture(t Texture)
	CompileProgram(spec ProgramSpec) (*Program, error)
	// Draw runs p over every texel of target using the bound inputs.
	Draw(p *Program, b *Bindings, target Texture) error
	Close()
}

// checkFeedback reports ErrFeedbackLoop when target is one of the bound samplers.
func checkFeedback(b *Bindings, target Texture) error {
	for i := range b.textures {
		if b.textures[i] == target {
			return ErrFeedbackLoop
		}
	}
	return nil
}
