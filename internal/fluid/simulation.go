package fluid

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"cursorfluid/internal/config"
	"cursorfluid/internal/gpu"
	"cursorfluid/internal/logger"
)

// Simulation is the owning context of one fluid session: negotiated format,
// compiled programs, the field manager and the pipeline. It is created once
// per session and torn down with Close.
type Simulation struct {
	dev      gpu.Device
	format   gpu.Format
	progs    *Programs
	manager  *Manager
	pipeline *Pipeline
	log      *zap.Logger

	readback []float32
	image    *image.RGBA
}

// New negotiates a format on dev and compiles the stage programs. Fields are
// allocated by the first Resize.
func New(dev gpu.Device, cfg config.Config, log *zap.Logger) (*Simulation, error) {
	log = logger.OrNop(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	caps := dev.Capabilities()
	format, err := gpu.Negotiate(caps, cfg.PreferHalfFloat)
	if err != nil {
		return nil, err
	}
	progs, err := CompilePrograms(dev, format)
	if err != nil {
		return nil, err
	}
	log.Info("fluid format negotiated",
		zap.String("device", caps.Name),
		zap.Stringer("type", format.Type),
		zap.Bool("linear_filtering", format.LinearFiltering),
		zap.Bool("manual_advection", progs.ManualAdvection),
	)
	params := Params{
		VelocityDissipation: cfg.VelocityDissipation,
		DensityDissipation:  cfg.DensityDissipation,
		PressureDissipation: cfg.PressureDissipation,
		PressureIterations:  cfg.PressureIterations,
		Curl:                cfg.Curl,
		SplatRadius:         cfg.SplatRadius,
		DyeSplatScale:       cfg.DyeSplatScale,
	}
	return &Simulation{
		dev:      dev,
		format:   format,
		progs:    progs,
		manager:  NewManager(dev, format, cfg.DyeDownsample, cfg.SimDownsample, log),
		pipeline: NewPipeline(dev, progs, params),
		log:      log,
	}, nil
}

// Format returns the negotiated storage format.
func (s *Simulation) Format() gpu.Format { return s.format }

// Fields returns the current generation. It is replaced by every Resize.
func (s *Simulation) Fields() *Fields { return s.manager.Fields() }

// Pipeline returns the stage pipeline.
func (s *Simulation) Pipeline() *Pipeline { return s.pipeline }

// Resize replaces every field with zeroed ones sized from the surface.
func (s *Simulation) Resize(surfaceW, surfaceH int) error {
	if _, err := s.manager.ReallocateAll(surfaceW, surfaceH); err != nil {
		return fmt.Errorf("resizing to %dx%d: %w", surfaceW, surfaceH, err)
	}
	return nil
}

// Step runs one frame of the pipeline. Bursts are injected before advection
// and splats after it.
func (s *Simulation) Step(dt float32, bursts, splats []Splat) error {
	return s.pipeline.Step(s.manager.Fields(), dt, bursts, splats)
}

// Composite renders the dye and returns it as premultiplied RGBA rows, top
// row first. The image is reused by the next call.
func (s *Simulation) Composite() (*image.RGBA, error) {
	f := s.manager.Fields()
	if err := s.pipeline.Display(f); err != nil {
		return nil, err
	}
	w, h := f.Display.Width(), f.Display.Height()
	if n := w * h * 4; cap(s.readback) < n {
		s.readback = make([]float32, n)
	} else {
		s.readback = s.readback[:n]
	}
	if err := s.dev.ReadTexture(f.Display.Texture(), s.readback); err != nil {
		return nil, fmt.Errorf("reading display: %w", err)
	}
	if s.image == nil || s.image.Rect.Dx() != w || s.image.Rect.Dy() != h {
		s.image = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		src := s.readback[(h-1-y)*w*4 : (h-y)*w*4]
		dst := s.image.Pix[y*s.image.Stride : y*s.image.Stride+w*4]
		for i := 0; i < len(src); i += 4 {
			a := unit(src[i+3])
			// Channels never exceed alpha, keeping the pixel premultiplied.
			dst[i] = toByte(min(unit(src[i]), a))
			dst[i+1] = toByte(min(unit(src[i+1]), a))
			dst[i+2] = toByte(min(unit(src[i+2]), a))
			dst[i+3] = toByte(a)
		}
	}
	return s.image, nil
}

// Close releases the fields. Programs live as long as the device.
func (s *Simulation) Close() {
	s.manager.Release()
}

func unit(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toByte(v float32) uint8 {
	return uint8(v*255 + 0.5)
}
