// Package effect is the boundary around the fluid simulation. Nothing inside
// it can fail the host: any setup or frame error disables the effect for the
// rest of the session and is logged once.
package effect

import (
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"cursorfluid/internal/config"
	"cursorfluid/internal/fluid"
	"cursorfluid/internal/frame"
	"cursorfluid/internal/gpu"
	"cursorfluid/internal/logger"
	"cursorfluid/internal/pointer"
)

// Stats describe the last frame for overlays.
type Stats struct {
	Frame     uint64
	Device    string
	Format    string
	DyeWidth  int
	DyeHeight int
	SimWidth  int
	SimHeight int
	StepTime  time.Duration
	Contacts  int
}

// Effect owns one session: scheduler, pointer tracker and simulation.
type Effect struct {
	cfg     config.Config
	log     *zap.Logger
	dev     gpu.Device
	sim     *fluid.Simulation
	tracker *pointer.Tracker
	sched   *frame.Scheduler
	rng     *rand.Rand

	bursts  []int
	random  []fluid.Splat
	splats  []fluid.Splat
	pixels  *image.RGBA
	stats   Stats
	enabled bool
}

// Option configures an effect.
type Option func(*options)

type options struct {
	rng   *rand.Rand
	clock func() time.Time
}

// WithRand fixes the random source for colors and bursts.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithClock replaces the wall clock used for timesteps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds the effect on dev. It never fails: when the device cannot run
// the simulation the effect comes up disabled and every call is a no-op.
func New(dev gpu.Device, cfg config.Config, log *zap.Logger, opts ...Option) *Effect {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	tracker := pointer.New(pointer.Options{
		ForceMultiplier:   cfg.ForceMultiplier,
		ColorChangeEvents: cfg.ColorChangeEvents,
		ColorChangeChance: cfg.ColorChangeChance,
		MaxContacts:       cfg.MaxContacts,
	}, o.rng)
	e := &Effect{
		cfg:     cfg,
		log:     logger.OrNop(log).Named("effect"),
		dev:     dev,
		rng:     o.rng,
		tracker: tracker,
		sched:   frame.NewScheduler(cfg.MaxTimestep, cfg.MaxPixelRatio, frame.WithClock(o.clock)),
	}
	if dev == nil {
		e.disable(fmt.Errorf("no rendering device: %w", gpu.ErrNoUsableFormat))
		return e
	}
	sim, err := e.start()
	if err != nil {
		e.disable(err)
		return e
	}
	e.sim = sim
	e.enabled = true
	e.stats.Device = dev.Capabilities().Name
	e.stats.Format = sim.Format().Type.String()
	if cfg.InitialBurst > 0 {
		e.QueueRandomSplats(cfg.InitialBurst)
	}
	return e
}

func (e *Effect) start() (sim *fluid.Simulation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during setup: %v", r)
		}
	}()
	return fluid.New(e.dev, e.cfg, e.log)
}

// Enabled reports whether the simulation is still running.
func (e *Effect) Enabled() bool { return e.enabled }

// Input returns the pointer tracker fed by the host's input events.
func (e *Effect) Input() *pointer.Tracker { return e.tracker }

// QueueRandomSplats schedules a burst of n random splats for the next frame.
func (e *Effect) QueueRandomSplats(n int) {
	if e.enabled && n > 0 {
		e.bursts = append(e.bursts, n)
	}
}

// Pixels returns the latest composite, or nil before the first frame or once
// disabled.
func (e *Effect) Pixels() *image.RGBA {
	if !e.enabled {
		return nil
	}
	return e.pixels
}

// Stats returns the statistics of the last frame.
func (e *Effect) Stats() Stats { return e.stats }

// SurfaceSize is the surface size in device pixels that Frame simulates for
// a logical size and pixel ratio. Pointer coordinates are in this space.
func (e *Effect) SurfaceSize(logicalW, logicalH int, ratio float64) (int, int) {
	return e.sched.SurfaceSize(logicalW, logicalH, ratio)
}

// Frame runs one display refresh for a logical surface size and device
// pixel ratio.
func (e *Effect) Frame(logicalW, logicalH int, ratio float64) {
	if !e.enabled {
		return
	}
	if err := e.frame(logicalW, logicalH, ratio); err != nil {
		e.disable(err)
	}
}

func (e *Effect) frame(logicalW, logicalH int, ratio float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in frame: %v", r)
		}
	}()

	tick := e.sched.Next(logicalW, logicalH, ratio)
	if tick.Resized {
		if err := e.sim.Resize(tick.Width, tick.Height); err != nil {
			return err
		}
	}

	e.random = e.random[:0]
	for _, n := range e.bursts {
		e.random = append(e.random, fluid.RandomSplats(e.rng, n)...)
	}
	e.bursts = e.bursts[:0]
	e.splats = e.splats[:0]
	e.tracker.Consume(func(p pointer.Pointer) {
		e.splats = append(e.splats, fluid.PointerSplat(p.X, p.Y, p.DX, p.DY, tick.Width, tick.Height, p.Color))
	})

	start := time.Now()
	if err := e.sim.Step(tick.DT, e.random, e.splats); err != nil {
		return err
	}
	pixels, err := e.sim.Composite()
	if err != nil {
		return err
	}
	e.pixels = pixels

	f := e.sim.Fields()
	e.stats.Frame = tick.Frame
	e.stats.StepTime = time.Since(start)
	e.stats.DyeWidth, e.stats.DyeHeight = f.Dye.Width(), f.Dye.Height()
	e.stats.SimWidth, e.stats.SimHeight = f.Velocity.Width(), f.Velocity.Height()
	e.stats.Contacts = e.tracker.Contacts()
	if ce := e.log.Check(zap.DebugLevel, "frame"); ce != nil {
		ce.Write(
			zap.Uint64("frame", tick.Frame),
			zap.Float32("dt", tick.DT),
			zap.Int("splats", len(e.random)+len(e.splats)),
			zap.Duration("step", e.stats.StepTime),
		)
	}
	return nil
}

// disable stops the effect for the session and releases its fields.
func (e *Effect) disable(cause error) {
	e.log.Warn("fluid effect disabled",
		zap.String("reason", classify(cause)),
		zap.Error(cause),
	)
	e.enabled = false
	e.pixels = nil
	if e.sim != nil {
		e.sim.Close()
		e.sim = nil
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, gpu.ErrNoUsableFormat):
		return "capability"
	case errors.Is(err, gpu.ErrProgramBuild):
		return "shader build"
	case errors.Is(err, config.ErrInvalid):
		return "config"
	default:
		return "runtime"
	}
}

// Close tears the session down. The device stays owned by the caller.
func (e *Effect) Close() {
	if e.sim != nil {
		e.sim.Close()
		e.sim = nil
	}
	e.enabled = false
	e.pixels = nil
}
