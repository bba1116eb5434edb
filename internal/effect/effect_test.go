package effect

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cursorfluid/internal/config"
	"cursorfluid/internal/gpu"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(16 * time.Millisecond)
	return c.t
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func newEffect(t *testing.T, dev gpu.Device, cfg config.Config) (*Effect, *observer.ObservedLogs) {
	t.Helper()
	log, logs := observed()
	c := &clock{t: time.Unix(0, 0)}
	e := New(dev, cfg, log, WithRand(rand.New(rand.NewPCG(3, 4))), WithClock(c.now))
	t.Cleanup(e.Close)
	return e, logs
}

func softwareDevice(t *testing.T, opts ...gpu.SoftwareOption) gpu.Device {
	t.Helper()
	dev := gpu.NewSoftwareDevice(append([]gpu.SoftwareOption{gpu.WithWorkers(2)}, opts...)...)
	t.Cleanup(dev.Close)
	return dev
}

func disabledWarnings(logs *observer.ObservedLogs) []observer.LoggedEntry {
	return logs.FilterMessage("fluid effect disabled").AllUntimed()
}

func litPixels(e *Effect) int {
	img := e.Pixels()
	if img == nil {
		return 0
	}
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestFrameProducesComposite(t *testing.T) {
	e, logs := newEffect(t, softwareDevice(t), config.Default())
	require.True(t, e.Enabled())

	e.Frame(40, 30, 1)
	img := e.Pixels()
	require.NotNil(t, img)
	assert.Equal(t, 40>>1, img.Rect.Dx())
	assert.Equal(t, 30>>1, img.Rect.Dy())
	assert.Zero(t, litPixels(e), "nothing injected yet")

	e.Input().MouseMove(10, 10)
	e.Input().MouseMove(20, 15)
	e.Frame(40, 30, 1)
	assert.Positive(t, litPixels(e))

	stats := e.Stats()
	assert.Equal(t, uint64(2), stats.Frame)
	assert.Equal(t, "software", stats.Device)
	assert.Equal(t, "half-float", stats.Format)
	assert.Equal(t, 10, stats.SimWidth)
	assert.Empty(t, disabledWarnings(logs))
}

func TestResizeFollowsPixelRatio(t *testing.T) {
	e, _ := newEffect(t, softwareDevice(t), config.Default())
	e.Frame(40, 30, 1)
	e.Frame(40, 30, 4)
	img := e.Pixels()
	require.NotNil(t, img)
	assert.Equal(t, 40, img.Rect.Dx(), "ratio capped at 2, dye downsampled by one")
	assert.Equal(t, 30, img.Rect.Dy())
}

func TestRandomBurst(t *testing.T) {
	cfg := config.Default()
	cfg.InitialBurst = 8
	e, _ := newEffect(t, softwareDevice(t), cfg)
	e.Frame(64, 64, 1)
	first := litPixels(e)
	assert.Positive(t, first)

	e.QueueRandomSplats(0)
	e.QueueRandomSplats(4)
	e.Frame(64, 64, 1)
	assert.Positive(t, litPixels(e))
}

func TestDisabledWithoutFloatTextures(t *testing.T) {
	dev := softwareDevice(t, gpu.WithCapabilities(gpu.Capabilities{Name: "gl1"}))
	e, logs := newEffect(t, dev, config.Default())

	assert.False(t, e.Enabled())
	e.Input().MouseMove(1, 1)
	e.QueueRandomSplats(3)
	e.Frame(32, 32, 1)
	assert.Nil(t, e.Pixels())

	entries := disabledWarnings(logs)
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "capability", entries[0].ContextMap()["reason"])
}

func TestDisabledWithoutDevice(t *testing.T) {
	e, logs := newEffect(t, nil, config.Default())
	assert.False(t, e.Enabled())
	e.Frame(10, 10, 1)
	require.Len(t, disabledWarnings(logs), 1)
}

// brokenDevice injects failures into an otherwise working device.
type brokenDevice struct {
	gpu.Device
	compileErr error
	drawsLeft  int
	panics     bool
}

func (d *brokenDevice) CompileProgram(spec gpu.ProgramSpec) (*gpu.Program, error) {
	if d.compileErr != nil {
		return nil, d.compileErr
	}
	return d.Device.CompileProgram(spec)
}

func (d *brokenDevice) Draw(p *gpu.Program, b *gpu.Bindings, target gpu.Texture) error {
	if d.drawsLeft == 0 {
		if d.panics {
			panic("device lost")
		}
		return errors.New("device lost")
	}
	d.drawsLeft--
	return d.Device.Draw(p, b, target)
}

func TestDisabledOnShaderBuildFailure(t *testing.T) {
	dev := &brokenDevice{
		Device:     softwareDevice(t),
		compileErr: fmt.Errorf("%w: syntax error", gpu.ErrProgramBuild),
		drawsLeft:  -1,
	}
	e, logs := newEffect(t, dev, config.Default())
	assert.False(t, e.Enabled())

	entries := disabledWarnings(logs)
	require.Len(t, entries, 1)
	assert.Equal(t, "shader build", entries[0].ContextMap()["reason"])
}

func TestFrameFailureDisablesOnce(t *testing.T) {
	for _, panics := range []bool{false, true} {
		t.Run(fmt.Sprintf("panics=%v", panics), func(t *testing.T) {
			dev := &brokenDevice{Device: softwareDevice(t), drawsLeft: 40, panics: panics}
			e, logs := newEffect(t, dev, config.Default())
			require.True(t, e.Enabled())

			for i := 0; i < 5; i++ {
				assert.NotPanics(t, func() { e.Frame(32, 32, 1) })
			}
			assert.False(t, e.Enabled())
			assert.Nil(t, e.Pixels())

			entries := disabledWarnings(logs)
			require.Len(t, entries, 1)
			assert.Equal(t, "runtime", entries[0].ContextMap()["reason"])
		})
	}
}
