package fluid

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/f32"

	"cursorfluid/internal/config"
	"cursorfluid/internal/gpu"
)

func TestCompositeFlipsRowsAndDerivesAlpha(t *testing.T) {
	dev, sim := newTestSimulation(t, floatConfig())
	require.NoError(t, sim.Resize(2, 2))
	dye := sim.Fields().Dye.Read()
	require.NoError(t, dev.WriteTexture(dye.Texture(), []float32{
		// Bottom row.
		1, 0, 0, 9, 0, 0.5, 0, 9,
		// Top row.
		0, 0, 0, 1, 2, -1, 0.25, 1,
	}))

	img, err := sim.Composite()
	require.NoError(t, err)
	require.Equal(t, 2, img.Rect.Dx())
	require.Equal(t, 2, img.Rect.Dy())

	// Image row zero is the top of the field.
	assert.Equal(t, []uint8{0, 0, 0, 0}, img.Pix[0:4], "black stays transparent")
	assert.Equal(t, []uint8{255, 0, 64, 255}, img.Pix[4:8], "clamped")
	assert.Equal(t, []uint8{255, 0, 0, 255}, img.Pix[img.Stride:img.Stride+4])
	assert.Equal(t, []uint8{0, 128, 0, 128}, img.Pix[img.Stride+4:img.Stride+8])

	again, err := sim.Composite()
	require.NoError(t, err)
	assert.Same(t, img, again, "image is reused while the size holds")
}

func TestNewRejectsUnusableDevice(t *testing.T) {
	dev := gpu.NewSoftwareDevice(gpu.WithWorkers(1), gpu.WithCapabilities(gpu.Capabilities{Name: "gl1"}))
	defer dev.Close()
	_, err := New(dev, config.Default(), nil)
	assert.ErrorIs(t, err, gpu.ErrNoUsableFormat)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dev := gpu.NewSoftwareDevice(gpu.WithWorkers(1))
	defer dev.Close()
	cfg := config.Default()
	cfg.PressureIterations = -1
	_, err := New(dev, cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestPointerSplatFlipsVertical(t *testing.T) {
	s := PointerSplat(200, 50, 30, 40, 400, 200, f32.Vec3{1, 2, 3})
	assert.Equal(t, f32.Vec2{0.5, 0.75}, s.Point)
	assert.Equal(t, f32.Vec2{30, -40}, s.Force)
	assert.Equal(t, f32.Vec3{1, 2, 3}, s.Color)
}

func TestRandomSplats(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	splats := RandomSplats(rng, 32)
	require.Len(t, splats, 32)
	for _, s := range splats {
		for _, c := range s.Point {
			assert.GreaterOrEqual(t, c, float32(0))
			assert.Less(t, c, float32(1))
		}
		for _, c := range s.Force {
			assert.LessOrEqual(t, c, float32(burstForce/2))
			assert.GreaterOrEqual(t, c, float32(-burstForce/2))
		}
		for _, c := range s.Color {
			assert.GreaterOrEqual(t, c, float32(0))
			assert.Less(t, c, float32(burstColor))
		}
	}
	assert.Empty(t, RandomSplats(rng, 0))
}
