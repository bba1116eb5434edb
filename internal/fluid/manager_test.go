package fluid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cursorfluid/internal/gpu"
)

func readField(t *testing.T, dev gpu.Device, f *Field) []float32 {
	t.Helper()
	out := make([]float32, f.Width()*f.Height()*4)
	require.NoError(t, dev.ReadTexture(f.Texture(), out))
	return out
}

func fill(t *testing.T, dev gpu.Device, f *Field, v float32) {
	t.Helper()
	data := make([]float32, f.Width()*f.Height()*4)
	for i := range data {
		data[i] = v
	}
	require.NoError(t, dev.WriteTexture(f.Texture(), data))
}

func allZero(t *testing.T, dev gpu.Device, f *Field) bool {
	t.Helper()
	for _, v := range readField(t, dev, f) {
		if v != 0 {
			return false
		}
	}
	return true
}

func newTestManager(t *testing.T, dyeShift, simShift int) (gpu.Device, *Manager) {
	t.Helper()
	dev := gpu.NewSoftwareDevice(gpu.WithWorkers(2))
	t.Cleanup(dev.Close)
	format, err := gpu.Negotiate(dev.Capabilities(), true)
	require.NoError(t, err)
	return dev, NewManager(dev, format, dyeShift, simShift, nil)
}

func generationFields(f *Fields) []*Field {
	return []*Field{
		f.Dye.Read(), f.Dye.Write(),
		f.Velocity.Read(), f.Velocity.Write(),
		f.Pressure.Read(), f.Pressure.Write(),
		f.Divergence, f.Curl, f.Display,
	}
}

func TestReallocateAllSizesAndClears(t *testing.T) {
	dev, m := newTestManager(t, 1, 2)

	sizes := []struct{ w, h int }{{100, 37}, {640, 480}, {3, 1}, {1, 1}}
	for _, size := range sizes {
		f, err := m.ReallocateAll(size.w, size.h)
		require.NoError(t, err)
		assert.Same(t, f, m.Fields())

		assert.Equal(t, max(size.w>>1, 1), f.Dye.Width())
		assert.Equal(t, max(size.h>>1, 1), f.Dye.Height())
		for _, fld := range []*Field{f.Velocity.Read(), f.Pressure.Read(), f.Divergence, f.Curl} {
			assert.Equal(t, max(size.w>>2, 1), fld.Width())
			assert.Equal(t, max(size.h>>2, 1), fld.Height())
		}
		assert.Equal(t, f.Dye.Width(), f.Display.Width())

		for _, fld := range generationFields(f) {
			assert.True(t, allZero(t, dev, fld), "%s not cleared", fld.Texture().Label())
			// Dirty every field so the next generation proves it does not resample.
			fill(t, dev, fld, 3)
		}
	}
}

func TestReallocateAllReleasesPreviousGeneration(t *testing.T) {
	dev, m := newTestManager(t, 0, 1)

	old, err := m.ReallocateAll(32, 32)
	require.NoError(t, err)
	_, err = m.ReallocateAll(64, 32)
	require.NoError(t, err)

	for _, fld := range generationFields(old) {
		err := dev.ReadTexture(fld.Texture(), make([]float32, fld.Width()*fld.Height()*4))
		assert.Error(t, err, "%s still alive", fld.Texture().Label())
	}
}

func TestReallocateAllRejectsEmptySurface(t *testing.T) {
	_, m := newTestManager(t, 0, 0)
	_, err := m.ReallocateAll(0, 10)
	assert.Error(t, err)
	assert.Nil(t, m.Fields())
}

// failingDevice refuses texture creation once its budget runs out.
type failingDevice struct {
	gpu.Device
	budget int
}

var errOutOfMemory = errors.New("out of texture memory")

func (d *failingDevice) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if d.budget == 0 {
		return nil, errOutOfMemory
	}
	d.budget--
	return d.Device.CreateTexture(desc)
}

func TestReallocateAllIsAtomic(t *testing.T) {
	base := gpu.NewSoftwareDevice(gpu.WithWorkers(1))
	defer base.Close()
	dev := &failingDevice{Device: base, budget: 9}
	format, err := gpu.Negotiate(base.Capabilities(), false)
	require.NoError(t, err)
	m := NewManager(dev, format, 0, 1, nil)

	first, err := m.ReallocateAll(16, 16)
	require.NoError(t, err)
	fill(t, base, first.Dye.Read(), 0.5)

	dev.budget = 4
	_, err = m.ReallocateAll(32, 32)
	require.ErrorIs(t, err, errOutOfMemory)

	assert.Same(t, first, m.Fields(), "failed build must leave the previous generation current")
	assert.Equal(t, 16, m.Fields().Dye.Width())
	for _, v := range readField(t, base, first.Dye.Read()) {
		require.Equal(t, float32(0.5), v)
	}
}

func TestCreateFieldDegradesFiltering(t *testing.T) {
	dev := gpu.NewSoftwareDevice(gpu.WithWorkers(1),
		gpu.WithCapabilities(gpu.Capabilities{Float: true, PartialChannels: true}))
	defer dev.Close()
	format, err := gpu.Negotiate(dev.Capabilities(), true)
	require.NoError(t, err)
	m := NewManager(dev, format, 0, 0, nil)

	f, err := m.CreateField("probe", 4, 2, LayoutVector, true)
	require.NoError(t, err)
	defer m.ReleaseField(f)
	assert.Equal(t, format.RG, f.Texture().Format())
	assert.Equal(t, float32(0.25), f.TexelSize()[0])
	assert.Equal(t, float32(0.5), f.TexelSize()[1])

	d, err := m.CreateDoubleField("pair", 4, 4, LayoutColor, false)
	require.NoError(t, err)
	defer m.ReleaseDoubleField(d)
	first := d.Read()
	d.Swap()
	assert.NotSame(t, first, d.Read())
	assert.Same(t, first, d.Write())
	d.Swap()
	assert.Same(t, first, d.Read())
}
