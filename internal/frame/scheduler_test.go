package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newScheduler() (*Scheduler, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	return NewScheduler(0.016, 2, WithClock(clock.now)), clock
}

func TestTimestepIsClamped(t *testing.T) {
	s, clock := newScheduler()

	first := s.Next(100, 100, 1)
	assert.Zero(t, first.DT)

	clock.advance(10 * time.Millisecond)
	assert.InDelta(t, 0.010, s.Next(100, 100, 1).DT, 1e-6)

	clock.advance(3 * time.Second)
	assert.Equal(t, float32(0.016), s.Next(100, 100, 1).DT, "hitch bounded")

	clock.advance(-time.Second)
	assert.Zero(t, s.Next(100, 100, 1).DT, "clock going backwards")
}

func TestResizeDetection(t *testing.T) {
	s, _ := newScheduler()

	tick := s.Next(300, 200, 1)
	assert.True(t, tick.Resized)
	assert.Equal(t, uint64(1), tick.Frame)

	assert.False(t, s.Next(300, 200, 1).Resized)
	tick = s.Next(300, 200, 1.5)
	assert.True(t, tick.Resized)
	assert.Equal(t, 450, tick.Width)
	assert.Equal(t, 300, tick.Height)
	assert.False(t, s.Next(300, 200, 1.5).Resized)
}

func TestSurfaceSizeCapsRatio(t *testing.T) {
	s, _ := newScheduler()
	tests := []struct {
		w, h  int
		ratio float64
		wantW int
		wantH int
	}{
		{800, 600, 1, 800, 600},
		{800, 600, 3, 1600, 1200},
		{101, 51, 1.25, 126, 63},
		{0, 0, 1, 1, 1},
		{10, 10, 0, 10, 10},
	}
	for _, tt := range tests {
		w, h := s.SurfaceSize(tt.w, tt.h, tt.ratio)
		assert.Equal(t, tt.wantW, w, "%+v", tt)
		assert.Equal(t, tt.wantH, h, "%+v", tt)
	}
}
