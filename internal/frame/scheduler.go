// Package frame sizes the drawing surface and clamps the timestep of each
// display refresh.
package frame

import (
	"math"
	"time"
)

// Tick is the per frame input of the simulation.
type Tick struct {
	// DT is the clamped timestep in seconds.
	DT float32
	// Width and Height are the surface size in device pixels.
	Width  int
	Height int
	// Resized is set when the surface size differs from the previous tick;
	// the first tick is always resized.
	Resized bool
	Frame   uint64
}

// Scheduler derives ticks from wall clock time. It is not safe for
// concurrent use.
type Scheduler struct {
	maxDT    float32
	maxRatio float64
	now      func() time.Time

	last   time.Time
	width  int
	height int
	frame  uint64
}

// Option configures a scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler returns a scheduler clamping dt to maxDT seconds and the device
// pixel ratio to maxRatio.
func NewScheduler(maxDT float32, maxRatio float64, opts ...Option) *Scheduler {
	s := &Scheduler{maxDT: maxDT, maxRatio: maxRatio, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SurfaceSize converts a logical size to device pixels with the ratio capped.
func (s *Scheduler) SurfaceSize(logicalW, logicalH int, ratio float64) (int, int) {
	if ratio <= 0 || math.IsNaN(ratio) {
		ratio = 1
	}
	ratio = math.Min(ratio, s.maxRatio)
	w := int(math.Floor(float64(logicalW) * ratio))
	h := int(math.Floor(float64(logicalH) * ratio))
	return max(w, 1), max(h, 1)
}

// Next computes the tick of the frame about to run. A long gap, e.g. a
// hidden window, still yields at most maxDT.
func (s *Scheduler) Next(logicalW, logicalH int, ratio float64) Tick {
	now := s.now()
	var dt float32
	if !s.last.IsZero() {
		dt = float32(now.Sub(s.last).Seconds())
	}
	s.last = now
	dt = min(max(dt, 0), s.maxDT)

	w, h := s.SurfaceSize(logicalW, logicalH, ratio)
	resized := s.frame == 0 || w != s.width || h != s.height
	s.width, s.height = w, h
	s.frame++
	return Tick{DT: dt, Width: w, Height: h, Resized: resized, Frame: s.frame}
}
