package main

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"cursorfluid/internal/pointer"
)

// pollInput forwards this tick's mouse, touch and key events to the tracker.
func (g *Game) pollInput(in *pointer.Tracker) {
	if g.autopilot != nil {
		if x, y, ok := g.autopilot.next(g.surfaceW, g.surfaceH); ok {
			in.MouseMove(x, y)
		}
	} else {
		g.pollMouse(in)
	}
	g.pollTouches(in)

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.effect.QueueRandomSplats(spaceBurstSplats)
	}
}

// pollMouse reports the cursor only when it moved since the last tick.
func (g *Game) pollMouse(in *pointer.Tracker) {
	x, y := ebiten.CursorPosition()
	if g.cursorSeen && x == g.cursorX && y == g.cursorY {
		return
	}
	g.cursorX, g.cursorY, g.cursorSeen = x, y, true
	in.MouseMove(float32(x), float32(y))
}

func (g *Game) pollTouches(in *pointer.Tracker) {
	g.touchIDs = inpututil.AppendJustPressedTouchIDs(g.touchIDs[:0])
	for _, id := range g.touchIDs {
		x, y := ebiten.TouchPosition(id)
		in.TouchStart(int(id), float32(x), float32(y))
	}

	g.touchIDs = ebiten.AppendTouchIDs(g.touchIDs[:0])
	for _, id := range g.touchIDs {
		if inpututil.IsTouchJustPressed(id) {
			continue
		}
		x, y := ebiten.TouchPosition(id)
		px, py := inpututil.TouchPositionInPreviousTick(id)
		if x == px && y == py {
			continue
		}
		in.TouchMove(int(id), float32(x), float32(y))
	}

	g.touchIDs = inpututil.AppendJustReleasedTouchIDs(g.touchIDs[:0])
	for _, id := range g.touchIDs {
		in.TouchEnd(int(id))
	}
}

// autopilot wanders a virtual cursor across the surface until its deadline.
type autopilot struct {
	deadline time.Time
	rng      *rand.Rand

	x, y       float64
	dirX, dirY float64
	frames     int
	placed     bool
}

const (
	autopilotSpeed     = 0.012
	autopilotMinFrames = 20
	autopilotMaxFrames = 70
)

// newAutopilot schedules scripted movement for a limited duration.
func newAutopilot(duration time.Duration) *autopilot {
	return &autopilot{
		deadline: time.Now().Add(duration),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 3)),
	}
}

func (a *autopilot) done() bool { return time.Now().After(a.deadline) }

// next returns the cursor position for this tick in surface pixels.
func (a *autopilot) next(surfaceW, surfaceH int) (float32, float32, bool) {
	if a.done() || surfaceW <= 0 || surfaceH <= 0 {
		return 0, 0, false
	}
	if !a.placed {
		a.x, a.y, a.placed = 0.5, 0.5, true
	}
	for attempts := 0; attempts < 5; attempts++ {
		if a.frames <= 0 {
			a.randomizeDirection()
		}
		nx := a.x + a.dirX*autopilotSpeed
		ny := a.y + a.dirY*autopilotSpeed
		if nx > 0 && nx < 1 && ny > 0 && ny < 1 {
			a.x, a.y = nx, ny
			a.frames--
			break
		}
		a.frames = 0
	}
	return float32(a.x * float64(surfaceW)), float32(a.y * float64(surfaceH)), true
}

func (a *autopilot) randomizeDirection() {
	angle := a.rng.Float64() * 2 * math.Pi
	a.dirX = math.Cos(angle)
	a.dirY = math.Sin(angle)
	a.frames = autopilotMinFrames + a.rng.IntN(autopilotMaxFrames-autopilotMinFrames)
}
