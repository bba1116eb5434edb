package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"cursorfluid/internal/effect"
)

// Game adapts the fluid effect to Ebiten's update, draw and layout loop.
type Game struct {
	effect *effect.Effect
	dye    *ebiten.Image

	// Logical window size and the surface size derived from it.
	logicalW, logicalH int
	surfaceW, surfaceH int

	cursorX, cursorY int
	cursorSeen       bool
	touchIDs         []ebiten.TouchID

	autopilot *autopilot
	profile   *cpuProfile
}

func newGame(e *effect.Effect) *Game {
	return &Game{effect: e}
}

// Update feeds input to the effect and advances the simulation one frame.
func (g *Game) Update() error {
	if g.autopilot != nil && g.autopilot.done() {
		g.profile.Stop()
		return ebiten.Termination
	}
	if g.logicalW == 0 || g.logicalH == 0 {
		return nil
	}
	g.pollInput(g.effect.Input())
	g.effect.Frame(g.logicalW, g.logicalH, deviceScale())
	return nil
}

// Layout sizes the screen to the simulation surface, so cursor and touch
// positions arrive in surface pixels.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.logicalW, g.logicalH = outsideWidth, outsideHeight
	g.surfaceW, g.surfaceH = g.effect.SurfaceSize(outsideWidth, outsideHeight, deviceScale())
	return g.surfaceW, g.surfaceH
}

func deviceScale() float64 {
	if m := ebiten.Monitor(); m != nil {
		return m.DeviceScaleFactor()
	}
	return 1
}
