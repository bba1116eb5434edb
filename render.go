package main

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Draw stretches the latest dye composite over the screen and adds the
// optional overlay.
func (g *Game) Draw(screen *ebiten.Image) {
	if pixels := g.effect.Pixels(); pixels != nil {
		w, h := pixels.Rect.Dx(), pixels.Rect.Dy()
		if g.dye == nil || g.dye.Bounds().Dx() != w || g.dye.Bounds().Dy() != h {
			if g.dye != nil {
				g.dye.Deallocate()
			}
			g.dye = ebiten.NewImage(w, h)
		}
		g.dye.WritePixels(pixels.Pix)

		sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM.Scale(float64(sw)/float64(w), float64(sh)/float64(h))
		screen.DrawImage(g.dye, op)
	}

	if *debugFlag {
		stats := g.effect.Stats()
		state := "disabled"
		if g.effect.Enabled() {
			state = stats.Device + " / " + stats.Format
		}
		debugMsg := fmt.Sprintf("FPS: %.1f (%.1f TPS)\nFluid: %s\nDye: %dx%d  Sim: %dx%d\nStep: %.2f ms\nContacts: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), state,
			stats.DyeWidth, stats.DyeHeight, stats.SimWidth, stats.SimHeight,
			stats.StepTime.Seconds()*1000, stats.Contacts)
		ebitenutil.DebugPrint(screen, debugMsg)
	}
}
