// Command cursorfluid renders a smoke and ink fluid that follows the mouse
// and touch contacts.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"cursorfluid/internal/effect"
	"cursorfluid/internal/gpu"
	"cursorfluid/internal/logger"
)

func main() {
	flag.Parse()
	log, err := logger.New(logger.Config{Level: *logLevelFlag, Development: *devLogFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cursorfluid: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("cursorfluid exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dev := openDevice(log)
	defer dev.Close()

	fx := effect.New(dev, cfg, log)
	defer fx.Close()
	g := newGame(fx)

	if *recordDefaultPGO {
		profile, err := startDefaultPGORecording(pgoProfilePath, log)
		if err != nil {
			return fmt.Errorf("starting cpu profile: %w", err)
		}
		defer profile.Stop()
		g.profile = profile
		g.autopilot = newAutopilot(pgoRecordDuration)
	}

	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err = ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{ScreenTransparent: *transparentFlag})
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// openDevice returns the OpenCL device when requested and available, and
// the software device otherwise.
func openDevice(log *zap.Logger) gpu.Device {
	if *openCLFlag {
		dev, err := gpu.NewOpenCLDevice()
		if err == nil {
			log.Info("using OpenCL device", zap.String("device", dev.Capabilities().Name))
			return dev
		}
		log.Warn("OpenCL unavailable, falling back to software device", zap.Error(err))
	}
	return gpu.NewSoftwareDevice(gpu.WithWorkers(*workersFlag))
}
