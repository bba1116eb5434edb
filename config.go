package main

import (
	"flag"
	"time"

	"cursorfluid/internal/config"
)

// Window and host constants.
const (
	windowWidth       = 960
	windowHeight      = 640
	windowTitle       = "Cursor Fluid"
	spaceBurstSplats  = 8
	pgoRecordDuration = 15 * time.Second
	pgoProfilePath    = "default.pgo"
)

// loadConfig layers the optional YAML file and then the explicitly set
// tuning flags over the defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "prefer-fp16":
			cfg.PreferHalfFloat = *preferFP16Flag
		case "pressure-iterations":
			cfg.PressureIterations = *pressureIterationsFlag
		case "curl":
			cfg.Curl = float32(*curlFlag)
		case "splat-radius":
			cfg.SplatRadius = float32(*splatRadiusFlag)
		case "dye-downsample":
			cfg.DyeDownsample = *dyeDownsampleFlag
		case "sim-downsample":
			cfg.SimDownsample = *simDownsampleFlag
		case "burst":
			cfg.InitialBurst = *burstFlag
		}
	})
	return cfg, cfg.Validate()
}
