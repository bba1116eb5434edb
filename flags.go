package main

import "flag"

// Command-line flags. Tuning flags only override the config file when they
// are given explicitly.
var (
	// configFlag names an optional YAML file layered over the defaults.
	configFlag = flag.String("config", "", "YAML file overriding the default fluid tuning")

	// openCLFlag selects the OpenCL device instead of the software device.
	openCLFlag = flag.Bool("opencl", false, "run the simulation on an OpenCL device (build with -tags opencl)")

	// workersFlag sizes the software device's worker pool.
	workersFlag = flag.Int("workers", 0, "software device worker goroutines (0 uses GOMAXPROCS)")

	// preferFP16Flag enables 16-bit fields on devices that support half precision.
	preferFP16Flag = flag.Bool("prefer-fp16", true, "store fields as 16-bit floats when the device supports them")

	pressureIterationsFlag = flag.Int("pressure-iterations", 0, "Jacobi iterations of the pressure solve")
	curlFlag               = flag.Float64("curl", 0, "vorticity confinement strength")
	splatRadiusFlag        = flag.Float64("splat-radius", 0, "Gaussian splat radius in normalized units")
	dyeDownsampleFlag      = flag.Int("dye-downsample", 0, "right shift from surface to dye resolution")
	simDownsampleFlag      = flag.Int("sim-downsample", 0, "right shift from surface to velocity resolution")

	// burstFlag injects random splats on the first frame.
	burstFlag = flag.Int("burst", 0, "random splats injected on the first frame")

	// transparentFlag keeps untouched regions of the window see-through.
	transparentFlag = flag.Bool("transparent", false, "use a transparent window background")

	// debugFlag enables the FPS and simulation overlay.
	debugFlag = flag.Bool("debug", false, "show FPS and simulation overlay")

	logLevelFlag = flag.String("log-level", "info", "log level: debug, info, warn or error")
	devLogFlag   = flag.Bool("dev-log", false, "write human readable console logs")

	// recordDefaultPGO drives a scripted cursor while capturing default.pgo.
	recordDefaultPGO = flag.Bool("record-default-pgo", false, "move the cursor randomly for 15s while capturing default.pgo")
)
