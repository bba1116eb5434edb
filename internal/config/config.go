package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds every tunable of the fluid effect. It is fixed once the effect
// starts; nothing in the simulation mutates it.
type Config struct {
	// DyeDownsample and SimDownsample are right shifts applied to the surface
	// size to obtain the dye and velocity/pressure resolutions.
	DyeDownsample int `yaml:"dye_downsample"`
	SimDownsample int `yaml:"sim_downsample"`

	DensityDissipation  float32 `yaml:"density_dissipation"`
	VelocityDissipation float32 `yaml:"velocity_dissipation"`
	PressureDissipation float32 `yaml:"pressure_dissipation"`
	PressureIterations  int     `yaml:"pressure_iterations"`

	// Curl scales the vorticity confinement force.
	Curl        float32 `yaml:"curl"`
	SplatRadius float32 `yaml:"splat_radius"`

	// ForceMultiplier scales pointer deltas (surface pixels) into injected velocity.
	ForceMultiplier float32 `yaml:"force_multiplier"`
	// ColorChangeEvents rotates the injected color after this many movement
	// events; zero disables counting.
	ColorChangeEvents int `yaml:"color_change_events"`
	// ColorChangeChance is an additional per-event probability of rotating the color.
	ColorChangeChance float64 `yaml:"color_change_chance"`
	// DyeSplatScale attenuates pointer colors before they are added to the dye.
	DyeSplatScale float32 `yaml:"dye_splat_scale"`

	MaxTimestep   float32 `yaml:"max_timestep"`
	MaxPixelRatio float64 `yaml:"max_pixel_ratio"`
	MaxContacts   int     `yaml:"max_contacts"`

	PreferHalfFloat bool `yaml:"prefer_half_float"`
	InitialBurst    int  `yaml:"initial_burst"`
}

// Default returns the stock cursor effect tuning.
func Default() Config {
	return Config{
		DyeDownsample:       1,
		SimDownsample:       2,
		DensityDissipation:  0.98,
		VelocityDissipation: 0.99,
		PressureDissipation: 0.8,
		PressureIterations:  25,
		Curl:                35,
		SplatRadius:         0.002,
		ForceMultiplier:     10,
		ColorChangeEvents:   25,
		ColorChangeChance:   0,
		DyeSplatScale:       0.3,
		MaxTimestep:         0.016,
		MaxPixelRatio:       2,
		MaxContacts:         10,
		PreferHalfFloat:     true,
		InitialBurst:        0,
	}
}

// Load overlays the YAML document at path onto the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first value the simulation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.DyeDownsample < 0 || c.DyeDownsample > 8:
		return fmt.Errorf("%w: dye_downsample %d outside [0,8]", ErrInvalid, c.DyeDownsample)
	case c.SimDownsample < 0 || c.SimDownsample > 8:
		return fmt.Errorf("%w: sim_downsample %d outside [0,8]", ErrInvalid, c.SimDownsample)
	case !unitInterval(c.DensityDissipation):
		return fmt.Errorf("%w: density_dissipation %g outside (0,1]", ErrInvalid, c.DensityDissipation)
	case !unitInterval(c.VelocityDissipation):
		return fmt.Errorf("%w: velocity_dissipation %g outside (0,1]", ErrInvalid, c.VelocityDissipation)
	case !unitInterval(c.PressureDissipation):
		return fmt.Errorf("%w: pressure_dissipation %g outside (0,1]", ErrInvalid, c.PressureDissipation)
	case c.PressureIterations < 0:
		return fmt.Errorf("%w: pressure_iterations %d is negative", ErrInvalid, c.PressureIterations)
	case c.Curl < 0:
		return fmt.Errorf("%w: curl %g is negative", ErrInvalid, c.Curl)
	case c.SplatRadius <= 0:
		return fmt.Errorf("%w: splat_radius must be positive", ErrInvalid)
	case c.ColorChangeEvents < 0:
		return fmt.Errorf("%w: color_change_events %d is negative", ErrInvalid, c.ColorChangeEvents)
	case c.ColorChangeChance < 0 || c.ColorChangeChance > 1:
		return fmt.Errorf("%w: color_change_chance %g outside [0,1]", ErrInvalid, c.ColorChangeChance)
	case c.MaxTimestep <= 0:
		return fmt.Errorf("%w: max_timestep must be positive", ErrInvalid)
	case c.MaxPixelRatio < 1:
		return fmt.Errorf("%w: max_pixel_ratio %g below 1", ErrInvalid, c.MaxPixelRatio)
	case c.MaxContacts < 1:
		return fmt.Errorf("%w: max_contacts %d below 1", ErrInvalid, c.MaxContacts)
	case c.InitialBurst < 0:
		return fmt.Errorf("%w: initial_burst %d is negative", ErrInvalid, c.InitialBurst)
	}
	return nil
}

func unitInterval(v float32) bool {
	return v > 0 && v <= 1
}
