package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero velocity dissipation", func(c *Config) { c.VelocityDissipation = 0 }},
		{"density dissipation above one", func(c *Config) { c.DensityDissipation = 1.01 }},
		{"negative iterations", func(c *Config) { c.PressureIterations = -1 }},
		{"huge downsample", func(c *Config) { c.DyeDownsample = 9 }},
		{"zero radius", func(c *Config) { c.SplatRadius = 0 }},
		{"no timestep", func(c *Config) { c.MaxTimestep = 0 }},
		{"pixel ratio below one", func(c *Config) { c.MaxPixelRatio = 0.5 }},
		{"no contacts", func(c *Config) { c.MaxContacts = 0 }},
		{"chance above one", func(c *Config) { c.ColorChangeChance = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fluid.yaml")
	doc := "pressure_iterations: 40\ncurl: 10\nprefer_half_float: false\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.PressureIterations)
	assert.Equal(t, float32(10), cfg.Curl)
	assert.False(t, cfg.PreferHalfFloat)
	assert.Equal(t, Default().DensityDissipation, cfg.DensityDissipation)
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("velocity_dissipation: 3\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
