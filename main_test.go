package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fluid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("curl: 12\npressure_iterations: 40\n"), 0o600))

	require.NoError(t, flag.CommandLine.Set("config", path))
	require.NoError(t, flag.CommandLine.Set("curl", "3"))
	t.Cleanup(func() {
		*configFlag = ""
		*curlFlag = 0
	})

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, float32(3), cfg.Curl, "explicit flag wins over the file")
	assert.Equal(t, 40, cfg.PressureIterations, "file value kept when the flag is unset")
}

func TestAutopilotStaysOnSurface(t *testing.T) {
	a := newAutopilot(time.Minute)
	for i := 0; i < 2000; i++ {
		x, y, ok := a.next(320, 200)
		require.True(t, ok)
		assert.True(t, x > 0 && x < 320, "x=%v", x)
		assert.True(t, y > 0 && y < 200, "y=%v", y)
	}

	_, _, ok := a.next(0, 200)
	assert.False(t, ok)

	expired := newAutopilot(-time.Second)
	assert.True(t, expired.done())
	_, _, ok = expired.next(320, 200)
	assert.False(t, ok)
}
