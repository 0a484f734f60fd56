package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingPathReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embervm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gc_threshold: 1024\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1024, cfg.GCThreshold)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().FiberStackDepth, cfg.FiberStackDepth)
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embervm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gc_threshold: [1, 2"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
