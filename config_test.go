// config_test.go - Configuration loading tests

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultSessionConfig(), cfg.Session)
	assert.Equal(t, DEFAULT_TARGET_VOLUME, cfg.Audio.TargetVolume)
	assert.Equal(t, DEFAULT_FADE_IN, cfg.AudioParams().FadeIn)
	assert.Equal(t, DEFAULT_FADE_OUT, cfg.AudioParams().FadeOut)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  total_seconds: 600
  entry_end_seconds: 60
  immersion_end_seconds: 540
audio:
  target_volume: 0.5
  fade_in_seconds: 1.5
  fade_out_seconds: 0.5
sync:
  base_url: https://example.test/api
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.Session.TotalSeconds)
	assert.Equal(t, 60, cfg.Session.EntryEndSeconds)
	assert.Equal(t, 540, cfg.Session.ImmersionEndSeconds)
	assert.Equal(t, 0.5, cfg.Audio.TargetVolume)
	assert.Equal(t, 1500*time.Millisecond, cfg.AudioParams().FadeIn)
	assert.Equal(t, 500*time.Millisecond, cfg.AudioParams().FadeOut)
	assert.Equal(t, "https://example.test/api", cfg.Sync.BaseURL)
}

func TestLoadConfigRejectsBadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  total_seconds: 100
  entry_end_seconds: 90
  immersion_end_seconds: 50
`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
audio:
  target_volume: 1.5
`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
