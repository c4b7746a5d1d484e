// config.go - Application configuration loaded from YAML

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk application configuration. Every value has a
// default, so a missing config file is not an error.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Audio   struct {
		TargetVolume   float64 `yaml:"target_volume"`
		FadeInSeconds  float64 `yaml:"fade_in_seconds"`
		FadeOutSeconds float64 `yaml:"fade_out_seconds"`
	} `yaml:"audio"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Sync struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"sync"`
}

func DefaultConfig() Config {
	var cfg Config
	cfg.Session = DefaultSessionConfig()
	cfg.Audio.TargetVolume = DEFAULT_TARGET_VOLUME
	cfg.Audio.FadeInSeconds = DEFAULT_FADE_IN.Seconds()
	cfg.Audio.FadeOutSeconds = DEFAULT_FADE_OUT.Seconds()
	cfg.Store.Path = defaultStorePath()
	cfg.Sync.BaseURL = ""
	return cfg
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "drift.db"
	}
	return filepath.Join(dir, "drift", "history.db")
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; a present-but-invalid file is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Session.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Audio.TargetVolume < 0 || cfg.Audio.TargetVolume > 1 {
		return cfg, fmt.Errorf("config %s: target_volume %v out of [0,1]", path, cfg.Audio.TargetVolume)
	}
	return cfg, nil
}

// AudioParams converts the config's audio block into engine parameters.
func (c Config) AudioParams() AudioParams {
	return AudioParams{
		TargetVolume: c.Audio.TargetVolume,
		FadeIn:       time.Duration(c.Audio.FadeInSeconds * float64(time.Second)),
		FadeOut:      time.Duration(c.Audio.FadeOutSeconds * float64(time.Second)),
	}
}
