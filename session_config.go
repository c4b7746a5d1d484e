// session_config.go - Session timing configuration and phase derivation

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import "fmt"

// SessionConfig holds the phase thresholds of a guided session, in whole
// seconds of elapsed time. Invariant: 0 < entry end < immersion end < total.
type SessionConfig struct {
	TotalSeconds        int `yaml:"total_seconds"`
	EntryEndSeconds     int `yaml:"entry_end_seconds"`
	ImmersionEndSeconds int `yaml:"immersion_end_seconds"`
}

// DefaultSessionConfig is the stock 20 minute session: 2 minutes of entry,
// 16 of immersion, 2 of return.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TotalSeconds:        1200,
		EntryEndSeconds:     120,
		ImmersionEndSeconds: 1080,
	}
}

func (c SessionConfig) Validate() error {
	if c.EntryEndSeconds <= 0 {
		return fmt.Errorf("entry end must be positive, got %d", c.EntryEndSeconds)
	}
	if c.ImmersionEndSeconds <= c.EntryEndSeconds {
		return fmt.Errorf("immersion end %d must exceed entry end %d", c.ImmersionEndSeconds, c.EntryEndSeconds)
	}
	if c.TotalSeconds <= c.ImmersionEndSeconds {
		return fmt.Errorf("total %d must exceed immersion end %d", c.TotalSeconds, c.ImmersionEndSeconds)
	}
	return nil
}

type SessionPhase int

const (
	PHASE_IDLE SessionPhase = iota
	PHASE_ENTRY
	PHASE_IMMERSION
	PHASE_RETURN
	PHASE_COMPLETED
	PHASE_ABORTED
)

func (p SessionPhase) String() string {
	switch p {
	case PHASE_IDLE:
		return "idle"
	case PHASE_ENTRY:
		return "entry"
	case PHASE_IMMERSION:
		return "immersion"
	case PHASE_RETURN:
		return "return"
	case PHASE_COMPLETED:
		return "completed"
	case PHASE_ABORTED:
		return "aborted"
	}
	return "unknown"
}

// PhaseForElapsed derives the phase purely from elapsed time. Thresholds
// are inclusive on the lower bound and exclusive on the upper bound, so a
// tick landing exactly on a threshold belongs to the next phase.
func PhaseForElapsed(cfg SessionConfig, elapsedSeconds int) SessionPhase {
	switch {
	case elapsedSeconds < cfg.EntryEndSeconds:
		return PHASE_ENTRY
	case elapsedSeconds < cfg.ImmersionEndSeconds:
		return PHASE_IMMERSION
	case elapsedSeconds < cfg.TotalSeconds:
		return PHASE_RETURN
	}
	return PHASE_COMPLETED
}
