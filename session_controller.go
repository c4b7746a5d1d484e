// session_controller.go - Phase/timer state machine driving the audio engine

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyActive     = errors.New("session already active")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// RecordSink receives the finalized record of a session exactly once, at
// session end. HistoryStore is the production sink.
type RecordSink interface {
	Append(rec SessionRecord) error
}

// SessionController runs the Entry/Immersion/Return phase machine.
//
// Elapsed time is always recomputed from wall-clock timestamps, never
// accumulated by counting tick callbacks: the host process may be
// suspended for minutes between ticks, and only the timestamp delta
// recovers the true elapsed time on resume. The only stored clock state
// is the start timestamp of the current running stretch plus the
// duration accumulated before the last pause.
type SessionController struct {
	mu     sync.Mutex
	engine *AudioEngine
	sink   RecordSink
	now    func() time.Time
	log    zerolog.Logger

	cfg         SessionConfig
	active      bool
	paused      bool
	aborted     bool // an abort not yet observed by Tick
	wallStart   time.Time     // session start, kept for the record
	startedAt   time.Time     // base of the current running stretch
	accumulated time.Duration // elapsed before the last pause
	source      string
}

func NewSessionController(engine *AudioEngine, sink RecordSink, log zerolog.Logger) *SessionController {
	return &SessionController{
		engine: engine,
		sink:   sink,
		now:    time.Now,
		log:    log.With().Str("component", "session").Logger(),
	}
}

// Start begins a session from Idle. source tags where the request came
// from ("manual" or "tag"). A missing audio device is logged and the
// session proceeds silently.
func (sc *SessionController) Start(cfg SessionConfig, source string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.active {
		return ErrAlreadyActive
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := sc.now()
	sc.cfg = cfg
	sc.source = source
	sc.wallStart = now
	sc.startedAt = now
	sc.accumulated = 0
	sc.paused = false
	sc.aborted = false
	sc.active = true

	if err := sc.engine.Start(); err != nil {
		sc.log.Warn().Err(err).Msg("session starting without audio")
	}
	sc.log.Info().
		Str("source", source).
		Int("total_seconds", cfg.TotalSeconds).
		Msg("session started")
	return nil
}

// Pause freezes the elapsed clock and stops the audio bed. Pausing while
// the engine is suspended by an interruption is a no-op: the session is
// already effectively paused from the listener's point of view.
func (sc *SessionController) Pause() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.active {
		return ErrInvalidTransition
	}
	if sc.paused {
		return nil
	}
	if st, _ := sc.engine.State(); st == ENGINE_SUSPENDED {
		return nil
	}

	sc.accumulated += sc.now().Sub(sc.startedAt)
	sc.paused = true
	sc.engine.Stop()
	sc.log.Info().Int("elapsed", sc.elapsedLocked()).Msg("session paused")
	return nil
}

// Resume re-bases the running stretch on the current wall clock, offset
// by the frozen accumulation, and restarts the audio bed.
func (sc *SessionController) Resume() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.active || !sc.paused {
		return ErrInvalidTransition
	}

	sc.startedAt = sc.now()
	sc.paused = false
	if err := sc.engine.Start(); err != nil {
		sc.log.Warn().Err(err).Msg("session resuming without audio")
	}
	sc.log.Info().Int("elapsed", sc.elapsedLocked()).Msg("session resumed")
	return nil
}

// Tick recomputes elapsed time from the wall clock and derives the phase.
// Callers may tick at any cadence, including after arbitrarily long gaps;
// a 5 minute background gap shows up as 5 minutes elapsed. On the tick
// that crosses the total duration the session finishes: the audio bed is
// stopped exactly once and one completed record is emitted.
func (sc *SessionController) Tick() SessionPhase {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.active {
		if sc.aborted {
			sc.aborted = false
			return PHASE_ABORTED
		}
		return PHASE_IDLE
	}
	phase := PhaseForElapsed(sc.cfg, sc.elapsedLocked())
	if phase == PHASE_COMPLETED {
		sc.finishLocked(true, sc.cfg.TotalSeconds)
	}
	return phase
}

// Abort ends the session early, emitting a record with completed=false
// and the elapsed time at the moment of abort. The controller reports
// Aborted until the next Tick observes it, then settles in Idle.
func (sc *SessionController) Abort() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.active {
		return ErrInvalidTransition
	}
	elapsed := sc.elapsedLocked()
	if elapsed > sc.cfg.TotalSeconds {
		elapsed = sc.cfg.TotalSeconds
	}
	sc.finishLocked(false, elapsed)
	sc.aborted = true
	return nil
}

// OnInterruption forwards an external audio interruption to the engine.
// The session clock keeps running; only playback suspends.
func (sc *SessionController) OnInterruption(begin bool) {
	sc.engine.OnInterruption(begin)
}

// Phase derives the current phase; after an abort it reports Aborted
// until a Tick observes it, otherwise Idle when no session is active.
func (sc *SessionController) Phase() SessionPhase {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.active {
		if sc.aborted {
			return PHASE_ABORTED
		}
		return PHASE_IDLE
	}
	return PhaseForElapsed(sc.cfg, sc.elapsedLocked())
}

// Elapsed returns whole seconds elapsed in the active session.
func (sc *SessionController) Elapsed() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.active {
		return 0
	}
	return sc.elapsedLocked()
}

// Remaining returns whole seconds until the session completes.
func (sc *SessionController) Remaining() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.active {
		return 0
	}
	r := sc.cfg.TotalSeconds - sc.elapsedLocked()
	if r < 0 {
		r = 0
	}
	return r
}

func (sc *SessionController) Paused() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.active && sc.paused
}

func (sc *SessionController) elapsedLocked() int {
	d := sc.accumulated
	if !sc.paused {
		d += sc.now().Sub(sc.startedAt)
	}
	if d < 0 {
		d = 0
	}
	return int(d / time.Second)
}

func (sc *SessionController) finishLocked(completed bool, elapsedSeconds int) {
	sc.active = false
	sc.paused = false
	sc.engine.Stop()

	rec := SessionRecord{
		ID:             uuid.NewString(),
		StartedAt:      sc.wallStart,
		ElapsedSeconds: elapsedSeconds,
		Completed:      completed,
		SyncState:      SYNC_PENDING,
	}
	if err := sc.sink.Append(rec); err != nil {
		// The session itself ended cleanly either way; losing the record
		// is a storage problem, not a session problem.
		sc.log.Error().Err(err).Str("id", rec.ID).Msg("failed to persist session record")
	}
	sc.log.Info().
		Str("id", rec.ID).
		Str("source", sc.source).
		Int("elapsed", elapsedSeconds).
		Bool("completed", completed).
		Msg("session finished")
}
