// audio_engine.go - Playback lifecycle, gain envelopes and interruption handling

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrPlaybackFailed    = errors.New("playback failed")
)

type AudioEngineState int

const (
	ENGINE_UNINITIALIZED AudioEngineState = iota
	ENGINE_IDLE
	ENGINE_FADING_IN
	ENGINE_PLAYING
	ENGINE_FADING_OUT
	ENGINE_STOPPED
	ENGINE_SUSPENDED
)

func (s AudioEngineState) String() string {
	switch s {
	case ENGINE_UNINITIALIZED:
		return "uninitialized"
	case ENGINE_IDLE:
		return "idle"
	case ENGINE_FADING_IN:
		return "fading-in"
	case ENGINE_PLAYING:
		return "playing"
	case ENGINE_FADING_OUT:
		return "fading-out"
	case ENGINE_STOPPED:
		return "stopped"
	case ENGINE_SUSPENDED:
		return "suspended"
	}
	return "unknown"
}

const (
	DEFAULT_FADE_IN       = 2 * time.Second
	DEFAULT_FADE_OUT      = 1 * time.Second
	DEFAULT_TARGET_VOLUME = 0.8
)

// GainEnvelope is a scheduled linear gain ramp. At most one envelope is
// active per output channel; scheduling a new one replaces any pending one.
type GainEnvelope struct {
	from     float32
	to       float32
	start    time.Time
	duration time.Duration
}

// ValueAt returns the envelope gain at t, clamped to the endpoints.
func (env GainEnvelope) ValueAt(t time.Time) float32 {
	if env.duration <= 0 {
		return env.to
	}
	frac := float32(t.Sub(env.start)) / float32(env.duration)
	if frac <= 0 {
		return env.from
	}
	if frac >= 1 {
		return env.to
	}
	return env.from + (env.to-env.from)*frac
}

// DoneAt reports whether the envelope has run its full duration at t.
func (env GainEnvelope) DoneAt(t time.Time) bool {
	return !t.Before(env.start.Add(env.duration))
}

// AudioOutput is the playback device abstraction. Concrete backends are
// selected by build tag: oto for real output, a silent device under
// -tags headless, and an in-memory fake in tests.
type AudioOutput interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
}

// SampleSource is pulled by the device callback for output samples.
type SampleSource interface {
	FillBuffer(dst []float32)
}

// AudioParams holds the tunable playback settings. The reference fade
// times and volume come from the app config, not from constants baked
// into the engine.
type AudioParams struct {
	TargetVolume float64
	FadeIn       time.Duration
	FadeOut      time.Duration
}

func DefaultAudioParams() AudioParams {
	return AudioParams{
		TargetVolume: DEFAULT_TARGET_VOLUME,
		FadeIn:       DEFAULT_FADE_IN,
		FadeOut:      DEFAULT_FADE_OUT,
	}
}

// renderSnapshot is the control state the device callback renders from.
// Control operations publish a fresh snapshot atomically; the read path
// never takes the engine mutex.
type renderSnapshot struct {
	render bool
	env    *GainEnvelope
	level  float32
}

// AudioEngine owns the single output channel: its state, its gain and the
// noise generator feeding it.
//
// Locking contract: e.mu guards control state only, and the output device
// is never called while it is held. The device driver holds its own lock
// across the read callback, so calling into it under e.mu would invert
// that order and deadlock against an in-flight read. Control operations
// publish a renderSnapshot on every change; FillBuffer runs lock free
// against the latest snapshot and owns the noise state exclusively
// (device reads are serialized by the driver).
//
// Envelope completion is a timed transition. A time.AfterFunc pushes the
// transition in real time, and every control observation also advances
// lazily against the injected clock, so tests drive the machine with a
// fake clock and no sleeping. The read path only clamps a finished ramp
// to its end value; it never drives the state machine.
type AudioEngine struct {
	mu sync.Mutex

	state     AudioEngineState
	resumable bool // meaningful only while ENGINE_SUSPENDED

	target float32 // target gain for future envelopes
	level  float32 // steady gain while no envelope is active
	env    *GainEnvelope
	envSeq int // invalidates completion timers of replaced envelopes
	timer  *time.Timer

	// A completed fade-out marks the device for release here; the release
	// itself happens after e.mu is dropped.
	pendingRelease bool

	fadeIn  time.Duration
	fadeOut time.Duration

	snap  atomic.Pointer[renderSnapshot]
	noise NoiseState // owned by the device callback
	rng   *rand.Rand // owned by the device callback

	output    AudioOutput
	newOutput func(sampleRate int, src SampleSource) (AudioOutput, error)
	now       func() time.Time
	lastErr   error
	log       zerolog.Logger
}

func NewAudioEngine(params AudioParams, log zerolog.Logger) *AudioEngine {
	e := &AudioEngine{
		state:   ENGINE_UNINITIALIZED,
		target:  clampGain(float32(params.TargetVolume)),
		fadeIn:  params.FadeIn,
		fadeOut: params.FadeOut,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		log:     log.With().Str("component", "audio").Logger(),
	}
	e.newOutput = func(sampleRate int, src SampleSource) (AudioOutput, error) {
		return NewAudioOutput(sampleRate, src)
	}
	return e
}

func clampGain(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Initialize acquires the output device lazily. Calling it again once the
// device exists has no effect. Failure is non-fatal: the engine keeps
// running its state machine silently and reports ErrDeviceUnavailable.
func (e *AudioEngine) Initialize() error {
	e.mu.Lock()
	defer e.unlockAndFlush()
	return e.initializeLocked()
}

func (e *AudioEngine) initializeLocked() error {
	if e.output != nil {
		return nil
	}
	out, err := e.newOutput(SAMPLE_RATE, e)
	if err != nil {
		e.log.Warn().Err(err).Msg("audio device unavailable, session continues silent")
		if e.state == ENGINE_UNINITIALIZED {
			e.state = ENGINE_IDLE
		}
		e.lastErr = ErrDeviceUnavailable
		return ErrDeviceUnavailable
	}
	e.output = out
	e.lastErr = nil
	if e.state == ENGINE_UNINITIALIZED {
		e.state = ENGINE_IDLE
	}
	return nil
}

// Start begins (or resumes) playback with a fade-in from the current gain
// to the target volume. No-op while already Playing or FadingIn. A device
// acquisition failure is returned but the state machine still runs, so
// the session proceeds silently.
func (e *AudioEngine) Start() error {
	e.mu.Lock()
	e.advanceLocked()

	switch e.state {
	case ENGINE_PLAYING, ENGINE_FADING_IN:
		e.unlockAndFlush()
		return nil
	}

	devErr := e.initializeLocked()
	e.resumable = false
	from := e.currentGainLocked()
	e.scheduleEnvelopeLocked(from, e.target, e.fadeIn)
	e.state = ENGINE_FADING_IN
	out := e.output
	e.unlockAndFlush()

	if out != nil && !out.IsStarted() {
		out.Start()
	}
	return devErr
}

// Stop schedules a fade-out from the current gain. Only after the fade
// elapses is the device released and the state set to Stopped. Calling
// Stop again while already fading out neither restarts nor extends the
// fade. Stopping during a fade-in ramps down from the partial gain
// observed at that instant, never from the nominal target.
func (e *AudioEngine) Stop() {
	e.mu.Lock()
	defer e.unlockAndFlush()
	e.advanceLocked()

	switch e.state {
	case ENGINE_UNINITIALIZED, ENGINE_IDLE, ENGINE_STOPPED, ENGINE_FADING_OUT:
		return
	case ENGINE_SUSPENDED:
		// Already muted; nothing to ramp down.
		e.cancelEnvelopeLocked()
		e.level = 0
		e.pendingRelease = true
		e.state = ENGINE_STOPPED
		return
	}

	from := e.currentGainLocked()
	e.scheduleEnvelopeLocked(from, 0, e.fadeOut)
	e.state = ENGINE_FADING_OUT
}

// SetVolume adjusts the target gain for future envelopes. While Playing
// with no envelope in flight the new level applies immediately; an
// in-flight ramp keeps its original end value.
func (e *AudioEngine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.unlockAndFlush()
	e.advanceLocked()

	e.target = clampGain(float32(v))
	if e.state == ENGINE_PLAYING && e.env == nil {
		e.level = e.target
	}
}

// OnInterruption handles an external audio interruption. On begin the
// output is muted at once and the engine parks in Suspended with its
// buffers intact so resume is cheap. The end of the interruption does
// not resume playback: the engine stays Suspended until an explicit
// Start, matching pause-then-wait-for-user semantics.
func (e *AudioEngine) OnInterruption(begin bool) {
	e.mu.Lock()
	defer e.unlockAndFlush()
	e.advanceLocked()

	if !begin {
		return
	}
	switch e.state {
	case ENGINE_PLAYING, ENGINE_FADING_IN:
		e.cancelEnvelopeLocked()
		e.level = 0
		e.state = ENGINE_SUSPENDED
		e.resumable = true
	}
}

// ReportDeviceFailure is called by a backend when the device dies
// mid-session. The engine degrades to Stopped; the session timer is
// unaffected.
func (e *AudioEngine) ReportDeviceFailure(err error) {
	e.mu.Lock()
	defer e.unlockAndFlush()

	switch e.state {
	case ENGINE_UNINITIALIZED, ENGINE_IDLE, ENGINE_STOPPED:
		return
	}
	e.cancelEnvelopeLocked()
	e.level = 0
	e.pendingRelease = true
	e.state = ENGINE_STOPPED
	e.lastErr = ErrPlaybackFailed
	e.log.Warn().Err(err).Msg("playback failed, session continues without audio")
}

// State returns the current engine state and, when Suspended, whether it
// is resumable.
func (e *AudioEngine) State() (AudioEngineState, bool) {
	e.mu.Lock()
	defer e.unlockAndFlush()
	e.advanceLocked()
	return e.state, e.resumable
}

// CurrentGain returns the gain the output channel is running at right now.
func (e *AudioEngine) CurrentGain() float32 {
	e.mu.Lock()
	defer e.unlockAndFlush()
	e.advanceLocked()
	return e.currentGainLocked()
}

// TargetVolume returns the gain future envelopes will ramp to.
func (e *AudioEngine) TargetVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.target)
}

// Err returns the most recent non-fatal device error, if any.
func (e *AudioEngine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Close releases the output device entirely. Used on app shutdown.
func (e *AudioEngine) Close() {
	e.mu.Lock()
	e.cancelEnvelopeLocked()
	out := e.output
	e.output = nil
	e.pendingRelease = false
	e.level = 0
	e.state = ENGINE_STOPPED
	e.publishLocked()
	e.mu.Unlock()

	if out != nil {
		out.Close()
	}
}

// FillBuffer generates the next block of output samples at the current
// envelope gain. Called from the device callback thread with the driver's
// own lock held, so it must not take e.mu: it renders from the last
// published snapshot. A ramp that has already run its course is clamped
// to its end value; the state transition itself happens on the envelope
// timer or the next control observation.
func (e *AudioEngine) FillBuffer(dst []float32) {
	s := e.snap.Load()
	if s == nil || !s.render {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	if s.env != nil {
		// Evaluate the ramp per sample so fades stay click free.
		t := e.now()
		step := time.Second / SAMPLE_RATE
		for i := range dst {
			var n float32
			n, e.noise = NextNoiseSample(e.noise, e.rng)
			dst[i] = n * s.env.ValueAt(t)
			t = t.Add(step)
		}
		return
	}

	gain := s.level
	for i := range dst {
		var n float32
		n, e.noise = NextNoiseSample(e.noise, e.rng)
		dst[i] = n * gain
	}
}

func (e *AudioEngine) currentGainLocked() float32 {
	if e.env != nil {
		return e.env.ValueAt(e.now())
	}
	return e.level
}

// advanceLocked applies any timed transition whose deadline has passed
// according to the engine clock.
func (e *AudioEngine) advanceLocked() {
	if e.env != nil && e.env.DoneAt(e.now()) {
		e.completeEnvelopeLocked()
	}
}

func (e *AudioEngine) completeEnvelopeLocked() {
	to := e.env.to
	e.cancelEnvelopeLocked()
	e.level = to
	switch e.state {
	case ENGINE_FADING_IN:
		e.state = ENGINE_PLAYING
	case ENGINE_FADING_OUT:
		e.level = 0
		e.pendingRelease = true
		e.state = ENGINE_STOPPED
	}
}

// scheduleEnvelopeLocked replaces any pending envelope with a new ramp.
// O(1) bookkeeping only; no sample computation happens here.
func (e *AudioEngine) scheduleEnvelopeLocked(from, to float32, d time.Duration) {
	e.cancelEnvelopeLocked()
	e.env = &GainEnvelope{from: from, to: to, start: e.now(), duration: d}
	seq := e.envSeq
	e.timer = time.AfterFunc(d, func() { e.onEnvelopeTimer(seq) })
}

func (e *AudioEngine) cancelEnvelopeLocked() {
	e.envSeq++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.env = nil
}

func (e *AudioEngine) onEnvelopeTimer(seq int) {
	e.mu.Lock()
	defer e.unlockAndFlush()
	if seq != e.envSeq || e.env == nil {
		return
	}
	if !e.env.DoneAt(e.now()) {
		// Engine clock lags the wall timer (injected clock); the next
		// observation will complete the transition.
		return
	}
	e.completeEnvelopeLocked()
}

// publishLocked snapshots the render-relevant control state for the
// device callback.
func (e *AudioEngine) publishLocked() {
	s := &renderSnapshot{level: e.level}
	switch e.state {
	case ENGINE_FADING_IN, ENGINE_PLAYING, ENGINE_FADING_OUT:
		s.render = true
	}
	if e.env != nil {
		env := *e.env
		s.env = &env
	}
	e.snap.Store(s)
}

// unlockAndFlush publishes the render snapshot, drops e.mu, and only then
// performs any device release a completed fade-out left pending. The
// driver holds its own lock across the read callback, so an in-flight
// read would deadlock against a device call made under e.mu.
func (e *AudioEngine) unlockAndFlush() {
	e.publishLocked()
	var rel AudioOutput
	if e.pendingRelease {
		e.pendingRelease = false
		rel = e.output
	}
	e.mu.Unlock()

	if rel != nil {
		rel.Stop()
	}
}
