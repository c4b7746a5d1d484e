// audio_backend_fake_test.go - In-memory audio output and clock for tests

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type fakeOutput struct {
	mu         sync.Mutex
	started    bool
	startCalls int
	stopCalls  int
	closeCalls int
}

func (f *fakeOutput) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.startCalls++
}

func (f *fakeOutput) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.stopCalls++
}

func (f *fakeOutput) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.closeCalls++
}

func (f *fakeOutput) IsStarted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeOutput) counts() (start, stop, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls, f.closeCalls
}

// fakeClock is a manually advanced clock shared by engine and controller
// in tests, so timed transitions are driven without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(clk *fakeClock, out *fakeOutput) *AudioEngine {
	e := NewAudioEngine(DefaultAudioParams(), zerolog.Nop())
	e.now = clk.Now
	e.rng = rand.New(rand.NewSource(1))
	e.newOutput = func(sampleRate int, src SampleSource) (AudioOutput, error) {
		return out, nil
	}
	return e
}
