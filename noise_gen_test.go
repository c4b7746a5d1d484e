// noise_gen_test.go - Brown noise generator tests

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"math"
	"math/rand"
	"testing"
)

func TestNoiseDeterministicUnderFixedSeed(t *testing.T) {
	const n = 10000

	runA := make([]float32, n)
	runB := make([]float32, n)

	var state NoiseState
	rng := rand.New(rand.NewSource(42))
	for i := range runA {
		runA[i], state = NextNoiseSample(state, rng)
	}

	state = NoiseState{}
	rng = rand.New(rand.NewSource(42))
	for i := range runB {
		runB[i], state = NextNoiseSample(state, rng)
	}

	for i := range runA {
		if runA[i] != runB[i] {
			t.Fatalf("sample %d diverged: %v vs %v", i, runA[i], runB[i])
		}
	}
}

func TestNoiseBoundedOutput(t *testing.T) {
	const (
		n     = 10000
		bound = 0.35
	)

	var state NoiseState
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		var s float32
		s, state = NextNoiseSample(state, rng)
		if s < -bound || s > bound {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
	}
}

func TestNoiseBlockMatchesIncremental(t *testing.T) {
	const n = 4096

	block := make([]float32, n)
	FillNoiseBlock(block, NoiseState{}, rand.New(rand.NewSource(99)))

	var state NoiseState
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < n; i++ {
		var s float32
		s, state = NextNoiseSample(state, rng)
		if s != block[i] {
			t.Fatalf("sample %d: block %v != incremental %v", i, block[i], s)
		}
	}
}

func TestNoiseBlockReturnsAdvancedState(t *testing.T) {
	const n = 512

	// Generating two blocks back to back must equal one long block.
	long := make([]float32, 2*n)
	FillNoiseBlock(long, NoiseState{}, rand.New(rand.NewSource(5)))

	split := make([]float32, 2*n)
	rng := rand.New(rand.NewSource(5))
	state := FillNoiseBlock(split[:n], NoiseState{}, rng)
	FillNoiseBlock(split[n:], state, rng)

	for i := range long {
		if long[i] != split[i] {
			t.Fatalf("sample %d: continuous %v != split %v", i, long[i], split[i])
		}
	}
}

func TestNoiseStepSizeIsGentle(t *testing.T) {
	// The leaky integrator limits how far adjacent samples can jump:
	// |delta| <= k/(1+k) * (1 + |white|) scaled, comfortably under 0.015.
	const n = 10000

	var state NoiseState
	rng := rand.New(rand.NewSource(3))
	var prev float32
	for i := 0; i < n; i++ {
		var s float32
		s, state = NextNoiseSample(state, rng)
		if i > 0 {
			if d := math.Abs(float64(s - prev)); d > 0.015 {
				t.Fatalf("sample %d jumped by %v", i, d)
			}
		}
		prev = s
	}
}
