// noise_gen.go - Brown noise synthesis via leaky integrator

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import "math/rand"

const (
	// Leaky integrator coefficient. Higher values let more white noise
	// through per step and brighten the spectrum.
	NOISE_SMOOTHING = 0.02

	// The integrator attenuates heavily at this smoothing value, so the
	// output is boosted back into a usable range.
	NOISE_GAIN_COMP = 3.5

	// Overall level trim. The noise bed sits under a session, it is not
	// meant to be heard as a signal in its own right.
	NOISE_SUBTLETY = 0.1

	SAMPLE_RATE = 44100
)

// NoiseState is the complete filter state of the brown noise generator.
// It is passed and returned explicitly: two generators seeded with the
// same random source and state produce identical sample sequences.
type NoiseState struct {
	lastOut float64
}

// NextNoiseSample advances the leaky integrator by one sample.
// white ∈ [-1,1] is drawn from rng; the new integrator output is
// (lastOut + k*white) / (1+k), scaled into the output range.
func NextNoiseSample(state NoiseState, rng *rand.Rand) (float32, NoiseState) {
	white := rng.Float64()*2 - 1
	state.lastOut = (state.lastOut + NOISE_SMOOTHING*white) / (1 + NOISE_SMOOTHING)
	sample := float32(state.lastOut * NOISE_GAIN_COMP * NOISE_SUBTLETY)
	return sample, state
}

// FillNoiseBlock fills dst with consecutive samples and returns the
// advanced filter state. Output is bit-identical to len(dst) calls to
// NextNoiseSample with the same starting state and random source, so
// fixed-size loop buffers and streaming pulls can be mixed freely.
func FillNoiseBlock(dst []float32, state NoiseState, rng *rand.Rand) NoiseState {
	for i := range dst {
		dst[i], state = NextNoiseSample(state, rng)
	}
	return state
}
