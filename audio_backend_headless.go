//go:build headless

// audio_backend_headless.go - Silent audio output for headless builds

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

type OtoOutput struct {
	started bool
	src     SampleSource
}

func NewAudioOutput(sampleRate int, src SampleSource) (AudioOutput, error) {
	return &OtoOutput{src: src}, nil
}

func (o *OtoOutput) Start() {
	o.started = true
}

func (o *OtoOutput) Stop() {
	o.started = false
}

func (o *OtoOutput) Close() {
	o.started = false
}

func (o *OtoOutput) IsStarted() bool {
	return o.started
}
