// SPDX-License-Identifier: MIT

// Package synth renders reference tones for the synthesis-and-compare
// detector. A ToneGenerator is initialized once with the analysis size and
// sample rate, then repeatedly told which notes sound and asked for one
// window of audio.
package synth

import "fftune/internal/log"

// ToneGenerator renders a chord of MIDI notes into fixed-size windows.
type ToneGenerator interface {
	// Init sizes the generator. It must be called before Start and Render.
	Init(size int, sampleRate float64) error
	// Start resets all voices and sounds notes.
	Start(notes []int)
	// Render fills dst, which holds size samples, with the current chord
	// after its attack has settled.
	Render(dst []float64)
}

// settleBlocks is the number of windows skipped before rendering so that
// attacks do not dominate the comparison.
const settleBlocks = 2

// New returns a Sampler playing the WAV instrument at path, or the harmonic
// fallback when path is empty or cannot be loaded.
func New(path string, rootNote int) ToneGenerator {
	if path == "" {
		return NewHarmonic()
	}
	s, err := LoadSampler(path, rootNote)
	if err != nil {
		log.Warnf("synth: falling back to harmonic tones: %v", err)
		return NewHarmonic()
	}
	return s
}
