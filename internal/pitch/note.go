// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"strings"

	"fftune/internal/music"
)

// Estimate is a continuous pitch found in one analysis window.
type Estimate struct {
	Frequency  float64 // Hz
	Magnitude  float64 // dB
	Confidence float64 // [0, 1]
}

// Note maps the estimate onto the piano keyboard. The velocity follows the
// magnitude.
func (e Estimate) Note() Note {
	return Note{
		Midi:       music.FrequencyToMidi(e.Frequency),
		Velocity:   music.MagnitudeToVelocity(e.Magnitude),
		Confidence: e.Confidence,
		Intonation: music.Intonation(e.Frequency),
	}
}

// Note is a discrete detected note.
type Note struct {
	Midi       int
	Velocity   int     // 0..127
	Confidence float64 // [0, 1]
	Intonation float64 // semitones from equal temperament, [-0.5, 0.5]
}

// Valid reports whether the note lies on the piano keyboard.
func (n Note) Valid() bool {
	return music.ValidMidi(n.Midi)
}

// Name is the pitch class and octave, e.g. "A4".
func (n Note) Name() string {
	return music.Name(n.Midi)
}

func (n Note) String() string {
	return fmt.Sprintf("%s %+.2f (%.2f)", n.Name(), n.Intonation, n.Confidence)
}

// Notes holds the voices detected in one window, most prominent first.
type Notes []Note

// Contains reports whether a voice plays midi.
func (ns Notes) Contains(midi int) bool {
	for _, n := range ns {
		if n.Midi == midi {
			return true
		}
	}
	return false
}

// Midis returns the MIDI numbers in order.
func (ns Notes) Midis() []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = n.Midi
	}
	return out
}

func (ns Notes) String() string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
