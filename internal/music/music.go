// SPDX-License-Identifier: MIT

// Package music converts between frequencies, MIDI notes and velocities, and
// generates the reference tones used to exercise the detectors.
package music

import (
	"math"
	"strconv"
)

const (
	MidiA4      = 69    // MIDI number of concert A
	FreqA4      = 440.0 // Hz
	MidiMin     = 21    // lowest piano key, A0
	MidiMax     = 108   // highest piano key, C8
	MidiInvalid = -1
	MidiRange   = MidiMax - MidiMin + 1

	VelocityMin     = 0
	VelocityMax     = 127
	VelocityDefault = 80

	// SemitoneRatio is 2^(1/12), the frequency ratio of one equal-tempered step.
	SemitoneRatio = 1.059463094359295

	// Magnitudes at or below MagnitudeFloor map to VelocityMin, at or above
	// MagnitudeCeil to VelocityMax.
	MagnitudeFloor = -60.0 // dB
	MagnitudeCeil  = 0.0   // dB

	maxVolume = 0.02
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// MidiFloat maps a frequency onto the continuous MIDI scale.
func MidiFloat(freq float64) float64 {
	return MidiA4 + 12*math.Log2(freq/FreqA4)
}

// FrequencyToMidi returns the nearest MIDI note. Non-positive frequencies
// yield MidiInvalid.
func FrequencyToMidi(freq float64) int {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return MidiInvalid
	}
	return int(math.Round(MidiFloat(freq)))
}

// Intonation returns how far freq sits from its nearest note, in semitones,
// within [-0.5, 0.5].
func Intonation(freq float64) float64 {
	if !(freq > 0) {
		return 0
	}
	m := MidiFloat(freq)
	return m - math.Round(m)
}

// MidiToFrequency returns the equal-tempered frequency of a MIDI note.
func MidiToFrequency(midi int) float64 {
	return FreqA4 * math.Pow(2, float64(midi-MidiA4)/12)
}

// ValidMidi reports whether midi is a piano key.
func ValidMidi(midi int) bool {
	return midi >= MidiMin && midi <= MidiMax
}

// ValidFrequency reports whether freq rounds to a piano key.
func ValidFrequency(freq float64) bool {
	return ValidMidi(FrequencyToMidi(freq))
}

// SameNote reports whether both frequencies round to the same MIDI note.
func SameNote(f1, f2 float64) bool {
	return FrequencyToMidi(f1) == FrequencyToMidi(f2)
}

// WavelengthToFrequency converts a period in samples to Hz.
func WavelengthToFrequency(tau, sampleRate float64) float64 {
	return sampleRate / tau
}

// FrequencyToWavelength converts Hz to a period in samples.
func FrequencyToWavelength(freq, sampleRate float64) float64 {
	return sampleRate / freq
}

// MagnitudeToVelocity maps a dB magnitude linearly onto the velocity range,
// clamped at both ends.
func MagnitudeToVelocity(magnitude float64) int {
	if math.IsNaN(magnitude) {
		return VelocityMin
	}
	scale := (magnitude - MagnitudeFloor) / (MagnitudeCeil - MagnitudeFloor)
	scale = math.Max(0, math.Min(1, scale))
	return VelocityMin + int(math.Round(scale*(VelocityMax-VelocityMin)))
}

// VolumeToVelocity maps a mean absolute sample value onto 60..120.
func VolumeToVelocity(v float64) int {
	scale := math.Min(v/maxVolume, 1)
	if scale < 0 || math.IsNaN(scale) {
		scale = 0
	}
	return 60 + int(60*scale)
}

// Name renders a note as pitch class and octave, e.g. "A4".
func Name(midi int) string {
	if !ValidMidi(midi) {
		return "Invalid Midi " + strconv.Itoa(midi)
	}
	return noteNames[midi%12] + strconv.Itoa(midi/12-1)
}
