// Package utils collects fixtures shared by the package tests: reference
// signals, a recording transport and spectrum helpers.
package utils

import (
	"math"
	"sync"

	"fftune/internal/music"
)

// MockTransport implements the transport interface for testing.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Sent     int
	Err      error
}

// Send stores the data for later inspection instead of transmitting. Float
// slices are copied so callers may reuse their buffers.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if samples, ok := data.([]float64); ok {
		data = append([]float64(nil), samples...)
	}
	m.LastData = data
	m.Sent++
	return m.Err
}

// Count returns the number of Send calls so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent
}

// Close is a no-op.
func (m *MockTransport) Close() error { return nil }

// GenerateSineWave returns size samples of a unit sine.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	out := make([]float64, size)
	music.Sine(out, frequency, sampleRate, 0)
	return out
}

// GenerateComplexWave returns a 440 Hz tone with two weaker harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	out := make([]float64, size)
	for i := range out {
		tm := float64(i) / sampleRate
		out[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return out
}

// GenerateHarmonic returns the default harmonic tone of a MIDI note.
func GenerateHarmonic(size int, sampleRate float64, midi int) []float64 {
	return GenerateHarmonicFrequency(size, sampleRate, music.MidiToFrequency(midi))
}

// GenerateHarmonicFrequency returns the default harmonic tone of freq.
func GenerateHarmonicFrequency(size int, sampleRate, freq float64) []float64 {
	out := make([]float64, size)
	music.Harmonic(out, freq, sampleRate, 0, music.DefaultOvertones, music.DefaultDamping)
	return out
}

// GenerateChord sums the harmonic tones of all notes.
func GenerateChord(size int, sampleRate float64, notes ...int) []float64 {
	out := make([]float64, size)
	for _, n := range notes {
		for i, v := range GenerateHarmonic(size, sampleRate, n) {
			out[i] += v
		}
	}
	return out
}

// ToInt32 scales samples in [-1, 1] to full range int32 at 90% amplitude.
func ToInt32(samples []float64) []int32 {
	out := make([]int32, len(samples))
	for i, v := range samples {
		out[i] = int32(v * math.MaxInt32 * 0.9)
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
