package music

import "math"

// Default partial layout of Harmonic: nine partials with linear damping down
// to 40% of the fundamental.
const (
	DefaultOvertones = 10
	DefaultDamping   = 0.4
)

// Sine fills dst with a unit sine of freq starting at sample offset.
func Sine(dst []float64, freq, sampleRate float64, offset int) {
	step := 2 * math.Pi * freq / sampleRate
	for i := range dst {
		dst[i] = math.Sin(step * float64(offset+i))
	}
}

// Harmonic fills dst with partials 1..overtones-1 of freq0, damped linearly
// from 1 down to damping and normalized by the partial count.
func Harmonic(dst []float64, freq0, sampleRate float64, offset, overtones int, damping float64) {
	if overtones < 2 {
		clear(dst)
		return
	}
	partials := float64(overtones - 1)
	step := 2 * math.Pi * freq0 / sampleRate
	for i := range dst {
		t := step * float64(offset+i)
		sum := 0.0
		for o := 1; o < overtones; o++ {
			weight := 1 - float64(o-1)/partials*(1-damping)
			sum += weight * math.Sin(float64(o)*t)
		}
		dst[i] = sum / partials
	}
}

// MeanVolume is the mean absolute sample value.
func MeanVolume(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range samples {
		sum += math.Abs(v)
	}
	return sum / float64(len(samples))
}

// MatchVolume scales samples in place so their mean volume equals volume.
// Silent input is left untouched.
func MatchVolume(samples []float64, volume float64) {
	current := MeanVolume(samples)
	if current == 0 {
		return
	}
	scale := volume / current
	for i := range samples {
		samples[i] *= scale
	}
}

// PeakDB returns the largest absolute sample in dBFS.
func PeakDB(samples []float64) float64 {
	peak := 0.0
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	return 20 * math.Log10(math.Max(peak, math.SmallestNonzeroFloat64))
}
