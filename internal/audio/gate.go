// SPDX-License-Identifier: MIT
package audio

import "math"

// The gate compares the peak amplitude of each callback against a fraction
// of full scale. A closed gate feeds silence to the detector so the note
// clock keeps running.

func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	threshold = math.Max(0, math.Min(threshold, 1))
	e.gateThreshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// GetGateThreshold returns the current noise gate threshold in 0.0-1.0.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold.Load()) / float64(math.MaxInt32)
}

// gateOpen reports whether buf passes the gate.
func (e *Engine) gateOpen(buf []int32) bool {
	if !e.gateEnabled.Load() {
		return true
	}
	return peakAmplitude(buf) > e.gateThreshold.Load()
}

// peakAmplitude is the largest absolute sample, computed without branches.
// The magnitude of math.MinInt32 saturates to math.MaxInt32.
func peakAmplitude(buf []int32) int32 {
	var peak int32
	for _, sample := range buf {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		amplitude += amplitude >> 31 & (amplitude ^ math.MaxInt32) // saturate MinInt32
		diff := amplitude - peak
		peak += diff &^ (diff >> 31)
	}
	return peak
}
