// SPDX-License-Identifier: MIT
package pitch

import (
	"slices"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/fft"
)

// spectrum is the transform state shared by the frequency domain
// algorithms.
type spectrum struct {
	transform *fft.Transform
	bins      fft.Bins
	poly      int
}

func newSpectrum(cfg config.DetectorConfig) (spectrum, error) {
	t, err := fft.NewTransform(cfg.BufferSize, cfg.SampleRate,
		fft.WithWindow(cfg.Window), fft.WithHeuristic(cfg.Heuristic))
	if err != nil {
		return spectrum{}, err
	}
	return spectrum{
		transform: t,
		bins:      make(fft.Bins, t.BinsSize()),
		poly:      cfg.MaxPolyphony,
	}, nil
}

// analyze transforms buf into the shared spectrum. It reports false for a
// silent window, which has no pitch.
func (s *spectrum) analyze(buf *buffer.SampleBuffer) (fft.Bins, bool) {
	s.bins = s.transform.DetectInto(s.bins, buf.Data())
	return s.bins, !silent(buf.Data())
}

func silent(samples []float64) bool {
	for _, v := range samples {
		if v != 0 {
			return false
		}
	}
	return true
}

// estimate refines bin index of the last analyzed window.
func (s *spectrum) estimate(index int, magnitude, confidence float64) Estimate {
	return Estimate{
		Frequency:  s.transform.Refine(index),
		Magnitude:  magnitude,
		Confidence: confidence,
	}
}

// Transform exposes the spectral transform, e.g. for exporting spectra.
func (s *spectrum) Transform() *fft.Transform { return s.transform }

// Spectrum returns the spectrum of the last analyzed window.
func (s *spectrum) Spectrum() fft.Bins { return s.bins }

// sortLoudestFirst orders bins by magnitude, loudest first, keeping the order
// of equal ones.
func sortLoudestFirst(b fft.Bins) {
	slices.SortStableFunc(b, func(x, y fft.Bin) int {
		switch {
		case x.Magnitude > y.Magnitude:
			return -1
		case x.Magnitude < y.Magnitude:
			return 1
		}
		return 0
	})
}
