package pitch

import (
	"slices"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/fft"
	"fftune/internal/music"
)

type combStep struct {
	step int
	sum  float64
}

// DoubleFFT sums the flattened spectrum at every step-th bin. The sum peaks
// at the step matching the harmonic spacing of a fundamental. Only positive
// sums are combs; a window without one holds a single partial, which is
// reported from the loudest bin.
type DoubleFFT struct {
	spectrum
	flat  fft.Bins
	steps []combStep
}

// NewDoubleFFT allocates the double-fft detector.
func NewDoubleFFT(cfg config.DetectorConfig) (*DoubleFFT, error) {
	s, err := newSpectrum(cfg)
	if err != nil {
		return nil, err
	}
	return &DoubleFFT{
		spectrum: s,
		flat:     make(fft.Bins, len(s.bins)),
		steps:    make([]combStep, 0, len(s.bins)/2),
	}, nil
}

func (d *DoubleFFT) Detect(buf *buffer.SampleBuffer) Notes {
	bins, ok := d.analyze(buf)
	if !ok {
		return nil
	}
	flat := d.flat[:len(bins)]
	copy(flat, bins)
	fft.NormalizeLocalDeviation(flat)

	steps := d.steps[:0]
	for s := 1; s < len(flat)/2; s++ {
		if !music.ValidFrequency(bins[s].Frequency) {
			continue
		}
		sum := 0.0
		for k := 0; k < len(flat); k += s {
			sum += flat[k].Magnitude
		}
		steps = append(steps, combStep{step: s, sum: sum})
	}
	d.steps = steps

	slices.SortStableFunc(steps, func(a, b combStep) int {
		switch {
		case a.sum > b.sum:
			return -1
		case a.sum < b.sum:
			return 1
		}
		return 0
	})

	notes := make(Notes, 0, d.poly)
	for _, st := range steps {
		if len(notes) == d.poly || st.sum <= 0 {
			break
		}
		n := d.estimate(st.step, bins[st.step].Magnitude, 1).Note()
		if n.Valid() && !notes.Contains(n.Midi) {
			notes = append(notes, n)
		}
	}
	if len(notes) == 0 {
		if peak := bins.Peak(); peak > 0 {
			if n := d.estimate(peak, bins[peak].Magnitude, 1).Note(); n.Valid() {
				notes = append(notes, n)
			}
		}
	}
	return notes
}
