package pitch

import (
	"math"
	"slices"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/fft"
	"fftune/internal/music"
)

const (
	// combFactor is how much louder than the current pick, in dB relative
	// to it, a lower bin may be and still replace it as the fundamental.
	combFactor = 1.1
	// combTolerance bounds the distance of a frequency ratio from an
	// integer for two bins to be harmonically related.
	combTolerance = (music.SemitoneRatio - 1) / 0.25
)

// FastComb starts from the loudest bin and moves down to a subharmonic when
// one is nearly as loud. Each picked voice suppresses its harmonics before
// the next voice is searched. Partials shared by two voices can outweigh both
// fundamentals, so a pick that turns out to be a partial of a later voice is
// replaced by another search.
type FastComb struct {
	spectrum
	sorted fft.Bins
	picked []float64 // refined frequency of each note
}

// NewFastComb allocates the fast-comb detector.
func NewFastComb(cfg config.DetectorConfig) (*FastComb, error) {
	s, err := newSpectrum(cfg)
	if err != nil {
		return nil, err
	}
	return &FastComb{
		spectrum: s,
		sorted:   make(fft.Bins, 0, len(s.bins)),
		picked:   make([]float64, 0, cfg.MaxPolyphony),
	}, nil
}

func (f *FastComb) Detect(buf *buffer.SampleBuffer) Notes {
	bins, ok := f.analyze(buf)
	if !ok {
		return nil
	}
	cands := append(f.sorted[:0], bins...)
	sortLoudestFirst(cands)

	notes := make(Notes, 0, f.poly)
	picked := f.picked[:0]
	for voices := f.poly; voices > 0 && len(cands) > 0; voices-- {
		best := 0
		threshold := combFactor * cands[0].Magnitude
		for i := 1; i < len(cands); i++ {
			c := cands[i]
			if c.Magnitude <= threshold || c.Frequency <= 0 {
				continue
			}
			factor := cands[best].Frequency / c.Frequency
			if math.Abs(factor-math.Round(factor)) < combTolerance && factor > 1.5 {
				best = i
				threshold = combFactor * c.Magnitude
			}
		}

		pick := cands[best]
		e := f.estimate(pick.Index, pick.Magnitude, 1)
		if n := e.Note(); n.Valid() && !notes.Contains(n.Midi) {
			for i := len(notes) - 1; i >= 0; i-- {
				if isPartial(picked[i], e.Frequency) {
					notes = slices.Delete(notes, i, i+1)
					picked = slices.Delete(picked, i, i+1)
					voices++
				}
			}
			notes = append(notes, n)
			picked = append(picked, e.Frequency)
		}

		// Suppress the pick and its harmonics, then drop the pick.
		if pick.Frequency > 0 {
			loudness := math.Abs(pick.Magnitude)
			for i := range cands {
				factor := cands[i].Frequency / pick.Frequency
				if math.Abs(factor-math.Round(factor)) < combTolerance {
					cands[i].Magnitude -= loudness
				}
			}
		}
		cands = slices.Delete(cands, best, best+1)
		sortLoudestFirst(cands)
	}
	f.sorted = cands
	f.picked = picked
	return notes
}

// isPartial reports whether freq lies within half a semitone of the k-th
// partial of fundamental, k >= 2.
func isPartial(freq, fundamental float64) bool {
	if fundamental <= 0 {
		return false
	}
	ratio := freq / fundamental
	k := math.Round(ratio)
	return k >= 2 && math.Abs(ratio-k) < k*(music.SemitoneRatio-1)/2
}
