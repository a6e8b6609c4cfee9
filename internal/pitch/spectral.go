package pitch

import (
	"math"
	"slices"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/music"
)

// spectralWidth is the half-width of the neighborhood a bin is compared
// against.
const spectralWidth = 5

// spectralTolerance is the largest distance from an integer ratio at which a
// new peak counts as a harmonic of an existing candidate.
const spectralTolerance = music.SemitoneRatio - 1

type spectralCandidate struct {
	frequency float64
	magnitude float64
	weight    float64
	index     int
}

// Spectral picks peaks that stand out of their neighborhood and reinforces
// candidates whose harmonics are found as well.
type Spectral struct {
	spectrum
	mags       []float64
	candidates []spectralCandidate
}

// NewSpectral allocates the fftune-spectral detector.
func NewSpectral(cfg config.DetectorConfig) (*Spectral, error) {
	s, err := newSpectrum(cfg)
	if err != nil {
		return nil, err
	}
	return &Spectral{
		spectrum:   s,
		mags:       make([]float64, len(s.bins)),
		candidates: make([]spectralCandidate, 0, len(s.bins)),
	}, nil
}

func (s *Spectral) Detect(buf *buffer.SampleBuffer) Notes {
	bins, ok := s.analyze(buf)
	if !ok {
		return nil
	}
	mags := bins.Magnitudes(s.mags)
	n := len(mags)
	resolution := s.transform.Resolution()

	cands := s.candidates[:0]
	for i := range mags {
		lo, hi := max(i-spectralWidth, 0), min(i+spectralWidth, n)
		mean := 0.0
		for _, v := range mags[lo:hi] {
			mean += v
		}
		mean /= float64(hi - lo)
		weight := mags[i] - mean
		if weight <= 0 {
			continue
		}

		freq := bins[i].Frequency
		if i > 0 && i < n-1 {
			a, b, c := mags[i-1], mags[i], mags[i+1]
			if den := a - 2*b + c; den < 0 {
				if p := 0.5 * (a - c) / den; math.Abs(p) <= 0.5 {
					freq = (float64(i) + p) * resolution
				}
			}
		}
		if !music.ValidFrequency(freq) {
			continue
		}

		for k := range cands {
			ratio := freq / cands[k].frequency
			drift := math.Abs(ratio - math.Round(ratio))
			if drift < spectralTolerance {
				cands[k].weight += weight * drift / spectralTolerance
			}
		}
		cands = append(cands, spectralCandidate{
			frequency: freq,
			magnitude: mags[i],
			weight:    weight,
			index:     i,
		})
	}
	s.candidates = cands
	if len(cands) == 0 {
		return nil
	}

	slices.SortStableFunc(cands, func(a, b spectralCandidate) int {
		switch {
		case a.weight > b.weight:
			return -1
		case a.weight < b.weight:
			return 1
		}
		return 0
	})

	top := cands[0].weight
	notes := make(Notes, 0, s.poly)
	for _, c := range cands {
		if len(notes) == s.poly {
			break
		}
		midi := music.FrequencyToMidi(c.frequency)
		if notes.Contains(midi) {
			continue
		}
		n := s.estimate(c.index, c.magnitude, c.weight/top).Note()
		if !n.Valid() {
			continue
		}
		// Refinement may cross into a neighboring note; the voice keeps
		// the note its peak was found at.
		if n.Midi != midi {
			n.Midi = midi
			n.Intonation = music.Intonation(c.frequency)
		}
		notes = append(notes, n)
	}
	return notes
}
