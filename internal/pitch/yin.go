package pitch

import (
	"fmt"
	"math"
	"slices"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/music"
)

// yinThreshold is the normalized difference below which a lag is accepted
// as the period.
const yinThreshold = 0.1

// Yin is the YIN autocorrelation difference estimator. It reports the first
// period whose normalized difference dips below the threshold.
type Yin struct {
	sampleRate float64
	diff       []float64
}

// NewYin sizes a YIN estimator for cfg.BufferSize samples.
func NewYin(cfg config.DetectorConfig) (*Yin, error) {
	if cfg.BufferSize < 4 {
		return nil, fmt.Errorf("yin: buffer size %d too small", cfg.BufferSize)
	}
	return &Yin{
		sampleRate: cfg.SampleRate,
		diff:       make([]float64, yinLags(cfg.BufferSize)),
	}, nil
}

func (y *Yin) Detect(buf *buffer.SampleBuffer) Notes {
	samples := buf.Data()
	d := cumulativeDifference(y.diff, samples)

	tau := -1
	for t := 1; t < len(d); t++ {
		if d[t] < yinThreshold {
			tau = t
			break
		}
	}
	if tau < 0 {
		return nil
	}
	// Walk down to the bottom of the dip.
	for tau+1 < len(d) && d[tau+1] < d[tau] {
		tau++
	}

	e := Estimate{
		Frequency:  music.WavelengthToFrequency(parabolicLag(d, tau), y.sampleRate),
		Magnitude:  music.PeakDB(samples),
		Confidence: 1 - d[tau],
	}
	n := e.Note()
	if !n.Valid() {
		return nil
	}
	return Notes{n}
}

// PatientYin scans every lag instead of stopping at the first dip, and picks
// several voices while penalizing harmonics of the voices already picked.
// The common period of a chord dips deeper than the period of any of its
// notes, so a candidate whose harmonic holds at least half its confidence
// yields to that harmonic.
type PatientYin struct {
	sampleRate float64
	poly       int
	diff       []float64
	candidates []Estimate
}

// patientTolerance is how close to an integer the ratio of two candidates
// must be, as a fraction of a semitone, for one to be the other's harmonic.
const patientTolerance = 0.5 * (music.SemitoneRatio - 1)

// NewPatientYin sizes a patient YIN estimator for cfg.BufferSize samples.
func NewPatientYin(cfg config.DetectorConfig) (*PatientYin, error) {
	if cfg.BufferSize < 4 {
		return nil, fmt.Errorf("yin-patient: buffer size %d too small", cfg.BufferSize)
	}
	return &PatientYin{
		sampleRate: cfg.SampleRate,
		poly:       cfg.MaxPolyphony,
		diff:       make([]float64, yinLags(cfg.BufferSize)),
		candidates: make([]Estimate, 0, music.MidiRange),
	}, nil
}

func (p *PatientYin) Detect(buf *buffer.SampleBuffer) Notes {
	samples := buf.Data()
	d := cumulativeDifference(p.diff, samples)
	magnitude := music.PeakDB(samples)

	// One candidate per note, the most confident lag wins.
	var best [music.MidiRange]Estimate
	for tau := 1; tau < len(d); tau++ {
		freq := music.WavelengthToFrequency(parabolicLag(d, tau), p.sampleRate)
		midi := music.FrequencyToMidi(freq)
		if !music.ValidMidi(midi) {
			continue
		}
		c := Estimate{Frequency: freq, Magnitude: magnitude, Confidence: 1 - d[tau]}
		slot := &best[midi-music.MidiMin]
		if slot.Frequency == 0 || c.Confidence > slot.Confidence {
			*slot = c
		}
	}
	cands := p.candidates[:0]
	for _, c := range best {
		if c.Frequency > 0 {
			cands = append(cands, c)
		}
	}

	notes := make(Notes, 0, p.poly)
	for len(notes) < p.poly && len(cands) > 0 {
		sortByConfidence(cands)
		pick := fundamental(cands)
		top := cands[pick]
		if top.Confidence <= 0 {
			break
		}
		n := top.Note()
		n.Confidence = math.Max(0, math.Min(1, n.Confidence))
		notes = append(notes, n)

		for i := range cands {
			if i == pick {
				continue
			}
			ratio := math.Max(top.Frequency, cands[i].Frequency) / math.Min(top.Frequency, cands[i].Frequency)
			if math.Abs(ratio-math.Round(ratio)) < patientTolerance {
				cands[i].Confidence -= math.Abs(top.Confidence)
			}
		}
		cands = slices.Delete(cands, pick, pick+1)
	}
	p.candidates = cands
	return notes
}

// fundamental returns the index of the most confident candidate in sorted
// cands that is not a subharmonic of another candidate.
func fundamental(cands []Estimate) int {
	for i, c := range cands {
		if !hasStrongHarmonic(cands, c) {
			return i
		}
	}
	return 0
}

func hasStrongHarmonic(cands []Estimate, c Estimate) bool {
	for _, h := range cands {
		ratio := h.Frequency / c.Frequency
		if ratio > 1.5 && math.Abs(ratio-math.Round(ratio)) < patientTolerance &&
			h.Confidence > 0 && h.Confidence >= c.Confidence/2 {
			return true
		}
	}
	return false
}

// yinLags is the number of lags scanned in a window of n samples. The
// shifted copies keep overlapping by at least a quarter of the window.
func yinLags(n int) int {
	return n - n/4 + 1
}

// cumulativeDifference writes the cumulative mean normalized difference of
// samples for lags 0..len(dst)-1 into dst. Lag tau compares the
// len(samples)-tau overlapping samples by their mean squared difference.
func cumulativeDifference(dst, samples []float64) []float64 {
	d := dst[:min(len(dst), len(samples))]
	if len(d) == 0 {
		return d
	}
	d[0] = 1
	cum := 0.0
	for tau := 1; tau < len(d); tau++ {
		overlap := len(samples) - tau
		sum := 0.0
		for j := range overlap {
			delta := samples[j] - samples[j+tau]
			sum += delta * delta
		}
		sum /= float64(overlap)
		cum += sum
		if cum == 0 {
			d[tau] = 1
			continue
		}
		d[tau] = sum / (cum / float64(tau))
	}
	return d
}

// parabolicLag refines tau with the vertex of the parabola through its
// neighbors. Edges, flat neighborhoods and vertices further than one lag
// away keep the integer lag.
func parabolicLag(d []float64, tau int) float64 {
	if tau < 1 || tau+1 >= len(d) {
		return float64(tau)
	}
	a, b, c := d[tau-1], d[tau], d[tau+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(tau)
	}
	shift := 0.5 * (a - c) / den
	if math.Abs(shift) > 1 {
		return float64(tau)
	}
	return float64(tau) + shift
}

// sortByConfidence orders candidates most confident first, keeping the
// order of equal ones.
func sortByConfidence(cands []Estimate) {
	slices.SortStableFunc(cands, func(a, b Estimate) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
}
