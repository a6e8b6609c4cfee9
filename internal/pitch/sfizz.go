package pitch

import (
	"fmt"
	"math"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/fft"
	"fftune/internal/music"
	"fftune/internal/synth"
)

// MaxSfizzPolyphony bounds the chord size of the exhaustive search. Four
// voices already mean about 2.4 million transforms per window.
const MaxSfizzPolyphony = 4

// minMismatch bounds the log scale of the distance for exact matches.
const minMismatch = 1e-9

// Sfizz renders every chord of up to MaxPolyphony notes with a tone
// generator and keeps the one whose spectrum matches the input best.
//
// Chords are compared by the cosine similarity of their magnitude spectra.
// The distance is log10 of the mismatch scaled by a quarter window, so the
// confidence counts orders of magnitude between the best chord and the
// runner-up.
type Sfizz struct {
	spectrum
	renders    [music.MidiRange][]float64 // one settled render per note
	chord      []float64
	chordBins  fft.Bins
	voices     []int
	bestVoices []int
}

// NewSfizz prepares the search. gen is initialized with the analysis size
// and renders each note once.
func NewSfizz(cfg config.DetectorConfig, gen synth.ToneGenerator) (*Sfizz, error) {
	if cfg.MaxPolyphony > MaxSfizzPolyphony {
		return nil, fmt.Errorf("%w: %d > %d", ErrPolyphonyTooHigh, cfg.MaxPolyphony, MaxSfizzPolyphony)
	}
	s, err := newSpectrum(cfg)
	if err != nil {
		return nil, err
	}
	if err := gen.Init(cfg.BufferSize, cfg.SampleRate); err != nil {
		return nil, fmt.Errorf("failed to initialize tone generator: %w", err)
	}

	sf := &Sfizz{
		spectrum:   s,
		chord:      make([]float64, cfg.BufferSize),
		chordBins:  make(fft.Bins, len(s.bins)),
		voices:     make([]int, 0, cfg.MaxPolyphony),
		bestVoices: make([]int, 0, cfg.MaxPolyphony),
	}
	note := make([]int, 1)
	for i := range sf.renders {
		note[0] = music.MidiMin + i
		sf.renders[i] = make([]float64, cfg.BufferSize)
		gen.Start(note)
		gen.Render(sf.renders[i])
	}
	return sf, nil
}

func (s *Sfizz) Detect(buf *buffer.SampleBuffer) Notes {
	samples := buf.Data()
	if _, ok := s.analyze(buf); !ok {
		return nil
	}
	volume := music.MeanVolume(samples)

	best, runnerUp := math.Inf(1), math.Inf(1)
	s.bestVoices = s.bestVoices[:0]

	// Chords are enumerated as ascending index combinations, so the search
	// space is the sum of C(88, k) for k up to the polyphony and no chord
	// count has to fit an integer encoding.
	for size := 1; size <= s.poly; size++ {
		voices := s.voices[:size]
		for i := range voices {
			voices[i] = i
		}
		for {
			dist := s.distance(voices, volume)
			switch {
			case dist < best:
				runnerUp = best
				best = dist
				s.bestVoices = append(s.bestVoices[:0], voices...)
			case dist < runnerUp:
				runnerUp = dist
			}
			if !nextCombination(voices, music.MidiRange) {
				break
			}
		}
	}

	if math.IsInf(runnerUp, 1) || len(s.bestVoices) == 0 {
		return nil
	}
	confidence := math.Min(1, math.Abs(runnerUp-best)/(float64(s.transform.Size())/4))
	if !(confidence > 0) {
		return nil
	}

	velocity := music.VolumeToVelocity(volume)
	notes := make(Notes, len(s.bestVoices))
	for i, v := range s.bestVoices {
		notes[i] = Note{
			Midi:       music.MidiMin + v,
			Velocity:   velocity,
			Confidence: confidence,
		}
	}
	return notes
}

// distance renders the chord of voices at volume and scores it against the
// input spectrum; lower is better.
func (s *Sfizz) distance(voices []int, volume float64) float64 {
	clear(s.chord)
	for _, v := range voices {
		for i, x := range s.renders[v] {
			s.chord[i] += x
		}
	}
	music.MatchVolume(s.chord, volume)
	s.chordBins = s.transform.DetectInto(s.chordBins, s.chord)
	mismatch := math.Max(1-fft.Similarity(s.bins, s.chordBins), minMismatch)
	return float64(s.transform.Size()) / 4 * math.Log10(mismatch)
}

// nextCombination advances idx to the next ascending combination of n
// elements and reports false after the last one.
func nextCombination(idx []int, n int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}
