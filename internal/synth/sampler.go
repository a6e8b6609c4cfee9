package synth

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"fftune/internal/music"
	"fftune/internal/wavio"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrEmptyInstrument is returned for an instrument file without samples.
var ErrEmptyInstrument = errors.New("instrument holds no samples")

// Sampler plays a single recorded note transposed to any pitch.
type Sampler struct {
	source     []float64 // instrument as loaded
	sourceRate float64
	root       int

	size       int
	sampleRate float64
	samples    []float64 // instrument at the analysis rate
	notes      []int
}

// LoadSampler reads a WAV instrument. The root note comes from the file's
// sampler chunk when present, otherwise rootNote is used.
func LoadSampler(path string, rootNote int) (*Sampler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instrument: %w", err)
	}
	clip, err := wavio.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load instrument %s: %w", path, err)
	}
	if clip.RootNote >= 0 && music.ValidMidi(clip.RootNote) {
		rootNote = clip.RootNote
	}
	return NewSampler(clip.Samples, float64(clip.SampleRate), rootNote)
}

// NewSampler wraps mono samples recorded at sampleRate playing rootNote.
func NewSampler(samples []float64, sampleRate float64, rootNote int) (*Sampler, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInstrument
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sampler: invalid sample rate %v", sampleRate)
	}
	return &Sampler{source: samples, sourceRate: sampleRate, root: rootNote}, nil
}

// RootNote returns the MIDI note the unmodified sample plays.
func (s *Sampler) RootNote() int { return s.root }

func (s *Sampler) Init(size int, sampleRate float64) error {
	if size <= 0 || sampleRate <= 0 {
		return fmt.Errorf("sampler: invalid size %d or sample rate %v", size, sampleRate)
	}
	s.size = size
	s.sampleRate = sampleRate
	s.notes = s.notes[:0]

	if sampleRate == s.sourceRate {
		s.samples = s.source
		return nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  s.sourceRate,
		OutputRate: sampleRate,
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return fmt.Errorf("failed to create resampler: %w", err)
	}
	out, err := r.Process(s.source)
	if err != nil {
		return fmt.Errorf("failed to resample instrument: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return fmt.Errorf("failed to flush resampler: %w", err)
	}
	s.samples = append(out, tail...)
	return nil
}

func (s *Sampler) Start(notes []int) {
	s.notes = append(s.notes[:0], notes...)
}

// Render plays every note from the end of the settle period, reading the
// instrument at ratio 2^((note-root)/12) with linear interpolation. Past the
// end of the instrument the voice is silent.
func (s *Sampler) Render(dst []float64) {
	clear(dst)
	last := len(s.samples) - 1
	for _, m := range s.notes {
		ratio := math.Exp2(float64(m-s.root) / 12)
		pos := float64(settleBlocks*s.size) * ratio
		for i := range dst {
			idx := int(pos)
			if idx > last {
				break
			}
			v := s.samples[idx]
			if idx < last {
				frac := pos - float64(idx)
				v += frac * (s.samples[idx+1] - v)
			}
			dst[i] += v
			pos += ratio
		}
	}
}
