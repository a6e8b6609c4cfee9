package synth

import (
	"fmt"

	"fftune/internal/music"
)

// Harmonic sums damped sine partials per note. It needs no instrument.
type Harmonic struct {
	size       int
	sampleRate float64
	notes      []int
	scratch    []float64
}

// NewHarmonic returns an uninitialized harmonic generator.
func NewHarmonic() *Harmonic {
	return &Harmonic{}
}

func (h *Harmonic) Init(size int, sampleRate float64) error {
	if size <= 0 || sampleRate <= 0 {
		return fmt.Errorf("harmonic synth: invalid size %d or sample rate %v", size, sampleRate)
	}
	h.size = size
	h.sampleRate = sampleRate
	h.scratch = make([]float64, size)
	h.notes = h.notes[:0]
	return nil
}

func (h *Harmonic) Start(notes []int) {
	h.notes = append(h.notes[:0], notes...)
}

func (h *Harmonic) Render(dst []float64) {
	clear(dst)
	if h.scratch == nil {
		return
	}
	n := min(len(dst), h.size)
	for _, m := range h.notes {
		music.Harmonic(h.scratch[:n], music.MidiToFrequency(m), h.sampleRate,
			settleBlocks*h.size, music.DefaultOvertones, music.DefaultDamping)
		for i, v := range h.scratch[:n] {
			dst[i] += v
		}
	}
}
