package pitch

import (
	"fmt"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/music"
)

// schmittInset moves both thresholds this fraction of the signal range
// inward from the extremes.
const schmittInset = 0.2

// Schmitt is a time domain trigger counting threshold crossings.
type Schmitt struct {
	sampleRate float64
	rises      []float64
}

// NewSchmitt returns a trigger for cfg.BufferSize samples.
func NewSchmitt(cfg config.DetectorConfig) (*Schmitt, error) {
	if cfg.BufferSize < 2 {
		return nil, fmt.Errorf("schmitt: buffer size %d too small", cfg.BufferSize)
	}
	return &Schmitt{
		sampleRate: cfg.SampleRate,
		rises:      make([]float64, 0, cfg.BufferSize),
	}, nil
}

func (s *Schmitt) Detect(buf *buffer.SampleBuffer) Notes {
	x := buf.Data()
	if len(x) < 2 {
		return nil
	}
	lowest, highest := x[0], x[0]
	for _, v := range x[1:] {
		lowest = min(lowest, v)
		highest = max(highest, v)
	}
	diff := highest - lowest
	lo := lowest + schmittInset*diff
	hi := highest - schmittInset*diff

	start := 0
	for start < len(x) && x[start] > lo && x[start] < hi {
		start++
	}
	if start == len(x) {
		return nil
	}

	above := x[start] >= hi
	flips := 0
	rises := s.rises[:0]
	for j := start + 1; j < len(x); j++ {
		switch {
		case above && x[j] <= lo:
			above = false
			flips++
		case !above && x[j] >= hi:
			above = true
			flips++
			rises = append(rises, float64(j-1)+(hi-x[j-1])/(x[j]-x[j-1]))
		}
	}
	s.rises = rises

	// The period is the mean spacing of the interpolated rising crossings;
	// len/(flips/2) only serves windows with fewer than two of them.
	var freq float64
	switch {
	case len(rises) >= 2:
		period := (rises[len(rises)-1] - rises[0]) / float64(len(rises)-1)
		freq = music.WavelengthToFrequency(period, s.sampleRate)
	case flips > 0:
		period := float64(len(x)) / (float64(flips) / 2)
		freq = music.WavelengthToFrequency(period, s.sampleRate)
	default:
		return nil
	}

	n := Estimate{Frequency: freq, Magnitude: music.PeakDB(x), Confidence: 1}.Note()
	if !n.Valid() {
		return nil
	}
	return Notes{n}
}
