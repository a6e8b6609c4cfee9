// SPDX-License-Identifier: MIT

/*
Package pitch estimates the notes sounding in a window of audio.

Every algorithm implements Algorithm. A Detector is bound to one algorithm
type at compile time, so the per-window call is static:

	yin, _ := pitch.NewYin(cfg)
	d := pitch.NewDetector(yin)
	notes := d.Detect(buf)

Callers that only know the method at runtime use New, which selects the
algorithm once and returns it behind the Analyzer interface.

Algorithms return at most MaxPolyphony notes, never an invalid one, and an
empty result when nothing is confident enough. Working buffers are sized at
construction and reused; only fftune-sfizz does work that grows with the
polyphony.
*/
package pitch

import (
	"errors"
	"fmt"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/log"
	"fftune/internal/synth"
)

// ErrPolyphonyTooHigh is returned when an exhaustive search would not finish
// in reasonable time.
var ErrPolyphonyTooHigh = errors.New("polyphony too high for exhaustive search")

// Algorithm is a pitch detection strategy.
type Algorithm interface {
	Detect(buf *buffer.SampleBuffer) Notes
}

// Analyzer is a detector whose algorithm was chosen at runtime.
type Analyzer interface {
	Algorithm
	Method() config.Method
}

// Detector runs one algorithm and logs its results when verbose.
type Detector[A Algorithm] struct {
	algo    A
	method  config.Method
	verbose bool
}

// NewDetector binds a detector to algo.
func NewDetector[A Algorithm](algo A, method config.Method, verbose bool) *Detector[A] {
	return &Detector[A]{algo: algo, method: method, verbose: verbose}
}

// Detect returns the notes in buf.
func (d *Detector[A]) Detect(buf *buffer.SampleBuffer) Notes {
	notes := d.algo.Detect(buf)
	if d.verbose {
		log.Debugf("%s: %v", d.method, notes)
	}
	return notes
}

// Method returns the configured method.
func (d *Detector[A]) Method() config.Method { return d.method }

// Algorithm returns the bound algorithm.
func (d *Detector[A]) Algorithm() A { return d.algo }

// New validates cfg and builds the detector it selects. gen is only used by
// fftune-sfizz; nil loads the instrument named by cfg.ExternalPath.
func New(cfg config.DetectorConfig, gen synth.ToneGenerator) (Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case config.MethodSpectral:
		algo, err := NewSpectral(cfg)
		return wrap(cfg, algo, err)
	case config.MethodSfizz:
		if gen == nil {
			gen = synth.New(cfg.ExternalPath, cfg.RootNote)
		}
		algo, err := NewSfizz(cfg, gen)
		return wrap(cfg, algo, err)
	case config.MethodYin:
		algo, err := NewYin(cfg)
		return wrap(cfg, algo, err)
	case config.MethodYinPatient:
		algo, err := NewPatientYin(cfg)
		return wrap(cfg, algo, err)
	case config.MethodFastComb:
		algo, err := NewFastComb(cfg)
		return wrap(cfg, algo, err)
	case config.MethodDoubleFFT:
		algo, err := NewDoubleFFT(cfg)
		return wrap(cfg, algo, err)
	case config.MethodSchmitt:
		algo, err := NewSchmitt(cfg)
		return wrap(cfg, algo, err)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidAlgorithm, cfg.Method)
	}
}

func wrap[A Algorithm](cfg config.DetectorConfig, algo A, err error) (Analyzer, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to create %s detector: %w", cfg.Method, err)
	}
	return NewDetector(algo, cfg.Method, cfg.Verbose), nil
}
