// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Window selects the weighting applied to a sample window before it is
// transformed.
type Window int

const (
	Welch Window = iota // default
	Rectangular
	Hann
	Hamming
	BartlettHann
	Blackman
	BlackmanNuttall
	Lanczos
	Nuttall
)

var windowNames = map[Window]string{
	Welch:           "welch",
	Rectangular:     "rectangular",
	Hann:            "hann",
	Hamming:         "hamming",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w Window) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// ParseWindow converts a case-insensitive name to a Window. Unknown names
// return Welch and an error.
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "welch":
		return Welch, nil
	case "rectangular", "rect", "none":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Welch, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w Window) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Window) UnmarshalText(text []byte) error {
	parsed, err := ParseWindow(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Weight returns the coefficient of sample i in a window of n samples.
func (w Window) Weight(i, n int) float64 {
	switch w {
	case Rectangular:
		return 1
	case Hann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	case Hamming:
		const a0 = 25.0 / 46.0
		return a0 - (1-a0)*math.Cos(2*math.Pi*float64(i)/float64(n))
	case Welch:
		half := float64(n) / 2
		q := (float64(i) - half) / half
		return 1 - q*q
	default:
		coeffs := w.Coefficients(n)
		return coeffs[i]
	}
}

// Coefficients returns the n window weights.
func (w Window) Coefficients(n int) []float64 {
	coeffs := make([]float64, n)
	w.fill(coeffs)
	return coeffs
}

func (w Window) fill(coeffs []float64) {
	for i := range coeffs {
		coeffs[i] = 1
	}
	w.Apply(coeffs)
}

// Apply weights samples in place.
func (w Window) Apply(samples []float64) {
	n := len(samples)
	switch w {
	case Welch, Rectangular, Hann, Hamming:
		for i := range samples {
			samples[i] *= w.Weight(i, n)
		}
	case BartlettHann:
		window.BartlettHann(samples)
	case Blackman:
		window.Blackman(samples)
	case BlackmanNuttall:
		window.BlackmanNuttall(samples)
	case Lanczos:
		window.Lanczos(samples)
	case Nuttall:
		window.Nuttall(samples)
	default:
		Welch.Apply(samples)
	}
}
