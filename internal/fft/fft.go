// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"fftune/internal/buffer"

	dspfft "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrInvalidSize       = errors.New("transform size must be at least 2")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Heuristic selects how a Transform plans its work. It is fixed at
// construction.
type Heuristic int

const (
	// OptimizeRuntime precomputes twiddle factors once so repeated calls are
	// cheap and allocation free.
	OptimizeRuntime Heuristic = iota
	// OptimizeInit skips planning; every call computes the transform from
	// scratch.
	OptimizeInit
)

func (h Heuristic) String() string {
	switch h {
	case OptimizeRuntime:
		return "runtime"
	case OptimizeInit:
		return "init"
	default:
		return fmt.Sprintf("heuristic(%d)", int(h))
	}
}

// ParseHeuristic converts "runtime" or "init" (case-insensitive).
func ParseHeuristic(name string) (Heuristic, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "runtime":
		return OptimizeRuntime, nil
	case "init":
		return OptimizeInit, nil
	default:
		return OptimizeRuntime, fmt.Errorf("unknown fft heuristic: '%s'", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Heuristic) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Heuristic) UnmarshalText(text []byte) error {
	parsed, err := ParseHeuristic(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

type plan interface {
	coefficients(dst []complex128, src []float64)
}

type gonumPlan struct {
	fft *fourier.FFT
}

func (p gonumPlan) coefficients(dst []complex128, src []float64) {
	p.fft.Coefficients(dst, src)
}

// dspPlan transforms without any precomputed state.
type dspPlan struct{}

func (dspPlan) coefficients(dst []complex128, src []float64) {
	copy(dst, dspfft.FFTReal(src))
}

// workspace holds the buffers a Transform reuses between calls.
type workspace struct {
	input  []float64    // windowed copy of the caller's samples
	output []complex128 // N/2+1 coefficients
	window []float64    // precomputed window weights
}

// Transform computes the spectrum of fixed-size sample windows. It owns its
// plan and working buffers; a Transform must not be shared between
// goroutines.
type Transform struct {
	size       int
	sampleRate float64
	window     Window
	heuristic  Heuristic
	plan       plan
	workspace  workspace
}

// Option configures a Transform.
type Option func(*Transform)

// WithWindow replaces the default Welch window.
func WithWindow(w Window) Option {
	return func(t *Transform) { t.window = w }
}

// WithHeuristic selects the planning strategy.
func WithHeuristic(h Heuristic) Option {
	return func(t *Transform) { t.heuristic = h }
}

// NewTransform allocates a transform of size samples at sampleRate.
func NewTransform(size int, sampleRate float64, opts ...Option) (*Transform, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidSampleRate, sampleRate)
	}

	t := &Transform{
		size:       size,
		sampleRate: sampleRate,
		window:     Welch,
		heuristic:  OptimizeRuntime,
	}
	for _, opt := range opts {
		opt(t)
	}

	switch t.heuristic {
	case OptimizeInit:
		t.plan = dspPlan{}
	default:
		t.plan = gonumPlan{fft: fourier.NewFFT(size)}
	}

	t.workspace = workspace{
		input:  make([]float64, size),
		output: make([]complex128, t.BinsSize()),
		window: t.window.Coefficients(size),
	}
	return t, nil
}

func (t *Transform) Size() int            { return t.size }
func (t *Transform) SampleRate() float64  { return t.sampleRate }
func (t *Transform) Window() Window       { return t.window }
func (t *Transform) Heuristic() Heuristic { return t.heuristic }

// BinsSize is the length of every spectrum, Size()/2+1.
func (t *Transform) BinsSize() int {
	return t.size/2 + 1
}

// Resolution is the spacing of two bins in Hz.
func (t *Transform) Resolution() float64 {
	return t.sampleRate / float64(t.size)
}

// BinFrequency returns the center frequency of bin i.
func (t *Transform) BinFrequency(i int) float64 {
	if i < 0 || i >= t.BinsSize() {
		return 0
	}
	return float64(i) * t.Resolution()
}

// Detect returns a freshly allocated spectrum of buf.
func (t *Transform) Detect(buf *buffer.SampleBuffer) Bins {
	return t.DetectInto(make(Bins, t.BinsSize()), buf.Data())
}

// DetectInto windows a copy of samples, transforms it and writes the
// spectrum into dst. samples shorter than Size() are zero padded, longer
// ones truncated. dst must hold BinsSize() bins. The caller's samples are
// never modified.
func (t *Transform) DetectInto(dst Bins, samples []float64) Bins {
	ws := &t.workspace
	n := copy(ws.input, samples)
	clear(ws.input[n:])
	for i := range ws.input {
		ws.input[i] *= ws.window[i]
	}

	t.plan.coefficients(ws.output, ws.input)

	dst = dst[:t.BinsSize()]
	for i, c := range ws.output {
		dst[i] = NewBin(c, i, t.size, t.sampleRate)
	}
	return dst
}

// goldenSteps bounds the refinement search; 40 steps shrink the interval by
// a factor of about 2e8.
const goldenSteps = 40

// Refine locates the frequency near bin index whose spectral magnitude in
// the last transformed window is largest, searching ±0.75 bins. It recovers
// pitch between bin centers.
func (t *Transform) Refine(index int) float64 {
	res := t.Resolution()
	lo := math.Max(0, (float64(index)-0.75)*res)
	hi := math.Min(t.sampleRate/2, (float64(index)+0.75)*res)
	if hi <= lo {
		return t.BinFrequency(index)
	}

	g := (math.Sqrt(5) - 1) / 2
	a, b := lo, hi
	c := b - g*(b-a)
	d := a + g*(b-a)
	fc, fd := t.goertzel(c), t.goertzel(d)
	for range goldenSteps {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - g*(b-a)
			fc = t.goertzel(c)
		} else {
			a, c, fc = c, d, fd
			d = a + g*(b-a)
			fd = t.goertzel(d)
		}
	}
	return (a + b) / 2
}

// goertzel evaluates the squared spectral magnitude of the windowed input at
// freq.
func (t *Transform) goertzel(freq float64) float64 {
	omega := 2 * math.Pi * freq / t.sampleRate
	coeff := 2 * math.Cos(omega)
	var s1, s2 float64
	for _, x := range t.workspace.input {
		s0 := x + coeff*s1 - s2
		s2, s1 = s1, s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}
