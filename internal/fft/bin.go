package fft

import (
	"encoding/csv"
	"io"
	"math"
	"math/cmplx"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bin is one entry of a spectrum. Magnitude is in dB relative to a full
// scale sine, 20*log10(2|Value|/N).
type Bin struct {
	Value     complex128
	Magnitude float64
	Frequency float64
	Index     int
}

// Bins is a spectrum ordered by increasing frequency.
type Bins []Bin

// NewBin derives magnitude and frequency of coefficient index of an n-point
// transform.
func NewBin(value complex128, index, n int, sampleRate float64) Bin {
	return Bin{
		Value:     value,
		Magnitude: magnitudeDB(value, n),
		Frequency: sampleRate / float64(n) * float64(index),
		Index:     index,
	}
}

func magnitudeDB(value complex128, n int) float64 {
	amp := 2 * cmplx.Abs(value) / float64(n)
	return 20 * math.Log10(math.Max(amp, math.SmallestNonzeroFloat64))
}

func (b Bin) Norm() float64  { return cmplx.Abs(b.Value) }
func (b Bin) Phase() float64 { return cmplx.Phase(b.Value) }
func (b Bin) Real() float64  { return real(b.Value) }
func (b Bin) Imag() float64  { return imag(b.Value) }

// Equal compares coefficient and frequency, ignoring derived magnitudes.
func (b Bin) Equal(o Bin) bool {
	return b.Value == o.Value && b.Frequency == o.Frequency
}

// Magnitudes copies the magnitudes into dst, growing it if needed.
func (b Bins) Magnitudes(dst []float64) []float64 {
	if cap(dst) < len(b) {
		dst = make([]float64, len(b))
	}
	dst = dst[:len(b)]
	for i := range b {
		dst[i] = b[i].Magnitude
	}
	return dst
}

// Peak returns the index of the loudest bin, or -1 for an empty spectrum.
func (b Bins) Peak() int {
	if len(b) == 0 {
		return -1
	}
	return floats.MaxIdx(b.Magnitudes(nil))
}

// Derivative returns the discrete derivative of the magnitudes. The first
// bin is zeroed; the others carry b[i].Magnitude - b[i-1].Magnitude with
// their coefficient and frequency unchanged.
func Derivative(b Bins) Bins {
	return DerivativeInto(make(Bins, len(b)), b)
}

// DerivativeInto writes the derivative of b into dst, which must be at
// least len(b) long, and returns dst[:len(b)].
func DerivativeInto(dst, b Bins) Bins {
	dst = dst[:len(b)]
	if len(b) == 0 {
		return dst
	}
	for i := len(b) - 1; i > 0; i-- {
		d := b[i]
		d.Magnitude = b[i].Magnitude - b[i-1].Magnitude
		dst[i] = d
	}
	dst[0] = Bin{}
	return dst
}

// Distance scores how different two spectra are; 0 means identical shape.
// It sums the absolute differences of their derivatives and is symmetric.
func Distance(a, b Bins) float64 {
	return DerivativeDistance(Derivative(a), b)
}

// DerivativeDistance is Distance with the derivative of the first spectrum
// already computed, so a fixed reference can be compared against many
// candidates.
func DerivativeDistance(aDeriv, b Bins) float64 {
	n := min(len(aDeriv), len(b))
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += math.Abs(aDeriv[i].Magnitude - (b[i].Magnitude - b[i-1].Magnitude))
	}
	return sum
}

// Similarity is the cosine similarity of the linear magnitudes of two
// spectra, 1 for the same shape at any level and 0 when either is silent.
func Similarity(a, b Bins) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := a[i].Norm(), b[i].Norm()
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

// NormalizePositive shifts all magnitudes so the minimum becomes zero.
func NormalizePositive(b Bins) {
	if len(b) == 0 {
		return
	}
	lowest := floats.Min(b.Magnitudes(nil))
	for i := range b {
		b[i].Magnitude -= lowest
	}
}

// LocalWidth is the neighborhood half-width NormalizeLocalDeviation uses for
// a spectrum of n bins.
func LocalWidth(n int) int {
	return max(n/25, 1)
}

// NormalizeLocalDeviation replaces each magnitude by its distance from the
// local mean, divided by the largest local deviation. The neighborhood of
// bin i is [i-w, i+w) with w = LocalWidth(len(b)). Flat neighborhoods yield 0.
func NormalizeLocalDeviation(b Bins) {
	mags := b.Magnitudes(nil)
	w := LocalWidth(len(b))
	for i := range b {
		lo, hi := max(i-w, 0), min(i+w, len(mags))
		local := mags[lo:hi]
		mean := stat.Mean(local, nil)
		deviation := 0.0
		for _, v := range local {
			deviation = math.Max(deviation, math.Abs(v-mean))
		}
		if deviation == 0 {
			b[i].Magnitude = 0
			continue
		}
		b[i].Magnitude = (mags[i] - mean) / deviation
	}
}

// WriteCSV writes one "frequency,magnitude" row per bin.
func WriteCSV(w io.Writer, b Bins) error {
	cw := csv.NewWriter(w)
	for _, bin := range b {
		row := []string{
			strconv.FormatFloat(bin.Frequency, 'f', 6, 64),
			strconv.FormatFloat(bin.Magnitude, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
