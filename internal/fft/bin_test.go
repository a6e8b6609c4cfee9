package fft

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func binsOf(mags ...float64) Bins {
	b := make(Bins, len(mags))
	for i, m := range mags {
		b[i] = Bin{Value: complex(float64(i), 1), Magnitude: m, Frequency: 10 * float64(i), Index: i}
	}
	return b
}

func TestNewBin(t *testing.T) {
	// A full scale sine puts N/2 into its bin.
	b := NewBin(complex(512, 0), 10, 1024, 48000)
	if math.Abs(b.Magnitude) > 1e-12 {
		t.Errorf("Magnitude = %v dB, want 0", b.Magnitude)
	}
	if b.Frequency != 468.75 {
		t.Errorf("Frequency = %v, want 468.75", b.Frequency)
	}
	if b.Norm() != 512 || b.Real() != 512 || b.Imag() != 0 || b.Phase() != 0 {
		t.Errorf("accessors disagree with value %v", b.Value)
	}

	half := NewBin(complex(0, 256), 1, 1024, 48000)
	if math.Abs(half.Magnitude+20*math.Log10(2)) > 1e-9 {
		t.Errorf("half amplitude = %v dB", half.Magnitude)
	}
	if math.Abs(half.Phase()-math.Pi/2) > 1e-12 {
		t.Errorf("Phase() = %v", half.Phase())
	}

	silent := NewBin(0, 3, 1024, 48000)
	if math.IsInf(silent.Magnitude, 0) {
		t.Error("silent bins must have a finite magnitude")
	}
}

func TestBinEqual(t *testing.T) {
	a := Bin{Value: 1 + 2i, Magnitude: 3, Frequency: 4}
	b := a
	b.Magnitude = -7
	if !a.Equal(b) {
		t.Error("Equal must ignore magnitudes")
	}
	b.Frequency = 5
	if a.Equal(b) {
		t.Error("Equal must compare frequencies")
	}
}

func TestDerivative(t *testing.T) {
	b := binsOf(1, 3, 2, 2, 5)
	d := Derivative(b)
	want := []float64{0, 2, -1, 0, 3}
	for i := range want {
		if d[i].Magnitude != want[i] {
			t.Errorf("derivative[%d] = %v, want %v", i, d[i].Magnitude, want[i])
		}
	}
	for i := 1; i < len(b); i++ {
		if d[i].Value != b[i].Value || d[i].Frequency != b[i].Frequency {
			t.Errorf("bin %d fields not carried through", i)
		}
	}
	if d[0] != (Bin{}) {
		t.Errorf("first bin = %+v, want zero", d[0])
	}
	if b[1].Magnitude != 3 {
		t.Error("Derivative modified its input")
	}

	inPlace := binsOf(1, 3, 2, 2, 5)
	DerivativeInto(inPlace, inPlace)
	for i := range want {
		if inPlace[i].Magnitude != want[i] {
			t.Errorf("in place derivative[%d] = %v, want %v", i, inPlace[i].Magnitude, want[i])
		}
	}
	if len(Derivative(nil)) != 0 {
		t.Error("derivative of nothing must be empty")
	}
}

func TestDistance(t *testing.T) {
	a := binsOf(0, 1, 4, 2, 0)
	b := binsOf(1, 1, 1, 1, 1)
	if got := Distance(a, a); got != 0 {
		t.Errorf("Distance(a, a) = %v, want 0", got)
	}
	// Shifting a spectrum by a constant does not change its shape.
	shifted := binsOf(10, 11, 14, 12, 10)
	if got := Distance(a, shifted); got != 0 {
		t.Errorf("Distance(a, a+10) = %v, want 0", got)
	}
	ab, ba := Distance(a, b), Distance(b, a)
	if ab != ba {
		t.Errorf("Distance is not symmetric: %v != %v", ab, ba)
	}
	if ab != 1+3+2+2 {
		t.Errorf("Distance(a, b) = %v, want 8", ab)
	}
	if got := DerivativeDistance(Derivative(a), b); got != ab {
		t.Errorf("DerivativeDistance = %v, want %v", got, ab)
	}
}

func valuesOf(norms ...float64) Bins {
	b := make(Bins, len(norms))
	for i, n := range norms {
		b[i] = Bin{Value: complex(0, n), Index: i}
	}
	return b
}

func TestSimilarity(t *testing.T) {
	a := valuesOf(0, 3, 4, 0)
	tests := []struct {
		name string
		b    Bins
		want float64
	}{
		{"same", a, 1},
		{"scaled", valuesOf(0, 6, 8, 0), 1},
		{"disjoint", valuesOf(5, 0, 0, 1), 0},
		{"half overlap", valuesOf(0, 0, 5, 0), 0.8},
		{"silent", valuesOf(0, 0, 0, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
			if got := Similarity(tt.b, a); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Similarity() is not symmetric: %v", got)
			}
		})
	}
}

func TestNormalizePositive(t *testing.T) {
	b := binsOf(-80, -20, -50, -100)
	NormalizePositive(b)
	want := []float64{20, 80, 50, 0}
	for i := range want {
		if b[i].Magnitude != want[i] {
			t.Errorf("bin %d = %v, want %v", i, b[i].Magnitude, want[i])
		}
	}
	NormalizePositive(nil)
}

func TestNormalizeLocalDeviation(t *testing.T) {
	if LocalWidth(513) != 20 || LocalWidth(10) != 1 {
		t.Errorf("LocalWidth = %d, %d", LocalWidth(513), LocalWidth(10))
	}

	flat := binsOf(make([]float64, 100)...)
	for i := range flat {
		flat[i].Magnitude = -40
	}
	NormalizeLocalDeviation(flat)
	for i, b := range flat {
		if b.Magnitude != 0 {
			t.Fatalf("flat spectrum bin %d = %v, want 0", i, b.Magnitude)
		}
	}

	mags := make([]float64, 100)
	for i := range mags {
		mags[i] = -60 + float64(i)*0.1
	}
	mags[50] = 0
	peaked := binsOf(mags...)
	NormalizeLocalDeviation(peaked)
	for i, b := range peaked {
		if b.Magnitude < -1-1e-12 || b.Magnitude > 1+1e-12 {
			t.Fatalf("bin %d = %v outside [-1, 1]", i, b.Magnitude)
		}
	}
	if peaked[50].Magnitude != 1 {
		t.Errorf("peak = %v, want 1", peaked[50].Magnitude)
	}
}

func TestWriteCSV(t *testing.T) {
	var out bytes.Buffer
	if err := WriteCSV(&out, binsOf(-3, -1.5)); err != nil {
		t.Fatal(err)
	}
	want := "0.000000,-3.000000\n10.000000,-1.500000\n"
	if out.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", out.String(), want)
	}
	if strings.Count(out.String(), "\n") != 2 {
		t.Error("one row per bin")
	}
}
