// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"math"
	"testing"

	"fftune/internal/buffer"
	"fftune/pkg/utils"
)

const (
	testFFTSize    = 1024
	testSampleRate = 48000
)

func TestNewTransformErrors(t *testing.T) {
	if _, err := NewTransform(1, testSampleRate); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("size 1: error = %v, want ErrInvalidSize", err)
	}
	if _, err := NewTransform(testFFTSize, 0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("rate 0: error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestSpectrumSize(t *testing.T) {
	rates := []float64{8000, 22050, 44100, 48000, 96000, 192000}
	for size := 1024; size <= 32768; size *= 2 {
		for _, rate := range rates {
			tr, err := NewTransform(size, rate)
			if err != nil {
				t.Fatal(err)
			}
			buf := buffer.FromSlice(utils.GenerateSineWave(size, rate, 440))
			bins := tr.Detect(buf)
			if len(bins) != size/2+1 {
				t.Fatalf("size %d rate %v: %d bins, want %d", size, rate, len(bins), size/2+1)
			}
			if got := bins[len(bins)-1].Frequency; math.Abs(got-rate/2) > 1e-6 {
				t.Fatalf("size %d rate %v: last bin at %v Hz, want Nyquist", size, rate, got)
			}
		}
	}
}

func TestPeakFollowsInput(t *testing.T) {
	sizes := []int{1024, 4096, 16384}
	rates := []float64{8000, 44100, 96000}
	for _, size := range sizes {
		for _, rate := range rates {
			tr, _ := NewTransform(size, rate)
			bins := tr.Detect(buffer.FromSlice(utils.GenerateSineWave(size, rate, 440)))
			mags := bins.Magnitudes(nil)
			peak := utils.FindPeakBin(mags, 1, len(mags)-1)
			if diff := math.Abs(bins[peak].Frequency - 440); diff > tr.Resolution() {
				t.Errorf("size %d rate %v: peak at %v Hz", size, rate, bins[peak].Frequency)
			}
			if bins.Peak() != peak {
				t.Errorf("Peak() = %d, want %d", bins.Peak(), peak)
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	for _, h := range []Heuristic{OptimizeRuntime, OptimizeInit} {
		tr, _ := NewTransform(testFFTSize, testSampleRate, WithHeuristic(h))
		buf := buffer.FromSlice(utils.GenerateComplexWave(testFFTSize, testSampleRate))
		first := tr.Detect(buf)
		for range 10 {
			_ = tr.Detect(buffer.FromSlice(utils.GenerateSineWave(testFFTSize, testSampleRate, 1234)))
			again := tr.Detect(buf)
			for i := range first {
				if first[i] != again[i] {
					t.Fatalf("%v: bin %d changed between calls: %v != %v", h, i, first[i], again[i])
				}
			}
		}
	}
}

func TestHeuristicsAgree(t *testing.T) {
	samples := utils.GenerateComplexWave(testFFTSize, testSampleRate)
	runtimeTr, _ := NewTransform(testFFTSize, testSampleRate)
	initTr, _ := NewTransform(testFFTSize, testSampleRate, WithHeuristic(OptimizeInit))
	a := runtimeTr.Detect(buffer.FromSlice(samples))
	b := initTr.Detect(buffer.FromSlice(samples))
	for i := range a {
		if d := a[i].Value - b[i].Value; math.Hypot(real(d), imag(d)) > 1e-9 {
			t.Fatalf("bin %d: runtime %v, init %v", i, a[i].Value, b[i].Value)
		}
	}
}

func TestDetectDoesNotModifyInput(t *testing.T) {
	samples := utils.GenerateSineWave(testFFTSize, testSampleRate, 440)
	buf := buffer.FromSlice(samples)
	tr, _ := NewTransform(testFFTSize, testSampleRate)
	tr.Detect(buf)
	for i, v := range buf.Data() {
		if v != samples[i] {
			t.Fatalf("sample %d modified: %v != %v", i, v, samples[i])
		}
	}
}

func TestShortInputIsPadded(t *testing.T) {
	tr, _ := NewTransform(testFFTSize, testSampleRate)
	short := tr.DetectInto(make(Bins, tr.BinsSize()), utils.GenerateSineWave(testFFTSize/2, testSampleRate, 440))
	if len(short) != tr.BinsSize() {
		t.Fatalf("got %d bins", len(short))
	}
	silent := tr.Detect(buffer.New(testFFTSize))
	for _, b := range silent {
		if math.IsInf(b.Magnitude, 0) || math.IsNaN(b.Magnitude) {
			t.Fatalf("silence produced magnitude %v", b.Magnitude)
		}
	}
}

func TestRefine(t *testing.T) {
	tests := []struct {
		name string
		freq float64
	}{
		{"A4", 440},
		{"between bins", 453.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := NewTransform(testFFTSize, testSampleRate)
			bins := tr.Detect(buffer.FromSlice(utils.GenerateSineWave(testFFTSize, testSampleRate, tt.freq)))
			got := tr.Refine(bins.Peak())
			if math.Abs(got-tt.freq) > 0.1 {
				t.Errorf("Refine() = %v Hz, want %v", got, tt.freq)
			}
		})
	}
}

func TestFFTHotPath(t *testing.T) {
	tr, _ := NewTransform(testFFTSize, testSampleRate)
	input := utils.GenerateComplexWave(testFFTSize, testSampleRate)
	dst := make(Bins, tr.BinsSize())

	// Warm-up call so lazily initialized state is not counted.
	tr.DetectInto(dst, input)
	allocs := testing.AllocsPerRun(100, func() {
		tr.DetectInto(dst, input)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in DetectInto hot path, got %.1f", allocs)
	}
}

func TestBinFrequencyZeroAllocs(t *testing.T) {
	tr, _ := NewTransform(testFFTSize, testSampleRate)
	allocs := testing.AllocsPerRun(100, func() {
		_ = tr.BinFrequency(0)
		_ = tr.BinFrequency(testFFTSize / 2)
		_ = tr.BinFrequency(-1)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in BinFrequency, got %.1f", allocs)
	}
	if tr.BinFrequency(-1) != 0 || tr.BinFrequency(tr.BinsSize()) != 0 {
		t.Error("out of range bins must report 0 Hz")
	}
}

func TestParseHeuristic(t *testing.T) {
	tests := []struct {
		in      string
		want    Heuristic
		wantErr bool
	}{
		{"runtime", OptimizeRuntime, false},
		{"INIT", OptimizeInit, false},
		{"", OptimizeRuntime, false},
		{"fast", OptimizeRuntime, true},
	}
	for _, tt := range tests {
		got, err := ParseHeuristic(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseHeuristic(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func BenchmarkDetect(b *testing.B) {
	for _, h := range []Heuristic{OptimizeRuntime, OptimizeInit} {
		b.Run(h.String(), func(b *testing.B) {
			tr, _ := NewTransform(testFFTSize, testSampleRate, WithHeuristic(h))
			input := utils.GenerateComplexWave(testFFTSize, testSampleRate)
			dst := make(Bins, tr.BinsSize())

			b.ReportAllocs()
			for b.Loop() {
				tr.DetectInto(dst, input)
			}
		})
	}
}
