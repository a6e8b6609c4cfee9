package fft

import (
	"math"
	"testing"
)

func TestWelch(t *testing.T) {
	const n = 8
	coeffs := Welch.Coefficients(n)
	want := []float64{0, 0.4375, 0.75, 0.9375, 1, 0.9375, 0.75, 0.4375}
	for i := range want {
		if math.Abs(coeffs[i]-want[i]) > 1e-12 {
			t.Errorf("welch[%d] = %v, want %v", i, coeffs[i], want[i])
		}
	}
}

func TestWindowShapes(t *testing.T) {
	const n = 1024
	tests := []struct {
		w      Window
		first  float64
		center float64
	}{
		{Welch, 0, 1},
		{Rectangular, 1, 1},
		{Hann, 0, 1},
		{Hamming, 4.0 / 46.0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.w.String(), func(t *testing.T) {
			c := tt.w.Coefficients(n)
			if math.Abs(c[0]-tt.first) > 1e-12 {
				t.Errorf("first weight = %v, want %v", c[0], tt.first)
			}
			if math.Abs(c[n/2]-tt.center) > 1e-12 {
				t.Errorf("center weight = %v, want %v", c[n/2], tt.center)
			}
			for i := 1; i < n/2; i++ {
				if math.Abs(c[i]-c[n-i]) > 1e-12 {
					t.Fatalf("not symmetric at %d", i)
				}
			}
		})
	}
}

func TestGonumWindows(t *testing.T) {
	for _, w := range []Window{BartlettHann, Blackman, BlackmanNuttall, Lanczos, Nuttall} {
		c := w.Coefficients(256)
		peak := 0.0
		for _, v := range c {
			peak = math.Max(peak, v)
		}
		if peak <= 0.9 || peak > 1+1e-9 {
			t.Errorf("%v: peak weight %v", w, peak)
		}
		if c[0] > 0.1 {
			t.Errorf("%v: edge weight %v, want tapered", w, c[0])
		}
	}
}

func TestApplyMatchesCoefficients(t *testing.T) {
	for w := range windowNames {
		samples := make([]float64, 64)
		for i := range samples {
			samples[i] = 2
		}
		w.Apply(samples)
		c := w.Coefficients(64)
		for i := range samples {
			if math.Abs(samples[i]-2*c[i]) > 1e-12 {
				t.Fatalf("%v: sample %d = %v, want %v", w, i, samples[i], 2*c[i])
			}
		}
		if got := w.Weight(5, 64); math.Abs(got-c[5]) > 1e-12 {
			t.Errorf("%v: Weight(5) = %v, want %v", w, got, c[5])
		}
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		name    string
		want    Window
		wantErr bool
	}{
		{"welch", Welch, false},
		{"", Welch, false},
		{"Hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"rectangular", Rectangular, false},
		{"blackman", Blackman, false},
		{"kaiser", Welch, true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.name)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindow(%q) = %v, %v", tt.name, got, err)
		}
	}

	var w Window
	if err := w.UnmarshalText([]byte("nuttall")); err != nil || w != Nuttall {
		t.Errorf("UnmarshalText = %v, %v", w, err)
	}
	text, _ := Hann.MarshalText()
	if string(text) != "hann" {
		t.Errorf("MarshalText = %q", text)
	}
}

func TestWindowReducesLeakage(t *testing.T) {
	const n = 1024
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 10.5 * float64(i) / n)
	}
	rect, _ := NewTransform(n, n, WithWindow(Rectangular))
	welch, _ := NewTransform(n, n)
	r := rect.DetectInto(make(Bins, rect.BinsSize()), samples)
	w := welch.DetectInto(make(Bins, welch.BinsSize()), samples)
	// Far from the tone the windowed spectrum must be quieter.
	if w[200].Magnitude >= r[200].Magnitude {
		t.Errorf("welch leakage %v dB >= rectangular %v dB", w[200].Magnitude, r[200].Magnitude)
	}
	if welch.Window() != Welch || rect.Window() != Rectangular {
		t.Error("Window() does not report the configured window")
	}
}
