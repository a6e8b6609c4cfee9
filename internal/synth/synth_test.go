package synth

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"fftune/internal/music"
	"fftune/internal/wavio"
	"fftune/pkg/utils"
)

const (
	testSize       = 1024
	testSampleRate = 48000.0
)

// writeSineInstrument writes one second of a 440 Hz sine.
func writeSineInstrument(t *testing.T, sampleRate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sine.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	samples := utils.GenerateSineWave(sampleRate, float64(sampleRate), 440)
	for i := range samples {
		samples[i] *= 0.8
	}
	if err := wavio.Encode(f, samples, sampleRate, 16); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHarmonicRender(t *testing.T) {
	h := NewHarmonic()
	if err := h.Init(testSize, testSampleRate); err != nil {
		t.Fatal(err)
	}
	dst := make([]float64, testSize)

	h.Start(nil)
	h.Render(dst)
	if music.MeanVolume(dst) != 0 {
		t.Error("no notes must render silence")
	}

	h.Start([]int{69})
	h.Render(dst)
	want := make([]float64, testSize)
	music.Harmonic(want, 440, testSampleRate, 2*testSize, music.DefaultOvertones, music.DefaultDamping)
	for i := range dst {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d = %v, want %v", i, dst[i], want[i])
		}
	}

	// A chord is the sum of its notes.
	single := append([]float64(nil), dst...)
	h.Start([]int{69, 69})
	h.Render(dst)
	for i := range dst {
		if math.Abs(dst[i]-2*single[i]) > 1e-12 {
			t.Fatalf("chord sample %d = %v, want %v", i, dst[i], 2*single[i])
		}
	}
}

func TestHarmonicInitErrors(t *testing.T) {
	if err := NewHarmonic().Init(0, testSampleRate); err == nil {
		t.Error("expected error for zero size")
	}
	if err := NewHarmonic().Init(testSize, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
	// Rendering before Init is silent rather than a crash.
	dst := []float64{1, 2, 3}
	NewHarmonic().Render(dst)
	if dst[0] != 0 || dst[2] != 0 {
		t.Errorf("uninitialized render = %v", dst)
	}
}

func TestSamplerLoad(t *testing.T) {
	path := writeSineInstrument(t, 48000)
	s, err := LoadSampler(path, 69)
	if err != nil {
		t.Fatalf("LoadSampler() error = %v", err)
	}
	if s.RootNote() != 69 {
		t.Errorf("RootNote() = %d, want 69", s.RootNote())
	}
	if err := s.Init(testSize, testSampleRate); err != nil {
		t.Fatal(err)
	}

	dst := make([]float64, testSize)
	s.Start([]int{69})
	s.Render(dst)
	// The root note plays the recording unchanged from the settle offset.
	want := utils.GenerateSineWave(3*testSize, testSampleRate, 440)[2*testSize:]
	for i := range dst {
		if math.Abs(dst[i]-0.8*want[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, dst[i], 0.8*want[i])
		}
	}
}

func TestSamplerTranspose(t *testing.T) {
	s, err := NewSampler(utils.GenerateSineWave(48000, testSampleRate, 440), testSampleRate, 69)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(testSize, testSampleRate); err != nil {
		t.Fatal(err)
	}
	dst := make([]float64, testSize)
	s.Start([]int{81})
	s.Render(dst)

	// An octave up doubles the rate of zero crossings.
	crossings := 0
	for i := 1; i < len(dst); i++ {
		if dst[i-1] < 0 && dst[i] >= 0 {
			crossings++
		}
	}
	want := int(880 * testSize / testSampleRate)
	if crossings < want-1 || crossings > want+1 {
		t.Errorf("rising crossings = %d, want about %d", crossings, want)
	}
}

func TestSamplerPastEnd(t *testing.T) {
	s, _ := NewSampler([]float64{1, 1, 1, 1}, testSampleRate, 60)
	if err := s.Init(4, testSampleRate); err != nil {
		t.Fatal(err)
	}
	dst := make([]float64, 4)
	s.Start([]int{60})
	s.Render(dst)
	for i, v := range dst {
		if v != 0 {
			t.Errorf("sample %d = %v, want silence past the end", i, v)
		}
	}
}

func TestSamplerResamples(t *testing.T) {
	path := writeSineInstrument(t, 44100)
	s, err := LoadSampler(path, 69)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(testSize, testSampleRate); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := len(s.samples); math.Abs(float64(got)-testSampleRate) > 0.01*testSampleRate {
		t.Errorf("resampled length = %d, want about %v", got, testSampleRate)
	}
}

func TestNewFallsBack(t *testing.T) {
	if _, ok := New("", 69).(*Harmonic); !ok {
		t.Error("empty path must use the harmonic generator")
	}
	if _, ok := New(filepath.Join(t.TempDir(), "missing.wav"), 69).(*Harmonic); !ok {
		t.Error("missing instrument must fall back to the harmonic generator")
	}
	bad := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(bad, []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := New(bad, 69).(*Harmonic); !ok {
		t.Error("invalid instrument must fall back to the harmonic generator")
	}
	if _, ok := New(writeSineInstrument(t, 48000), 69).(*Sampler); !ok {
		t.Error("valid instrument must load a sampler")
	}
}

func TestNewSamplerErrors(t *testing.T) {
	if _, err := NewSampler(nil, testSampleRate, 69); err != ErrEmptyInstrument {
		t.Errorf("error = %v, want ErrEmptyInstrument", err)
	}
	if _, err := NewSampler([]float64{0}, 0, 69); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
