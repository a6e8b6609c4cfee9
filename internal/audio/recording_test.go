// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fftune/internal/wavio"
)

func TestRecordingStartStop(t *testing.T) {
	engine := newTestEngine(t, 2, nil, nil)
	filename := filepath.Join(t.TempDir(), "test_recording.wav")

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if !engine.isRecording.Load() {
		t.Error("Engine should be in recording state")
	}
	if engine.outputFile == nil || engine.wavEncoder == nil || engine.sampleBuf == nil {
		t.Fatal("Recording resources should be initialized")
	}
	if got, want := len(engine.sampleBuf.Data), engine.framesPerBuffer*2; got != want {
		t.Errorf("Buffer size mismatch: got %d, want %d", got, want)
	}

	signal := interleave(testBuffer[:engine.framesPerBuffer], 2)
	for range 3 {
		engine.processInputStream(signal)
	}

	outputFile := engine.outputFile
	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if engine.isRecording.Load() || engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording state should be cleared after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	clip, err := wavio.Decode(f)
	if err != nil {
		t.Fatalf("recorded file does not decode: %v", err)
	}
	if clip.SampleRate != testSampleRate {
		t.Errorf("SampleRate = %d, want %d", clip.SampleRate, testSampleRate)
	}
	if got, want := len(clip.Samples), 3*engine.framesPerBuffer; got != want {
		t.Errorf("recorded %d frames, want %d", got, want)
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	t.Run("Already recording", func(t *testing.T) {
		engine := newTestEngine(t, 1, nil, nil)
		if err := engine.StartRecording(filepath.Join(dir, "a.wav")); err != nil {
			t.Fatal(err)
		}
		defer engine.StopRecording()
		if err := engine.StartRecording(filepath.Join(dir, "b.wav")); !errors.Is(err, ErrAlreadyRecording) {
			t.Errorf("error = %v, want ErrAlreadyRecording", err)
		}
	})

	t.Run("Invalid path", func(t *testing.T) {
		engine := newTestEngine(t, 1, nil, nil)
		if err := engine.StartRecording("/nonexistent/path/file.wav"); err == nil {
			t.Error("Expected error but got none")
		}
	})

	t.Run("Unsupported bit depth", func(t *testing.T) {
		engine := newTestEngine(t, 1, nil, nil)
		engine.config.Recording.BitDepth = 12
		if err := engine.StartRecording(filepath.Join(dir, "c.wav")); err == nil {
			t.Error("Expected error but got none")
		}
	})

	t.Run("Stop when not recording", func(t *testing.T) {
		engine := newTestEngine(t, 1, nil, nil)
		if err := engine.StopRecording(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}

func TestStartRecordingIn(t *testing.T) {
	engine := newTestEngine(t, 1, nil, nil)
	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	path, err := engine.StartRecordingIn(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close engine: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "recording-") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Recording file was not created: %v", err)
	}
}

func TestRecordingName(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got, want := RecordingName(at), "recording-04-03-2025-050607.wav"; got != want {
		t.Errorf("RecordingName() = %q, want %q", got, want)
	}
}

func BenchmarkRecordingProcess(b *testing.B) {
	engine := newTestEngine(b, 1, nil, nil)
	if err := engine.StartRecording(filepath.Join(b.TempDir(), "bench.wav")); err != nil {
		b.Fatal(err)
	}
	defer engine.StopRecording()

	b.ReportAllocs()
	for b.Loop() {
		engine.processInputStream(testBuffer[:engine.framesPerBuffer])
	}
}
