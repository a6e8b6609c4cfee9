package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"fftune/internal/log"
)

// ErrAlreadyRecording is returned by StartRecording while a recording runs.
var ErrAlreadyRecording = errors.New("already recording")

// RecordingName returns the file name used for a recording started at t.
func RecordingName(t time.Time) string {
	return "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
}

// StartRecordingIn records into a new timestamped file inside dir, creating
// dir when needed, and returns the file path.
func (e *Engine) StartRecordingIn(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}
	path := filepath.Join(dir, RecordingName(time.Now()))
	return path, e.StartRecording(path)
}

// StartRecording writes the raw interleaved input to filename as WAV at the
// configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return ErrAlreadyRecording
	}

	bitDepth := e.config.Recording.BitDepth
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported recording bit depth %d", bitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	sampleRate := int(e.config.Detector.SampleRate)
	e.wavEncoder = wav.NewEncoder(file, sampleRate, bitDepth, e.channels, 1)
	e.recordShift = uint(32 - bitDepth)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, e.framesPerBuffer*e.channels),
		SourceBitDepth: bitDepth,
	}

	e.isRecording.Store(true)
	log.Infof("Engine: recording to %s", filename)
	return nil
}

func (e *Engine) StopRecording() error {
	if !e.isRecording.Swap(false) {
		return nil
	}

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}
	return nil
}
