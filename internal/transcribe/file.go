package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fftune/internal/audio"
	"fftune/internal/config"
	"fftune/internal/log"
	"fftune/internal/midi"
)

// DefaultOutput derives the MIDI path from the input path: the extension is
// replaced by .mid, and standard input becomes stdin.mid.
func DefaultOutput(input string) string {
	if input == audio.StdinPath || input == "" {
		return "stdin.mid"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".mid"
}

// File transcribes the WAV file at input, or standard input for "-", into a
// Standard MIDI File at output. The detector runs at the sample rate of the
// file. CSVDir, Progress and Generator are taken from opts.
func File(ctx context.Context, cfg *config.Config, input, output string, opts Job) (Stats, error) {
	src, err := audio.OpenWav(input)
	if err != nil {
		return Stats{}, fmt.Errorf("cannot read input audio: %w", err)
	}
	defer src.Close()

	local := *cfg
	local.Detector.SampleRate = src.SampleRate()
	log.Debugf("transcribe: %s (%.0f Hz, %d channels, %d frames) with %s",
		input, src.SampleRate(), src.Channels(), src.Frames(), local.Detector.Method)

	writer := midi.NewSMFWriter()
	opts.Config = &local
	opts.Source = src
	opts.Sink = writer

	stats, err := Dispatch(ctx, opts)
	if err != nil {
		return stats, err
	}
	if err := writer.WriteFile(output); err != nil {
		return stats, err
	}
	log.Infof("wrote %d notes to %s", writer.Len(), output)
	return stats, nil
}
