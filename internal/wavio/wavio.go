// SPDX-License-Identifier: MIT

// Package wavio converts between go-audio PCM buffers and the mono float
// samples the detectors work on.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidFile is returned for input that is not a RIFF/WAVE stream.
var ErrInvalidFile = errors.New("not a valid wav file")

// Scale returns the divisor mapping integer samples of bitDepth to [-1, 1].
func Scale(bitDepth int) float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	return math.Exp2(float64(bitDepth - 1))
}

// Downmix averages the interleaved frames of src into dst and returns the
// number of frames written. Samples are normalized by bitDepth; 8 bit WAV
// data is unsigned and is recentred first.
func Downmix(dst []float64, src []int, channels, bitDepth int) int {
	if channels < 1 {
		channels = 1
	}
	scale := Scale(bitDepth)
	var offset float64
	if bitDepth == 8 {
		offset = 128
	}
	frames := min(len(src)/channels, len(dst))
	for f := range frames {
		sum := 0.0
		for c := range channels {
			sum += float64(src[f*channels+c]) - offset
		}
		dst[f] = sum / float64(channels) / scale
	}
	return frames
}

// Quantize converts samples in [-1, 1] to integers of bitDepth, clamping out
// of range values.
func Quantize(dst []int, src []float64, bitDepth int) {
	scale := Scale(bitDepth)
	maxVal := scale - 1
	for i, v := range src[:min(len(src), len(dst))] {
		s := math.Round(v * scale)
		dst[i] = int(math.Max(-scale, math.Min(maxVal, s)))
	}
}

// Clip is a decoded mono WAV file.
type Clip struct {
	Samples    []float64
	SampleRate int
	// RootNote is the MIDI unity note of the sampler chunk, or -1.
	RootNote int
}

// Decode reads a whole WAV stream, downmixed to mono.
func Decode(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode pcm data: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	channels := int(dec.NumChans)
	samples := make([]float64, len(buf.Data)/max(channels, 1))
	n := Downmix(samples, buf.Data, channels, bitDepth)

	clip := &Clip{
		Samples:    samples[:n],
		SampleRate: int(dec.SampleRate),
		RootNote:   -1,
	}

	// Chunks after the PCM data, such as smpl, are only visited by
	// ReadMetadata.
	dec.ReadMetadata()
	if dec.Metadata != nil && dec.Metadata.SamplerInfo != nil {
		clip.RootNote = int(dec.Metadata.SamplerInfo.MIDIUnityNote)
	}
	return clip, nil
}

// Encode writes mono samples as a PCM WAV stream of bitDepth.
func Encode(w io.WriteSeeker, samples []float64, sampleRate, bitDepth int) error {
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	Quantize(buf.Data, samples, bitDepth)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return enc.Close()
}
