// SPDX-License-Identifier: MIT

// Package buffer holds the fixed-size sample window every detector reads from.
package buffer

import (
	"bufio"
	"io"
	"strconv"
)

// SampleBuffer is a fixed-capacity window of mono samples. Reading new
// samples slides the window forward without reallocating, so a single buffer
// can be fed hop by hop from a file or an audio callback.
type SampleBuffer struct {
	data []float64
}

// New allocates a window of size samples, initially silent.
func New(size int) *SampleBuffer {
	if size < 0 {
		size = 0
	}
	return &SampleBuffer{data: make([]float64, size)}
}

// FromSlice wraps a copy of samples as a window of len(samples).
func FromSlice(samples []float64) *SampleBuffer {
	b := New(len(samples))
	copy(b.data, samples)
	return b
}

// Size returns the fixed capacity of the window.
func (b *SampleBuffer) Size() int {
	return len(b.data)
}

// Data exposes the window in chronological order, oldest sample first.
// Callers may modify samples in place but must not retain the slice across
// reads.
func (b *SampleBuffer) Data() []float64 {
	return b.data
}

// Read discards the len(src) oldest samples and appends src at the tail.
// When src is longer than the window only its newest Size() samples are kept.
func (b *SampleBuffer) Read(src []float64) {
	if len(src) > len(b.data) {
		src = src[len(src)-len(b.data):]
	}
	b.Cycle(len(src))
	copy(b.data[len(b.data)-len(src):], src)
}

// ReadBuffer replaces the whole window with the contents of src.
func (b *SampleBuffer) ReadBuffer(src *SampleBuffer) {
	b.Read(src.data)
}

// Cycle shifts the window left by n samples. The n tail samples keep their
// stale values until the next Read overwrites them.
func (b *SampleBuffer) Cycle(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		return
	}
	copy(b.data, b.data[n:])
}

// Write copies the window into dst and returns the number of samples copied.
func (b *SampleBuffer) Write(dst []float64) int {
	return copy(dst, b.data)
}

// Clear silences the window.
func (b *SampleBuffer) Clear() {
	clear(b.data)
}

// CSV writes one sample per line.
func (b *SampleBuffer) CSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var scratch []byte
	for _, v := range b.data {
		scratch = strconv.AppendFloat(scratch[:0], v, 'f', 6, 64)
		scratch = append(scratch, '\n')
		if _, err := bw.Write(scratch); err != nil {
			return err
		}
	}
	return bw.Flush()
}
