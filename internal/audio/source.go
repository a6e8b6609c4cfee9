package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"fftune/internal/wavio"
)

// StdinPath selects standard input as the audio source.
const StdinPath = "-"

// ErrNotReady is returned when reading from a source that failed to open or
// is already exhausted.
var ErrNotReady = errors.New("audio source not ready")

// Source supplies mono samples in [-1, 1].
type Source interface {
	// IsReady reports whether samples may still be read.
	IsReady() bool
	// Read fills dst with the next samples and returns how many were read.
	// A short count means the stream ended; at the end Read returns 0 and
	// io.EOF. Reading into an empty dst always succeeds.
	Read(dst []float64) (int, error)
	SampleRate() float64
}

// WavSource streams a WAV file, downmixing all channels.
type WavSource struct {
	dec        *wav.Decoder
	closer     io.Closer
	pcm        *audio.IntBuffer
	channels   int
	bitDepth   int
	sampleRate float64
	frames     int
	done       bool
}

// NewWavSource decodes the WAV stream r. The caller keeps ownership of r.
func NewWavSource(r io.ReadSeeker) (*WavSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, wavio.ErrInvalidFile
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate pcm data: %w", err)
	}

	s := &WavSource{
		dec:        dec,
		channels:   max(int(dec.NumChans), 1),
		bitDepth:   int(dec.BitDepth),
		sampleRate: float64(dec.SampleRate),
		pcm:        &audio.IntBuffer{},
	}
	if frameBytes := s.channels * s.bitDepth / 8; frameBytes > 0 {
		s.frames = int(dec.PCMSize) / frameBytes
	}
	return s, nil
}

// OpenWav opens the WAV file at path, or standard input for StdinPath.
func OpenWav(path string) (*WavSource, error) {
	if path == StdinPath {
		return ReadWav(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	s, err := NewWavSource(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

// ReadWav buffers a non-seekable stream in memory and decodes it.
func ReadWav(r io.Reader) (*WavSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return NewWavSource(bytes.NewReader(data))
}

func (s *WavSource) IsReady() bool { return !s.done }

func (s *WavSource) SampleRate() float64 { return s.sampleRate }

// Channels returns the channel count of the file.
func (s *WavSource) Channels() int { return s.channels }

// Frames returns the length of the stream in samples per channel.
func (s *WavSource) Frames() int { return s.frames }

func (s *WavSource) Read(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.done {
		return 0, io.EOF
	}

	need := len(dst) * s.channels
	if cap(s.pcm.Data) < need {
		s.pcm.Data = make([]int, need)
	}
	s.pcm.Data = s.pcm.Data[:need]

	n, err := s.dec.PCMBuffer(s.pcm)
	if err != nil {
		s.done = true
		return 0, fmt.Errorf("failed to decode pcm data: %w", err)
	}
	frames := wavio.Downmix(dst, s.pcm.Data[:n], s.channels, s.bitDepth)
	if frames < len(dst) {
		s.done = true
	}
	if frames == 0 {
		return 0, io.EOF
	}
	return frames, nil
}

// Close releases the file opened by OpenWav.
func (s *WavSource) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// SliceSource plays samples held in memory.
type SliceSource struct {
	samples    []float64
	sampleRate float64
	pos        int
}

// NewSliceSource returns a source reading samples at sampleRate.
func NewSliceSource(samples []float64, sampleRate float64) *SliceSource {
	return &SliceSource{samples: samples, sampleRate: sampleRate}
}

func (s *SliceSource) IsReady() bool       { return s.pos < len(s.samples) }
func (s *SliceSource) SampleRate() float64 { return s.sampleRate }

func (s *SliceSource) Read(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

var (
	_ Source = (*WavSource)(nil)
	_ Source = (*SliceSource)(nil)
)
