// SPDX-License-Identifier: MIT

// Package transcribe converts recorded audio into note events.
//
// The source is read hop by hop into a sliding window. Before the first
// window, buffer-hop samples are read so that every following hop completes
// a window. Each window is analyzed by a detector, and the detected notes are
// fed to a scheduler clocked by the hop duration.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"fftune/internal/audio"
	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/fft"
	"fftune/internal/log"
	"fftune/internal/midi"
	"fftune/internal/pitch"
	"fftune/internal/synth"
)

// ErrEmptyInput is returned when the source ends before the first window.
var ErrEmptyInput = errors.New("input too short for one analysis window")

// Job describes one transcription.
type Job struct {
	Config *config.Config
	Source audio.Source
	Sink   midi.Sink

	// CSVDir, when set, receives the samples and spectrum of every window.
	CSVDir string
	// Progress, when set, shows a progress bar on the writer.
	Progress io.Writer
	// Generator replaces the instrument loaded for fftune-sfizz.
	Generator synth.ToneGenerator
}

// Stats summarizes a finished run.
type Stats struct {
	Method   config.Method
	Windows  int
	Duration time.Duration // audio time covered
	Elapsed  time.Duration
}

// spectrumSource is implemented by the frequency domain algorithms.
type spectrumSource interface {
	Spectrum() fft.Bins
}

// sizedSource knows its length in samples.
type sizedSource interface {
	Frames() int
}

// Dispatch builds the detector selected by the configured method and runs
// the job with it.
func Dispatch(ctx context.Context, job Job) (Stats, error) {
	if err := job.Config.Validate(); err != nil {
		return Stats{}, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := job.Config.Detector
	switch cfg.Method {
	case config.MethodSpectral:
		algo, err := pitch.NewSpectral(cfg)
		return run(ctx, job, algo, err)
	case config.MethodSfizz:
		gen := job.Generator
		if gen == nil {
			gen = synth.New(cfg.ExternalPath, cfg.RootNote)
		}
		algo, err := pitch.NewSfizz(cfg, gen)
		return run(ctx, job, algo, err)
	case config.MethodYin:
		algo, err := pitch.NewYin(cfg)
		return run(ctx, job, algo, err)
	case config.MethodYinPatient:
		algo, err := pitch.NewPatientYin(cfg)
		return run(ctx, job, algo, err)
	case config.MethodFastComb:
		algo, err := pitch.NewFastComb(cfg)
		return run(ctx, job, algo, err)
	case config.MethodDoubleFFT:
		algo, err := pitch.NewDoubleFFT(cfg)
		return run(ctx, job, algo, err)
	case config.MethodSchmitt:
		algo, err := pitch.NewSchmitt(cfg)
		return run(ctx, job, algo, err)
	}
	return Stats{}, fmt.Errorf("%w: %s", config.ErrInvalidAlgorithm, cfg.Method)
}

func run[A pitch.Algorithm](ctx context.Context, job Job, algo A, err error) (Stats, error) {
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create %s detector: %w", job.Config.Detector.Method, err)
	}
	det := pitch.NewDetector(algo, job.Config.Detector.Method, job.Config.Detector.Verbose)
	return Run(ctx, job, det)
}

// Run transcribes the job's source with det. The configuration must match
// the source's sample rate and be valid.
func Run[A pitch.Algorithm](ctx context.Context, job Job, det *pitch.Detector[A]) (Stats, error) {
	cfg := job.Config
	if err := cfg.Validate(); err != nil {
		return Stats{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if !job.Source.IsReady() {
		return Stats{}, audio.ErrNotReady
	}

	start := time.Now()
	stats := Stats{Method: det.Method()}
	buf := buffer.New(cfg.Detector.BufferSize)
	hop := make([]float64, cfg.Detector.HopSize)
	hopDuration := cfg.Detector.HopDuration()
	scheduler := midi.NewScheduler(job.Sink, cfg.Scheduler.Stiffness, cfg.Scheduler.MinConfidence)

	if pre := buf.Size() - len(hop); pre > 0 {
		preroll := make([]float64, pre)
		n, err := readFull(job.Source, preroll)
		if err != nil {
			return stats, err
		}
		if n < pre {
			return stats, ErrEmptyInput
		}
		buf.Read(preroll)
	}

	var exporter *csvExporter
	if job.CSVDir != "" {
		var err error
		if exporter, err = newCSVExporter(job.CSVDir); err != nil {
			return stats, err
		}
	}

	bar := newProgress(job, len(hop))
	defer bar.wait()

	for {
		if err := ctx.Err(); err != nil {
			bar.abort()
			return stats, err
		}

		iter := time.Now()
		n, err := readFull(job.Source, hop)
		if err != nil {
			bar.abort()
			return stats, err
		}
		if n == 0 {
			break
		}
		clear(hop[n:])
		buf.Read(hop)

		notes := det.Detect(buf)
		if exporter != nil {
			if err := exporter.write(stats.Windows, buf, det.Algorithm()); err != nil {
				bar.abort()
				return stats, err
			}
		}
		if err := scheduler.AddNotes(notes, hopDuration); err != nil {
			bar.abort()
			return stats, err
		}
		stats.Windows++
		bar.increment(time.Since(iter))

		if n < len(hop) {
			break
		}
	}
	bar.complete()
	if stats.Windows == 0 {
		return stats, ErrEmptyInput
	}

	if err := scheduler.Flush(); err != nil {
		return stats, err
	}
	stats.Duration = time.Duration(scheduler.Clock() * float64(time.Second))
	stats.Elapsed = time.Since(start)
	log.Debugf("transcribe: %d windows of %s in %s", stats.Windows, stats.Method, stats.Elapsed)
	return stats, nil
}

// readFull reads until dst is full or the source ends. It returns the
// number of samples read; the end of the stream is not an error.
func readFull(src audio.Source, dst []float64) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := src.Read(dst[total:])
		total += n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read audio: %w", err)
		}
	}
	return total, nil
}

// progress wraps an optional mpb bar.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgress(job Job, hop int) *progress {
	if job.Progress == nil {
		return &progress{}
	}
	total := int64(0)
	if s, ok := job.Source.(sizedSource); ok {
		total = int64((s.Frames() - job.Config.Detector.BufferSize + hop + hop - 1) / hop)
	}
	p := mpb.New(mpb.WithOutput(job.Progress), mpb.WithWidth(64))
	bar := p.AddBar(max(total, 0),
		mpb.PrependDecorators(
			decor.Name("Transcribing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &progress{p: p, bar: bar}
}

func (p *progress) increment(d time.Duration) {
	if p.bar != nil {
		p.bar.EwmaIncrement(d)
	}
}

func (p *progress) complete() {
	if p.bar != nil {
		p.bar.SetTotal(-1, true)
	}
}

func (p *progress) abort() {
	if p.bar != nil {
		p.bar.Abort(false)
	}
}

func (p *progress) wait() {
	if p.p != nil {
		p.p.Wait()
	}
}

// csvExporter writes one pair of files per window.
type csvExporter struct {
	dir string
}

func newCSVExporter(dir string) (*csvExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}
	return &csvExporter{dir: dir}, nil
}

func (c *csvExporter) write(window int, buf *buffer.SampleBuffer, algo any) error {
	if err := c.file(fmt.Sprintf("samples-%06d.csv", window), buf.CSV); err != nil {
		return err
	}
	s, ok := algo.(spectrumSource)
	if !ok || len(s.Spectrum()) == 0 {
		return nil
	}
	return c.file(fmt.Sprintf("spectrum-%06d.csv", window), func(w io.Writer) error {
		return fft.WriteCSV(w, s.Spectrum())
	})
}

func (c *csvExporter) file(name string, write func(io.Writer) error) error {
	path := filepath.Join(c.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
