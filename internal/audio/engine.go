// SPDX-License-Identifier: MIT
/*
Package audio feeds audio into the pitch detectors.

Offline input comes from a Source, typically a WavSource reading a file or
standard input. Live input comes from the Engine:
- Lock-free audio capture using PortAudio
- Hop-wise pitch detection inside the callback
- Noise gate with branchless implementation
- WAV recording with atomic state management

Thread Safety:
- Uses atomic operations for gate and recording state
- Pre-allocates the window, hop and conversion buffers
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"fftune/internal/buffer"
	"fftune/internal/config"
	"fftune/internal/log"
	"fftune/internal/midi"
	"fftune/internal/pitch"
	"fftune/internal/transport"
	"fftune/pkg/bitint"
)

type Engine struct {
	config    *config.Config
	analyzer  pitch.Analyzer
	scheduler *midi.Scheduler
	transport transport.Transport

	// Audio input handling.
	channels        int
	framesPerBuffer int
	inputBuffer     []int32
	inputDevice     *portaudio.DeviceInfo
	inputLatency    time.Duration
	inputStream     *portaudio.Stream

	// Detection state, owned by the callback thread.
	window      *buffer.SampleBuffer
	mono        []float64
	hop         []float64
	hopFill     int
	hopDuration float64
	analyzed    atomic.Uint64

	// Noise gate for signal conditioning.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Int32 // Absolute amplitude threshold (0-2147483647)

	// Recording state and buffers.
	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer
	recordShift uint
}

// NewEngine prepares live detection on the configured input device. Ended
// notes go to sink; every analyzed window is published as a NoteFrame on t.
// Both sink and t may be nil.
func NewEngine(cfg *config.Config, analyzer pitch.Analyzer, sink midi.Sink, t transport.Transport) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	channels := cfg.Audio.InputChannels
	if inputDevice.MaxInputChannels > 0 && channels > inputDevice.MaxInputChannels {
		log.Warnf("Engine: %s has %d input channels, using %d", inputDevice.Name, inputDevice.MaxInputChannels, inputDevice.MaxInputChannels)
		channels = inputDevice.MaxInputChannels
	}

	e := newEngine(cfg, analyzer, sink, t, channels)
	e.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return e, nil
}

// newEngine builds everything except the device binding.
func newEngine(cfg *config.Config, analyzer pitch.Analyzer, sink midi.Sink, t transport.Transport, channels int) *Engine {
	channels = max(channels, 1)
	frames := bitint.NextPowerOfTwo(cfg.Audio.FramesPerBuffer)
	if frames != cfg.Audio.FramesPerBuffer {
		log.Infof("Engine: frames per buffer rounded up from %d to %d", cfg.Audio.FramesPerBuffer, frames)
	}

	events := midi.Tee{eventLog{}}
	if sink != nil {
		events = append(events, sink)
	}

	e := &Engine{
		config:          cfg,
		analyzer:        analyzer,
		scheduler:       midi.NewScheduler(events, cfg.Scheduler.Stiffness, cfg.Scheduler.MinConfidence),
		transport:       t,
		channels:        channels,
		framesPerBuffer: frames,
		inputBuffer:     make([]int32, frames*channels),
		window:          buffer.New(cfg.Detector.BufferSize),
		mono:            make([]float64, frames),
		hop:             make([]float64, cfg.Detector.HopSize),
		hopDuration:     cfg.Detector.HopDuration(),
	}
	e.gateEnabled.Store(cfg.Audio.GateEnabled)
	e.SetGateThreshold(cfg.Audio.GateThreshold)
	return e
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.framesPerBuffer,
		SampleRate:      e.config.Detector.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	log.Infof("Engine: listening on %s (%d ch, %.0f Hz, %d frames, %s)",
		e.inputDevice.Name, e.channels, e.config.Detector.SampleRate, e.framesPerBuffer, e.analyzer.Method())
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}
		if err := e.inputStream.Close(); err != nil {
			return err
		}
		e.inputStream = nil
	}
	return nil
}

// Analyzed returns the number of windows passed to the detector so far.
func (e *Engine) Analyzed() uint64 { return e.analyzed.Load() }

// processInputStream is the audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer[:n])

	if e.isRecording.Load() && e.wavEncoder != nil {
		data := e.sampleBuf.Data[:n]
		for i, sample := range e.inputBuffer[:n] {
			data[i] = int(sample >> e.recordShift)
		}
		e.sampleBuf.Data = data
		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			log.Errorf("Engine: error writing to WAV file: %v", err)
		}
	}
}

// processBuffer converts interleaved input to mono and analyzes every
// completed hop. A closed gate feeds silence.
func (e *Engine) processBuffer(buf []int32) {
	mono := e.mono[:len(buf)/e.channels]
	if e.gateOpen(buf) {
		toMono(mono, buf, e.channels)
	} else {
		clear(mono)
	}

	for len(mono) > 0 {
		n := copy(e.hop[e.hopFill:], mono)
		e.hopFill += n
		mono = mono[n:]
		if e.hopFill == len(e.hop) {
			e.hopFill = 0
			e.analyze()
		}
	}
}

func (e *Engine) analyze() {
	e.window.Read(e.hop)
	notes := e.analyzer.Detect(e.window)
	e.analyzed.Add(1)

	at := e.scheduler.Clock()
	if err := e.scheduler.AddNotes(notes, e.hopDuration); err != nil {
		log.Errorf("Engine: %v", err)
	}
	if e.transport != nil {
		if err := e.transport.Send(transport.NewNoteFrame(at, notes)); err != nil {
			log.Debugf("Engine: publish failed: %v", err)
		}
	}
}

// toMono averages interleaved frames into dst, scaled to [-1, 1].
func toMono(dst []float64, src []int32, channels int) {
	const scale = 1 << 31
	if channels == 1 {
		for i, s := range src[:len(dst)] {
			dst[i] = float64(s) / scale
		}
		return
	}
	for f := range dst {
		sum := 0.0
		for _, s := range src[f*channels : (f+1)*channels] {
			sum += float64(s)
		}
		dst[f] = sum / float64(channels) / scale
	}
}

// Close stops recording and the input stream, then ends all sounding notes.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}
	if err := e.StopInputStream(); err != nil {
		return err
	}
	return e.scheduler.Flush()
}

// eventLog reports finished notes.
type eventLog struct{}

func (eventLog) Add(ev midi.Event) error {
	log.Infof("Note: %s", ev)
	return nil
}
