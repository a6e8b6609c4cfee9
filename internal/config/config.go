package config

import (
	"time"

	"fftune/internal/fft"
)

// Core configuration constants that define the boundaries and defaults
// for the detection engine.
const (
	// Detector defaults
	DefaultMethod        = MethodSpectral
	DefaultBufferSize    = 1024  // Transform and window size
	DefaultHopSize       = 1024  // No overlap
	DefaultSampleRate    = 48000 // Hz, replaced by the file rate when transcribing
	DefaultMaxPolyphony  = 1     // Monophonic
	DefaultRootNote      = 69    // Instrument root when the file does not say
	DefaultWindow        = fft.Welch
	DefaultHeuristic     = fft.OptimizeRuntime
	DefaultStiffness     = 0   // Commit every change immediately
	DefaultMinConfidence = 0.6 // Notes below this are ignored by the scheduler
	DefaultVerbosity     = false

	// Live engine defaults
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 1024
	DefaultInputChannels   = 1
	DefaultLowLatency      = false
	DefaultGateThreshold   = 0.0
	DefaultRecordingDir    = "./recordings"
	DefaultBitDepth        = 32

	// Transport defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 50 * time.Millisecond

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MaxBufferFrames = 65536  // Largest transform
	MaxPolyphony    = 16
)

// Config is the application configuration, loaded from YAML and refined by
// environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Detector  DetectorConfig  `yaml:"detector"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// DetectorConfig selects and sizes the pitch detector.
type DetectorConfig struct {
	Method       Method        `yaml:"method"`
	BufferSize   int           `yaml:"buffer_size"`   // Samples per analysis window
	HopSize      int           `yaml:"hop_size"`      // New samples per window; must divide BufferSize
	SampleRate   float64       `yaml:"sample_rate"`   // Hz
	MaxPolyphony int           `yaml:"max_polyphony"` // Voices reported per window
	ExternalPath string        `yaml:"external_path"` // Instrument WAV for fftune-sfizz
	RootNote     int           `yaml:"root_note"`     // MIDI note of the instrument sample
	Window       fft.Window    `yaml:"window"`
	Heuristic    fft.Heuristic `yaml:"heuristic"`
	Verbose      bool          `yaml:"verbose"`
}

// SchedulerConfig tunes the note event scheduler.
type SchedulerConfig struct {
	Stiffness     int     `yaml:"stiffness"`      // Frames a change must persist
	MinConfidence float64 `yaml:"min_confidence"` // Estimates below are ignored
}

// AudioConfig holds settings of the live input stream.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Callback size in frames
	InputChannels   int     `yaml:"input_channels"`
	LowLatency      bool    `yaml:"low_latency"`
	GateEnabled     bool    `yaml:"gate_enabled"`
	GateThreshold   float64 `yaml:"gate_threshold"` // Peak amplitude in 0..1 below which buffers are treated as silence
}

// RecordingConfig holds settings of the optional WAV recording in live mode.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"`
}

// TransportConfig holds settings for publishing detected notes.
type TransportConfig struct {
	WebSocketAddress string        `yaml:"websocket_address"` // e.g. ":8080"; empty disables
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// NewConfig returns a Config holding every default.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Detector: DetectorConfig{
			Method:       DefaultMethod,
			BufferSize:   DefaultBufferSize,
			HopSize:      DefaultHopSize,
			SampleRate:   DefaultSampleRate,
			MaxPolyphony: DefaultMaxPolyphony,
			RootNote:     DefaultRootNote,
			Window:       DefaultWindow,
			Heuristic:    DefaultHeuristic,
			Verbose:      DefaultVerbosity,
		},
		Scheduler: SchedulerConfig{
			Stiffness:     DefaultStiffness,
			MinConfidence: DefaultMinConfidence,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			LowLatency:      DefaultLowLatency,
			GateThreshold:   DefaultGateThreshold,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// WindowDuration is the length of one analysis window in seconds.
func (d DetectorConfig) WindowDuration() float64 {
	return float64(d.BufferSize) / d.SampleRate
}

// HopDuration is the time between two analysis windows in seconds.
func (d DetectorConfig) HopDuration() float64 {
	return float64(d.HopSize) / d.SampleRate
}
