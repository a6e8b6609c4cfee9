// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"fftune/internal/log"
	"fftune/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Validation failures. Every error returned by Validate wraps one of these.
var (
	ErrHopMismatch         = errors.New("invalid hop size: the buffer size must be an integer multiple of the hop size")
	ErrExternalPathMissing = errors.New("this pitch detection method requires the external path to be set")
	ErrInvalidAlgorithm    = errors.New("invalid algorithm chosen")
	ErrBufferSize          = errors.New("buffer size must be a power of two")
	ErrSampleRate          = errors.New("sample rate out of range")
	ErrPolyphony           = errors.New("polyphony out of range")
	ErrScheduler           = errors.New("invalid scheduler settings")
	ErrAudio               = errors.New("invalid audio settings")
	ErrTransport           = errors.New("invalid transport settings")
)

// LoadConfig loads configuration with Load and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml", "fftune.yaml"). If no file is found,
// it uses built-in defaults. Environment variable overrides apply last. The result
// is not validated, so callers can refine it with flags first.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"fftune.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides apply after the file.
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Validate checks the whole configuration and returns the first problem
// found. An invalid configuration must never reach a detector.
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}

	s := c.Scheduler
	if s.Stiffness < 0 {
		return fmt.Errorf("%w: stiffness %d is negative", ErrScheduler, s.Stiffness)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %v outside [0, 1]", ErrScheduler, s.MinConfidence)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("%w: input_device %d", ErrAudio, a.InputDevice)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: frames_per_buffer %d", ErrAudio, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("%w: input_channels %d", ErrAudio, a.InputChannels)
	}

	if c.Recording.Enabled && c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 && c.Recording.BitDepth != 32 {
		return fmt.Errorf("%w: bit_depth %d", ErrAudio, c.Recording.BitDepth)
	}

	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("%w: udp_target_address must be set when UDP is enabled", ErrTransport)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("%w: udp_send_interval must be positive when UDP is enabled", ErrTransport)
		}
	}
	return nil
}

// Validate checks the detector settings in the order the errors are most
// useful to a user: sizes, then the algorithm and its resources.
func (d DetectorConfig) Validate() error {
	if d.HopSize <= 0 || d.BufferSize < d.HopSize || d.BufferSize%d.HopSize != 0 {
		return fmt.Errorf("%w (buffer %d, hop %d)", ErrHopMismatch, d.BufferSize, d.HopSize)
	}
	if !d.Method.Valid() {
		return ErrInvalidAlgorithm
	}
	if d.Method.NeedsExternalPath() && d.ExternalPath == "" {
		return fmt.Errorf("%w (%s)", ErrExternalPathMissing, d.Method)
	}
	if !bitint.IsPowerOfTwo(d.BufferSize) || d.BufferSize > MaxBufferFrames {
		return fmt.Errorf("%w, got %d", ErrBufferSize, d.BufferSize)
	}
	if d.SampleRate < MinSampleRate || d.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: %v Hz", ErrSampleRate, d.SampleRate)
	}
	if d.MaxPolyphony < 1 || d.MaxPolyphony > MaxPolyphony {
		return fmt.Errorf("%w: %d", ErrPolyphony, d.MaxPolyphony)
	}
	return nil
}

// applyEnvOverrides reads ENV_* variables. Unparseable values are ignored
// with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Infof("configuration: overriding debug from env: %v", bVal)
		} else {
			log.Warnf("configuration: ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}

	// ENV_METHOD
	if val, ok := os.LookupEnv("ENV_METHOD"); ok {
		m, err := ParseMethod(val)
		if err != nil {
			log.Warnf("configuration: %v", err)
		}
		c.Detector.Method = m
		log.Infof("configuration: overriding detector.method from env: %s", m)
	}

	// ENV_POLYPHONY
	if val, ok := os.LookupEnv("ENV_POLYPHONY"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Detector.MaxPolyphony = n
			log.Infof("configuration: overriding detector.max_polyphony from env: %d", n)
		} else {
			log.Warnf("configuration: ignoring ENV_POLYPHONY=%q: %v", val, err)
		}
	}

	// ENV_WEBSOCKET_ADDRESS
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		log.Infof("configuration: overriding transport.websocket_address from env: %s", val)
	}

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Infof("configuration: overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Infof("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Infof("configuration: overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
