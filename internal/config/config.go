package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Batching  BatchingConfig  `yaml:"batching"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BindAddress string `yaml:"bind_address"`
	ReadTimeout int    `yaml:"read_timeout"` // seconds
	IdleTimeout int    `yaml:"idle_timeout"` // seconds
}

// AudioConfig contains the fixed output audio format and framing parameters
type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	Channels        int `yaml:"channels"`
	BitDepth        int `yaml:"bit_depth"`
	FrameDurationMs int `yaml:"frame_duration_ms"`
	LeadInSilenceMs int `yaml:"lead_in_silence_ms"`
}

// BatchingConfig contains text batching parameters
type BatchingConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// SynthesisConfig contains synthesis backend configuration
type SynthesisConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
	ReadChunkSize int    `yaml:"read_chunk_size"` // bytes
	DefaultVoice  string `yaml:"default_voice"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Batching.Validate(); err != nil {
		return fmt.Errorf("batching config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout must be at least 1 second, got %d", s.ReadTimeout)
	}

	if s.IdleTimeout < 1 {
		return fmt.Errorf("idle_timeout must be at least 1 second, got %d", s.IdleTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.FrameDurationMs < 10 || a.FrameDurationMs > 1000 {
		return fmt.Errorf("frame_duration_ms must be between 10 and 1000, got %d", a.FrameDurationMs)
	}

	if a.LeadInSilenceMs < 0 {
		return fmt.Errorf("lead_in_silence_ms cannot be negative, got %d", a.LeadInSilenceMs)
	}

	return nil
}

// Validate validates batching configuration
func (b *BatchingConfig) Validate() error {
	if b.MaxChars < 100 {
		return fmt.Errorf("max_chars must be at least 100, got %d", b.MaxChars)
	}

	return nil
}

// Validate validates synthesis backend configuration
func (s *SynthesisConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	if s.ReadChunkSize < 512 {
		return fmt.Errorf("read_chunk_size must be at least 512 bytes, got %d", s.ReadChunkSize)
	}

	if s.DefaultVoice == "" {
		return fmt.Errorf("default_voice cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output accepts stdout, stderr, or a file path; no validation needed.

	return nil
}

// GetReadTimeout returns the server read timeout as a time.Duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a time.Duration
func (s *ServerConfig) GetIdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// GetFrameDuration returns the playback duration of one frame
func (a *AudioConfig) GetFrameDuration() time.Duration {
	return time.Duration(a.FrameDurationMs) * time.Millisecond
}

// GetLeadInSilence returns the unpaced lead-in silence duration
func (a *AudioConfig) GetLeadInSilence() time.Duration {
	return time.Duration(a.LeadInSilenceMs) * time.Millisecond
}

// GetTimeoutDuration returns the synthesis request timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}
