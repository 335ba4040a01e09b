package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        5005,
			BindAddress: "0.0.0.0",
			ReadTimeout: 10,
			IdleTimeout: 60,
		},
		Audio: AudioConfig{
			SampleRate:      24000,
			Channels:        1,
			BitDepth:        16,
			FrameDurationMs: 50,
			LeadInSilenceMs: 100,
		},
		Batching: BatchingConfig{
			MaxChars: 1000,
		},
		Synthesis: SynthesisConfig{
			Endpoint:      "http://127.0.0.1:5006/v1/synthesize",
			APIKey:        "test-key",
			Timeout:       120,
			MaxConcurrent: 10,
			ReadChunkSize: 4096,
			DefaultVoice:  "tara",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "empty bind address",
			mutate:      func(c *Config) { c.Server.BindAddress = "" },
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
		{
			name:        "sample rate out of range",
			mutate:      func(c *Config) { c.Audio.SampleRate = 96000 },
			expectError: true,
			errorMsg:    "sample_rate must be between 8000 and 48000",
		},
		{
			name:        "stereo output rejected",
			mutate:      func(c *Config) { c.Audio.Channels = 2 },
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name:        "invalid bit depth",
			mutate:      func(c *Config) { c.Audio.BitDepth = 24 },
			expectError: true,
			errorMsg:    "bit_depth must be 16",
		},
		{
			name:        "frame duration too short",
			mutate:      func(c *Config) { c.Audio.FrameDurationMs = 5 },
			expectError: true,
			errorMsg:    "frame_duration_ms",
		},
		{
			name:        "batch budget too small",
			mutate:      func(c *Config) { c.Batching.MaxChars = 50 },
			expectError: true,
			errorMsg:    "max_chars must be at least 100",
		},
		{
			name:        "empty synthesis endpoint",
			mutate:      func(c *Config) { c.Synthesis.Endpoint = "" },
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name:        "empty default voice",
			mutate:      func(c *Config) { c.Synthesis.DefaultVoice = "" },
			expectError: true,
			errorMsg:    "default_voice cannot be empty",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	validYAML := `
server:
  port: 5005
  bind_address: "0.0.0.0"
  read_timeout: 10
  idle_timeout: 60

audio:
  sample_rate: 24000
  channels: 1
  bit_depth: 16
  frame_duration_ms: 50
  lead_in_silence_ms: 100

batching:
  max_chars: 1000

synthesis:
  endpoint: "http://127.0.0.1:5006/v1/synthesize"
  api_key: "test-key"
  timeout: 120
  max_concurrent: 10
  read_chunk_size: 4096
  default_voice: "tara"

logging:
  level: "info"
  format: "json"
  output: "stdout"
`

	path := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5005 {
		t.Errorf("Expected port 5005, got %d", cfg.Server.Port)
	}

	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("Expected sample rate 24000, got %d", cfg.Audio.SampleRate)
	}

	if cfg.Audio.GetFrameDuration() != 50*time.Millisecond {
		t.Errorf("Expected frame duration 50ms, got %s", cfg.Audio.GetFrameDuration())
	}

	if cfg.Audio.GetLeadInSilence() != 100*time.Millisecond {
		t.Errorf("Expected lead-in silence 100ms, got %s", cfg.Audio.GetLeadInSilence())
	}

	if cfg.Synthesis.GetTimeoutDuration() != 120*time.Second {
		t.Errorf("Expected synthesis timeout 120s, got %s", cfg.Synthesis.GetTimeoutDuration())
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestConfigLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a mapping"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestConfigLoadFailsValidation(t *testing.T) {
	tempDir := t.TempDir()

	invalidYAML := `
server:
  port: 0
  bind_address: "0.0.0.0"
  read_timeout: 10
  idle_timeout: 60
`

	path := filepath.Join(tempDir, "invalid.yaml")
	if err := os.WriteFile(path, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error from Load")
	}
}
