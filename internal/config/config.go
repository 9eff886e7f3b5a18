package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/motleylight/LogParser/internal/frame"
)

// Config represents the complete service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	HTTP    HTTPConfig    `yaml:"http"`
	Scanner ScannerConfig `yaml:"scanner"`
	Publish PublishConfig `yaml:"publish"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains TCP ingest server configuration
type ServerConfig struct {
	TCPPort        int    `yaml:"tcp_port"`
	BindAddress    string `yaml:"bind_address"`
	ReadBufferSize int    `yaml:"read_buffer_size"`
	MaxConnections int    `yaml:"max_connections"`
	IdleTimeout    int    `yaml:"idle_timeout"` // seconds
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// ScannerConfig contains frame scanner parameters
type ScannerConfig struct {
	ValidateLength   bool `yaml:"validate_length"`
	DecodeTimestamps bool `yaml:"decode_timestamps"`
	MaxPayload       int  `yaml:"max_payload"`
}

// PublishConfig contains the optional NATS frame sink configuration
type PublishConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TCPPort:        9070,
			BindAddress:    "0.0.0.0",
			ReadBufferSize: 4096,
			MaxConnections: 64,
			IdleTimeout:    300,
		},
		HTTP: HTTPConfig{
			Port:    9071,
			Address: "0.0.0.0",
			Enabled: true,
		},
		Scanner: ScannerConfig{
			ValidateLength: true,
			MaxPayload:     frame.MaxPayloadSize,
		},
		Publish: PublishConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "framelog",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the full configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Scanner.Validate(); err != nil {
		return fmt.Errorf("scanner config: %w", err)
	}

	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.TCPPort < 1 || s.TCPPort > 65535 {
		return fmt.Errorf("tcp_port must be between 1 and 65535, got %d", s.TCPPort)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.ReadBufferSize < 1 {
		return fmt.Errorf("read_buffer_size must be positive, got %d", s.ReadBufferSize)
	}

	if s.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", s.MaxConnections)
	}

	if s.IdleTimeout < 1 {
		return fmt.Errorf("idle_timeout must be at least 1 second, got %d", s.IdleTimeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates scanner configuration
func (s *ScannerConfig) Validate() error {
	if s.MaxPayload < 0 || s.MaxPayload > frame.MaxPayloadSize {
		return fmt.Errorf("max_payload must be between 0 and %d, got %d", frame.MaxPayloadSize, s.MaxPayload)
	}

	return nil
}

// Validate validates publish configuration
func (p *PublishConfig) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.URL == "" {
		return fmt.Errorf("url cannot be empty when publishing is enabled")
	}

	if p.SubjectPrefix == "" {
		return fmt.Errorf("subject_prefix cannot be empty when publishing is enabled")
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

	return nil
}

// GetIdleTimeout returns the connection idle timeout as a time.Duration
func (s *ServerConfig) GetIdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}
