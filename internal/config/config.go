// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/hoops/internal/core/charge"
	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Shot      charge.Config   `yaml:"shot"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

type IndicatorConfig struct {
	// Duration is how long the plane indicator stays visible after a detection.
	Duration time.Duration `yaml:"duration"`
}

type ServerConfig struct {
	// WebSocketAddr is the HTTP listen address; empty disables the WebSocket transport.
	WebSocketAddr string `yaml:"websocket_addr"`
	WebSocketPath string `yaml:"websocket_path"`
	// QUICAddr is the UDP listen address; empty disables the QUIC transport.
	QUICAddr string `yaml:"quic_addr"`
	// CertFile and KeyFile hold the QUIC certificate. When empty a self-signed
	// development certificate is generated at startup.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	MaxSessions      int           `yaml:"max_sessions"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Shot:      charge.DefaultConfig(),
		Indicator: IndicatorConfig{Duration: hoops.DefaultIndicatorDuration},
		Server: ServerConfig{
			WebSocketAddr:    "127.0.0.1:8080",
			WebSocketPath:    "/ws",
			QUICAddr:         "127.0.0.1:8443",
			MaxSessions:      1000,
			HandshakeTimeout: 5 * time.Second,
			WriteTimeout:     5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes YAML from r on top of Default and validates the result.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Shot.Validate(); err != nil {
		return fmt.Errorf("%w: shot: %w", ErrInvalidConfig, err)
	}
	if c.Indicator.Duration <= 0 {
		return fmt.Errorf("%w: indicator duration must be positive", ErrInvalidConfig)
	}
	if c.Server.WebSocketAddr == "" && c.Server.QUICAddr == "" {
		return fmt.Errorf("%w: no transport enabled", ErrInvalidConfig)
	}
	if c.Server.WebSocketAddr != "" && c.Server.WebSocketPath == "" {
		return fmt.Errorf("%w: websocket path is required", ErrInvalidConfig)
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("%w: cert_file and key_file must be set together", ErrInvalidConfig)
	}
	if c.Server.MaxSessions <= 0 {
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	}
	if c.Server.HandshakeTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Controller maps the shot options onto a controller configuration.
func (c Config) Controller() hoops.Config {
	return hoops.Config{
		Charge:            c.Shot,
		IndicatorDuration: c.Indicator.Duration,
	}
}

// LogLevel returns the parsed log level; Validate guarantees it parses.
func (c Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}
