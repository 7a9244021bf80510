// Package cli implements the sharednotes command: it builds a Manager from
// configuration and runs one operation against it, or serves an in-memory
// record store for local development.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sharednotes/sharednotes.go"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
)

const (
	DefaultURL    = "ws://localhost:8000"
	DefaultListen = "127.0.0.1:8000"

	// EnvURL overrides the store endpoint URL from the config file.
	EnvURL = "SHAREDNOTES_URL"
	// EnvTimeout overrides the RPC timeout from the config file, e.g. "5s".
	EnvTimeout = "SHAREDNOTES_TIMEOUT"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config is the command configuration.
//
// It is read from a YAML file, then environment variables, then flags, each
// overriding the previous one.
type Config struct {
	URL string `yaml:"url"`
	// Zone is "name:owner". Empty uses the store's default zone.
	Zone    string        `yaml:"zone,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Format  Format        `yaml:"format,omitempty"`
	Listen  string        `yaml:"listen,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
	// Engine is the WebSocket client library: "gorilla" or "gws".
	Engine string `yaml:"engine,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		URL:    DefaultURL,
		Format: FormatJSON,
		Listen: DefaultListen,
		Engine: connection.EngineGorilla,
		Log: LogConfig{
			Level: zerolog.InfoLevel.String(),
		},
	}
}

// LoadConfig reads the YAML file at path on top of DefaultConfig.
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.URL = sharednotes.GetEnvOrDefault(EnvURL, c.URL)

	timeout, err := sharednotes.GetEnvDurationOrDefault(EnvTimeout, c.Timeout)
	if err != nil {
		return err
	}
	c.Timeout = timeout

	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("invalid format: %q (must be %q or %q)", c.Format, FormatJSON, FormatText)
	}
	switch c.Engine {
	case connection.EngineGorilla, connection.EngineGWS:
	default:
		return fmt.Errorf("invalid engine: %q (must be %q or %q)", c.Engine, connection.EngineGorilla, connection.EngineGWS)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// NewLogger builds the zerolog logger described by c.Log.
// Logs go to the configured file, or to stderr.
func (c *Config) NewLogger() (*logger.LogData, error) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	build := logger.NewBuild().Level(level)
	if c.Log.File != "" {
		build = build.FromPath(c.Log.File)
	}
	return build.Make()
}
