package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
	Store    StoreConfig    `toml:"store"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP control server settings.
type ServerConfig struct {
	Host              string  `toml:"host"`
	Port              int     `toml:"port"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// PlayerConfig contains playback controller and audio output settings.
type PlayerConfig struct {
	ProgressIntervalMS int `toml:"progress_interval_ms"`
	SampleRate         int `toml:"sample_rate"`
	BufferMS           int `toml:"buffer_ms"`
}

// StoreConfig contains model store settings.
type StoreConfig struct {
	QueryTimeoutMS int `toml:"query_timeout_ms"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// ProgressInterval returns the progress polling period.
func (c PlayerConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

// Buffer returns the speaker buffer length.
func (c PlayerConfig) Buffer() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// QueryTimeout returns how long callers wait for a model query before giving up.
func (c StoreConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// Addr returns the host:port the control server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Player.ProgressIntervalMS <= 0:
		return fmt.Errorf("%w: progress interval must be positive", ErrInvalidConfig)
	case c.Player.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	case c.Store.QueryTimeoutMS <= 0:
		return fmt.Errorf("%w: query timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists and falls back to defaults otherwise.
// Environment overrides are applied last.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}
