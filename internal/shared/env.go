package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override values from config.toml.
const (
	EnvDatabasePath     = "PODPLAY_DATABASE_PATH"
	EnvServerHost       = "PODPLAY_SERVER_HOST"
	EnvServerPort       = "PODPLAY_SERVER_PORT"
	EnvLogLevel         = "PODPLAY_LOG_LEVEL"
	EnvProgressInterval = "PODPLAY_PROGRESS_INTERVAL_MS"
	EnvQueryTimeout     = "PODPLAY_QUERY_TIMEOUT_MS"
)

// LoadEnv reads .env files into the process environment. Missing files are ignored.
//
// With no paths, ".env" is used.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with any PODPLAY_* variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}

	ints := []struct {
		key    string
		target *int
	}{
		{EnvServerPort, &c.Server.Port},
		{EnvProgressInterval, &c.Player.ProgressIntervalMS},
		{EnvQueryTimeout, &c.Store.QueryTimeoutMS},
	}
	for _, entry := range ints {
		v := os.Getenv(entry.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, entry.key, v)
		}
		*entry.target = n
	}

	return nil
}
