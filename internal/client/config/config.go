package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the timekeeper CLI.
//
// Fields:
//   - ServerURL: base URL of the server's REST API, e.g. http://127.0.0.1:8080.
//   - CachePath: SQLite file holding the last snapshots seen from the server.
//   - ReconnectInterval: pause between push channel reconnect attempts.
type Config struct {
	ServerURL         string
	CachePath         string
	ReconnectInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.CachePath = "timekeeper.db"
	c.ReconnectInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays the
// environment, an optional config file and finally command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url must be an http(s) URL, got %q", c.ServerURL)
	}
	if c.ReconnectInterval <= 0 {
		return errors.New("reconnect interval must be positive")
	}
	return nil
}

// parseEnv overlays TIMEKEEPER_SERVER and TIMEKEEPER_CACHE when set.
func parseEnv(c *Config) {
	if v := os.Getenv("TIMEKEEPER_SERVER"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("TIMEKEEPER_CACHE"); v != "" {
		c.CachePath = v
	}
}
