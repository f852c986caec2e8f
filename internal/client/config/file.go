package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
	"github.com/tidwall/jsonc"
)

// FileConfig is a DTO used exclusively for unmarshalling the config file.
// Intervals use timex.Duration, so they can be strings like "3s" or
// integer nanoseconds.
type FileConfig struct {
	ServerURL         string         `json:"server_url"`
	CachePath         string         `json:"cache_path"`
	ReconnectInterval timex.Duration `json:"reconnect_interval"`
}

// parseFile overlays Config with values from the JSON (comments allowed)
// file named by -c/--config. Without the flag nothing is loaded.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		cfg.ServerURL = fc.ServerURL
	}
	if fc.CachePath != "" {
		cfg.CachePath = fc.CachePath
	}
	if fc.ReconnectInterval.Duration != 0 {
		cfg.ReconnectInterval = fc.ReconnectInterval.Duration
	}
	return nil
}
