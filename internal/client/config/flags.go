package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/spf13/pflag"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a, --server string   base URL of the server
//	-p, --cache string    path of the local snapshot cache
//	-i, --reconnect int   push reconnect interval in seconds
//
// The args are filtered with flagx.FilterArgs first so that flags meant
// for other components do not break parsing.
func parseFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)

	fs.StringVarP(&cfg.ServerURL, "server", "a", cfg.ServerURL, "base URL of the server")
	fs.StringVarP(&cfg.CachePath, "cache", "p", cfg.CachePath, "path of the local snapshot cache")
	reconnect := fs.IntP("reconnect", "i", int(cfg.ReconnectInterval.Seconds()), "push reconnect interval (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, flagx.Names(fs))); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if fs.Changed("reconnect") {
		cfg.ReconnectInterval = time.Duration(*reconnect) * time.Second
	}
	return nil
}
