// Package config loads runtime configuration for the timekeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: TIMEKEEPER_SERVER, TIMEKEEPER_CACHE.
//  3. Optional JSON file (comments allowed) selected with -c or --config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
//	{
//	  // where the server listens
//	  "server_url": "http://127.0.0.1:8080",
//	  "cache_path": "timekeeper.db",
//	  "reconnect_interval": "3s"
//	}
package config
