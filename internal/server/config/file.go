package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations accept
// strings such as "90s" or integer nanoseconds. Zero values leave the
// corresponding Config field untouched.
type FileConfig struct {
	HTTPAddr                string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr                string         `json:"grpc_addr" yaml:"grpc_addr"`
	DatabaseDSN             string         `json:"database_dsn" yaml:"database_dsn"`
	Storage                 string         `json:"storage" yaml:"storage"`
	SecretKey               string         `json:"secret_key" yaml:"secret_key"`
	TokenTTL                timex.Duration `json:"token_ttl" yaml:"token_ttl"`
	AuthGracePeriod         timex.Duration `json:"auth_grace_period" yaml:"auth_grace_period"`
	WriteTimeout            timex.Duration `json:"write_timeout" yaml:"write_timeout"`
	SendQueueSize           int            `json:"send_queue_size" yaml:"send_queue_size"`
	RevocationPurgeInterval timex.Duration `json:"revocation_purge_interval" yaml:"revocation_purge_interval"`
	HealthCheckInterval     timex.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	LogLevel                string         `json:"log_level" yaml:"log_level"`
	S3Bucket                string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3AccessKey             string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey             string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	ExportLinkTTL           timex.Duration `json:"export_link_ttl" yaml:"export_link_ttl"`
}

// parseFile loads the file named by -c/--config, if any, and overlays it.
// The format follows the extension: .yaml/.yml is YAML, anything else is
// JSON with comments and trailing commas allowed.
func parseFile(c *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	str(&c.HTTPAddr, fc.HTTPAddr)
	str(&c.GRPCAddr, fc.GRPCAddr)
	str(&c.DatabaseDSN, fc.DatabaseDSN)
	str(&c.Storage, fc.Storage)
	str(&c.SecretKey, fc.SecretKey)
	dur(&c.TokenTTL, fc.TokenTTL)
	dur(&c.AuthGracePeriod, fc.AuthGracePeriod)
	dur(&c.WriteTimeout, fc.WriteTimeout)
	if fc.SendQueueSize > 0 {
		c.SendQueueSize = fc.SendQueueSize
	}
	dur(&c.RevocationPurgeInterval, fc.RevocationPurgeInterval)
	dur(&c.HealthCheckInterval, fc.HealthCheckInterval)
	str(&c.LogLevel, fc.LogLevel)
	str(&c.S3Bucket, fc.S3Bucket)
	str(&c.S3Region, fc.S3Region)
	str(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	str(&c.S3AccessKey, fc.S3AccessKey)
	str(&c.S3SecretKey, fc.S3SecretKey)
	dur(&c.ExportLinkTTL, fc.ExportLinkTTL)
}
