package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/spf13/pflag"
)

// parseFlags overlays Config fields from command-line flags.
//
// Supported flags:
//
//	-a, --http-addr string    REST/push bind address
//	-g, --grpc-addr string    gRPC health bind address
//	-d, --database-dsn string PostgreSQL DSN
//	-m, --storage string      postgres | memory
//	-s, --secret string       token signing secret
//	-t, --token-ttl int       token lifetime, minutes
//	-l, --log-level string    debug | info | warn | error
//	-b, --s3-bucket string    export bucket
//	-r, --s3-region string    export bucket region
//	-e, --s3-endpoint string  S3-compatible endpoint
//	-u, --s3-access-key string
//	-p, --s3-secret-key string
//
// Arguments that belong to other flag sets (such as --config) are filtered
// out first with flagx.FilterArgs.
func parseFlags(c *Config, args []string) error {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)

	fs.StringVarP(&c.HTTPAddr, "http-addr", "a", c.HTTPAddr, "address and port to serve HTTP on")
	fs.StringVarP(&c.GRPCAddr, "grpc-addr", "g", c.GRPCAddr, "address and port to serve gRPC health on")
	fs.StringVarP(&c.DatabaseDSN, "database-dsn", "d", c.DatabaseDSN, "database DSN")
	fs.StringVarP(&c.Storage, "storage", "m", c.Storage, "storage backend (postgres|memory)")
	fs.StringVarP(&c.SecretKey, "secret", "s", c.SecretKey, "secret key")
	tokenTTL := fs.IntP("token-ttl", "t", int(c.TokenTTL.Minutes()), "token validity (in minutes)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "log level")
	fs.StringVarP(&c.S3Bucket, "s3-bucket", "b", c.S3Bucket, "S3 export bucket")
	fs.StringVarP(&c.S3Region, "s3-region", "r", c.S3Region, "S3 region")
	fs.StringVarP(&c.S3BaseEndpoint, "s3-endpoint", "e", c.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVarP(&c.S3AccessKey, "s3-access-key", "u", c.S3AccessKey, "S3 access key")
	fs.StringVarP(&c.S3SecretKey, "s3-secret-key", "p", c.S3SecretKey, "S3 secret key")

	if err := fs.Parse(flagx.FilterArgs(args, flagx.Names(fs))); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if fs.Changed("token-ttl") {
		c.TokenTTL = time.Duration(*tokenTTL) * time.Minute
	}
	return nil
}
