package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFiles are loaded into the process environment before it is read.
// Variables already set in the environment win over the files.
var dotenvFiles = []string{".env"}

// parseEnv overlays values from the environment.
//
//	PORT                 HTTP port, or a full host:port
//	GRPC_ADDR            gRPC bind address
//	DATABASE_URL         PostgreSQL DSN
//	STORAGE              postgres | memory
//	JWT_SECRET           token signing secret
//	TOKEN_TTL            token lifetime (Go duration)
//	LOG_LEVEL            debug | info | warn | error
//	S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY
func parseEnv(c *Config) {
	for _, f := range dotenvFiles {
		// a missing .env is normal
		_ = godotenv.Load(f)
	}

	if v, ok := lookup("PORT"); ok {
		c.HTTPAddr = portToAddr(v)
	}
	setString(&c.GRPCAddr, "GRPC_ADDR")
	setString(&c.DatabaseDSN, "DATABASE_URL")
	setString(&c.Storage, "STORAGE")
	setString(&c.SecretKey, "JWT_SECRET")
	setDuration(&c.TokenTTL, "TOKEN_TTL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3BaseEndpoint, "S3_ENDPOINT")
	setString(&c.S3AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3SecretKey, "S3_SECRET_KEY")
}

// portToAddr turns a bare port number into a listen address.
func portToAddr(v string) string {
	if _, err := strconv.Atoi(v); err == nil {
		return ":" + v
	}
	return v
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
