// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authd settings from flags, environment and an
// optional YAML file.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Keys.
const (
	KeyHTTPAddr         = "http-addr"
	KeyMetricsAddr      = "metrics-addr"
	KeyLogFormat        = "log-format"
	KeyDatabaseURL      = "database-url"
	KeyJWTKey           = "jwt-key"
	KeyCookieName       = "cookie-name"
	KeyCookieSecure     = "cookie-secure"
	KeySessionTTL       = "session-ttl"
	KeyRedisAddr        = "redis-addr"
	KeyDBConnectRetries = "db-connect-retries"
	KeyHashConcurrency  = "hash-concurrency"
)

// Defaults.
const (
	DefaultHTTPAddr         = ":3001"
	DefaultMetricsAddr      = "127.0.0.1:9100"
	DefaultLogFormat        = "json"
	DefaultCookieName       = "session"
	DefaultDBConnectRetries = 5
)

// envKeys maps environment variables to config keys. Variables not listed
// here are ignored.
var envKeys = map[string]string{
	"AUTHD_HTTP_ADDR":          KeyHTTPAddr,
	"AUTHD_METRICS_ADDR":       KeyMetricsAddr,
	"AUTHD_LOG_FORMAT":         KeyLogFormat,
	"DATABASE_URL":             KeyDatabaseURL,
	"JWT_KEY":                  KeyJWTKey,
	"AUTHD_COOKIE_NAME":        KeyCookieName,
	"AUTHD_COOKIE_SECURE":      KeyCookieSecure,
	"AUTHD_SESSION_TTL":        KeySessionTTL,
	"AUTHD_REDIS_ADDR":         KeyRedisAddr,
	"AUTHD_DB_CONNECT_RETRIES": KeyDBConnectRetries,
	"AUTHD_HASH_CONCURRENCY":   KeyHashConcurrency,
}

// Config is the resolved service configuration.
type Config struct {
	HTTPAddr         string        `koanf:"http-addr"`
	MetricsAddr      string        `koanf:"metrics-addr"`
	LogFormat        string        `koanf:"log-format"`
	DatabaseURL      string        `koanf:"database-url"`
	JWTKey           string        `koanf:"jwt-key"`
	CookieName       string        `koanf:"cookie-name"`
	CookieSecure     bool          `koanf:"cookie-secure"`
	SessionTTL       time.Duration `koanf:"session-ttl"`
	RedisAddr        string        `koanf:"redis-addr"`
	DBConnectRetries int           `koanf:"db-connect-retries"`
	HashConcurrency  int           `koanf:"hash-concurrency"`
}

// RegisterFlags adds the service flags to fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyHTTPAddr, DefaultHTTPAddr, "HTTP listen address")
	fs.String(KeyMetricsAddr, DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String(KeyLogFormat, DefaultLogFormat, "log format (json or text)")
	fs.String(KeyDatabaseURL, "", "PostgreSQL connection URL")
	fs.String(KeyJWTKey, "", "session token signing key")
	fs.String(KeyCookieName, DefaultCookieName, "session cookie name")
	fs.Bool(KeyCookieSecure, false, "mark the session cookie Secure")
	fs.Duration(KeySessionTTL, 0, "session token lifetime (0 = no expiry)")
	fs.String(KeyRedisAddr, "", "Redis address for token revocation (empty = disabled)")
	fs.Int(KeyDBConnectRetries, DefaultDBConnectRetries, "database ping retries at startup")
	fs.Int(KeyHashConcurrency, 0, "concurrent password hashes (0 = GOMAXPROCS)")
}

// Load resolves configuration. Precedence, highest first: flags set on the
// command line, environment, the YAML file at path, flag defaults.
// An empty path skips the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load environment").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

// envValue maps a variable to its config key. Unknown and empty variables
// map to "" and are skipped.
func envValue(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	return envKeys[strings.ToUpper(name)], value
}

// Validate checks settings needed by every command.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyLogFormat).
			Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyDatabaseURL).
			Errorf("database-url (DATABASE_URL) is required")
	}
	if c.DBConnectRetries < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyDBConnectRetries).
			Errorf("db-connect-retries cannot be negative")
	}
	return nil
}

// ValidateServe adds the checks that only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTKey == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyJWTKey).
			Errorf("jwt-key (JWT_KEY) must be defined")
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyHTTPAddr).
			Errorf("http-addr is required")
	}
	if c.CookieName == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", KeyCookieName).
			Errorf("cookie-name is required")
	}
	if c.SessionTTL < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", KeySessionTTL).
			Errorf("session-ttl cannot be negative")
	}
	return nil
}
