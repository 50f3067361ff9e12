// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional config file and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string. Empty selects the
	// in-memory store.
	DatabaseDSN string

	// Config is the path to the config file (JSON or YAML).
	Config string

	// PublicURLBase is prepended to a note ID to build its public link.
	PublicURLBase string

	LogLevel string

	// CertDir holds ca.crt, ca.key, server.crt and server.key.
	CertDir string

	// JWTSecret enables bearer tokens when non-empty.
	JWTSecret string
	TokenTTL  time.Duration

	// CORSAllowedOrigins is a comma-separated origin list.
	CORSAllowedOrigins string

	PublicRPS   float64
	PublicBurst int

	CleanupInterval  time.Duration
	ExpiredRetention time.Duration
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed, non-empty entries.
func (o *Options) AllowedOrigins() []string {
	var out []string
	for _, s := range strings.Split(o.CORSAllowedOrigins, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fileKeys maps config file keys to flag names.
var fileKeys = map[string]string{
	"server_address":       "a",
	"database_dsn":         "d",
	"public_note_url":      "public-url",
	"log_level":            "l",
	"cert_dir":             "certs",
	"jwt_secret":           "jwt-secret",
	"token_ttl":            "token-ttl",
	"cors_allowed_origins": "cors",
	"public_rps":           "public-rps",
	"public_burst":         "public-burst",
	"cleanup_interval":     "cleanup-interval",
	"expired_retention":    "expired-retention",
}

// envKeys maps environment variables to flag names.
var envKeys = map[string]string{
	"SERVER_ADDRESS":       "a",
	"DATABASE_DSN":         "d",
	"PUBLIC_NOTE_URL":      "public-url",
	"LOG_LEVEL":            "l",
	"CERT_DIR":             "certs",
	"JWT_SECRET":           "jwt-secret",
	"TOKEN_TTL":            "token-ttl",
	"CORS_ALLOWED_ORIGINS": "cors",
}

func newFlagSet(o *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("gophnotes", flag.ContinueOnError)
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address, empty for in-memory storage")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&o.PublicURLBase, "public-url", "https://localhost:8080/api/public/note/", "public note link prefix")
	fs.StringVar(&o.LogLevel, "l", "info", "log level")
	fs.StringVar(&o.CertDir, "certs", "certs", "directory with TLS certificates")
	fs.StringVar(&o.JWTSecret, "jwt-secret", "", "HMAC secret for bearer tokens, empty disables them")
	fs.DurationVar(&o.TokenTTL, "token-ttl", 24*time.Hour, "bearer token lifetime")
	fs.StringVar(&o.CORSAllowedOrigins, "cors", "*", "comma-separated CORS origins")
	fs.Float64Var(&o.PublicRPS, "public-rps", 5, "public note requests per second per client")
	fs.IntVar(&o.PublicBurst, "public-burst", 10, "public note burst per client")
	fs.DurationVar(&o.CleanupInterval, "cleanup-interval", time.Hour, "expired note cleanup interval")
	fs.DurationVar(&o.ExpiredRetention, "expired-retention", 30*24*time.Hour, "how long expired notes are kept")
	return fs
}

// Parse reads os.Args and the environment. It exits the process on invalid
// input.
func Parse() *Options {
	o, err := Load(os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return o
}

// Load builds Options from args. Explicit flags win over the config file;
// environment variables win over both.
func Load(args []string) (*Options, error) {
	o := &Options{}
	fs := newFlagSet(o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			values, err := readFile(o.Config)
			if err != nil {
				return nil, err
			}
			for key, name := range fileKeys {
				value, ok := values[key]
				if !ok || explicit[name] {
					continue
				}
				if err := fs.Set(name, value); err != nil {
					return nil, fmt.Errorf("config file key %s: %w", key, err)
				}
			}
		}
	}

	for env, name := range envKeys {
		value := os.Getenv(env)
		if value == "" {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return nil, fmt.Errorf("env %s: %w", env, err)
		}
	}

	if o.PublicRPS <= 0 || o.PublicBurst <= 0 {
		return nil, errors.New("public rate limit must be positive")
	}
	if o.CleanupInterval <= 0 {
		return nil, errors.New("cleanup interval must be positive")
	}

	return o, nil
}

// readFile loads the config file with viper and returns the known keys with
// ${VAR:-default} references expanded.
func readFile(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(strings.TrimLeft(filepath.Ext(path), "."))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig: %w", err)
	}

	values := make(map[string]string)
	for key := range fileKeys {
		if !v.IsSet(key) {
			continue
		}
		values[key] = expandEnvWithDefaults(v.GetString(key))
	}
	return values, nil
}

var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults replaces ${VAR} and ${VAR:-default} with the value of
// VAR, or default when VAR is unset or empty.
func expandEnvWithDefaults(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		m := envRef.FindStringSubmatch(match)
		if value := os.Getenv(m[1]); value != "" {
			return value
		}
		return m[2]
	})
}
