// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultAnalyticsURL is where the chat-with-data service listens in local setups.
const DefaultAnalyticsURL = "http://127.0.0.1:8000"

// Config holds the configuration for the dashboard server, the chat client
// and optional S3 export storage.
type Config struct {
	// S3 fields are nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	DBPath     string // path to the SQLite invoice store
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Chat
	AnalyticsURL    string        // base URL of the remote analytics service
	ChatIdleTimeout time.Duration // fail a chat session after this long without events; 0 disables
	ChatSessionTTL  time.Duration // evict idle chat controllers after this long (default 30m)

	// SeedDemo loads a small demo data set into an empty store on startup.
	SeedDemo bool

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil
}

// LoadFromEnv builds the server configuration from environment variables.
// Malformed rate limits only produce warnings; malformed chat settings and
// insecure production settings are errors.
func LoadFromEnv() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		DBPath:       env.str("DB_PATH", "invoices.sqlite"),
		ListenAddr:   env.str("LISTEN_ADDR", ":8080"),
		LogLevel:     env.str("LOG_LEVEL", "info"),
		Env:          env.str("ENV", ""),
		AnalyticsURL: env.str("ANALYTICS_URL", ""),
		SeedDemo:     parseBoolEnvDefault("SEED_DEMO", false),

		RateLimitRPS:       env.number("RATE_LIMIT_RPS", 100),
		RateLimitBurst:     env.integer("RATE_LIMIT_BURST", 200),
		CORSAllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ChatIdleTimeout: env.duration("CHAT_IDLE_TIMEOUT", 0, "a duration such as 90s", func(d time.Duration) bool { return d >= 0 }),
		ChatSessionTTL:  env.duration("CHAT_SESSION_TTL", 30*time.Minute, "a positive duration", func(d time.Duration) bool { return d > 0 }),

		S3KeyID:    env.optional("S3_KEY_ID"),
		S3Secret:   env.optional("S3_SECRET"),
		S3Endpoint: env.optional("S3_ENDPOINT"),
		S3Region:   env.optional("S3_REGION"),
		S3Bucket:   env.optional("S3_BUCKET"),
	}
	if env.err != nil {
		return nil, env.err
	}
	cfg.Warnings = env.warnings

	if cfg.AnalyticsURL == "" {
		cfg.AnalyticsURL = DefaultAnalyticsURL
		cfg.warn("ANALYTICS_URL not set, using " + DefaultAnalyticsURL)
	}
	if err := validateServiceURL(cfg.AnalyticsURL); err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_URL: %w", err)
	}
	if cfg.S3Bucket != nil && !cfg.HasS3Config() {
		cfg.warn("S3_BUCKET is set but S3 credentials are incomplete; S3 export disabled")
	}
	if err := cfg.checkProduction(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) warn(msg string) { c.Warnings = append(c.Warnings, msg) }

// checkProduction rejects settings that are only acceptable on a laptop.
func (c *Config) checkProduction() error {
	if !c.IsProduction() {
		return nil
	}
	if slices.Contains(c.CORSAllowedOrigins, "*") {
		return errors.New("CORS wildcard (*) is not allowed in production (ENV=production)")
	}
	if c.SeedDemo {
		return errors.New("SEED_DEMO must not be enabled in production (ENV=production)")
	}
	return nil
}

// envReader reads typed variables, keeping the first hard error and any
// warnings for values it had to ignore.
type envReader struct {
	err      error
	warnings []string
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) optional(key string) *string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return &v
}

func (r *envReader) number(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f == 0 {
		r.warnings = append(r.warnings, fmt.Sprintf("ignoring invalid %s %q", key, v))
		return def
	}
	return f
}

func (r *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n == 0 {
		r.warnings = append(r.warnings, fmt.Sprintf("ignoring invalid %s %q", key, v))
		return def
	}
	return n
}

func (r *envReader) list(key string, def []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (r *envReader) duration(key string, def time.Duration, want string, ok func(time.Duration) bool) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || !ok(d) {
		if r.err == nil {
			r.err = fmt.Errorf("invalid %s %q: expected %s", key, v, want)
		}
		return def
	}
	return d
}

func validateServiceURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// env vars take precedence
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
