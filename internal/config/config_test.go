package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"ANALYTICS_URL", "CHAT_IDLE_TIMEOUT", "CHAT_SESSION_TTL", "SEED_DEMO",
		"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION", "S3_BUCKET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "testsecret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_BUCKET", "test-bucket")
	t.Setenv("DB_PATH", "/tmp/test.sqlite")
	t.Setenv("ANALYTICS_URL", "https://analytics.internal:9000")
	t.Setenv("CHAT_IDLE_TIMEOUT", "90s")
	t.Setenv("CHAT_SESSION_TTL", "5m")
	t.Setenv("SEED_DEMO", "yes")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.NotNil(t, cfg.S3KeyID)
	assert.Equal(t, "testkey", *cfg.S3KeyID)
	require.NotNil(t, cfg.S3Bucket)
	assert.Equal(t, "test-bucket", *cfg.S3Bucket)
	assert.Equal(t, "/tmp/test.sqlite", cfg.DBPath)
	assert.Equal(t, "https://analytics.internal:9000", cfg.AnalyticsURL)
	assert.Equal(t, 90*time.Second, cfg.ChatIdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ChatSessionTTL)
	assert.True(t, cfg.SeedDemo)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Nil(t, cfg.S3KeyID)
	assert.Nil(t, cfg.S3Bucket)
	assert.Equal(t, "invoices.sqlite", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, DefaultAnalyticsURL, cfg.AnalyticsURL)
	assert.Zero(t, cfg.ChatIdleTimeout)
	assert.Equal(t, 30*time.Minute, cfg.ChatSessionTTL)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.SeedDemo)
	assert.Contains(t, cfg.Warnings, "ANALYTICS_URL not set, using "+DefaultAnalyticsURL)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "idle timeout not a duration", key: "CHAT_IDLE_TIMEOUT", val: "soon"},
		{name: "negative idle timeout", key: "CHAT_IDLE_TIMEOUT", val: "-1s"},
		{name: "zero session ttl", key: "CHAT_SESSION_TTL", val: "0s"},
		{name: "analytics url without scheme", key: "ANALYTICS_URL", val: "localhost:8000"},
		{name: "analytics url with ftp scheme", key: "ANALYTICS_URL", val: "ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := LoadFromEnv()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoadFromEnv_InvalidRateLimitIsWarning(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0.001)
	assert.Contains(t, cfg.Warnings, `ignoring invalid RATE_LIMIT_RPS "fast"`)
}

func TestLoadFromEnv_CORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv_Production(t *testing.T) {
	t.Run("wildcard cors rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "CORS wildcard")
	})

	t.Run("demo seed rejected", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://dash.example")
		t.Setenv("SEED_DEMO", "true")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "SEED_DEMO")
	})

	t.Run("valid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "Production")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://dash.example")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestHasS3Config_PartialConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_BUCKET", "exports")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.HasS3Config(), "partial S3 config should return false")
	assert.Contains(t, cfg.Warnings, "S3_BUCKET is set but S3 credentials are incomplete; S3 export disabled")
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.SlogLevel(), tt.in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err, "missing .env is not an error")
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# comment\n\nTEST_KEY=\"test_value\"\nnot-a-pair\n"), 0o600))
	t.Setenv("TEST_KEY", "")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "test_value", os.Getenv("TEST_KEY"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("TEST_PRECEDENCE_KEY"))
}

func TestLoadFromEnv_ZeroRateLimitsFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Contains(t, cfg.Warnings, `ignoring invalid RATE_LIMIT_BURST "0"`)
}

func TestLoadFromEnv_FirstChatErrorWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_IDLE_TIMEOUT", "later")
	t.Setenv("CHAT_SESSION_TTL", "never")

	_, err := LoadFromEnv()
	require.EqualError(t, err, `invalid CHAT_IDLE_TIMEOUT "later": expected a duration such as 90s`)
}
