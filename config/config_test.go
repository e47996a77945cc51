package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name:     "development environment",
			config:   &Config{Server: ServerConfig{AppEnv: "development"}},
			expected: true,
		},
		{
			name:     "debug gin mode",
			config:   &Config{Server: ServerConfig{GinMode: "debug"}},
			expected: true,
		},
		{
			name:     "production environment",
			config:   &Config{Server: ServerConfig{AppEnv: "production"}},
			expected: false,
		},
		{
			name:     "release mode",
			config:   &Config{Server: ServerConfig{GinMode: "release", AppEnv: "production"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	assert.True(t, (&Config{Server: ServerConfig{AppEnv: "production"}}).IsProduction())
	assert.False(t, (&Config{Server: ServerConfig{AppEnv: "staging"}}).IsProduction())
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "5000", AllowedOrigins: []string{"http://localhost:3000"}},
		Database: DatabaseConfig{URL: "postgres://localhost/applicants", MaxConns: 10, MinConns: 2},
		Auth:     AuthConfig{JWTSecret: "secret", TokenTTLHours: 720},
		Import:   ImportConfig{MaxRows: 100},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL is required"},
		{"min above max conns", func(c *Config) { c.Database.MinConns = 50 }, "DB_MIN_CONNS"},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET is required"},
		{"non-positive ttl", func(c *Config) { c.Auth.TokenTTLHours = 0 }, "ADMIN_TOKEN_TTL_HOURS"},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "PORT is required"},
		{"no origins", func(c *Config) { c.Server.AllowedOrigins = nil }, "ALLOWED_CORS_ORIGINS is required"},
		{"zero import rows", func(c *Config) { c.Import.MaxRows = 0 }, "IMPORT_MAX_ROWS"},
		{"captcha score above one", func(c *Config) { c.Recaptcha.MinScore = 1.5 }, "RECAPTCHA_MIN_SCORE"},
		{"profiling without endpoint", func(c *Config) { c.Profiling.Enabled = true }, "O11Y_PROFILING_ENDPOINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestArchiveConfig_Enabled(t *testing.T) {
	assert.False(t, ArchiveConfig{}.Enabled())
	assert.False(t, ArchiveConfig{AccessKeyID: "k", SecretAccessKey: "s"}.Enabled())
	assert.True(t, ArchiveConfig{AccessKeyID: "k", SecretAccessKey: "s", BucketName: "b"}.Enabled())
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/applicants")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 720, cfg.Auth.TokenTTLHours)
	assert.Equal(t, "applicants-api", cfg.Auth.JWTIssuer)
	assert.Equal(t, 600, cfg.Cache.CatalogTTLSeconds)
	assert.Equal(t, 5000, cfg.Import.MaxRows)
	assert.False(t, cfg.Archive.Enabled())
	assert.False(t, cfg.Recaptcha.Enabled())
	assert.InDelta(t, 0.5, cfg.Recaptcha.MinScore, 1e-9)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://db/applicants")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_CORS_ORIGINS", "https://apply.example.jo, https://admin.example.jo")
	t.Setenv("ADMIN_TOKEN_TTL_HOURS", "24")
	t.Setenv("DISABLE_CATALOG_CACHE", "true")
	t.Setenv("ARCHIVE_ACCESS_KEY_ID", "key")
	t.Setenv("ARCHIVE_SECRET_ACCESS_KEY", "secret")
	t.Setenv("ARCHIVE_BUCKET_NAME", "applicant-archive")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://apply.example.jo", "https://admin.example.jo"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
	assert.True(t, cfg.Cache.DisableCatalogCache)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "applicant-archive", cfg.Archive.BucketName)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/applicants")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	cfg.Auth.JWTSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoadForMigrations(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://db/applicants?sslmode=verify-full")
	t.Setenv("DATABASE_TLS_SERVER_NAME", "db.internal")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadForMigrations()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.TLSServerName)
	assert.Equal(t, "info", cfg.Logging.Level)

	t.Setenv("DATABASE_URL", "")
	_, err = LoadForMigrations()
	assert.Error(t, err)
}
