package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Archive       ArchiveConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
	Cache         CacheConfig
	Import        ImportConfig
	Recaptcha     RecaptchaConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL        string
	MaxConns   int32
	MinConns   int32
	CACertPath string
	// certificate host name when it differs from the connection host
	TLSServerName string
}

// ArchiveConfig points at S3-compatible storage for import/export spreadsheets.
// Archiving is off unless key, secret and bucket are all set.
type ArchiveConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

// Enabled reports whether archive uploads are configured
func (a ArchiveConfig) Enabled() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != "" && a.BucketName != ""
}

type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTLHours int // admin bearer token lifetime, 720h = 30 days
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	OTLPEndpoint      string
	OTLPInsecure      bool
	SampleRatio       float64
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

type CacheConfig struct {
	CatalogTTLSeconds   int
	DisableCatalogCache bool // read the catalog from the database on every request
}

type ImportConfig struct {
	MaxRows        int   // rows accepted in one batch
	MaxUploadBytes int64 // size limit of an uploaded spreadsheet
}

// RecaptchaConfig guards public submissions. Verification is skipped when
// SecretKey is empty.
type RecaptchaConfig struct {
	SecretKey string
	VerifyURL string
	MinScore  float64 // reCAPTCHA v3 score threshold, 0 accepts any passing token
}

// Enabled reports whether submissions must carry a captcha token
func (r RecaptchaConfig) Enabled() bool {
	return r.SecretKey != ""
}

var defaults = map[string]any{
	"PORT":                    "5000",
	"GIN_MODE":                "release",
	"APP_ENV":                 "production",
	"ALLOWED_CORS_ORIGINS":    "http://localhost:3000",
	"DB_MAX_CONNS":            20,
	"DB_MIN_CONNS":            2,
	"LOG_LEVEL":               "info",
	"LOG_DIR":                 "/app/logs",
	"JWT_ISSUER":              "applicants-api",
	"ADMIN_TOKEN_TTL_HOURS":   720,
	"CATALOG_CACHE_TTL":       600, // seconds
	"DISABLE_CATALOG_CACHE":   false,
	"IMPORT_MAX_ROWS":         5000,
	"IMPORT_MAX_UPLOAD_BYTES": 10 << 20,
	"ARCHIVE_REGION":          "us-east-1",
	"RECAPTCHA_VERIFY_URL":    "https://www.google.com/recaptcha/api/siteverify",
	"RECAPTCHA_MIN_SCORE":     0.5,

	"O11Y_OTLP_INSECURE":                     true,
	"O11Y_TRACE_SAMPLE_RATIO":                1.0,
	"O11Y_SERVICE_NAME":                      "applicants-api",
	"O11Y_SERVICE_NAMESPACE":                 "applicants",
	"O11Y_SERVICE_VERSION":                   "1.0.0",
	"O11Y_PROFILING_ENABLED":                 false,
	"O11Y_PROFILING_APP_NAME":                "applicants-api",
	"O11Y_PROFILING_SAMPLE_TYPES":            "cpu,alloc_space,alloc_objects,goroutines,mutex,block",
	"O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS": 15,
}

// newViper reads the environment, falling back to a .env file in the
// working directory or its parent
func newViper(defaults map[string]any) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // the .env file is optional
	return v
}

// Load reads and validates the API configuration
func Load() (*Config, error) {
	v := newViper(defaults)

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			MaxConns:      v.GetInt32("DB_MAX_CONNS"),
			MinConns:      v.GetInt32("DB_MIN_CONNS"),
			CACertPath:    v.GetString("DATABASE_CA_CERT"),
			TLSServerName: v.GetString("DATABASE_TLS_SERVER_NAME"),
		},
		Archive: ArchiveConfig{
			AccessKeyID:     v.GetString("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("ARCHIVE_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("ARCHIVE_BUCKET_NAME"),
			Endpoint:        v.GetString("ARCHIVE_ENDPOINT"),
			Region:          v.GetString("ARCHIVE_REGION"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			JWTIssuer:     v.GetString("JWT_ISSUER"),
			TokenTTLHours: v.GetInt("ADMIN_TOKEN_TTL_HOURS"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:      v.GetString("O11Y_OTLP_ENDPOINT"),
			OTLPInsecure:      v.GetBool("O11Y_OTLP_INSECURE"),
			SampleRatio:       v.GetFloat64("O11Y_TRACE_SAMPLE_RATIO"),
			ServiceName:       v.GetString("O11Y_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
		Cache: CacheConfig{
			CatalogTTLSeconds:   v.GetInt("CATALOG_CACHE_TTL"),
			DisableCatalogCache: v.GetBool("DISABLE_CATALOG_CACHE"),
		},
		Import: ImportConfig{
			MaxRows:        v.GetInt("IMPORT_MAX_ROWS"),
			MaxUploadBytes: v.GetInt64("IMPORT_MAX_UPLOAD_BYTES"),
		},
		Recaptcha: RecaptchaConfig{
			SecretKey: v.GetString("RECAPTCHA_SECRET_KEY"),
			VerifyURL: v.GetString("RECAPTCHA_VERIFY_URL"),
			MinScore:  v.GetFloat64("RECAPTCHA_MIN_SCORE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadForMigrations reads only what cmd/migrate needs, so the migration job
// does not require the API's secrets
func LoadForMigrations() (*Config, error) {
	v := newViper(map[string]any{"LOG_LEVEL": "info"})

	cfg := &Config{
		Database: DatabaseConfig{
			URL:           v.GetString("DATABASE_URL"),
			CACertPath:    v.GetString("DATABASE_CA_CERT"),
			TLSServerName: v.GetString("DATABASE_TLS_SERVER_NAME"),
		},
		Logging: LoggingConfig{Level: v.GetString("LOG_LEVEL")},
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.URL != "", "DATABASE_URL is required")
	check(c.Database.MinConns <= c.Database.MaxConns,
		"DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	check(c.Auth.JWTSecret != "", "JWT_SECRET is required")
	check(c.Auth.TokenTTLHours > 0, "ADMIN_TOKEN_TTL_HOURS must be positive")
	check(c.Server.Port != "", "PORT is required")
	check(len(c.Server.AllowedOrigins) > 0, "ALLOWED_CORS_ORIGINS is required")
	check(c.Import.MaxRows > 0, "IMPORT_MAX_ROWS must be positive")
	check(c.Recaptcha.MinScore >= 0 && c.Recaptcha.MinScore <= 1, "RECAPTCHA_MIN_SCORE must be between 0 and 1")
	check(!c.Profiling.Enabled || c.Profiling.Endpoint != "",
		"O11Y_PROFILING_ENDPOINT is required when profiling is enabled")

	return errors.Join(problems...)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}
