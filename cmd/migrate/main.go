package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/pflag"
	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/pkg/db"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

type options struct {
	down    int
	version bool
	path    string
}

func main() {
	var opts options
	pflag.IntVar(&opts.down, "down", 0, "roll back this many migrations instead of migrating up")
	pflag.BoolVar(&opts.version, "version", false, "print the current schema version and exit")
	pflag.StringVar(&opts.path, "path", "file://migrations", "migrations source URL")
	pflag.Parse()

	cfg, err := config.LoadForMigrations()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(logger.Config{Level: cfg.Logging.Level, ServiceName: "applicants-migrate"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, opts)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options) error {
	migrationCfg := db.MigrationConfig{
		DatabaseURL:    cfg.Database.URL,
		MigrationsPath: opts.path,
		CACertPath:     cfg.Database.CACertPath,
		TLSServerName:  cfg.Database.TLSServerName,
	}
	target := zap.String("database", redactDatabaseURL(cfg.Database.URL))

	switch {
	case opts.version:
		v, dirty, err := db.MigrationVersion(migrationCfg)
		if err != nil {
			logger.Error("Failed to read schema version", target, zap.Error(err))
			return err
		}
		logger.Info("Schema version", target, zap.Uint("version", v), zap.Bool("dirty", dirty))

	case opts.down > 0:
		logger.Info("Rolling back migrations", target, zap.Int("steps", opts.down))
		if err := db.RollbackMigrations(migrationCfg, opts.down); err != nil {
			logger.Error("Failed to roll back migrations", zap.Error(err))
			return err
		}
		logger.Info("Rollback completed")

	default:
		logger.Info("Applying migrations", target, zap.String("source", opts.path))
		if err := db.RunMigrations(migrationCfg); err != nil {
			logger.Error("Failed to run migrations", zap.Error(err))
			return err
		}
		logger.Info("Schema is up to date")
	}
	return nil
}

// redactDatabaseURL drops the password from a postgres:// URL. Anything that
// does not parse as a URL is hidden entirely.
func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
