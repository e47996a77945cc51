package db

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
)

// sslmode values that ask for an encrypted connection
var tlsModes = map[string]bool{"require": true, "verify-ca": true, "verify-full": true}

var keywordSSLMode = regexp.MustCompile(`(?:^|\s)sslmode=(\S+)`)

// sslMode reads sslmode from a URL or keyword/value connection string
func sslMode(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Scheme != "" {
		return u.Query().Get("sslmode")
	}
	if m := keywordSSLMode.FindStringSubmatch(databaseURL); m != nil {
		return m[1]
	}
	return ""
}

// configureTLS pins the managed Postgres CA. It returns nil when the
// connection string does not ask for TLS or no CA file is configured.
// serverName overrides verification when the certificate names another host.
func configureTLS(databaseURL, caCertPath, serverName string) (*tls.Config, error) {
	if caCertPath == "" || !tlsModes[sslMode(databaseURL)] {
		return nil, nil
	}

	caPEM, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate from %s: %w", caCertPath, err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("failed to append CA certificate to pool")
	}

	return &tls.Config{
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}, nil
}

// PoolConfig describes the API's connection pool
type PoolConfig struct {
	URL           string
	MaxConns      int32
	MinConns      int32
	CACertPath    string
	TLSServerName string
	// reported to Postgres as application_name
	ApplicationName string
}

// NewPool opens a pgx pool and pings it once so startup fails fast
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	tlsConfig, err := configureTLS(cfg.URL, cfg.CACertPath, cfg.TLSServerName)
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	if tlsConfig != nil {
		poolConfig.ConnConfig.TLSConfig = tlsConfig
	}
	if cfg.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// RegisterPoolMetrics exports connection counts of pool on the metrics registry
func RegisterPoolMetrics(pool *pgxpool.Pool) error {
	gauges := map[string]func(*pgxpool.Stat) int32{
		"acquired": (*pgxpool.Stat).AcquiredConns,
		"idle":     (*pgxpool.Stat).IdleConns,
		"total":    (*pgxpool.Stat).TotalConns,
		"max":      (*pgxpool.Stat).MaxConns,
	}
	for state, read := range gauges {
		read := read
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "db_client_connections",
			Help:        "Connections held by the Postgres pool",
			ConstLabels: prometheus.Labels{"state": state},
		}, func() float64 { return float64(read(pool.Stat())) })
		if err := metrics.Registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register pool metric %s: %w", state, err)
		}
	}
	return nil
}

// Close closes pool; nil is ignored
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
