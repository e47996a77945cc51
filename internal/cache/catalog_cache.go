package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
)

const (
	catalogCacheName   = "catalog"
	snapshotKey        = "snapshot"
	defaultCatalogTTL  = 10 * time.Minute
	catalogCleanupTick = 30 * time.Minute
)

// SnapshotFetcher loads the full reference catalog from the store
type SnapshotFetcher func(ctx context.Context) (*models.Catalog, error)

// CatalogCache is a read-through cache over the reference catalog.
// List results are cached per (kind, region, area) tuple; the full snapshot
// used by the validator is cached under its own key.
type CatalogCache struct {
	cache   *gocache.Cache
	ttl     time.Duration
	fetcher SnapshotFetcher
	mu      sync.RWMutex
	ready   bool
}

// NewCatalogCache creates a new catalog cache
func NewCatalogCache(fetcher SnapshotFetcher, ttlSeconds int) *CatalogCache {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}

	return &CatalogCache{
		cache:   gocache.New(ttl, catalogCleanupTick),
		ttl:     ttl,
		fetcher: fetcher,
	}
}

// Initialize performs initial cache population (synchronous, blocks until ready)
// Should be called during application startup before accepting requests
func (cc *CatalogCache) Initialize(ctx context.Context) error {
	logger.Info("Initializing catalog cache...")
	if _, err := cc.refresh(ctx); err != nil {
		logger.Error("Failed to initialize catalog cache", zap.Error(err))
		return err
	}

	cc.mu.Lock()
	cc.ready = true
	cc.mu.Unlock()

	logger.Info("Catalog cache initialized successfully")
	return nil
}

// IsReady returns true if the cache has been successfully initialized
func (cc *CatalogCache) IsReady() bool {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.ready
}

// Snapshot returns the cached catalog, loading it on a miss
func (cc *CatalogCache) Snapshot(ctx context.Context) (*models.Catalog, error) {
	if data, found := cc.cache.Get(snapshotKey); found {
		if catalog, ok := data.(*models.Catalog); ok {
			metrics.CacheHits.WithLabelValues(catalogCacheName).Inc()
			return catalog, nil
		}
		logger.Error("Invalid catalog cache data type")
		cc.cache.Delete(snapshotKey)
	}

	metrics.CacheMisses.WithLabelValues(catalogCacheName).Inc()
	return cc.refresh(ctx)
}

// Invalidate drops every cached entry
func (cc *CatalogCache) Invalidate() {
	cc.cache.Flush()
	metrics.CacheSize.WithLabelValues(catalogCacheName).Set(0)
	logger.Info("Catalog cache invalidated")
}

func (cc *CatalogCache) refresh(ctx context.Context) (*models.Catalog, error) {
	catalog, err := cc.fetcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	cc.cache.Set(snapshotKey, catalog, cc.ttl)
	metrics.CacheSize.WithLabelValues(catalogCacheName).Set(float64(cc.cache.ItemCount()))
	logger.Debug("Catalog snapshot refreshed", zap.Int("regions", len(catalog.Regions())))

	return catalog, nil
}

// ListKey builds the cache key of a catalog list query
func ListKey(kind string, parts ...string) string {
	key := kind
	for _, p := range parts {
		key += "|" + p
	}
	return key
}

// Remember returns the cached value for key or stores the result of load
func Remember[T any](cc *CatalogCache, key string, load func() (T, error)) (T, error) {
	if data, found := cc.cache.Get(key); found {
		if value, ok := data.(T); ok {
			metrics.CacheHits.WithLabelValues(catalogCacheName).Inc()
			return value, nil
		}
		cc.cache.Delete(key)
	}

	metrics.CacheMisses.WithLabelValues(catalogCacheName).Inc()
	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	cc.cache.Set(key, value, cc.ttl)
	metrics.CacheSize.WithLabelValues(catalogCacheName).Set(float64(cc.cache.ItemCount()))
	return value, nil
}
