package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tvet-apply/applicants-api/internal/cache"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/repository"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

// CatalogService answers reference catalog lookups. With a cache configured
// lists and the validation snapshot are read through it.
type CatalogService struct {
	store repository.CatalogStore
	cache *cache.CatalogCache
}

// NewCatalogService creates a catalog service; cc may be nil
func NewCatalogService(store repository.CatalogStore, cc *cache.CatalogCache) *CatalogService {
	return &CatalogService{store: store, cache: cc}
}

func (s *CatalogService) ListRegions(ctx context.Context) ([]string, error) {
	if s.cache == nil {
		return s.store.ListRegions(ctx)
	}
	return cache.Remember(s.cache, cache.ListKey("regions"), func() ([]string, error) {
		return s.store.ListRegions(ctx)
	})
}

func (s *CatalogService) ListAreas(ctx context.Context, region string) ([]string, error) {
	region = normalizeRegion(region)
	if s.cache == nil {
		return s.store.ListAreas(ctx, region)
	}
	return cache.Remember(s.cache, cache.ListKey("areas", region), func() ([]string, error) {
		return s.store.ListAreas(ctx, region)
	})
}

func (s *CatalogService) ListInstitutes(ctx context.Context, region, area string) ([]string, error) {
	region, area = normalizeRegion(region), strings.TrimSpace(area)
	if s.cache == nil {
		return s.store.ListInstitutes(ctx, region, area)
	}
	return cache.Remember(s.cache, cache.ListKey("institutes", region, area), func() ([]string, error) {
		return s.store.ListInstitutes(ctx, region, area)
	})
}

// ListProfessions returns the professions offered at institute that accept
// gender. An institute outside (region, area) yields an empty list.
func (s *CatalogService) ListProfessions(ctx context.Context, region, area, institute string, gender models.Gender) ([]string, error) {
	region, area, institute = normalizeRegion(region), strings.TrimSpace(area), strings.TrimSpace(institute)
	gender = models.Gender(strings.ToUpper(strings.TrimSpace(string(gender))))

	institutes, err := s.ListInstitutes(ctx, region, area)
	if err != nil {
		return nil, err
	}
	if !contains(institutes, institute) {
		logger.Debug("Professions requested for unknown institute",
			zap.String("region", region),
			zap.String("area", area),
			zap.String("institute", institute))
		return []string{}, nil
	}

	load := func() ([]models.Profession, error) {
		return s.store.ListProfessions(ctx, region, area)
	}
	var professions []models.Profession
	if s.cache == nil {
		professions, err = load()
	} else {
		professions, err = cache.Remember(s.cache, cache.ListKey("professions", region, area), load)
	}
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, p := range professions {
		if p.Allows(gender) {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// Snapshot returns the catalog used by the validator
func (s *CatalogService) Snapshot(ctx context.Context) (*models.Catalog, error) {
	if s.cache == nil {
		return s.store.LoadCatalog(ctx)
	}
	return s.cache.Snapshot(ctx)
}

// Warm loads the cache at startup. Without a cache it is a no-op.
func (s *CatalogService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Initialize(ctx)
}

// IsReady reports whether catalog reads can be served
func (s *CatalogService) IsReady() bool {
	return s.cache == nil || s.cache.IsReady()
}

// Invalidate drops cached catalog data
func (s *CatalogService) Invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// Refresh drops cached catalog data and reloads the snapshot, so edits made
// directly in the catalog tables are picked up before the TTL runs out
func (s *CatalogService) Refresh(ctx context.Context) error {
	s.Invalidate()
	if err := s.Warm(ctx); err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	logger.Info("Catalog cache refreshed")
	return nil
}

func normalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
