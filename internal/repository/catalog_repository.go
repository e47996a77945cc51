package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tvet-apply/applicants-api/internal/models"
)

const catalogResource = "catalog entry"

// CatalogRepository reads the reference catalog tables
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListRegions returns all region names
func (r *CatalogRepository) ListRegions(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { observe("listRegions", start, err) }()

	return r.names(ctx, "list regions", "SELECT name FROM regions ORDER BY name")
}

// ListAreas returns the areas of region
func (r *CatalogRepository) ListAreas(ctx context.Context, region string) (names []string, err error) {
	start := time.Now()
	defer func() { observe("listAreas", start, err) }()

	return r.names(ctx, "list areas", "SELECT name FROM areas WHERE region_name = $1 ORDER BY name", region)
}

// ListInstitutes returns the institutes of (region, area)
func (r *CatalogRepository) ListInstitutes(ctx context.Context, region, area string) (names []string, err error) {
	start := time.Now()
	defer func() { observe("listInstitutes", start, err) }()

	return r.names(ctx, "list institutes",
		"SELECT name FROM institutes WHERE region_name = $1 AND area_name = $2 ORDER BY name", region, area)
}

// ListProfessions returns the professions of (region, area) with their gender restrictions
func (r *CatalogRepository) ListProfessions(ctx context.Context, region, area string) (professions []models.Profession, err error) {
	start := time.Now()
	defer func() { observe("listProfessions", start, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT name, area_name, region_name, allowed_genders
		FROM professions
		WHERE region_name = $1 AND area_name = $2
		ORDER BY name`, region, area)
	if err != nil {
		return nil, mapError(err, catalogResource, "list professions")
	}
	professions, err = scanProfessions(rows)
	if err != nil {
		return nil, mapError(err, catalogResource, "scan professions")
	}
	return professions, nil
}

// LoadCatalog reads the whole hierarchy into an immutable snapshot
func (r *CatalogRepository) LoadCatalog(ctx context.Context) (catalog *models.Catalog, err error) {
	start := time.Now()
	defer func() { observe("loadCatalog", start, err) }()

	regions, err := r.names(ctx, "load regions", "SELECT name FROM regions ORDER BY name")
	if err != nil {
		return nil, err
	}

	var areas []models.Area
	rows, err := r.pool.Query(ctx, "SELECT name, region_name FROM areas ORDER BY name")
	if err != nil {
		return nil, mapError(err, catalogResource, "load areas")
	}
	areas, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Area, error) {
		var a models.Area
		err := row.Scan(&a.Name, &a.RegionName)
		return a, err
	})
	if err != nil {
		return nil, mapError(err, catalogResource, "scan areas")
	}

	rows, err = r.pool.Query(ctx, "SELECT name, area_name, region_name FROM institutes ORDER BY name")
	if err != nil {
		return nil, mapError(err, catalogResource, "load institutes")
	}
	institutes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Institute, error) {
		var i models.Institute
		err := row.Scan(&i.Name, &i.AreaName, &i.RegionName)
		return i, err
	})
	if err != nil {
		return nil, mapError(err, catalogResource, "scan institutes")
	}

	rows, err = r.pool.Query(ctx, "SELECT name, area_name, region_name, allowed_genders FROM professions ORDER BY name")
	if err != nil {
		return nil, mapError(err, catalogResource, "load professions")
	}
	professions, err := scanProfessions(rows)
	if err != nil {
		return nil, mapError(err, catalogResource, "scan professions")
	}

	return models.NewCatalog(regions, areas, institutes, professions), nil
}

func (r *CatalogRepository) names(ctx context.Context, operation, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, catalogResource, operation)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError(err, catalogResource, operation)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func scanProfessions(rows pgx.Rows) ([]models.Profession, error) {
	professions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Profession, error) {
		var p models.Profession
		var genders []string
		if err := row.Scan(&p.Name, &p.AreaName, &p.RegionName, &genders); err != nil {
			return p, err
		}
		p.AllowedGenders = make([]models.Gender, 0, len(genders))
		for _, g := range genders {
			p.AllowedGenders = append(p.AllowedGenders, models.Gender(g))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if professions == nil {
		professions = []models.Profession{}
	}
	return professions, nil
}
