package services

import (
	"context"
	"io"

	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
)

// CatalogProvider hands out the catalog snapshot used for validation
type CatalogProvider interface {
	Snapshot(ctx context.Context) (*models.Catalog, error)
}

// Archiver stores spreadsheets in object storage. A nil Archiver disables archiving.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// CatalogServiceInterface defines the reference catalog lookups
type CatalogServiceInterface interface {
	ListRegions(ctx context.Context) ([]string, error)
	ListAreas(ctx context.Context, region string) ([]string, error)
	ListInstitutes(ctx context.Context, region, area string) ([]string, error)
	ListProfessions(ctx context.Context, region, area, institute string, gender models.Gender) ([]string, error)
	Refresh(ctx context.Context) error
	IsReady() bool
}

// FormServiceInterface defines application form operations
type FormServiceInterface interface {
	Submit(ctx context.Context, in *models.FormInput) (*models.ApplicationForm, error)
	List(ctx context.Context, filter models.FormFilter) ([]*models.ApplicationForm, error)
	Get(ctx context.Context, id int) (*models.ApplicationForm, error)
	Update(ctx context.Context, id int, patch *models.UpdateFormRequest) (*models.ApplicationForm, error)
	Delete(ctx context.Context, id int) error
}

// ImportServiceInterface defines bulk import operations
type ImportServiceInterface interface {
	ImportRows(ctx context.Context, rows []models.RawRow) (*models.ImportResult, error)
	ImportWorkbook(ctx context.Context, filename string, data []byte) (*models.ImportResult, string, error)
}

// ExportServiceInterface defines the spreadsheet export
type ExportServiceInterface interface {
	Export(ctx context.Context, filter models.FormFilter, w io.Writer) (int, error)
}

// AdminAuthServiceInterface defines admin account operations
type AdminAuthServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterAdminRequest) (*models.Admin, error)
	Login(ctx context.Context, req *models.LoginAdminRequest) (string, error)
	GetAdmin(ctx context.Context, id int) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, id int) error
	GetTokenManager() *jwt.TokenManager
}

// Ensure services implement their interfaces
var (
	_ CatalogServiceInterface   = (*CatalogService)(nil)
	_ FormServiceInterface      = (*FormService)(nil)
	_ ImportServiceInterface    = (*ImportReconciler)(nil)
	_ ExportServiceInterface    = (*ExportService)(nil)
	_ AdminAuthServiceInterface = (*AdminAuthService)(nil)
	_ CatalogProvider           = (*CatalogService)(nil)
)
