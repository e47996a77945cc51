package repository

import (
	"context"

	"github.com/tvet-apply/applicants-api/internal/models"
)

// FormStore persists application forms.
// Create and Update return apperrors.ErrConflict when a natural key
// (national ID or phone number) is already taken.
type FormStore interface {
	List(ctx context.Context, filter models.FormFilter) ([]*models.ApplicationForm, error)
	GetByID(ctx context.Context, id int) (*models.ApplicationForm, error)
	FindByNaturalKeys(ctx context.Context, nationalID, phoneNumber string) (*models.ApplicationForm, error)
	Create(ctx context.Context, form *models.ApplicationForm) error
	Update(ctx context.Context, form *models.ApplicationForm) error
	Delete(ctx context.Context, id int) error
}

// AdminStore persists admin accounts
type AdminStore interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id int) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Delete(ctx context.Context, id int) error
}

// CatalogStore reads the reference catalog. Every list is sorted by name.
type CatalogStore interface {
	ListRegions(ctx context.Context) ([]string, error)
	ListAreas(ctx context.Context, region string) ([]string, error)
	ListInstitutes(ctx context.Context, region, area string) ([]string, error)
	ListProfessions(ctx context.Context, region, area string) ([]models.Profession, error)
	LoadCatalog(ctx context.Context) (*models.Catalog, error)
}

var (
	_ FormStore    = (*FormRepository)(nil)
	_ AdminStore   = (*AdminRepository)(nil)
	_ CatalogStore = (*CatalogRepository)(nil)
)
