package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tvet-apply/applicants-api/internal/models"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

const adminResource = "admin"

// AdminRepository handles admin account data access
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// Create inserts admin and fills in its ID and timestamps
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) (err error) {
	start := time.Now()
	defer func() { observe("createAdmin", start, err) }()

	err = r.pool.QueryRow(ctx,
		`INSERT INTO admins (username, email, password_hash) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		admin.Username, admin.Email, admin.PasswordHash,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		return mapError(err, adminResource, "create admin")
	}
	return nil
}

// GetByID returns a single admin
func (r *AdminRepository) GetByID(ctx context.Context, id int) (admin *models.Admin, err error) {
	start := time.Now()
	defer func() { observe("getAdmin", start, err) }()

	admin, err = models.ScanAdmin(r.pool.QueryRow(ctx,
		"SELECT "+models.AdminColumns+" FROM admins WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, adminResource, "get admin")
	}
	return admin, nil
}

// GetByUsername returns the admin with the exact username
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (admin *models.Admin, err error) {
	start := time.Now()
	defer func() { observe("getAdminByUsername", start, err) }()

	admin, err = models.ScanAdmin(r.pool.QueryRow(ctx,
		"SELECT "+models.AdminColumns+" FROM admins WHERE username = $1", username))
	if err != nil {
		return nil, mapError(err, adminResource, "get admin by username")
	}
	return admin, nil
}

// ExistsByUsernameOrEmail reports whether either identifier is taken
func (r *AdminRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (exists bool, err error) {
	start := time.Now()
	defer func() { observe("adminExists", start, err) }()

	err = r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM admins WHERE username = $1 OR email = $2)",
		username, email,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err, adminResource, "check admin exists")
	}
	return exists, nil
}

// Delete removes an admin
func (r *AdminRepository) Delete(ctx context.Context, id int) (err error) {
	start := time.Now()
	defer func() { observe("deleteAdmin", start, err) }()

	tag, err := r.pool.Exec(ctx, "DELETE FROM admins WHERE id = $1", id)
	if err != nil {
		return mapError(err, adminResource, "delete admin")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError(adminResource)
	}
	return nil
}
