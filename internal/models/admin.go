package models

import (
	"time"

	"github.com/jackc/pgx/v5"
)

// Admin is an authenticated operator of the dashboard
type Admin struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterAdminRequest is the payload of POST /admin/register
type RegisterAdminRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// RegisterAdminResponse echoes the created account
type RegisterAdminResponse struct {
	Message string `json:"message"`
	Admin   *Admin `json:"admin"`
}

// LoginAdminRequest is the payload of POST /admin/login
type LoginAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginAdminResponse carries the bearer token
type LoginAdminResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MessageResponse is the body of endpoints that only confirm an action
type MessageResponse struct {
	Message string `json:"message"`
}

// AdminPrincipal is the authenticated identity attached to a request
type AdminPrincipal struct {
	ID       int
	Username string
}

// AdminColumns is the column list ScanAdmin expects, in order
const AdminColumns = `id, username, email, password_hash, created_at, updated_at`

// ScanAdmin scans a single PostgreSQL row into an Admin
func ScanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
