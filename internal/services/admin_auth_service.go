package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/repository"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAdminExists             = errors.New("admin already exists")
	ErrAdminInvalidCredentials = errors.New("invalid username or password")
	ErrAdminHasDependencies    = errors.New("admin has dependent records")
	ErrAdminPasswordTooLong    = errors.New("password exceeds 72 bytes")
)

// bcrypt reads at most 72 bytes of a password
const maxPasswordBytes = 72

// AdminAuthService manages admin accounts and issues bearer tokens
type AdminAuthService struct {
	store        repository.AdminStore
	tokenManager *jwt.TokenManager
	bcryptCost   int
}

func NewAdminAuthService(store repository.AdminStore, cfg config.AuthConfig) *AdminAuthService {
	return &AdminAuthService{
		store:        store,
		tokenManager: jwt.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTLHours),
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// Register creates an admin. Username and email must both be unused.
func (s *AdminAuthService) Register(ctx context.Context, req *models.RegisterAdminRequest) (admin *models.Admin, err error) {
	defer func() {
		metrics.AdminRegistrations.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	if len(req.Password) > maxPasswordBytes {
		return nil, ErrAdminPasswordTooLong
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.store.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Warn("Admin registration for taken username or email", zap.String("username", username))
		return nil, ErrAdminExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin = &models.Admin{Username: username, Email: email, PasswordHash: string(hash)}
	if err = s.store.Create(ctx, admin); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, ErrAdminExists
		}
		return nil, err
	}

	logger.Info("Admin registered", zap.Int("admin_id", admin.ID), zap.String("username", username))
	return admin, nil
}

// Login checks credentials and returns a signed bearer token
func (s *AdminAuthService) Login(ctx context.Context, req *models.LoginAdminRequest) (token string, err error) {
	defer func() {
		status := metrics.Outcome(err)
		if errors.Is(err, ErrAdminInvalidCredentials) {
			status = "invalid_credentials"
		}
		metrics.AdminLogins.WithLabelValues(status).Inc()
	}()

	admin, err := s.store.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Admin login for unknown username", zap.String("username", req.Username))
			return "", ErrAdminInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		logger.Warn("Admin login with wrong password", zap.Int("admin_id", admin.ID))
		return "", ErrAdminInvalidCredentials
	}

	token, err = s.tokenManager.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	logger.Info("Admin logged in", zap.Int("admin_id", admin.ID))
	return token, nil
}

func (s *AdminAuthService) GetAdmin(ctx context.Context, id int) (*models.Admin, error) {
	return s.store.GetByID(ctx, id)
}

// DeleteAdmin removes an admin; rows still referencing it block the delete
func (s *AdminAuthService) DeleteAdmin(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if apperrors.Is(err, apperrors.ErrConstraint) {
			return fmt.Errorf("%w: %w", ErrAdminHasDependencies, err)
		}
		return err
	}
	logger.Info("Admin deleted", zap.Int("admin_id", id))
	return nil
}

func (s *AdminAuthService) GetTokenManager() *jwt.TokenManager {
	return s.tokenManager
}
