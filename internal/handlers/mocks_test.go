package handlers_test

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
	"github.com/tvet-apply/applicants-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(logger.Config{Level: "error", Environment: "test"}); err != nil {
		panic(err)
	}
}

// MockFormService implements FormServiceInterface for testing
type MockFormService struct {
	mock.Mock
}

func (m *MockFormService) Submit(ctx context.Context, in *models.FormInput) (*models.ApplicationForm, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationForm), args.Error(1)
}

func (m *MockFormService) List(ctx context.Context, filter models.FormFilter) ([]*models.ApplicationForm, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ApplicationForm), args.Error(1)
}

func (m *MockFormService) Get(ctx context.Context, id int) (*models.ApplicationForm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationForm), args.Error(1)
}

func (m *MockFormService) Update(ctx context.Context, id int, patch *models.UpdateFormRequest) (*models.ApplicationForm, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApplicationForm), args.Error(1)
}

func (m *MockFormService) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockImportService implements ImportServiceInterface for testing
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ImportRows(ctx context.Context, rows []models.RawRow) (*models.ImportResult, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportResult), args.Error(1)
}

func (m *MockImportService) ImportWorkbook(ctx context.Context, filename string, data []byte) (*models.ImportResult, string, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.ImportResult), args.String(1), args.Error(2)
}

// MockExportService writes its canned payload to the response writer
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, filter models.FormFilter, w io.Writer) (int, error) {
	args := m.Called(ctx, filter, w)
	if payload, ok := args.Get(0).([]byte); ok {
		if _, err := w.Write(payload); err != nil {
			return 0, err
		}
	}
	return args.Int(1), args.Error(2)
}

// MockAdminAuthService implements AdminAuthServiceInterface for testing
type MockAdminAuthService struct {
	mock.Mock
}

func (m *MockAdminAuthService) Register(ctx context.Context, req *models.RegisterAdminRequest) (*models.Admin, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminAuthService) Login(ctx context.Context, req *models.LoginAdminRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAdminAuthService) GetAdmin(ctx context.Context, id int) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminAuthService) DeleteAdmin(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAdminAuthService) GetTokenManager() *jwt.TokenManager {
	args := m.Called()
	return args.Get(0).(*jwt.TokenManager)
}

// MockCatalogService implements CatalogServiceInterface for testing
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListRegions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogService) ListAreas(ctx context.Context, region string) ([]string, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogService) ListInstitutes(ctx context.Context, region, area string) ([]string, error) {
	args := m.Called(ctx, region, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogService) ListProfessions(ctx context.Context, region, area, institute string, gender models.Gender) ([]string, error) {
	args := m.Called(ctx, region, area, institute, gender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogService) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCatalogService) IsReady() bool {
	return m.Called().Bool(0)
}
