package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tvet-apply/applicants-api/internal/models"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

// memoryFormStore is an in-memory FormStore enforcing the same unique keys
// as the application_forms table
type memoryFormStore struct {
	mu        sync.Mutex
	forms     map[int]*models.ApplicationForm
	nextID    int
	createErr error
	findErr   error
	onCreate  func() // runs after each successful Create
}

func newMemoryFormStore() *memoryFormStore {
	return &memoryFormStore{forms: map[int]*models.ApplicationForm{}, nextID: 1}
}

func copyForm(f *models.ApplicationForm) *models.ApplicationForm {
	c := *f
	if f.Mark != nil {
		m := *f.Mark
		c.Mark = &m
	}
	return &c
}

func (s *memoryFormStore) List(_ context.Context, filter models.FormFilter) ([]*models.ApplicationForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.ApplicationForm{}
	for _, f := range s.forms {
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		if filter.Region != "" && f.Region != filter.Region {
			continue
		}
		if filter.Gender != "" && f.Gender != filter.Gender {
			continue
		}
		out = append(out, copyForm(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryFormStore) GetByID(_ context.Context, id int) (*models.ApplicationForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, apperrors.NotFoundError("form")
	}
	return copyForm(f), nil
}

func (s *memoryFormStore) FindByNaturalKeys(_ context.Context, nationalID, phoneNumber string) (*models.ApplicationForm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, f := range s.forms {
		if f.NationalID == nationalID || f.PhoneNumber == phoneNumber {
			return copyForm(f), nil
		}
	}
	return nil, apperrors.NotFoundError("form")
}

func (s *memoryFormStore) conflict(form *models.ApplicationForm) error {
	for _, f := range s.forms {
		if f.ID == form.ID {
			continue
		}
		if f.NationalID == form.NationalID {
			return apperrors.ConflictError("application_forms_national_id_key")
		}
		if f.PhoneNumber == form.PhoneNumber {
			return apperrors.ConflictError("application_forms_phone_number_key")
		}
	}
	return nil
}

func (s *memoryFormStore) Create(_ context.Context, form *models.ApplicationForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if err := s.conflict(form); err != nil {
		return err
	}
	form.ID = s.nextID
	s.nextID++
	form.CreatedAt = testNow
	form.UpdatedAt = testNow
	s.forms[form.ID] = copyForm(form)
	if s.onCreate != nil {
		s.onCreate()
	}
	return nil
}

func (s *memoryFormStore) Update(_ context.Context, form *models.ApplicationForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form.ID]; !ok {
		return apperrors.NotFoundError("form")
	}
	if err := s.conflict(form); err != nil {
		return err
	}
	s.forms[form.ID] = copyForm(form)
	return nil
}

func (s *memoryFormStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return apperrors.NotFoundError("form")
	}
	delete(s.forms, id)
	return nil
}

func (s *memoryFormStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// MockAdminStore is a mock implementation of repository.AdminStore
type MockAdminStore struct {
	mock.Mock
}

func (m *MockAdminStore) Create(ctx context.Context, admin *models.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockAdminStore) GetByID(ctx context.Context, id int) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminStore) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *MockAdminStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminStore) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCatalogStore is a mock implementation of repository.CatalogStore
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) ListRegions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogStore) ListAreas(ctx context.Context, region string) ([]string, error) {
	args := m.Called(ctx, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogStore) ListInstitutes(ctx context.Context, region, area string) ([]string, error) {
	args := m.Called(ctx, region, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogStore) ListProfessions(ctx context.Context, region, area string) ([]models.Profession, error) {
	args := m.Called(ctx, region, area)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profession), args.Error(1)
}

func (m *MockCatalogStore) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}

// recordingArchiver keeps uploaded objects in memory
type recordingArchiver struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newRecordingArchiver() *recordingArchiver {
	return &recordingArchiver{objects: map[string][]byte{}}
}

func (a *recordingArchiver) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.objects[key] = append([]byte(nil), body...)
	return key, nil
}

func (a *recordingArchiver) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.objects))
	for k := range a.objects {
		out = append(out, k)
	}
	return out
}

var errStoreDown = errors.New("connection refused")
