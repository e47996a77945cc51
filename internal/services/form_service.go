package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/repository"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FormService handles public submissions and admin maintenance of forms
type FormService struct {
	store     repository.FormStore
	catalog   CatalogProvider
	validator *FormValidator
	guard     *DuplicateGuard
}

func NewFormService(store repository.FormStore, catalog CatalogProvider, validator *FormValidator) *FormService {
	return &FormService{
		store:     store,
		catalog:   catalog,
		validator: validator,
		guard:     NewDuplicateGuard(store),
	}
}

// Submit validates a public submission and stores it as a new PENDING form
func (s *FormService) Submit(ctx context.Context, in *models.FormInput) (form *models.ApplicationForm, err error) {
	ctx, span := tracing.StartSpan(ctx, "forms.submit")
	defer func() {
		metrics.FormSubmissions.WithLabelValues(submissionOutcome(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	in.Normalize()
	// workflow fields are never taken from the public
	in.Status, in.Mark, in.RequiredDocuments = "", nil, ""

	if err = s.validator.CheckRequired(in); err != nil {
		logRejected("submit", err)
		return nil, err
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err = s.validator.Validate(snapshot, in); err != nil {
		logRejected("submit", err)
		return nil, err
	}

	if err = s.guard.CheckDuplicate(ctx, in.NationalID, in.PhoneNumber, 0); err != nil {
		logRejected("submit", err)
		return nil, err
	}

	form = in.ToForm()
	if err = asConflict(s.store.Create(ctx, form)); err != nil {
		logRejected("submit", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("form.id", form.ID))
	logger.Info("Application form submitted",
		zap.Int("form_id", form.ID),
		zap.String("region", form.Region),
		zap.String("profession", form.Profession))

	return form, nil
}

func (s *FormService) List(ctx context.Context, filter models.FormFilter) ([]*models.ApplicationForm, error) {
	return s.store.List(ctx, filter)
}

func (s *FormService) Get(ctx context.Context, id int) (*models.ApplicationForm, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies an admin patch. The merged form is validated as a whole,
// with the age band measured at the original submission time.
func (s *FormService) Update(ctx context.Context, id int, patch *models.UpdateFormRequest) (form *models.ApplicationForm, err error) {
	ctx, span := tracing.StartSpan(ctx, "forms.update", attribute.Int("form.id", id))
	defer func() {
		metrics.FormUpdates.WithLabelValues(submissionOutcome(err)).Inc()
		tracing.EndSpan(span, err)
	}()

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	in := existing.ToInput()
	patch.ApplyTo(in)
	in.Normalize()

	if in.NationalID != existing.NationalID {
		err = fieldViolation("nationalID", "cannot be changed after submission")
		logRejected("update", err)
		return nil, err
	}
	if in.PhoneNumber != existing.PhoneNumber {
		err = fieldViolation("phoneNumber", "cannot be changed after submission")
		logRejected("update", err)
		return nil, err
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err = s.validator.ValidateAt(snapshot, in, existing.CreatedAt); err != nil {
		logRejected("update", err)
		return nil, err
	}

	next := models.FormStatus(in.Status)
	if next == "" {
		next = existing.Status
	}
	if !existing.Status.CanTransitionTo(next) {
		err = fieldViolation("status",
			fmt.Sprintf("cannot move from %s to %s", existing.Status, next))
		logRejected("update", err)
		return nil, err
	}

	existing.ApplyInput(in)
	if err = asConflict(s.store.Update(ctx, existing)); err != nil {
		return nil, err
	}

	logger.Info("Application form updated",
		zap.Int("form_id", existing.ID),
		zap.String("status", string(existing.Status)))

	return existing, nil
}

func (s *FormService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Application form deleted", zap.String("form_id", strconv.Itoa(id)))
	return nil
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case apperrors.Is(err, apperrors.ErrConflict):
		return "duplicate"
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return "invalid"
	case apperrors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func logRejected(operation string, err error) {
	fields := []zap.Field{zap.String("operation", operation), zap.String("reason", err.Error())}
	var fe *FormError
	if apperrors.As(err, &fe) {
		fields = append(fields, zap.String("kind", string(fe.Kind)))
		if fe.Field != "" {
			fields = append(fields, zap.String("field", fe.Field))
		}
	}
	logger.Warn("Application form rejected", fields...)
}
