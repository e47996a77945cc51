package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/internal/repository"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/profiling"
	"github.com/tvet-apply/applicants-api/pkg/spreadsheet"
	"github.com/tvet-apply/applicants-api/pkg/storage"
	"github.com/tvet-apply/applicants-api/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const rowStoreFailure = "Failed to save row"

// ImportReconciler commits a batch of spreadsheet rows one by one. A bad row
// is reported and skipped; it never aborts the rest of the batch.
type ImportReconciler struct {
	store     repository.FormStore
	catalog   CatalogProvider
	validator *FormValidator
	guard     *DuplicateGuard
	archiver  Archiver
	maxRows   int
	now       func() time.Time
}

// NewImportReconciler creates a reconciler. archiver may be nil.
func NewImportReconciler(store repository.FormStore, catalog CatalogProvider, validator *FormValidator, archiver Archiver, maxRows int) *ImportReconciler {
	return &ImportReconciler{
		store:     store,
		catalog:   catalog,
		validator: validator,
		guard:     NewDuplicateGuard(store),
		archiver:  archiver,
		maxRows:   maxRows,
		now:       time.Now,
	}
}

// ImportRows reconciles a batch already decoded into rows. If ctx ends
// mid-batch the rows handled so far are returned together with ctx's error.
func (r *ImportReconciler) ImportRows(ctx context.Context, rows []models.RawRow) (*models.ImportResult, error) {
	return r.importBatch(ctx, "json", rows)
}

// ImportWorkbook reads the first sheet of an .xlsx upload and reconciles it.
// The upload is archived when storage is configured; the key is returned.
func (r *ImportReconciler) ImportWorkbook(ctx context.Context, filename string, data []byte) (*models.ImportResult, string, error) {
	var sheetRows []map[string]any
	var err error
	profiling.Do(ctx, "import_parse", func(context.Context) {
		sheetRows, err = spreadsheet.ReadRows(bytes.NewReader(data))
	})
	if err != nil {
		return nil, "", &RequestError{Message: "Invalid spreadsheet: " + err.Error()}
	}

	rows := make([]models.RawRow, len(sheetRows))
	for i, row := range sheetRows {
		rows[i] = row
	}

	result, err := r.importBatch(ctx, "xlsx", rows)
	if err != nil {
		return result, "", err
	}

	return result, r.archive(ctx, filename, data), nil
}

func (r *ImportReconciler) archive(ctx context.Context, filename string, data []byte) string {
	if r.archiver == nil {
		return ""
	}
	key, err := r.archiver.Put(ctx, storage.ObjectKey("imports", filename, r.now()), data, storage.XLSXContentType)
	if err != nil {
		// the batch is already committed; a missing archive copy is not fatal
		logger.Warn("Failed to archive import workbook", zap.String("filename", filename), zap.Error(err))
		return ""
	}
	return key
}

func (r *ImportReconciler) importBatch(ctx context.Context, source string, rows []models.RawRow) (result *models.ImportResult, err error) {
	start := time.Now()
	batchID := uuid.NewString()

	ctx, span := tracing.StartSpan(ctx, "forms.import",
		attribute.String("import.batch_id", batchID),
		attribute.String("import.source", source),
		attribute.Int("import.rows", len(rows)))
	defer func() {
		metrics.ImportBatchDuration.WithLabelValues(source).Observe(metrics.MeasureDuration(start))
		tracing.EndSpan(span, err)
	}()

	if len(rows) == 0 {
		return nil, &RequestError{Message: "No rows to import"}
	}
	if r.maxRows > 0 && len(rows) > r.maxRows {
		return nil, &RequestError{Message: fmt.Sprintf("Too many rows: %d (limit %d)", len(rows), r.maxRows)}
	}

	// one snapshot per batch so every row is judged against the same catalog
	snapshot, err := r.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	result = &models.ImportResult{
		BatchID:   batchID,
		Committed: []*models.ApplicationForm{},
		Errors:    []models.ImportRowError{},
	}
	claimed := newClaimedKeys()

	for i, raw := range rows {
		if err = ctx.Err(); err != nil {
			logger.Warn("Import batch interrupted",
				zap.String("batch_id", batchID),
				zap.String("source", source),
				zap.Int("rows", len(rows)),
				zap.Int("next_row", i),
				zap.Int("committed", len(result.Committed)),
				zap.Int("failed", len(result.Errors)),
				zap.Error(err))
			return result, err
		}

		form, rowErr := r.reconcileRow(ctx, snapshot, claimed, i, raw)
		if rowErr != nil {
			message := rowErr.Error()
			if isRowError(rowErr) {
				logger.Warn("Import row rejected", zap.String("batch_id", batchID), zap.Int("row", i), zap.String("reason", message))
			} else {
				logger.Error("Import row failed", zap.String("batch_id", batchID), zap.Int("row", i), zap.Error(rowErr))
				message = rowStoreFailure
			}
			metrics.ImportRows.WithLabelValues(submissionOutcome(rowErr)).Inc()
			result.Errors = append(result.Errors, models.ImportRowError{Row: i, Error: message})
			continue
		}

		metrics.ImportRows.WithLabelValues("created").Inc()
		result.Committed = append(result.Committed, form)
	}

	span.SetAttributes(
		attribute.Int("import.committed", len(result.Committed)),
		attribute.Int("import.failed", len(result.Errors)))
	logger.Info("Import batch processed",
		zap.String("batch_id", batchID),
		zap.String("source", source),
		zap.Int("rows", len(rows)),
		zap.Int("committed", len(result.Committed)),
		zap.Int("failed", len(result.Errors)))

	return result, nil
}

func (r *ImportReconciler) reconcileRow(ctx context.Context, snapshot *models.Catalog, claimed *claimedKeys, index int, raw models.RawRow) (*models.ApplicationForm, error) {
	in := MapRow(raw)
	in.Normalize()

	if err := r.validator.Validate(snapshot, in); err != nil {
		return nil, err
	}

	if row, taken := claimed.holder(in.NationalID, in.PhoneNumber); taken {
		return nil, batchConflict(row)
	}
	if err := r.guard.CheckDuplicate(ctx, in.NationalID, in.PhoneNumber, 0); err != nil {
		return nil, err
	}

	form := in.ToForm()
	if err := asConflict(r.store.Create(ctx, form)); err != nil {
		return nil, err
	}
	claimed.claim(in.NationalID, in.PhoneNumber, index)
	return form, nil
}

func isRowError(err error) bool {
	return apperrors.Is(err, apperrors.ErrInvalidInput) || apperrors.Is(err, apperrors.ErrConflict)
}
