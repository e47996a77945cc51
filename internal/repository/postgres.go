package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.uber.org/zap"
)

// Postgres error codes the store translates
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
)

// mapError translates driver errors into application sentinels.
// Anything not recognised is wrapped as a plain store failure.
func mapError(err error, resource, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundError(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.ConflictError(pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperrors.ConstraintError(pgErr.ConstraintName)
		case pgCheckViolation, pgStringTooLong:
			return apperrors.InvalidInputError(resource, pgErr.Message)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// observe records metrics and a log line for a finished store call
func observe(operation string, start time.Time, err error) {
	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil && !apperrors.Expected(err) {
		status = "error"
	}

	metrics.DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.DBOperationTotal.WithLabelValues(operation, status).Inc()

	if status == "error" {
		logger.LogStoreCall("postgres", operation, status, duration, zap.Error(err))
		return
	}
	logger.LogStoreCall("postgres", operation, status, duration)
}
