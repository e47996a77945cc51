package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/internal/middleware"
	"github.com/tvet-apply/applicants-api/internal/services"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondFormError maps form service errors onto HTTP responses. Anything
// unexpected becomes a 500 carrying fallback.
func respondFormError(c *gin.Context, err error, fallback string) {
	var formErr *services.FormError
	if errors.As(err, &formErr) {
		respondErrorWithDetails(c, http.StatusBadRequest, formErr.Message, formErr.Details(), err)
		return
	}

	var reqErr *services.RequestError
	if errors.As(err, &reqErr) {
		respondError(c, http.StatusBadRequest, reqErr.Message, err)
		return
	}

	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		respondError(c, http.StatusConflict, conflict.Message, err)
		return
	}

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Form not found", err)
	case apperrors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, services.ConflictMessage, err)
	case apperrors.Is(err, apperrors.ErrInvalidInput), apperrors.Is(err, apperrors.ErrConstraint):
		// check, length or catalog reference rejected by the store
		respondError(c, http.StatusBadRequest, "Invalid form data", err)
	case middleware.IsBodyTooLarge(err):
		respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
	default:
		respondError(c, http.StatusInternalServerError, fallback, err)
	}
}

// respondBindError answers a request whose body could not be decoded
func respondBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		respondError(c, http.StatusRequestEntityTooLarge, "Request body too large", err)
		return
	}
	if details := ParseValidationErrors(err); len(details) > 0 {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details, err)
		return
	}
	respondError(c, http.StatusBadRequest, "Invalid request body", err)
}
