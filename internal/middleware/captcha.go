package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"github.com/tvet-apply/applicants-api/pkg/recaptcha"
	"go.uber.org/zap"
)

// CaptchaHeader carries the reCAPTCHA token of a public submission
const CaptchaHeader = "X-Recaptcha-Token"

// CaptchaVerifier checks a captcha token for the given client IP
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// CaptchaMiddleware rejects requests whose captcha token does not verify.
// A nil verifier disables the check.
func CaptchaMiddleware(verifier CaptchaVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		err := verifier.Verify(c.Request.Context(), c.GetHeader(CaptchaHeader), c.ClientIP())
		switch {
		case err == nil:
			metrics.CaptchaVerifications.WithLabelValues("passed").Inc()
			c.Next()
		case errors.Is(err, recaptcha.ErrMissingToken), errors.Is(err, recaptcha.ErrRejected):
			metrics.CaptchaVerifications.WithLabelValues("rejected").Inc()
			_ = c.Error(err) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Captcha verification failed"})
		default:
			metrics.CaptchaVerifications.WithLabelValues("error").Inc()
			logger.Error("Captcha verification unavailable",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			_ = c.Error(err) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Captcha verification unavailable, please try again"})
		}
	}
}
