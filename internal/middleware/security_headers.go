package middleware

import (
	"github.com/gin-gonic/gin"
)

var securityHeaders = map[string]string{
	"X-Frame-Options":                   "DENY",
	"X-Content-Type-Options":            "nosniff",
	"Content-Security-Policy":           "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":                   "no-referrer",
	"X-Permitted-Cross-Domain-Policies": "none",
	// applicant data must not sit in shared caches
	"Cache-Control": "no-store",
	"Pragma":        "no-cache",
}

// SecurityHeadersMiddleware sets response headers for a JSON API that also
// serves spreadsheet downloads. HSTS is only sent over HTTPS, including
// TLS terminated at a proxy.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range securityHeaders {
			c.Header(k, v)
		}
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
