package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/internal/models"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// AdminContextKey stores the authenticated admin in the gin context
	AdminContextKey = "admin_principal"

	bearerPrefix = "bearer "
)

var (
	ErrAdminNotInContext     = errors.New("admin principal not found in context")
	ErrInvalidAdminInContext = errors.New("invalid admin principal type")
)

// AdminAuthMiddleware requires "Authorization: Bearer <token>" and stores
// the admin principal in the context
func AdminAuthMiddleware(tokenManager *jwt.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			_ = c.Error(fmt.Errorf("missing bearer token")) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		claims, err := tokenManager.ValidateToken(token)
		if err != nil {
			_ = c.Error(fmt.Errorf("invalid admin token: %w", err)) //nolint:errcheck
			logger.Warn("Rejected admin token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			if errors.Is(err, jwt.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(AdminContextKey, &models.AdminPrincipal{ID: claims.AdminID, Username: claims.Username})
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// GetAdminPrincipal returns the admin set by AdminAuthMiddleware
func GetAdminPrincipal(c *gin.Context) (*models.AdminPrincipal, error) {
	val, exists := c.Get(AdminContextKey)
	if !exists {
		return nil, ErrAdminNotInContext
	}

	principal, ok := val.(*models.AdminPrincipal)
	if !ok {
		return nil, ErrInvalidAdminInContext
	}

	return principal, nil
}

// AdminSelfOnly allows the request only when the path parameter param equals
// the authenticated admin's id. Mount after AdminAuthMiddleware.
func AdminSelfOnly(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := GetAdminPrincipal(c)
		if err != nil {
			_ = c.Error(err) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}

		id, err := strconv.Atoi(c.Param(param))
		if err != nil || id != principal.ID {
			logger.Warn("Admin tried to access another admin",
				zap.Int("admin_id", principal.ID),
				zap.String("target", c.Param(param)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: cannot access another admin's data"})
			return
		}

		c.Next()
	}
}
