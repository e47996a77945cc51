package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvet-apply/applicants-api/pkg/jwt"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"golang.org/x/time/rate"
)

func init() {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{Level: "debug", Environment: "development"}); err != nil {
		panic(err)
	}
}

func newAdminRouter(tm *jwt.TokenManager) *gin.Engine {
	router := gin.New()
	admin := router.Group("/admin", AdminAuthMiddleware(tm))
	admin.GET("/:id", AdminSelfOnly("id"), func(c *gin.Context) {
		principal, err := GetAdminPrincipal(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": principal.ID, "username": principal.Username})
	})
	return router
}

func doRequest(router http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuthMiddleware(t *testing.T) {
	tm := jwt.NewTokenManager("test-secret", "applicants-api", 720)
	token, err := tm.GenerateToken(5, "registrar")
	require.NoError(t, err)

	other := jwt.NewTokenManager("other-secret", "applicants-api", 720)
	forged, err := other.GenerateToken(5, "registrar")
	require.NoError(t, err)

	tests := []struct {
		name          string
		path          string
		authorization string
		status        int
		body          string
	}{
		{"valid token own id", "/admin/5", "Bearer " + token, http.StatusOK, `"username":"registrar"`},
		{"lower-case scheme", "/admin/5", "bearer " + token, http.StatusOK, `"id":5`},
		{"missing header", "/admin/5", "", http.StatusUnauthorized, "No token provided"},
		{"wrong scheme", "/admin/5", "Basic abc", http.StatusUnauthorized, "No token provided"},
		{"empty bearer", "/admin/5", "Bearer   ", http.StatusUnauthorized, "No token provided"},
		{"garbage token", "/admin/5", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
		{"wrong signature", "/admin/5", "Bearer " + forged, http.StatusUnauthorized, "Invalid token"},
		{"another admin", "/admin/6", "Bearer " + token, http.StatusForbidden, "Forbidden: cannot access another admin's data"},
		{"non numeric id", "/admin/me", "Bearer " + token, http.StatusForbidden, "Forbidden"},
	}

	router := newAdminRouter(tm)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.path, tt.authorization)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestAdminAuthMiddleware_ExpiredToken(t *testing.T) {
	tm := jwt.NewTokenManager("test-secret", "applicants-api", 1)
	token, err := tm.GenerateToken(5, "registrar")
	require.NoError(t, err)

	// validate with a manager whose clock is two hours ahead
	later := jwt.NewTokenManager("test-secret", "applicants-api", 1)
	later.SetClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	w := doRequest(newAdminRouter(later), http.MethodGet, "/admin/5", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Token expired"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter("submit", rate.Every(time.Hour), 2)
	router := gin.New()
	router.POST("/forms", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/forms", "").Code)
	assert.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/forms", "").Code)
	w := doRequest(router, http.MethodPost, "/forms", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_SeparateBucketsPerClient(t *testing.T) {
	limiter := NewRateLimiter("login", rate.Every(time.Hour), 1)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimitMiddleware(8))
	router.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if IsBodyTooLarge(err) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("tiny"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	large := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too large a body"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, large)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body too large")

	// unknown length falls through to the reader limit
	streamed := httptest.NewRequest(http.MethodPost, "/echo", io.NopCloser(strings.NewReader("far too large a body")))
	streamed.ContentLength = -1
	w = httptest.NewRecorder()
	router.ServeHTTP(w, streamed)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(router, http.MethodGet, "/", "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}

func TestObservabilityMiddleware_PassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(ObservabilityMiddleware())
	router.GET("/forms/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := doRequest(router, http.MethodGet, "/forms/42?token=secret", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedactQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/forms?status=PENDING&token=abc&National_ID=9981234567", nil)

	assert.Equal(t, map[string]string{"status": "PENDING"}, redactQuery(c))
}
