package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/service"
	"github.com/homereel/media-library/pkg/logger"
)

func newAuth(t *testing.T) (*service.AuthService, func(models.UserRole) string) {
	t.Helper()
	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour})
	issue := func(role models.UserRole) string {
		token, _, err := auth.IssueToken(service.IssueTokenRequest{UserID: "u-" + string(role), Role: role})
		require.NoError(t, err)
		return token
	}
	return auth, issue
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth, _ := newAuth(t)
	router := gin.New()
	router.Use(JWT(auth))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, header := range []string{"", "Token abc", "Bearer ", "Bearer not-a-jwt"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestJWTPublishesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth, issue := newAuth(t)
	router := gin.New()
	router.Use(JWT(auth))

	var (
		got    *models.Identity
		logUID string
	)
	router.GET("/", func(c *gin.Context) {
		got = Identity(c)
		logUID = c.GetString(logger.UserIDKey)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(models.RoleUser))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u-USER", got.UserID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, "u-USER", logUID)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth, issue := newAuth(t)
	router := gin.New()
	router.Use(OptionalJWT(auth))

	var anonymous bool
	router.GET("/", func(c *gin.Context) {
		anonymous = Identity(c) == nil
		c.Status(http.StatusNoContent)
	})

	cases := map[string]bool{
		"":                                  true,
		"Bearer garbage":                    true,
		"Bearer " + issue(models.RoleGuest): false,
	}
	for header, wantAnonymous := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, wantAnonymous, anonymous, header)
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth, issue := newAuth(t)
	router := gin.New()
	router.GET("/admin", JWT(auth), RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/open", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		path   string
		role   models.UserRole
		status int
	}{
		{"/admin", models.RoleAdmin, http.StatusNoContent},
		{"/admin", models.RoleUser, http.StatusForbidden},
		{"/admin", models.RoleGuest, http.StatusForbidden},
		{"/open", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.role != "" {
			req.Header.Set("Authorization", "Bearer "+issue(tc.role))
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%s as %s", tc.path, tc.role)
	}
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/media/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/media/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func TestMetricsMiddlewareMarksClientDisconnects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/media/:id/stream", func(c *gin.Context) { c.Status(http.StatusPartialContent) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/media/abc/stream", nil).WithContext(ctx)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/media/:id/stream",status="499"} 1`)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())

	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetMeta(c, "status", "PROCESSING")
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, meta)
	assert.Equal(t, "PROCESSING", meta["status"])
}
