package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"novel-client/internal/auth"
	"novel-client/internal/models"
)

func newAdminRouter(t *testing.T, issuer *auth.TokenIssuer, logger *zap.Logger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ZapLogger(logger))
	admin := r.Group("/admin", BearerAuth(issuer.Verify, logger, models.RoleAdmin))
	admin.GET("/story-types", func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": id, "roles": RolesFromContext(c)})
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	issuer, err := auth.NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	router := newAdminRouter(t, issuer, zap.NewNop())

	adminToken, _, err := issuer.Issue(models.User{ID: "a1", Username: "admin", Roles: []string{models.RoleAdmin}})
	require.NoError(t, err)
	playerToken, _, err := issuer.Issue(models.User{ID: "p1", Username: "player", Roles: []string{models.RoleUser}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"basic scheme", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
		{"player token", "Bearer " + playerToken, http.StatusForbidden},
		{"admin token", "Bearer " + adminToken, http.StatusOK},
		{"lowercase scheme", "bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/story-types", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user":"a1","roles":["ROLE_ADMIN"]}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"detail"`)
			}
		})
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	issuer, err := auth.NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	router := newAdminRouter(t, issuer, zap.New(core))
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin/story-types?x=1", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("Client error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/admin/story-types?x=1", fields["path"])
	assert.Equal(t, "req-123", fields["request_id"])

	// health не логируется, но получает request id
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, 0, logs.FilterMessage("Request completed").Len())
}
