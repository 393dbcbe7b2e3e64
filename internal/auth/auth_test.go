package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"novel-client/internal/models"
)

const testPepper = "pepper"

func newTestService(t *testing.T) (*Service, *TokenIssuer) {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", time.Minute)
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(), issuer, testPepper, zap.NewNop())

	_, err = svc.Register(context.Background(), "admin", "admin-pass", []string{models.RoleAdmin, models.RoleUser})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "player", "player-pass", nil)
	require.NoError(t, err)
	return svc, issuer
}

func TestPasswordHash_UsesPepper(t *testing.T) {
	hash, err := HashPassword("secret", testPepper)
	require.NoError(t, err)

	assert.True(t, checkPasswordHash("secret", hash, testPepper))
	assert.False(t, checkPasswordHash("secret", hash, "other-pepper"))
	assert.False(t, checkPasswordHash("wrong", hash, testPepper))
}

func TestTokenIssuer(t *testing.T) {
	_, err := NewTokenIssuer("", time.Minute)
	assert.Error(t, err)

	issuer, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)

	user := models.User{ID: "u1", Username: "admin", Roles: []string{models.RoleAdmin}}
	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 2*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, []string{models.RoleAdmin}, claims.Roles)

	t.Run("other secret", func(t *testing.T) {
		other, err := NewTokenIssuer("another", time.Minute)
		require.NoError(t, err)
		_, err = other.Verify(token)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		defer func() { issuer.now = time.Now }()
		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(s)
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-token")
		assert.ErrorIs(t, err, models.ErrTokenInvalid)
	})
}

func TestService_Login(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, resp.User.IsAdmin())

	claims, err := svc.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = svc.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Неизвестный пользователь неотличим от неверного пароля
	_, err = svc.Login(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Register(ctx, "admin", "x", nil)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	router := gin.New()
	NewHandler(svc, nil).RegisterRoutes(router)

	t.Run("basic credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.SetBasicAuth("player", "player-pass")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "player", resp.User.Username)
		assert.False(t, resp.User.IsAdmin())
	})

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.SetBasicAuth("player", "nope")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"detail":"Invalid username or password"}`, w.Body.String())
	})
}
