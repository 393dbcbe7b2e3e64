package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novel-client/internal/auth"
	"novel-client/internal/models"
)

// Ключи gin.Context.
const (
	userIDKey = "userID"
	rolesKey  = "userRoles"
)

// TokenVerifier проверяет строку токена и возвращает claims.
// Ожидаемые ошибки: models.ErrTokenInvalid, models.ErrTokenExpired.
type TokenVerifier func(tokenString string) (*auth.Claims, error)

// BearerAuth проверяет токен из заголовка Authorization и, если заданы requiredRoles,
// наличие хотя бы одной из них. 401 без токена или с невалидным токеном, 403 без роли.
func BearerAuth(verifier TokenVerifier, logger *zap.Logger, requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.With(zap.String("path", c.Request.URL.Path))

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Authorization header missing")
			abort(c, http.StatusUnauthorized, "Unauthorized: Missing token")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			log.Warn("Malformed Authorization header")
			abort(c, http.StatusUnauthorized, "Unauthorized: Malformed token header")
			return
		}

		claims, err := verifier(tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "Unauthorized: Invalid token"
			switch {
			case errors.Is(err, models.ErrTokenExpired):
				msg = "Unauthorized: Token expired"
			case errors.Is(err, models.ErrTokenInvalid):
			default:
				log.Error("Unexpected token verification error", zap.Error(err))
				status = http.StatusInternalServerError
				msg = "Internal server error during token verification"
			}
			log.Warn("Token verification failed", zap.Error(err))
			abort(c, status, msg)
			return
		}

		if len(requiredRoles) > 0 && !hasAnyRole(claims.Roles, requiredRoles) {
			log.Warn("User does not have required role",
				zap.String("userID", claims.UserID),
				zap.Strings("userRoles", claims.Roles),
				zap.Strings("requiredRoles", requiredRoles),
			)
			abort(c, http.StatusForbidden, "Forbidden: Insufficient permissions")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(rolesKey, claims.Roles)
		log.Debug("User authorized", zap.String("userID", claims.UserID), zap.Strings("roles", claims.Roles))
		c.Next()
	}
}

// UserIDFromContext возвращает ID пользователя, установленный BearerAuth.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// RolesFromContext возвращает роли пользователя, установленные BearerAuth.
func RolesFromContext(c *gin.Context) []string {
	v, _ := c.Get(rolesKey)
	roles, _ := v.([]string)
	return roles
}

func hasAnyRole(userRoles, required []string) bool {
	for _, r := range required {
		if models.HasRole(userRoles, r) {
			return true
		}
	}
	return false
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: detail})
}
