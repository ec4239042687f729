package middleware

import (
	"errors"
	"net/http"
	"strings"

	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID = "userID"
	ctxOrgID  = "orgID"
	ctxRole   = "userRole"

	devSecret = "default_super_secret_key"
)

var errMissingToken = errors.New("authorization is missing")

// GetJWTSecret returns the configured signing secret. Release mode refuses to fall back.
func GetJWTSecret(configured string, release bool) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	if release {
		return nil, errors.New("JWT_SECRET is required in release mode")
	}
	return []byte(devSecret), nil
}

// tokenFromRequest tries the access_token cookie first, then the Authorization header
func tokenFromRequest(c *gin.Context) (string, error) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, nil
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format, expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// ParseToken verifies an HMAC-signed token and returns its claims
func ParseToken(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RequireAuth validates the JWT and stores the caller's user, organization and role on the context.
// The org claim is mandatory; every operation is scoped to it.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		orgClaim, _ := claims["org"].(string)
		org, err := uuid.Parse(orgClaim)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Organization not found in token"))
			return
		}

		var user uuid.UUID
		if sub, _ := claims["sub"].(string); sub != "" {
			if parsed, err := uuid.Parse(sub); err == nil {
				user = parsed
			}
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = service.RoleRequestor
		}

		c.Set(ctxUserID, user)
		c.Set(ctxOrgID, org)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRole must run after RequireAuth; it rejects callers whose role is not listed
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// Scope builds the service scope from the values RequireAuth stored
func Scope(c *gin.Context) service.Scope {
	scope := service.Scope{Role: c.GetString(ctxRole)}
	if v, ok := c.Get(ctxOrgID); ok {
		scope.OrganizationID, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ctxUserID); ok {
		scope.UserID, _ = v.(uuid.UUID)
	}
	return scope
}
