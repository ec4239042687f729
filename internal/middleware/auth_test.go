package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procurement/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newRouter(scopes chan<- service.Scope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", RequireAuth(secret))
	api.GET("/me", func(c *gin.Context) {
		scopes <- Scope(c)
		c.Status(http.StatusNoContent)
	})
	api.POST("/approve", RequireRole(service.RoleApprover, service.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	org, user := uuid.New(), uuid.New()
	valid := jwt.MapClaims{"sub": user.String(), "org": org.String(), "role": "approver", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", "", http.StatusUnauthorized},
		{"bad signature", "Bearer " + sign(t, []byte("other"), valid), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.MapClaims{"org": org.String(), "exp": time.Now().Add(-time.Hour).Unix()}), "", http.StatusUnauthorized},
		{"no organization", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": user.String()}), "", http.StatusForbidden},
		{"bearer", "Bearer " + sign(t, secret, valid), "", http.StatusNoContent},
		{"cookie", "", sign(t, secret, valid), http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scopes := make(chan service.Scope, 1)
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			newRouter(scopes).ServeHTTP(w, req)

			require.Equal(t, tc.want, w.Code, w.Body.String())
			if tc.want == http.StatusNoContent {
				scope := <-scopes
				assert.Equal(t, org, scope.OrganizationID)
				assert.Equal(t, user, scope.UserID)
				assert.True(t, scope.IsApprover())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	org := uuid.New()
	router := newRouter(make(chan service.Scope, 1))

	for role, want := range map[string]int{
		"":          http.StatusForbidden,
		"requestor": http.StatusForbidden,
		"approver":  http.StatusNoContent,
		"admin":     http.StatusNoContent,
	} {
		claims := jwt.MapClaims{"org": org.String()}
		if role != "" {
			claims["role"] = role
		}
		req := httptest.NewRequest(http.MethodPost, "/api/approve", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, secret, claims))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %q", role)
	}
}

func TestGetJWTSecret(t *testing.T) {
	got, err := GetJWTSecret("configured", true)
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), got)

	_, err = GetJWTSecret("", true)
	assert.Error(t, err)

	got, err = GetJWTSecret("", false)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
