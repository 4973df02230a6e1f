package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewJWTMiddleware(logger.NewNop(), NewTokenValidator(testSecret))
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		id, ok := UserID(c)
		fromCtx, ctxOK := UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok && ctxOK && fromCtx == id})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	router := newAuthRouter()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + signToken(t, testSecret, "42", time.Hour), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", signToken(t, testSecret, "42", time.Hour), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", "42", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, "42", -time.Minute), http.StatusUnauthorized},
		{"non numeric subject", "Bearer " + signToken(t, testSecret, "alice", time.Hour), http.StatusUnauthorized},
		{"empty subject", "Bearer " + signToken(t, testSecret, "", time.Hour), http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"id":42,"ok":true}`, w.Body.String())
			}
		})
	}
}

func TestValidatorRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenValidator(testSecret).Validate(token)
	assert.Error(t, err)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(WithUserID(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
