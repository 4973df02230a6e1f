package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/Dhoini/isp-subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте (используется HTTP middleware и gRPC interceptor).
	ContextUserIDKey ContextKey = "userID"
	authHeaderPrefix            = "Bearer "
)

type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

type TokenClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает числовой ID пользователя из claim sub
func (c *TokenClaims) UserID() (int64, error) {
	if c.Subject == "" {
		return 0, errors.New("user ID (sub) missing in token")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("user ID (sub) must be a positive integer, got %q", c.Subject)
	}
	return id, nil
}

// WithUserID кладет ID пользователя в context.Context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// UserIDFromContext достает ID пользователя из context.Context
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextUserIDKey).(int64)
	return id, ok
}

// UserID достает ID пользователя, установленный RequireAuth
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(string(ContextUserIDKey))
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

func (m *JWTMiddleware) RequireAuth(requiredScopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization token")
			return
		}
		if !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		if len(requiredScopes) > 0 && !m.hasRequiredScope(claims.Scope, requiredScopes) {
			m.handleAuthError(c, "Insufficient token permissions")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			m.handleAuthError(c, err.Error())
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		m.log.Debugw("User authenticated via HTTP", "userID", userID)
		c.Next()
	}
}

func (m *JWTMiddleware) hasRequiredScope(tokenScope string, requiredScopes []string) bool {
	if len(requiredScopes) == 0 {
		return true
	}
	for _, scope := range requiredScopes {
		if tokenScope == scope {
			return true
		}
	}
	return false
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("HTTP Authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonError(c, http.StatusUnauthorized, message, nil)
}

// Допустимые алгоритмы подписи
var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// DefaultTokenValidator - реализация валидатора по умолчанию (HMAC).
type DefaultTokenValidator struct {
	Secret []byte
}

// NewTokenValidator создает HMAC валидатор
func NewTokenValidator(secret string) *DefaultTokenValidator {
	return &DefaultTokenValidator{Secret: []byte(secret)}
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.Secret, nil
	}, jwt.WithValidMethods(hmacMethods), jwt.WithExpirationRequired())

	if err != nil {
		return nil, validationError(err)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}

// validationError сводит ошибки jwt к коротким сообщениям для клиента
func validationError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.New("malformed token")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.New("invalid token signature")
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.New("token expired")
	}
	return fmt.Errorf("invalid token: %w", err)
}
