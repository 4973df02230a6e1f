package interceptors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testSecret = "interceptor-secret"

func signed(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestAuthInterceptor(t *testing.T) {
	interceptor := NewAuthInterceptor(logger.NewNop(), middleware.NewTokenValidator(testSecret)).Unary()

	tests := []struct {
		name       string
		method     string
		authHeader string
		wantCode   codes.Code
		wantUserID int64
	}{
		{"valid token", "/isp.Subscriptions/List", "Bearer " + signed(t, "42"), codes.OK, 42},
		{"missing header", "/isp.Subscriptions/List", "", codes.Unauthenticated, 0},
		{"wrong scheme", "/isp.Subscriptions/List", "Basic abc", codes.Unauthenticated, 0},
		{"non numeric subject", "/isp.Subscriptions/List", "Bearer " + signed(t, "alice"), codes.Unauthenticated, 0},
		{"bad signature", "/isp.Subscriptions/List", "Bearer " + signed(t, "42") + "x", codes.Unauthenticated, 0},
		{"health exempt", "/grpc.health.v1.Health/Check", "", codes.OK, 0},
		{"reflection exempt", "/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", "", codes.OK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.authHeader != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tt.authHeader))
			} else {
				ctx = metadata.NewIncomingContext(ctx, metadata.MD{})
			}

			var gotUserID int64
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				gotUserID, _ = middleware.UserIDFromContext(ctx)
				return "ok", nil
			}

			resp, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode == codes.OK {
				assert.Equal(t, "ok", resp)
				assert.Equal(t, tt.wantUserID, gotUserID)
			}
		})
	}
}

func TestAuthInterceptor_NoMetadata(t *testing.T) {
	interceptor := NewAuthInterceptor(logger.NewNop(), middleware.NewTokenValidator(testSecret)).Unary()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/isp.Subscriptions/List"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLoggingUnary_PassesThrough(t *testing.T) {
	interceptor := LoggingUnary(logger.NewNop())
	info := &grpc.UnaryServerInfo{FullMethod: "/isp.Subscriptions/Cancel"}

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp)

	failure := status.Error(codes.FailedPrecondition, "active subscription")
	_, err = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, failure
	})
	assert.True(t, errors.Is(err, failure))
}
