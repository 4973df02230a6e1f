package interceptors

import (
	"context"
	"strings"

	"github.com/Dhoini/isp-subscription-service/internal/middleware" // Используем тот же пакет для ключа и валидатора
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Методы, доступные без токена
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

type AuthInterceptor struct {
	log       *logger.Logger
	validator middleware.TokenValidator
}

func NewAuthInterceptor(log *logger.Logger, validator middleware.TokenValidator) *AuthInterceptor {
	return &AuthInterceptor{
		log:       log,
		validator: validator,
	}
}

func isPublicMethod(fullMethod string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// Unary возвращает UnaryServerInterceptor для проверки JWT.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		userID, err := i.authenticate(ctx)
		if err != nil {
			i.log.Warnw("gRPC authentication failed", "method", info.FullMethod, "error", err)
			return nil, err
		}

		i.log.Debugw("User authenticated via gRPC", "userID", userID, "method", info.FullMethod)
		return handler(middleware.WithUserID(ctx, userID), req)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing metadata")
	}

	// Ищем заголовок авторизации
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing authorization header")
	}

	// Извлекаем токен (ожидаем "Bearer <token>")
	authHeader := authHeaders[0]
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return 0, status.Error(codes.Unauthenticated, "invalid authorization header format")
	}

	claims, err := i.validator.Validate(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return 0, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return 0, status.Error(codes.Unauthenticated, err.Error())
	}
	return userID, nil
}
