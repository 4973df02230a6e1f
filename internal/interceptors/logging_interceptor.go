package interceptors

import (
	"context"
	"time"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary логирует каждый unary вызов с кодом и длительностью
func LoggingUnary(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		fields := []interface{}{
			"method", info.FullMethod,
			"code", code.String(),
			"latency", time.Since(start),
		}
		switch code {
		case codes.OK:
			log.Debugw("gRPC request", fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			log.Errorw("gRPC request failed", append(fields, "error", err)...)
		default:
			log.Warnw("gRPC request rejected", append(fields, "error", err)...)
		}
		return resp, err
	}
}
