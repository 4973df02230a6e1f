package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/internal/interceptors"
	"github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startBufServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()
	log := logger.NewNop()
	auth := interceptors.NewAuthInterceptor(log, middleware.NewTokenValidator("grpc-secret"))
	srv := NewServer(config.GRPCConfig{Port: "0"}, log, interceptors.LoggingUnary(log), auth.Unary())

	listener := bufconn.Listen(1024 * 1024)
	go func() {
		_ = srv.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return srv, healthpb.NewHealthClient(conn)
}

func TestServer_HealthIsPublicAndServing(t *testing.T) {
	srv, client := startBufServer(t)
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Без токена: health не требует аутентификации
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServer_SetServingFlipsStatus(t *testing.T) {
	srv, client := startBufServer(t)
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.SetServing(false)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	srv.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
