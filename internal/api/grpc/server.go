package grpc

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// Server gRPC сервер
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *logger.Logger
	cfg        config.GRPCConfig
}

// NewServer создает новый gRPC сервер с health и reflection
func NewServer(cfg config.GRPCConfig, log *logger.Logger, interceptors ...grpc.UnaryServerInterceptor) *Server {
	// Настройки keepalive для gRPC
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     time.Minute * 5,  // Максимальное время простоя соединения
		MaxConnectionAge:      time.Hour,        // Максимальное время жизни соединения
		MaxConnectionAgeGrace: time.Minute * 5,  // Дополнительное время для завершения запросов при закрытии соединения
		Time:                  time.Minute * 2,  // Время между пингами для проверки активности
		Timeout:               time.Second * 20, // Таймаут после которого соединение закрывается если нет ответа на пинг
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(kaParams),
		grpc.ChainUnaryInterceptor(interceptors...),
	}
	grpcServer := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Включаем reflection для удобства отладки (например, с помощью grpcurl)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		cfg:        cfg,
	}
}

// Start слушает порт из конфигурации и блокируется до остановки
func (s *Server) Start() error {
	addr := ":" + s.cfg.Port
	s.log.Info("Starting gRPC server on %s", addr)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve обслуживает переданный listener
func (s *Server) Serve(listener net.Listener) error {
	if err := s.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// SetServing переключает статус health
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Stop переводит health в NOT_SERVING и дожидается завершения запросов
func (s *Server) Stop() {
	s.log.Info("Stopping gRPC server")
	s.SetServing(false)
	s.grpcServer.GracefulStop()
}
