package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Dhoini/isp-subscription-service/internal/app"
	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"go.uber.org/zap/zapgrpc"
	"google.golang.org/grpc/grpclog"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.INFO).Fatalw("Failed to load configuration", "error", err)
	}

	// Инициализируем логгер
	log := initLogger(cfg)
	log.Infow("Subscription service starting up...", "env", cfg.App.Env)

	// Внутренние сообщения grpc-go идут в тот же zap
	grpclog.SetLoggerV2(zapgrpc.NewLogger(log.Named("grpc-go").Desugar()))

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Errorw("Error releasing resources", "error", err)
		}
	}()

	// Запускаем HTTP сервер в горутине
	go func() {
		if err := application.HTTPServer.Start(); err != nil {
			log.Errorw("HTTP server failed", "error", err)
			stop()
		}
	}()

	// Запускаем gRPC сервер в горутине
	go func() {
		if err := application.GRPCServer.Start(); err != nil {
			log.Errorw("gRPC server failed", "error", err)
			stop()
		}
	}()

	// Фоновая проверка истечения подписок
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		application.RunSweeper(ctx)
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Infow("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	// Останавливаем gRPC сервер
	application.GRPCServer.Stop()
	log.Infow("gRPC server gracefully stopped")

	// Останавливаем HTTP сервер
	if err := application.HTTPServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	wg.Wait()
	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger инициализирует логгер. LOG_LEVEL=debug имеет приоритет над конфигурацией.
func initLogger(cfg *config.Config) *logger.Logger {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return logger.New(logger.DEBUG)
	}
	return logger.New(logger.ParseLevel(cfg.Logging.Level))
}
