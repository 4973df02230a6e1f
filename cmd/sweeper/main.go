package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dhoini/isp-subscription-service/internal/app"
	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
)

// Однократный проход истечения подписок для запуска из cron
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.INFO).Errorw("Failed to load configuration", "error", err)
		return 1
	}
	log := logger.New(logger.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Errorw("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Errorw("Error releasing resources", "error", err)
		}
	}()

	result, err := application.SweepOnce(ctx)
	if err != nil {
		log.Errorw("Sweep finished with errors", "expired", result.Expired, "activated", result.Activated, "error", err)
		return 1
	}

	log.Infow("Sweep finished", "expired", result.Expired, "activated", result.Activated)
	return 0
}
