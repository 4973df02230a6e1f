package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apigrpc "github.com/Dhoini/isp-subscription-service/internal/api/grpc"
	"github.com/Dhoini/isp-subscription-service/internal/api/rest"
	"github.com/Dhoini/isp-subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/internal/db"
	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/interceptors"
	"github.com/Dhoini/isp-subscription-service/internal/kafka"
	"github.com/Dhoini/isp-subscription-service/internal/kafka/producer"
	"github.com/Dhoini/isp-subscription-service/internal/metrics"
	"github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/internal/migrate"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/internal/service"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config              *config.Config
	Logger              *logger.Logger
	Registry            *prometheus.Registry
	SubscriptionService service.SubscriptionService
	PlanService         service.PlanService
	ExpiryService       service.ExpiryService
	HTTPServer          *rest.Server
	GRPCServer          *apigrpc.Server

	closers []func() error
}

// New создает и инициализирует приложение.
// Пустой database.dsn означает хранение в памяти с каталогом по умолчанию.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}

	if cfg.Auth.JWTSecret == "" {
		log.Warnw("JWT secret is not set, authenticated endpoints will reject every token")
	}

	// Хранилище
	var (
		plans  repository.PlanCatalog
		subs   repository.SubscriptionStore
		pinger handlers.Pinger
	)
	if cfg.Database.DSN != "" {
		dbClient, err := db.NewDBClient(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, dbClient.Close)

		if cfg.Database.MigrateOnStart {
			if err := migrate.Up(ctx, dbClient.SQL()); err != nil {
				_ = a.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			log.Infow("Database migrations applied")
		}

		plans = repository.NewPostgresPlanRepository(dbClient.DB(), log)
		subs = repository.NewPostgresSubscriptionRepository(dbClient, log)
		pinger = dbClient
		log.Infow("Using postgres storage")
	} else {
		plans = repository.NewInMemoryPlanRepository(log, repository.DefaultPlans()...)
		subs = repository.NewInMemorySubscriptionRepository(log)
		log.Warnw("database.dsn is empty, using in-memory storage")
	}

	// Кеш каталога
	if cfg.Redis.Enabled {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PlanTTL, log)
		if err != nil {
			// Не фатально, но предупреждаем
			log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		} else {
			a.closers = append(a.closers, cache.Close)
			cached := repository.NewCachedPlanCatalog(plans, cache, log)
			if err := cached.Invalidate(ctx, domain.PlanCodes()...); err != nil {
				log.Warnw("Failed to reset plan cache on startup", "error", err)
			}
			plans = cached
			log.Infow("Plan catalog cached in Redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.PlanTTL)
		}
	}

	// События
	publisher, err := newPublisher(cfg.Kafka, log.Named("kafka"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, publisher.Close)

	// Метрики
	a.Registry = metrics.NewRegistry()
	subscriptionMetrics := metrics.NewSubscriptionMetrics(a.Registry, log)
	httpMetrics := metrics.NewHTTPMetrics(a.Registry)

	// Сервисы
	a.SubscriptionService = service.NewSubscriptionService(plans, subs, subscriptionMetrics, log)
	a.PlanService = service.NewPlanService(plans, log)
	a.ExpiryService = service.NewExpiryService(subs, publisher, subscriptionMetrics, log.Named("sweeper"))

	// Транспорт
	// Отладочный вывод gin нужен только при уровне debug
	if cfg.IsProduction() || log.Level() > logger.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}
	validator := middleware.NewTokenValidator(cfg.Auth.JWTSecret)
	router := rest.SetupRouter(rest.RouterDeps{
		Log:                 log,
		Registry:            a.Registry,
		HTTPMetrics:         httpMetrics,
		Auth:                middleware.NewJWTMiddleware(log, validator),
		SubscriptionService: a.SubscriptionService,
		PlanService:         a.PlanService,
		Health:              handlers.NewHealthHandler(pinger, log),
	})
	a.HTTPServer = rest.NewServer(router, cfg.App, log)

	grpcLog := log.Named("grpc")
	authInterceptor := interceptors.NewAuthInterceptor(grpcLog, validator)
	a.GRPCServer = apigrpc.NewServer(cfg.GRPC, grpcLog, interceptors.LoggingUnary(grpcLog), authInterceptor.Unary())

	return a, nil
}

type closablePublisher interface {
	service.EventPublisher
	Close() error
}

func newPublisher(cfg config.KafkaConfig, log *logger.Logger) (closablePublisher, error) {
	if !cfg.Enabled {
		log.Infow("Kafka disabled, subscription events are not published")
		return producer.NewNopPublisher(log), nil
	}

	kafkaConfig := kafka.NewConfig(cfg.Brokers)
	if cfg.EnsureTopics {
		if err := kafka.EnsureTopics(kafkaConfig, log); err != nil {
			// Топики могут быть созданы вручную, продолжаем
			log.Warnw("Failed to ensure Kafka topics", "error", err)
		}
	}

	syncProducer, err := kafka.NewSyncProducer(kafkaConfig, log)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	log.Infow("Kafka producer initialized", "brokers", cfg.Brokers)
	return producer.NewSubscriptionProducer(syncProducer, kafkaConfig.Producer, log), nil
}

// SweepOnce выполняет один проход истечения подписок
func (a *App) SweepOnce(ctx context.Context) (service.SweepResult, error) {
	return a.ExpiryService.Sweep(ctx, time.Now().UTC())
}

// RunSweeper запускает проход по таймеру до отмены ctx.
// Интервал 0 отключает фоновый запуск.
func (a *App) RunSweeper(ctx context.Context) {
	interval := a.Config.Sweeper.Interval
	log := a.Logger.Named("sweeper").With("interval", interval)
	if interval <= 0 {
		log.Infow("Background sweeper disabled")
		return
	}

	log.Infow("Background sweeper started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infow("Background sweeper stopped")
			return
		case <-ticker.C:
			if _, err := a.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("Sweep failed", "error", err)
			}
		}
	}
}

// Close освобождает ресурсы в обратном порядке создания
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
