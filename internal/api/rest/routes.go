package rest

import (
	"github.com/Dhoini/isp-subscription-service/internal/api/rest/handlers"
	restmw "github.com/Dhoini/isp-subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/isp-subscription-service/internal/metrics"
	"github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/internal/service"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps зависимости маршрутизатора
type RouterDeps struct {
	Log                 *logger.Logger
	Registry            *prometheus.Registry
	HTTPMetrics         *metrics.HTTPMetrics
	Auth                *middleware.JWTMiddleware
	SubscriptionService service.SubscriptionService
	PlanService         service.PlanService
	Health              *handlers.HealthHandler
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(restmw.LoggerMiddleware(deps.Log, deps.HTTPMetrics))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", deps.Health.HealthCheck)

	// Prometheus метрики
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	planHandler := handlers.NewPlanHandler(deps.PlanService, deps.Log)
	subscriptionHandler := handlers.NewSubscriptionHandler(deps.SubscriptionService, deps.Log)

	v1 := r.Group("/api/v1")
	{
		// Каталог доступен без токена
		plans := v1.Group("/plans")
		{
			plans.GET("", planHandler.ListPlans)
			plans.GET("/:code", planHandler.GetPlan)
		}

		subscriptions := v1.Group("/subscriptions", deps.Auth.RequireAuth())
		{
			subscriptions.POST("", subscriptionHandler.Subscribe)
			subscriptions.GET("", subscriptionHandler.ListSubscriptions)
			subscriptions.GET("/active", subscriptionHandler.GetActive)
			subscriptions.GET("/pending", subscriptionHandler.GetPending)
			subscriptions.DELETE("/:id", subscriptionHandler.CancelSubscription)
		}
	}

	return r
}
