package middleware

import (
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/metrics"
	authmw "github.com/Dhoini/isp-subscription-service/internal/middleware"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Служебные маршруты опрашиваются часто, успешные запросы к ним пишем в debug
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// LoggerMiddleware логирует запрос и пишет HTTP метрики.
// httpMetrics может быть nil.
func LoggerMiddleware(log *logger.Logger, httpMetrics *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		// Шаблон маршрута вместо пути, чтобы не плодить метки
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if httpMetrics != nil {
			httpMetrics.ObserveRequest(c.Request.Method, route, status, latency)
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"latency", latency,
			"ip", c.ClientIP(),
		}
		if userID, ok := authmw.UserID(c); ok {
			fields = append(fields, "userID", userID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Errorw("HTTP request failed", fields...)
		case status >= 400:
			log.Warnw("HTTP request rejected", fields...)
		case quietRoutes[route]:
			log.Debugw("HTTP request", fields...)
		default:
			log.Infow("HTTP request", fields...)
		}
	}
}
