package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обработчик для проверки работоспособности сервиса
type HealthHandler struct {
	db  Pinger
	log *logger.Logger
}

// NewHealthHandler создает обработчик. db nil означает хранение в памяти.
func NewHealthHandler(db Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

// HealthCheck обработчик для проверки работоспособности сервиса
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	storage := "memory"
	if h.db != nil {
		storage = "postgres"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warnw("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "UNAVAILABLE",
				"storage": storage,
				"time":    time.Now().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"storage": storage,
		"time":    time.Now().Format(time.RFC3339),
	})
}
