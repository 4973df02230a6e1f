package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Server представляет HTTP сервер
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	log        *logger.Logger
	cfg        config.AppConfig
}

// NewServer создает новый HTTP сервер
func NewServer(router *gin.Engine, cfg config.AppConfig, log *logger.Logger) *Server {
	return &Server{
		router: router,
		log:    log,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.log.Info("Starting server on port %s", s.cfg.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown выполняет graceful shutdown сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Server is shutting down...")
	return s.httpServer.Shutdown(ctx)
}

// Handler возвращает маршрутизатор сервера
func (s *Server) Handler() http.Handler {
	return s.router
}
