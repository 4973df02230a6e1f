package handlers

import (
	"errors"
	"net/http"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/Dhoini/isp-subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
)

// statusFor сопоставляет ошибку сервиса с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error, log *logger.Logger) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		log.Debugw("Request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
		res.JsonError(c, status, "validation failed", verrs)
		return
	}
	res.JsonErrorResponse(c, status, message, err, log)
}
