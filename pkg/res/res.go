package res

import (
	"net/http"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Error     string `json:"error"`                // Сообщение об ошибке (для пользователя)
	ErrorCode int    `json:"error_code,omitempty"` // Код ошибки (для программной обработки)
	Details   any    `json:"details,omitempty"`    // Детали ошибки (например, ошибки валидации)
}

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(c *gin.Context, data any, status int) {
	c.JSON(status, data)
}

// JsonError отправляет ошибку и прерывает цепочку обработчиков.
func JsonError(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		ErrorCode: status,
		Details:   details,
	})
}

// JsonErrorResponse отправляет JSON ответ ошибки и логирует серверные ошибки.
func JsonErrorResponse(c *gin.Context, status int, message string, err error, log *logger.Logger) {
	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	} else {
		log.Debugw("Request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	JsonError(c, status, message, nil)
}
