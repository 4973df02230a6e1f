package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/Dhoini/isp-subscription-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError описание ошибки валидации одного поля
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Decode декодирует JSON из io.Reader в структуру типа T.
func Decode[T any](body io.Reader) (T, error) {
	var payload T
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// FieldErrors раскладывает ошибку валидатора по полям
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// HandleBody декодирует, валидирует и обрабатывает тело запроса.
// При ошибке ответ уже отправлен, обработчик должен просто вернуться.
func HandleBody[T any](c *gin.Context, log *logger.Logger) (*T, error) {
	body, err := Decode[T](c.Request.Body)
	if err != nil {
		log.Debugw("Failed to decode request body", "path", c.Request.URL.Path, "error", err)
		res.JsonError(c, http.StatusBadRequest, "malformed request body", nil)
		return nil, err
	}

	if err := IsValid(body); err != nil {
		log.Debugw("Request body failed validation", "path", c.Request.URL.Path, "error", err)
		res.JsonError(c, http.StatusBadRequest, "invalid request body", FieldErrors(err))
		return nil, err
	}
	return &body, nil
}
