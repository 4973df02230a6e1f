package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized пользователь не владеет ресурсом
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState операция недопустима в текущем статусе
	ErrInvalidState = errors.New("invalid subscription state")

	// ErrPlanNotFound план не найден или не активен
	ErrPlanNotFound = errors.New("subscription plan not found")

	// ErrSubscriptionNotFound подписка не найдена
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// SubscriptionError представляет ошибку подписки
type SubscriptionError struct {
	Code           string
	Message        string
	SubscriptionID string
	OriginalErr    error
}

// Error реализует интерфейс error
func (e *SubscriptionError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("subscription error [%s]: %s: %v (subscription_id: %s)", e.Code, e.Message, e.OriginalErr, e.SubscriptionID)
	}
	return fmt.Sprintf("subscription error [%s]: %s (subscription_id: %s)", e.Code, e.Message, e.SubscriptionID)
}

// Unwrap возвращает оригинальную ошибку
func (e *SubscriptionError) Unwrap() error {
	return e.OriginalErr
}

// NewSubscriptionError создает новую ошибку подписки
func NewSubscriptionError(code, message, subscriptionID string, err error) *SubscriptionError {
	return &SubscriptionError{
		Code:           code,
		Message:        message,
		SubscriptionID: subscriptionID,
		OriginalErr:    err,
	}
}

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
	kind   error
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || (e.kind != nil && target == e.kind)
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewPlanNotFoundError ошибка для неизвестного или неактивного кода плана
func NewPlanNotFoundError(code string) *NotFoundError {
	return &NotFoundError{Entity: "plan", ID: code, kind: ErrPlanNotFound}
}

// NewSubscriptionNotFoundError ошибка для неизвестного ID подписки
func NewSubscriptionNotFoundError(id string) *NotFoundError {
	return &NotFoundError{Entity: "subscription", ID: id, kind: ErrSubscriptionNotFound}
}

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s - %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is позволяет сравнивать с ErrInvalidInput
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
