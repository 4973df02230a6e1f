package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/google/uuid"
)

// PlanCatalog каталог планов (только чтение).
type PlanCatalog interface {
	// GetPlanByCode возвращает активный план. Отсутствующий или неактивный план даёт domain.ErrPlanNotFound.
	GetPlanByCode(ctx context.Context, code domain.PlanCode) (domain.Plan, error)

	// ListPlansByCategory возвращает активные планы категории, от дешёвых к дорогим.
	ListPlansByCategory(ctx context.Context, category domain.Category) ([]domain.Plan, error)
}

// SubscriptionStore определяет методы для работы с хранилищем подписок.
type SubscriptionStore interface {
	// FindActive возвращает ACTIVE подписку пользователя в категории или nil.
	FindActive(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error)

	// FindPending возвращает PENDING подписку пользователя в категории или nil.
	FindPending(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error)

	// FindByID возвращает подписку по ID или domain.ErrSubscriptionNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)

	// FindAllForUser возвращает все подписки пользователя, новые первыми.
	FindAllForUser(ctx context.Context, userID int64) ([]domain.Subscription, error)

	// FindEnded возвращает ACTIVE подписки с end_date <= now.
	FindEnded(ctx context.Context, now time.Time) ([]domain.Subscription, error)

	// FindStartable возвращает PENDING подписки с start_date <= now.
	FindStartable(ctx context.Context, now time.Time) ([]domain.Subscription, error)

	// Save вставляет новую подписку (пустой ID) или обновляет существующую.
	Save(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)

	// Delete удаляет подписку.
	Delete(ctx context.Context, sub domain.Subscription) error

	// WithLock выполняет fn под блокировкой (userID, category).
	// Все чтения и записи внутри fn должны идти через переданный store.
	WithLock(ctx context.Context, userID int64, category domain.Category, fn func(ctx context.Context, store SubscriptionStore) error) error
}

// LockKey ключ блокировки пары пользователь/категория
func LockKey(userID int64, category domain.Category) string {
	return fmt.Sprintf("%d:%s", userID, category)
}
