package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// InMemorySubscriptionRepository реализация хранилища подписок в памяти
type InMemorySubscriptionRepository struct {
	subscriptions map[uuid.UUID]domain.Subscription
	mutex         sync.RWMutex

	locksMu sync.Mutex
	locks   map[string]*keyLock

	log *logger.Logger
}

// NewInMemorySubscriptionRepository создает новый репозиторий подписок в памяти
func NewInMemorySubscriptionRepository(log *logger.Logger) *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		locks:         make(map[string]*keyLock),
		log:           log,
	}
}

// keyLock мьютекс пары (userID, category) со счетчиком ожидающих.
// Запись удаляется из карты, когда счетчик падает до нуля.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// WithLock выполняет fn под мьютексом пары (userID, category)
func (r *InMemorySubscriptionRepository) WithLock(ctx context.Context, userID int64, category domain.Category, fn func(ctx context.Context, store SubscriptionStore) error) error {
	key := LockKey(userID, category)
	lock := r.acquire(key)
	defer r.release(key, lock)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, r)
}

func (r *InMemorySubscriptionRepository) acquire(key string) *keyLock {
	r.locksMu.Lock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &keyLock{}
		r.locks[key] = lock
	}
	lock.refs++
	r.locksMu.Unlock()

	lock.mu.Lock()
	return lock
}

func (r *InMemorySubscriptionRepository) release(key string, lock *keyLock) {
	lock.mu.Unlock()

	r.locksMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(r.locks, key)
	}
	r.locksMu.Unlock()
}

// lockCount число пар с захваченным или ожидаемым мьютексом
func (r *InMemorySubscriptionRepository) lockCount() int {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	return len(r.locks)
}

// FindActive возвращает ACTIVE подписку пользователя в категории
func (r *InMemorySubscriptionRepository) FindActive(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error) {
	return r.findOne(userID, category, domain.SubscriptionStatusActive), nil
}

// FindPending возвращает PENDING подписку пользователя в категории
func (r *InMemorySubscriptionRepository) FindPending(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error) {
	return r.findOne(userID, category, domain.SubscriptionStatusPending), nil
}

func (r *InMemorySubscriptionRepository) findOne(userID int64, category domain.Category, status domain.SubscriptionStatus) *domain.Subscription {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, sub := range r.subscriptions {
		if sub.UserID == userID && sub.Category == category && sub.Status == status {
			found := sub
			return &found
		}
	}
	return nil
}

// FindByID возвращает подписку по ID
func (r *InMemorySubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sub, exists := r.subscriptions[id]
	if !exists {
		return domain.Subscription{}, domain.NewSubscriptionNotFoundError(id.String())
	}
	return sub, nil
}

// FindAllForUser возвращает подписки пользователя, новые первыми
func (r *InMemorySubscriptionRepository) FindAllForUser(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	return r.filter(func(s domain.Subscription) bool { return s.UserID == userID }, func(a, b domain.Subscription) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

// FindEnded возвращает ACTIVE подписки, срок которых истёк
func (r *InMemorySubscriptionRepository) FindEnded(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	return r.filter(func(s domain.Subscription) bool {
		return s.Status == domain.SubscriptionStatusActive && !s.EndDate.After(now)
	}, func(a, b domain.Subscription) bool {
		return a.EndDate.Before(b.EndDate)
	}), nil
}

// FindStartable возвращает PENDING подписки, период которых начался
func (r *InMemorySubscriptionRepository) FindStartable(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	return r.filter(func(s domain.Subscription) bool {
		return s.Status == domain.SubscriptionStatusPending && !s.StartDate.After(now)
	}, func(a, b domain.Subscription) bool {
		return a.StartDate.Before(b.StartDate)
	}), nil
}

func (r *InMemorySubscriptionRepository) filter(keep func(domain.Subscription) bool, less func(a, b domain.Subscription) bool) []domain.Subscription {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]domain.Subscription, 0)
	for _, sub := range r.subscriptions {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Save создает или обновляет подписку
func (r *InMemorySubscriptionRepository) Save(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	if sub.IsNew() {
		sub.ID = uuid.New()
		sub.CreatedAt = now
	} else if _, exists := r.subscriptions[sub.ID]; !exists {
		return domain.Subscription{}, domain.NewSubscriptionNotFoundError(sub.ID.String())
	}
	sub.UpdatedAt = now

	// Те же ограничения, что и частичные уникальные индексы в Postgres
	if sub.Status == domain.SubscriptionStatusActive || sub.Status == domain.SubscriptionStatusPending {
		for id, other := range r.subscriptions {
			if id != sub.ID && other.UserID == sub.UserID && other.Category == sub.Category && other.Status == sub.Status {
				return domain.Subscription{}, fmt.Errorf("repository: %s subscription already exists for user %d in %s: %w",
					sub.Status, sub.UserID, sub.Category, ErrDuplicate)
			}
		}
	}

	r.subscriptions[sub.ID] = sub
	r.log.Debugw("Subscription saved", "subscriptionID", sub.ID, "status", sub.Status)
	return sub, nil
}

// Delete удаляет подписку
func (r *InMemorySubscriptionRepository) Delete(ctx context.Context, sub domain.Subscription) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.subscriptions[sub.ID]; !exists {
		return domain.NewSubscriptionNotFoundError(sub.ID.String())
	}
	delete(r.subscriptions, sub.ID)
	r.log.Debugw("Subscription deleted", "subscriptionID", sub.ID)
	return nil
}
