package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/google/uuid"
)

// SubscriptionService интерфейс сервиса для работы с подписками
type SubscriptionService interface {
	// Subscribe создает, продлевает или планирует подписку на план
	Subscribe(ctx context.Context, userID int64, planCode string, durationMonths int) (domain.Subscription, error)
	// CancelSubscription удаляет PENDING подписку владельца
	CancelSubscription(ctx context.Context, subscriptionID string, userID int64) error

	GetActive(ctx context.Context, userID int64, category domain.Category) (domain.Subscription, error)
	GetPending(ctx context.Context, userID int64, category domain.Category) (domain.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error)
}

type subscriptionService struct {
	plans   repository.PlanCatalog
	subs    repository.SubscriptionStore
	metrics MetricsRecorder
	log     *logger.Logger
	now     func() time.Time
}

// NewSubscriptionService создает новый сервис для работы с подписками
func NewSubscriptionService(
	plans repository.PlanCatalog,
	subs repository.SubscriptionStore,
	metrics MetricsRecorder,
	log *logger.Logger,
) SubscriptionService {
	return &subscriptionService{
		plans:   plans,
		subs:    subs,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Subscribe принимает решение по подписке под блокировкой (userID, category)
func (s *subscriptionService) Subscribe(ctx context.Context, userID int64, planCode string, durationMonths int) (domain.Subscription, error) {
	s.log.Debug("Subscribe request: user=%d plan=%s months=%d", userID, planCode, durationMonths)

	if verrs := validateSubscribe(durationMonths); verrs.HasErrors() {
		s.log.Warn("Invalid subscribe request for user %d: %v", userID, verrs)
		s.metrics.ObserveOperation(OperationSubscribe, "", OutcomeRejected)
		return domain.Subscription{}, verrs
	}

	code, err := domain.ParsePlanCode(planCode)
	if err != nil {
		s.log.Warn("Unknown plan code: %s", planCode)
		s.metrics.ObserveOperation(OperationSubscribe, "", OutcomeRejected)
		return domain.Subscription{}, err
	}

	plan, err := s.plans.GetPlanByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrPlanNotFound) {
			s.log.Warn("Plan not found or inactive: %s", code)
		} else {
			s.log.Error("Error fetching plan %s: %v", code, err)
		}
		s.metrics.ObserveOperation(OperationSubscribe, code.Category(), outcomeFor(err))
		return domain.Subscription{}, err
	}

	var (
		result  domain.Subscription
		outcome string
	)
	err = s.subs.WithLock(ctx, userID, plan.Category, func(ctx context.Context, store repository.SubscriptionStore) error {
		var decideErr error
		result, outcome, decideErr = s.decide(ctx, store, userID, plan, durationMonths)
		return decideErr
	})
	if err != nil {
		s.log.Error("Failed to subscribe user %d to %s: %v", userID, plan.Code, err)
		s.metrics.ObserveOperation(OperationSubscribe, plan.Category, outcomeFor(err))
		return domain.Subscription{}, err
	}

	s.metrics.ObserveOperation(OperationSubscribe, plan.Category, outcome)
	s.metrics.AddRevenue(plan.Category, plan.Price(durationMonths))
	s.log.Info("Subscription %s %s: user=%d plan=%s status=%s end=%s",
		result.ID, outcome, userID, result.PlanCode, result.Status, result.EndDate.Format(time.RFC3339))
	return result, nil
}

// validateSubscribe проверяет аргументы, не зависящие от каталога.
// Неизвестный код плана отклоняется позже как ErrPlanNotFound.
func validateSubscribe(durationMonths int) domain.ValidationErrors {
	var verrs domain.ValidationErrors
	if durationMonths <= 0 {
		verrs.Add("duration_months", "must be positive")
	}
	return verrs
}

// decide выполняет шаги выбора в фиксированном порядке.
// Вызывается только под блокировкой, все обращения идут через store.
func (s *subscriptionService) decide(ctx context.Context, store repository.SubscriptionStore, userID int64, plan domain.Plan, months int) (domain.Subscription, string, error) {
	now := s.now()

	active, err := store.FindActive(ctx, userID, plan.Category)
	if err != nil {
		return domain.Subscription{}, "", fmt.Errorf("find active subscription: %w", err)
	}
	pending, err := store.FindPending(ctx, userID, plan.Category)
	if err != nil {
		return domain.Subscription{}, "", fmt.Errorf("find pending subscription: %w", err)
	}

	if pending != nil {
		// Повторный клик по уже запланированному плану
		if pending.PlanCode == plan.Code {
			return s.extend(ctx, store, *pending, plan, months)
		}

		if err := store.Delete(ctx, *pending); err != nil {
			return domain.Subscription{}, "", fmt.Errorf("delete stale pending subscription: %w", err)
		}
		s.log.Debug("Replaced pending subscription %s (%s) with %s", pending.ID, pending.PlanCode, plan.Code)

		if plan.Category.Hierarchical() {
			if active != nil {
				return s.schedule(ctx, store, userID, plan, months, active.EndDate)
			}
			// ACTIVE уже нет: сохраняем будущий старт, иначе начинаем сразу
			if pending.StartDate.After(now) {
				return s.schedule(ctx, store, userID, plan, months, pending.StartDate)
			}
			return s.create(ctx, store, userID, plan, months, now)
		}

		if active != nil {
			active.SwitchPlan(plan)
			return s.extend(ctx, store, *active, plan, months)
		}
		return s.create(ctx, store, userID, plan, months, now)
	}

	if active != nil {
		switch {
		case active.PlanCode == plan.Code:
			return s.extend(ctx, store, *active, plan, months)
		case plan.Category.Hierarchical():
			// Повышение и понижение уровня вступают в силу после конца оплаченного периода
			if domain.IsDowngrade(active.PlanCode, plan.Code) {
				s.log.Debug("Scheduling downgrade %s -> %s for user %d", active.PlanCode, plan.Code, userID)
			}
			return s.schedule(ctx, store, userID, plan, months, active.EndDate)
		default:
			active.SwitchPlan(plan)
			return s.extend(ctx, store, *active, plan, months)
		}
	}

	return s.create(ctx, store, userID, plan, months, now)
}

func (s *subscriptionService) extend(ctx context.Context, store repository.SubscriptionStore, sub domain.Subscription, plan domain.Plan, months int) (domain.Subscription, string, error) {
	sub.Extend(plan, months)
	saved, err := store.Save(ctx, sub)
	if err != nil {
		return domain.Subscription{}, "", fmt.Errorf("extend subscription %s: %w", sub.ID, err)
	}
	return saved, OutcomeExtended, nil
}

func (s *subscriptionService) schedule(ctx context.Context, store repository.SubscriptionStore, userID int64, plan domain.Plan, months int, start time.Time) (domain.Subscription, string, error) {
	sub := domain.NewSubscription(userID, plan, months, start, domain.SubscriptionStatusPending)
	saved, err := store.Save(ctx, sub)
	if err != nil {
		return domain.Subscription{}, "", fmt.Errorf("schedule pending subscription: %w", err)
	}
	return saved, OutcomeScheduled, nil
}

func (s *subscriptionService) create(ctx context.Context, store repository.SubscriptionStore, userID int64, plan domain.Plan, months int, start time.Time) (domain.Subscription, string, error) {
	sub := domain.NewSubscription(userID, plan, months, start, domain.SubscriptionStatusActive)
	saved, err := store.Save(ctx, sub)
	if err != nil {
		return domain.Subscription{}, "", fmt.Errorf("create active subscription: %w", err)
	}
	return saved, OutcomeCreated, nil
}

// CancelSubscription удаляет PENDING подписку. ACTIVE подписка не затрагивается.
func (s *subscriptionService) CancelSubscription(ctx context.Context, subscriptionID string, userID int64) error {
	s.log.Debug("Cancelling subscription %s for user %d", subscriptionID, userID)

	// Строка, не являющаяся UUID, не может быть ID существующей подписки
	id, err := uuid.Parse(subscriptionID)
	if err != nil {
		s.log.Warn("Invalid UUID format: %s", subscriptionID)
		notFound := domain.NewSubscriptionNotFoundError(subscriptionID)
		s.metrics.ObserveOperation(OperationCancel, "", outcomeFor(notFound))
		return notFound
	}

	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("Subscription not found: %s", id)
		} else {
			s.log.Error("Error fetching subscription: %v", err)
		}
		s.metrics.ObserveOperation(OperationCancel, "", outcomeFor(err))
		return err
	}

	err = s.subs.WithLock(ctx, sub.UserID, sub.Category, func(ctx context.Context, store repository.SubscriptionStore) error {
		// Перечитываем под блокировкой
		current, err := store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID != userID {
			return domain.NewSubscriptionError("forbidden", "subscription belongs to another user", id.String(), domain.ErrUnauthorized)
		}
		if current.Status != domain.SubscriptionStatusPending {
			return domain.NewSubscriptionError("invalid_state",
				fmt.Sprintf("only PENDING subscriptions can be cancelled, got %s", current.Status), id.String(), domain.ErrInvalidState)
		}
		return store.Delete(ctx, current)
	})
	if err != nil {
		s.log.Warn("Cancel of subscription %s by user %d rejected: %v", id, userID, err)
		s.metrics.ObserveOperation(OperationCancel, sub.Category, outcomeFor(err))
		return err
	}

	s.metrics.ObserveOperation(OperationCancel, sub.Category, OutcomeCancelled)
	s.log.Info("Cancelled pending subscription %s (%s) for user %d", id, sub.PlanCode, userID)
	return nil
}

// GetActive возвращает ACTIVE подписку пользователя в категории
func (s *subscriptionService) GetActive(ctx context.Context, userID int64, category domain.Category) (domain.Subscription, error) {
	sub, err := s.subs.FindActive(ctx, userID, category)
	if err != nil {
		s.log.Error("Failed to get active subscription: %v", err)
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.NewNotFoundError("active subscription", repository.LockKey(userID, category))
	}
	return *sub, nil
}

// GetPending возвращает PENDING подписку пользователя в категории
func (s *subscriptionService) GetPending(ctx context.Context, userID int64, category domain.Category) (domain.Subscription, error) {
	sub, err := s.subs.FindPending(ctx, userID, category)
	if err != nil {
		s.log.Error("Failed to get pending subscription: %v", err)
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.NewNotFoundError("pending subscription", repository.LockKey(userID, category))
	}
	return *sub, nil
}

// ListUserSubscriptions возвращает все подписки пользователя, новые первыми
func (s *subscriptionService) ListUserSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	s.log.Debug("Getting subscriptions for user: %d", userID)

	subs, err := s.subs.FindAllForUser(ctx, userID)
	if err != nil {
		s.log.Error("Failed to get subscriptions for user %d: %v", userID, err)
		return nil, err
	}
	return subs, nil
}

// outcomeFor различает отказы по входным данным и сбои
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidState):
		return OutcomeRejected
	}
	return OutcomeFailed
}
