package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
)

// SweepResult итог одного прохода
type SweepResult struct {
	Expired   int `json:"expired"`
	Activated int `json:"activated"`
}

// ExpiryService переводит подписки по времени: ACTIVE в EXPIRED, PENDING в ACTIVE
type ExpiryService interface {
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

type expiryService struct {
	subs      repository.SubscriptionStore
	publisher EventPublisher
	metrics   MetricsRecorder
	log       *logger.Logger
}

// NewExpiryService создает сервис истечения подписок
func NewExpiryService(
	subs repository.SubscriptionStore,
	publisher EventPublisher,
	metrics MetricsRecorder,
	log *logger.Logger,
) ExpiryService {
	return &expiryService{
		subs:      subs,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// Sweep сначала завершает истекшие ACTIVE, затем запускает начавшиеся PENDING.
// Ошибки по отдельным подпискам не прерывают проход и возвращаются вместе.
func (s *expiryService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	s.log.Debug("Sweeping subscriptions at %s", now.Format(time.RFC3339))

	var (
		result SweepResult
		errs   []error
	)

	ended, err := s.subs.FindEnded(ctx, now)
	if err != nil {
		s.log.Error("Failed to find ended subscriptions: %v", err)
		return result, fmt.Errorf("find ended subscriptions: %w", err)
	}
	for _, sub := range ended {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		expired, ok, err := s.expire(ctx, sub, now)
		if err != nil {
			s.log.Error("Failed to expire subscription %s: %v", sub.ID, err)
			errs = append(errs, err)
			continue
		}
		if ok {
			result.Expired++
			s.metrics.ObserveSweepTransition(TransitionExpired)
			s.publish(ctx, domain.EventSubscriptionExpired, expired, now)
		}
	}

	startable, err := s.subs.FindStartable(ctx, now)
	if err != nil {
		s.log.Error("Failed to find startable subscriptions: %v", err)
		return result, errors.Join(append(errs, fmt.Errorf("find startable subscriptions: %w", err))...)
	}
	for _, sub := range startable {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		activated, ok, err := s.activate(ctx, sub, now)
		if err != nil {
			s.log.Error("Failed to activate subscription %s: %v", sub.ID, err)
			errs = append(errs, err)
			continue
		}
		if ok {
			result.Activated++
			s.metrics.ObserveSweepTransition(TransitionActivated)
			s.publish(ctx, domain.EventSubscriptionActivated, activated, now)
		}
	}

	if result.Expired > 0 || result.Activated > 0 {
		s.log.Info("Sweep finished: expired=%d activated=%d", result.Expired, result.Activated)
	}
	return result, errors.Join(errs...)
}

// expire переводит ACTIVE в EXPIRED, если она всё ещё истекшая под блокировкой
func (s *expiryService) expire(ctx context.Context, sub domain.Subscription, now time.Time) (domain.Subscription, bool, error) {
	var (
		saved   domain.Subscription
		changed bool
	)
	err := s.subs.WithLock(ctx, sub.UserID, sub.Category, func(ctx context.Context, store repository.SubscriptionStore) error {
		current, err := store.FindByID(ctx, sub.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		// Подписку могли продлить между выборкой и блокировкой
		if current.Status != domain.SubscriptionStatusActive || current.EndDate.After(now) {
			return nil
		}

		current.Status = domain.SubscriptionStatusExpired
		saved, err = store.Save(ctx, current)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	return saved, changed, err
}

// activate переводит PENDING в ACTIVE, если в категории нет другой ACTIVE
func (s *expiryService) activate(ctx context.Context, sub domain.Subscription, now time.Time) (domain.Subscription, bool, error) {
	var (
		saved   domain.Subscription
		changed bool
	)
	err := s.subs.WithLock(ctx, sub.UserID, sub.Category, func(ctx context.Context, store repository.SubscriptionStore) error {
		current, err := store.FindByID(ctx, sub.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if current.Status != domain.SubscriptionStatusPending || current.StartDate.After(now) {
			return nil
		}

		active, err := store.FindActive(ctx, current.UserID, current.Category)
		if err != nil {
			return err
		}
		if active != nil {
			s.log.Debug("Pending subscription %s waits for active %s", current.ID, active.ID)
			return nil
		}

		current.Status = domain.SubscriptionStatusActive
		saved, err = store.Save(ctx, current)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	return saved, changed, err
}

func (s *expiryService) publish(ctx context.Context, eventType domain.EventType, sub domain.Subscription, now time.Time) {
	event := domain.NewSubscriptionEvent(eventType, sub, now)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish %s for subscription %s: %v", eventType, sub.ID, err)
	}
}
