package service

import (
	"context"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Метки операций для метрик
const (
	OperationSubscribe = "subscribe"
	OperationCancel    = "cancel"

	OutcomeCreated   = "created"
	OutcomeExtended  = "extended"
	OutcomeScheduled = "scheduled"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"

	TransitionExpired   = "expired"
	TransitionActivated = "activated"
)

// MetricsRecorder принимает бизнес-метрики сервиса
type MetricsRecorder interface {
	ObserveOperation(operation string, category domain.Category, outcome string)
	AddRevenue(category domain.Category, amount decimal.Decimal)
	ObserveSweepTransition(transition string)
}

// EventPublisher публикует события смены статуса подписок
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SubscriptionEvent) error
}
