package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType тип события жизненного цикла подписки
type EventType string

const (
	EventSubscriptionExpired   EventType = "subscription.expired"
	EventSubscriptionActivated EventType = "subscription.activated"
)

// EventTypes все публикуемые типы событий
var EventTypes = []EventType{EventSubscriptionExpired, EventSubscriptionActivated}

// SubscriptionEvent событие о смене статуса подписки
type SubscriptionEvent struct {
	ID             uuid.UUID          `json:"id"`
	Type           EventType          `json:"type"`
	SubscriptionID uuid.UUID          `json:"subscription_id"`
	UserID         int64              `json:"user_id"`
	PlanCode       PlanCode           `json:"plan_code"`
	Category       Category           `json:"category"`
	Status         SubscriptionStatus `json:"status"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// NewSubscriptionEvent создает событие по текущему состоянию подписки
func NewSubscriptionEvent(eventType EventType, sub Subscription, at time.Time) SubscriptionEvent {
	return SubscriptionEvent{
		ID:             uuid.New(),
		Type:           eventType,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanCode:       sub.PlanCode,
		Category:       sub.Category,
		Status:         sub.Status,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		OccurredAt:     at,
	}
}
