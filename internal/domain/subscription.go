package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription подписка пользователя на план.
// Данные плана денормализованы на момент создания.
type Subscription struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	UserID         int64              `json:"user_id" db:"user_id"`
	PlanID         int64              `json:"plan_id" db:"plan_id"`
	PlanCode       PlanCode           `json:"plan_code" db:"plan_code"`
	PlanName       string             `json:"plan_name" db:"plan_name"`
	Category       Category           `json:"category" db:"category"`
	DurationMonths int                `json:"duration_months" db:"duration_months"`
	TotalPrice     decimal.Decimal    `json:"total_price" db:"total_price"`
	StartDate      time.Time          `json:"start_date" db:"start_date"`
	EndDate        time.Time          `json:"end_date" db:"end_date"`
	Status         SubscriptionStatus `json:"status" db:"status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsNew true, пока подписка не сохранена
func (s *Subscription) IsNew() bool {
	return s.ID == uuid.Nil
}

// Extend продлевает подписку на период плана, не меняя её статус и ID.
func (s *Subscription) Extend(plan Plan, months int) {
	s.EndDate = plan.Period(s.EndDate, months)
	s.TotalPrice = s.TotalPrice.Add(plan.Price(months))
	s.DurationMonths += months
}

// SwitchPlan переносит ссылку на план без изменения периода
func (s *Subscription) SwitchPlan(plan Plan) {
	s.PlanID = plan.ID
	s.PlanCode = plan.Code
	s.PlanName = plan.Name
}

// NewSubscription создаёт ещё не сохранённую подписку, начинающуюся в start
func NewSubscription(userID int64, plan Plan, months int, start time.Time, status SubscriptionStatus) Subscription {
	return Subscription{
		UserID:         userID,
		PlanID:         plan.ID,
		PlanCode:       plan.Code,
		PlanName:       plan.Name,
		Category:       plan.Category,
		DurationMonths: months,
		TotalPrice:     plan.Price(months),
		StartDate:      start,
		EndDate:        plan.Period(start, months),
		Status:         status,
	}
}

// SubscribeRequest запрос на подписку
type SubscribeRequest struct {
	PlanCode       string `json:"plan_code" validate:"required"`
	DurationMonths int    `json:"duration_months" validate:"required,min=1,max=36"`
}
