package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

const planColumns = `
        id, code, name, description, category, monthly_price, duration_days,
        features, active, created_at, updated_at`

// PostgresPlanRepository каталог планов в PostgreSQL
type PostgresPlanRepository struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresPlanRepository создает каталог планов поверх sqlx
func NewPostgresPlanRepository(db *sqlx.DB, log *logger.Logger) *PostgresPlanRepository {
	return &PostgresPlanRepository{db: db, log: log}
}

// GetPlanByCode возвращает активный план по коду
func (r *PostgresPlanRepository) GetPlanByCode(ctx context.Context, code domain.PlanCode) (domain.Plan, error) {
	var plan domain.Plan
	query := `
        SELECT` + planColumns + `
        FROM subscription_plans
        WHERE code = $1 AND active = TRUE`

	err := r.db.GetContext(ctx, &plan, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugw("Plan not found or inactive", "code", code)
			return domain.Plan{}, domain.NewPlanNotFoundError(string(code))
		}
		r.log.Errorw("Failed to get plan by code from DB", "error", err, "code", code)
		return domain.Plan{}, fmt.Errorf("repository: failed to get plan by code: %w", err)
	}
	return plan, nil
}

// ListPlansByCategory возвращает активные планы категории
func (r *PostgresPlanRepository) ListPlansByCategory(ctx context.Context, category domain.Category) ([]domain.Plan, error) {
	query := `
        SELECT` + planColumns + `
        FROM subscription_plans
        WHERE category = $1 AND active = TRUE
        ORDER BY monthly_price, id`

	plans := make([]domain.Plan, 0)
	if err := r.db.SelectContext(ctx, &plans, query, category); err != nil {
		r.log.Errorw("Failed to list plans by category", "error", err, "category", category)
		return nil, fmt.Errorf("repository: failed to list plans: %w", err)
	}

	r.log.Debugw("Listed plans by category", "category", category, "count", len(plans))
	return plans, nil
}
