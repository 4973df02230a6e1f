package service

import (
	"context"
	"fmt"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
)

// PlanService интерфейс сервиса каталога планов
type PlanService interface {
	ListPlans(ctx context.Context, category string) ([]domain.Plan, error)
	GetPlan(ctx context.Context, code string) (domain.Plan, error)
}

type planService struct {
	plans repository.PlanCatalog
	log   *logger.Logger
}

// NewPlanService создает сервис каталога планов
func NewPlanService(plans repository.PlanCatalog, log *logger.Logger) PlanService {
	return &planService{plans: plans, log: log}
}

// ListPlans возвращает активные планы категории
func (s *planService) ListPlans(ctx context.Context, category string) ([]domain.Plan, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		s.log.Warn("Invalid plan category: %q", category)
		return nil, fmt.Errorf("unknown category %q: %w", category, err)
	}

	plans, err := s.plans.ListPlansByCategory(ctx, cat)
	if err != nil {
		s.log.Error("Failed to list plans for %s: %v", cat, err)
		return nil, err
	}
	return plans, nil
}

// GetPlan возвращает активный план по коду
func (s *planService) GetPlan(ctx context.Context, code string) (domain.Plan, error) {
	planCode, err := domain.ParsePlanCode(code)
	if err != nil {
		return domain.Plan{}, err
	}
	return s.plans.GetPlanByCode(ctx, planCode)
}
