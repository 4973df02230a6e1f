package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/shopspring/decimal"
)

// InMemoryPlanRepository каталог планов в памяти
type InMemoryPlanRepository struct {
	plans map[domain.PlanCode]domain.Plan
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryPlanRepository создает каталог из переданных планов
func NewInMemoryPlanRepository(log *logger.Logger, plans ...domain.Plan) *InMemoryPlanRepository {
	r := &InMemoryPlanRepository{
		plans: make(map[domain.PlanCode]domain.Plan, len(plans)),
		log:   log,
	}
	for _, p := range plans {
		r.plans[p.Code] = p
	}
	return r
}

// Put добавляет или заменяет план
func (r *InMemoryPlanRepository) Put(plan domain.Plan) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.plans[plan.Code] = plan
}

// GetPlanByCode возвращает активный план по коду
func (r *InMemoryPlanRepository) GetPlanByCode(ctx context.Context, code domain.PlanCode) (domain.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plan, ok := r.plans[code]
	if !ok || !plan.Active {
		return domain.Plan{}, domain.NewPlanNotFoundError(string(code))
	}
	return plan, nil
}

// ListPlansByCategory возвращает активные планы категории
func (r *InMemoryPlanRepository) ListPlansByCategory(ctx context.Context, category domain.Category) ([]domain.Plan, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	plans := make([]domain.Plan, 0)
	for _, p := range r.plans {
		if p.Category == category && p.Active {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if c := plans[i].MonthlyPrice.Cmp(plans[j].MonthlyPrice); c != 0 {
			return c < 0
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}

// DefaultPlans каталог по умолчанию, совпадает с сидом миграций
func DefaultPlans() []domain.Plan {
	plan := func(id int64, code domain.PlanCode, name, price string, days int, features string) domain.Plan {
		return domain.Plan{
			ID:           id,
			Code:         code,
			Name:         name,
			Category:     code.Category(),
			MonthlyPrice: decimal.RequireFromString(price),
			DurationDays: days,
			Features:     features,
			Active:       true,
		}
	}
	return []domain.Plan{
		plan(1, domain.PlanTVBasic, "TV Basic", "5.00", 30, "80 channels"),
		plan(2, domain.PlanTVStandard, "TV Standard", "8.00", 30, "150 channels, sports"),
		plan(3, domain.PlanTVPremium, "TV Premium", "12.00", 30, "250 channels, sports, movies, HD"),
		plan(4, domain.PlanPakoS, "Pako S", "10.00", 30, "5 GB, 200 minutes"),
		plan(5, domain.PlanPakoM, "Pako M", "15.00", 30, "15 GB, 500 minutes"),
		plan(6, domain.PlanPakoL, "Pako L", "20.00", 30, "40 GB, unlimited minutes"),
		plan(7, domain.PlanPakoXL, "Pako XL", "15.00", 15, "unlimited data, unlimited minutes"),
		plan(8, domain.PlanWifiBasic, "WiFi Basic", "20.00", 30, "50 Mbps"),
		plan(9, domain.PlanWifiStandard, "WiFi Standard", "30.00", 30, "200 Mbps"),
		plan(10, domain.PlanWifiPremium, "WiFi Premium", "45.00", 30, "1 Gbps, static IP"),
	}
}
