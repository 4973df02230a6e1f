package repository

import (
	"context"
	"errors"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
)

// CachedPlanCatalog реализует PlanCatalog с кешированием в Redis.
// Ошибки Redis не ломают запрос: читаем из основного каталога.
type CachedPlanCatalog struct {
	catalog PlanCatalog
	cache   *RedisCacheRepository
	log     *logger.Logger
}

// NewCachedPlanCatalog создает каталог с кешированием
func NewCachedPlanCatalog(catalog PlanCatalog, cache *RedisCacheRepository, log *logger.Logger) *CachedPlanCatalog {
	return &CachedPlanCatalog{
		catalog: catalog,
		cache:   cache,
		log:     log,
	}
}

// GetPlanByCode получает план (сначала из кеша, потом из БД)
func (c *CachedPlanCatalog) GetPlanByCode(ctx context.Context, code domain.PlanCode) (domain.Plan, error) {
	cached, err := c.cache.GetCachedPlan(ctx, code)
	if err != nil {
		c.log.Warnw("Error getting plan from cache", "error", err, "code", code)
	}
	if cached != nil {
		return *cached, nil
	}

	plan, err := c.catalog.GetPlanByCode(ctx, code)
	if err != nil {
		return domain.Plan{}, err
	}

	if err := c.cache.CachePlan(ctx, plan); err != nil {
		c.log.Warnw("Failed to cache plan after fetching", "error", err, "code", code)
	}
	return plan, nil
}

// ListPlansByCategory получает список планов (сначала из кеша, потом из БД)
func (c *CachedPlanCatalog) ListPlansByCategory(ctx context.Context, category domain.Category) ([]domain.Plan, error) {
	cached, err := c.cache.GetCachedCategoryPlans(ctx, category)
	if err != nil {
		c.log.Warnw("Error getting category plans from cache", "error", err, "category", category)
	}
	if cached != nil {
		return cached, nil
	}

	plans, err := c.catalog.ListPlansByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	if err := c.cache.CacheCategoryPlans(ctx, category, plans); err != nil {
		c.log.Warnw("Failed to cache category plans", "error", err, "category", category)
	}
	return plans, nil
}

// Invalidate удаляет из кеша перечисленные планы и списки их категорий.
// Вызывается при старте, чтобы изменения каталога в БД не перекрывались старым кешем.
func (c *CachedPlanCatalog) Invalidate(ctx context.Context, codes ...domain.PlanCode) error {
	var errs []error
	for _, code := range codes {
		if err := c.cache.InvalidatePlans(ctx, code); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
