package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCatalog считает обращения к основному каталогу
type countingCatalog struct {
	PlanCatalog
	byCode     int
	byCategory int
}

func (c *countingCatalog) GetPlanByCode(ctx context.Context, code domain.PlanCode) (domain.Plan, error) {
	c.byCode++
	return c.PlanCatalog.GetPlanByCode(ctx, code)
}

func (c *countingCatalog) ListPlansByCategory(ctx context.Context, category domain.Category) ([]domain.Plan, error) {
	c.byCategory++
	return c.PlanCatalog.ListPlansByCategory(ctx, category)
}

func newCachedCatalog(t *testing.T) (*CachedPlanCatalog, *countingCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNop()
	inner := &countingCatalog{PlanCatalog: NewInMemoryPlanRepository(log, DefaultPlans()...)}
	cache := NewRedisCacheRepositoryFromClient(client, time.Minute, log)
	return NewCachedPlanCatalog(inner, cache, log), inner, mr
}

func TestCachedPlanCatalog_GetPlanByCodeCachesHit(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t)
	ctx := context.Background()

	first, err := catalog.GetPlanByCode(ctx, domain.PlanPakoXL)
	require.NoError(t, err)
	second, err := catalog.GetPlanByCode(ctx, domain.PlanPakoXL)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.byCode)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, 15, second.DurationDays)
	assert.True(t, first.MonthlyPrice.Equal(second.MonthlyPrice))
	assert.True(t, mr.Exists("plan:PAKO_XL"))
}

func TestCachedPlanCatalog_TTLExpiry(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t)
	ctx := context.Background()

	_, err := catalog.GetPlanByCode(ctx, domain.PlanTVBasic)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = catalog.GetPlanByCode(ctx, domain.PlanTVBasic)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.byCode)
}

func TestCachedPlanCatalog_NotFoundIsNotCached(t *testing.T) {
	catalog, _, mr := newCachedCatalog(t)

	_, err := catalog.GetPlanByCode(context.Background(), domain.PlanCode("TV_GOLD"))
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.False(t, mr.Exists("plan:TV_GOLD"))
}

func TestCachedPlanCatalog_ListPlansByCategory(t *testing.T) {
	catalog, inner, _ := newCachedCatalog(t)
	ctx := context.Background()

	plans, err := catalog.ListPlansByCategory(ctx, domain.CategoryInternet)
	require.NoError(t, err)
	require.Len(t, plans, 3)

	cached, err := catalog.ListPlansByCategory(ctx, domain.CategoryInternet)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.byCategory)
	assert.Equal(t, domain.PlanWifiBasic, cached[0].Code)
	assert.Equal(t, domain.PlanWifiPremium, cached[2].Code)
}

func TestCachedPlanCatalog_RedisDownFallsBack(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t)
	mr.Close()

	plan, err := catalog.GetPlanByCode(context.Background(), domain.PlanWifiStandard)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanWifiStandard, plan.Code)
	assert.Equal(t, 1, inner.byCode)
}

func TestCachedPlanCatalog_Invalidate(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t)
	ctx := context.Background()

	_, err := catalog.GetPlanByCode(ctx, domain.PlanTVStandard)
	require.NoError(t, err)
	_, err = catalog.ListPlansByCategory(ctx, domain.CategoryTV)
	require.NoError(t, err)

	require.NoError(t, catalog.Invalidate(ctx, domain.PlanTVStandard))
	assert.False(t, mr.Exists("plan:TV_STANDARD"))
	assert.False(t, mr.Exists("plans_by_category:TV"))

	_, err = catalog.GetPlanByCode(ctx, domain.PlanTVStandard)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.byCode)
}

func TestCachedPlanCatalog_InvalidateAllCodes(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t)
	ctx := context.Background()

	for _, code := range domain.PlanCodes() {
		_, err := catalog.GetPlanByCode(ctx, code)
		require.NoError(t, err)
	}
	for _, category := range domain.Categories {
		_, err := catalog.ListPlansByCategory(ctx, category)
		require.NoError(t, err)
	}
	require.NotEmpty(t, mr.Keys())

	require.NoError(t, catalog.Invalidate(ctx, domain.PlanCodes()...))
	assert.Empty(t, mr.Keys())

	_, err := catalog.ListPlansByCategory(ctx, domain.CategoryMobile)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.byCategory)
}

func TestCachedPlanCatalog_InvalidateRedisDown(t *testing.T) {
	catalog, _, mr := newCachedCatalog(t)
	mr.Close()

	err := catalog.Invalidate(context.Background(), domain.PlanTVBasic, domain.PlanPakoS)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invalidate plan cache")
}
