package service

import (
	"context"
	"testing"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/repository"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanService(t *testing.T) {
	log := logger.NewNop()
	svc := NewPlanService(repository.NewInMemoryPlanRepository(log, repository.DefaultPlans()...), log)
	ctx := context.Background()

	t.Run("list by category", func(t *testing.T) {
		plans, err := svc.ListPlans(ctx, "tv")
		require.NoError(t, err)
		require.Len(t, plans, 3)
		assert.Equal(t, domain.PlanTVBasic, plans[0].Code)
		assert.Equal(t, domain.PlanTVPremium, plans[2].Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.ListPlans(ctx, "radio")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("get by code", func(t *testing.T) {
		plan, err := svc.GetPlan(ctx, "PAKO_M")
		require.NoError(t, err)
		assert.Equal(t, domain.CategoryMobile, plan.Category)
		assert.Equal(t, 30, plan.DurationDays)
	})

	t.Run("code is case sensitive", func(t *testing.T) {
		_, err := svc.GetPlan(ctx, "pako_m")
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.GetPlan(ctx, "PAKO_XXL")
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})
}
