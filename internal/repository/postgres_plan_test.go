package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planRowColumns = []string{
	"id", "code", "name", "description", "category", "monthly_price", "duration_days",
	"features", "active", "created_at", "updated_at",
}

func newPlanRepo(t *testing.T) (*PostgresPlanRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresPlanRepository(sqlx.NewDb(mockDB, "postgres"), logger.NewNop()), mock
}

func TestPostgresPlan_GetPlanByCode(t *testing.T) {
	repo, mock := newPlanRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM subscription_plans WHERE code = \\$1 AND active = TRUE").
		WithArgs(domain.PlanPakoS).
		WillReturnRows(sqlmock.NewRows(planRowColumns).
			AddRow(int64(4), "PAKO_S", "Pako S", "", "MOBILE", "10.00", int64(30), "5 GB", true, now, now))

	plan, err := repo.GetPlanByCode(context.Background(), domain.PlanPakoS)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMobile, plan.Category)
	assert.Equal(t, 30, plan.DurationDays)
	assert.Equal(t, "10", plan.MonthlyPrice.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlan_GetPlanByCodeMissing(t *testing.T) {
	repo, mock := newPlanRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM subscription_plans").
		WithArgs(domain.PlanTVPremium).
		WillReturnRows(sqlmock.NewRows(planRowColumns))

	_, err := repo.GetPlanByCode(context.Background(), domain.PlanTVPremium)
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlan_ListPlansByCategory(t *testing.T) {
	repo, mock := newPlanRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM subscription_plans WHERE category = \\$1 AND active = TRUE ORDER BY monthly_price, id").
		WithArgs(domain.CategoryTV).
		WillReturnRows(sqlmock.NewRows(planRowColumns).
			AddRow(int64(1), "TV_BASIC", "TV Basic", "", "TV", "5.00", int64(30), "", true, now, now).
			AddRow(int64(2), "TV_STANDARD", "TV Standard", "", "TV", "8.00", int64(30), "", true, now, now))

	plans, err := repo.ListPlansByCategory(context.Background(), domain.CategoryTV)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, domain.PlanTVBasic, plans[0].Code)
	assert.Equal(t, domain.PlanTVStandard, plans[1].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
