package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dhoini/isp-subscription-service/internal/db"
	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var subscriptionRowColumns = []string{
	"id", "user_id", "plan_id", "plan_code", "plan_name", "category", "duration_months",
	"total_price", "start_date", "end_date", "status", "created_at", "updated_at", "cancelled_at",
}

func newSubscriptionRepo(t *testing.T) (*PostgresSubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	client := db.NewFromDB(sqlx.NewDb(mockDB, "postgres"), logger.NewNop())
	return NewPostgresSubscriptionRepository(client, logger.NewNop()), mock
}

func TestPostgresSubscription_FindActive(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)

	id := uuid.New()
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(subscriptionRowColumns).
		AddRow(id.String(), int64(1), int64(1), "TV_BASIC", "TV Basic", "TV", int64(1),
			"5.00", start, start.AddDate(0, 1, 0), "ACTIVE", start, start, nil)

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE user_id = \\$1 AND category = \\$2 AND status = \\$3").
		WithArgs(int64(1), domain.CategoryTV, domain.SubscriptionStatusActive).
		WillReturnRows(rows)

	sub, err := repo.FindActive(context.Background(), 1, domain.CategoryTV)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, id, sub.ID)
	assert.Equal(t, domain.PlanTVBasic, sub.PlanCode)
	assert.True(t, decimal.RequireFromString("5").Equal(sub.TotalPrice))
	assert.Nil(t, sub.CancelledAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_FindPendingNone(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions").
		WithArgs(int64(1), domain.CategoryInternet, domain.SubscriptionStatusPending).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

	sub, err := repo.FindPending(context.Background(), 1, domain.CategoryInternet)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_FindByIDNotFound(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

	_, err := repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_SaveInsert(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO user_subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub, err := repo.Save(context.Background(), domain.Subscription{
		UserID:         1,
		PlanID:         1,
		PlanCode:       domain.PlanTVBasic,
		PlanName:       "TV Basic",
		Category:       domain.CategoryTV,
		DurationMonths: 1,
		TotalPrice:     decimal.NewFromInt(5),
		StartDate:      start,
		EndDate:        start.AddDate(0, 1, 0),
		Status:         domain.SubscriptionStatusActive,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.False(t, sub.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_SaveInsertDuplicate(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)

	mock.ExpectExec("INSERT INTO user_subscriptions").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_user_subscriptions_pending"})

	_, err := repo.Save(context.Background(), domain.Subscription{
		UserID:   1,
		Category: domain.CategoryTV,
		Status:   domain.SubscriptionStatusPending,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_SaveUpdateMissing(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)

	mock.ExpectExec("UPDATE user_subscriptions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Save(context.Background(), domain.Subscription{ID: uuid.New(), Status: domain.SubscriptionStatusExpired})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_Delete(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM user_subscriptions WHERE id = \\$1").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), domain.Subscription{ID: id}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_WithLockCommits(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("7:MOBILE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions").
		WithArgs(int64(7), domain.CategoryMobile, domain.SubscriptionStatusActive).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))
	mock.ExpectCommit()

	err := repo.WithLock(context.Background(), 7, domain.CategoryMobile, func(ctx context.Context, store SubscriptionStore) error {
		sub, err := store.FindActive(ctx, 7, domain.CategoryMobile)
		assert.Nil(t, sub)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_WithLockRollsBack(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	boom := errors.New("decision failed")

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("7:TV").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithLock(context.Background(), 7, domain.CategoryTV, func(ctx context.Context, store SubscriptionStore) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscription_FindEnded(t *testing.T) {
	repo, mock := newSubscriptionRepo(t)
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	start := now.AddDate(0, -1, 0)

	rows := sqlmock.NewRows(subscriptionRowColumns).
		AddRow(uuid.NewString(), int64(3), int64(8), "WIFI_BASIC", "WiFi Basic", "INTERNET", int64(1),
			"20.00", start, now, "ACTIVE", start, start, nil)

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE status = \\$1 AND end_date <= \\$2").
		WithArgs(domain.SubscriptionStatusActive, now).
		WillReturnRows(rows)

	subs, err := repo.FindEnded(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.CategoryInternet, subs[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}
