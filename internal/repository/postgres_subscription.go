package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/db"
	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolationCode = "23505"

const subscriptionColumns = `
        id, user_id, plan_id, plan_code, plan_name, category, duration_months,
        total_price, start_date, end_date, status, created_at, updated_at, cancelled_at`

// PostgresSubscriptionRepository реализует SubscriptionStore для PostgreSQL.
// Внутри WithLock все запросы идут через транзакцию, держащую advisory-блокировку.
type PostgresSubscriptionRepository struct {
	client *db.DBClient
	q      sqlx.ExtContext
	inTx   bool
	log    *logger.Logger
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория для PostgreSQL.
func NewPostgresSubscriptionRepository(client *db.DBClient, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{
		client: client,
		q:      client.DB(),
		log:    log,
	}
}

// WithLock открывает транзакцию, берёт pg_advisory_xact_lock по (userID, category)
// и выполняет fn на хранилище, привязанном к транзакции.
func (r *PostgresSubscriptionRepository) WithLock(ctx context.Context, userID int64, category domain.Category, fn func(ctx context.Context, store SubscriptionStore) error) error {
	if r.inTx {
		return fn(ctx, r)
	}

	return r.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := db.AdvisoryXactLock(ctx, tx, LockKey(userID, category)); err != nil {
			r.log.Errorw("Failed to lock subscriptions", "error", err, "userID", userID, "category", category)
			return err
		}
		return fn(ctx, &PostgresSubscriptionRepository{client: r.client, q: tx, inTx: true, log: r.log})
	})
}

// FindActive возвращает ACTIVE подписку пользователя в категории или nil.
func (r *PostgresSubscriptionRepository) FindActive(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error) {
	return r.findByStatus(ctx, userID, category, domain.SubscriptionStatusActive)
}

// FindPending возвращает PENDING подписку пользователя в категории или nil.
func (r *PostgresSubscriptionRepository) FindPending(ctx context.Context, userID int64, category domain.Category) (*domain.Subscription, error) {
	return r.findByStatus(ctx, userID, category, domain.SubscriptionStatusPending)
}

func (r *PostgresSubscriptionRepository) findByStatus(ctx context.Context, userID int64, category domain.Category, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE user_id = $1 AND category = $2 AND status = $3
        ORDER BY created_at DESC
        LIMIT 1`

	err := sqlx.GetContext(ctx, r.q, &sub, query, userID, category, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Errorw("Failed to get subscription by status from DB", "error", err, "userID", userID, "category", category, "status", status)
		return nil, fmt.Errorf("repository: failed to get %s subscription: %w", status, err)
	}
	return &sub, nil
}

// FindByID возвращает подписку по ее ID.
func (r *PostgresSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE id = $1`

	err := sqlx.GetContext(ctx, r.q, &sub, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Debugw("Subscription not found by ID", "subscriptionID", id)
			return domain.Subscription{}, domain.NewSubscriptionNotFoundError(id.String())
		}
		r.log.Errorw("Failed to get subscription by ID from DB", "error", err, "subscriptionID", id)
		return domain.Subscription{}, fmt.Errorf("repository: failed to get subscription by ID: %w", err)
	}
	return sub, nil
}

// FindAllForUser возвращает все подписки пользователя.
func (r *PostgresSubscriptionRepository) FindAllForUser(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	query := `
        SELECT` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC` // Сортируем по убыванию даты создания

	subs := make([]domain.Subscription, 0)
	if err := sqlx.SelectContext(ctx, r.q, &subs, query, userID); err != nil {
		r.log.Errorw("Failed to get subscriptions by user ID from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get subscriptions by user ID: %w", err)
	}

	r.log.Debugw("Retrieved subscriptions by user ID", "userID", userID, "count", len(subs))
	return subs, nil
}

// FindEnded возвращает ACTIVE подписки с end_date <= now.
func (r *PostgresSubscriptionRepository) FindEnded(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	query := `
        SELECT` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE status = $1 AND end_date <= $2
        ORDER BY end_date`

	subs := make([]domain.Subscription, 0)
	if err := sqlx.SelectContext(ctx, r.q, &subs, query, domain.SubscriptionStatusActive, now); err != nil {
		r.log.Errorw("Failed to get ended subscriptions", "error", err)
		return nil, fmt.Errorf("repository: failed to get ended subscriptions: %w", err)
	}
	return subs, nil
}

// FindStartable возвращает PENDING подписки с start_date <= now.
func (r *PostgresSubscriptionRepository) FindStartable(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	query := `
        SELECT` + subscriptionColumns + `
        FROM user_subscriptions
        WHERE status = $1 AND start_date <= $2
        ORDER BY start_date`

	subs := make([]domain.Subscription, 0)
	if err := sqlx.SelectContext(ctx, r.q, &subs, query, domain.SubscriptionStatusPending, now); err != nil {
		r.log.Errorw("Failed to get startable subscriptions", "error", err)
		return nil, fmt.Errorf("repository: failed to get startable subscriptions: %w", err)
	}
	return subs, nil
}

// Save вставляет новую подписку или обновляет изменяемые поля существующей.
func (r *PostgresSubscriptionRepository) Save(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	now := time.Now().UTC()
	sub.UpdatedAt = now

	if sub.IsNew() {
		sub.ID = uuid.New()
		sub.CreatedAt = now
		return sub, r.insert(ctx, sub)
	}
	return sub, r.update(ctx, sub)
}

func (r *PostgresSubscriptionRepository) insert(ctx context.Context, sub domain.Subscription) error {
	query := `
        INSERT INTO user_subscriptions (
            id, user_id, plan_id, plan_code, plan_name, category, duration_months,
            total_price, start_date, end_date, status, created_at, updated_at, cancelled_at
        ) VALUES (
            :id, :user_id, :plan_id, :plan_code, :plan_name, :category, :duration_months,
            :total_price, :start_date, :end_date, :status, :created_at, :updated_at, :cancelled_at
        )`

	// NamedExecContext маппит поля структуры на параметры запроса
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, sub); err != nil {
		r.log.Errorw("Failed to create subscription in DB", "error", err, "subscriptionID", sub.ID, "userID", sub.UserID)
		return fmt.Errorf("repository: failed to create subscription: %w", translateError(err))
	}

	r.log.Debugw("Created subscription in DB", "subscriptionID", sub.ID, "userID", sub.UserID, "status", sub.Status)
	return nil
}

func (r *PostgresSubscriptionRepository) update(ctx context.Context, sub domain.Subscription) error {
	query := `
        UPDATE user_subscriptions SET
            plan_id = :plan_id,
            plan_code = :plan_code,
            plan_name = :plan_name,
            duration_months = :duration_months,
            total_price = :total_price,
            start_date = :start_date,
            end_date = :end_date,
            status = :status,
            updated_at = :updated_at,
            cancelled_at = :cancelled_at
        WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, r.q, query, sub)
	if err != nil {
		r.log.Errorw("Failed to update subscription in DB", "error", err, "subscriptionID", sub.ID)
		return fmt.Errorf("repository: failed to update subscription: %w", translateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewSubscriptionNotFoundError(sub.ID.String())
	}

	r.log.Debugw("Updated subscription in DB", "subscriptionID", sub.ID, "status", sub.Status)
	return nil
}

// Delete удаляет подписку.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, sub domain.Subscription) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM user_subscriptions WHERE id = $1`, sub.ID)
	if err != nil {
		r.log.Errorw("Failed to delete subscription from DB", "error", err, "subscriptionID", sub.ID)
		return fmt.Errorf("repository: failed to delete subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewSubscriptionNotFoundError(sub.ID.String())
	}

	r.log.Debugw("Deleted subscription from DB", "subscriptionID", sub.ID)
	return nil
}

// translateError переводит нарушение уникальности в ErrDuplicate
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
