package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dhoini/isp-subscription-service/internal/config"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DBClient представляет клиент для работы с базой данных.
type DBClient struct {
	db   *sqlx.DB
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewDBClient создает пул pgx и оборачивает его в sqlx.
func NewDBClient(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*DBClient, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	return &DBClient{
		db:   sqlx.NewDb(sqlDB, "pgx"),
		pool: pool,
		log:  log,
	}, nil
}

// NewFromDB оборачивает готовое подключение. Используется в тестах с sqlmock.
func NewFromDB(db *sqlx.DB, log *logger.Logger) *DBClient {
	return &DBClient{db: db, log: log}
}

// DB возвращает подключение sqlx
func (dc *DBClient) DB() *sqlx.DB {
	return dc.db
}

// SQL возвращает *sql.DB для библиотек без поддержки sqlx (goose)
func (dc *DBClient) SQL() *sql.DB {
	return dc.db.DB
}

// Ping проверяет соединение
func (dc *DBClient) Ping(ctx context.Context) error {
	return dc.db.PingContext(ctx)
}

// Close закрывает соединение с базой данных.
func (dc *DBClient) Close() error {
	err := dc.db.Close()
	if dc.pool != nil {
		dc.pool.Close()
	}
	if err != nil {
		dc.log.Errorw("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func (dc *DBClient) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := dc.db.BeginTxx(ctx, nil)
	if err != nil {
		dc.log.Errorw("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	dc.log.Debugw("Transaction started")
	return tx, nil
}

func (dc *DBClient) CommitTx(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		dc.log.Errorw("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	dc.log.Debugw("Transaction committed")
	return nil
}

func (dc *DBClient) RollbackTx(tx *sqlx.Tx) error {
	if err := tx.Rollback(); err != nil {
		dc.log.Errorw("Failed to rollback transaction", "error", err)
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	dc.log.Debugw("Transaction rolled back")
	return nil
}

// WithTx выполняет fn в транзакции. Ошибка или паника в fn откатывает транзакцию.
func (dc *DBClient) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := dc.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = dc.RollbackTx(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := dc.RollbackTx(tx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return dc.CommitTx(tx)
}

// AdvisoryXactLock берёт транзакционную advisory-блокировку по строковому ключу.
// Блокировка снимается при commit или rollback.
func AdvisoryXactLock(ctx context.Context, tx sqlx.ExecerContext, key string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to acquire advisory lock %q: %w", key, err)
	}
	return nil
}
