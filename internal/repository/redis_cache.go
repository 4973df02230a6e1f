package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префиксы ключей для различных типов данных
	planKeyPrefix          = "plan:"
	categoryPlansKeyPrefix = "plans_by_category:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование каталога планов с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return NewRedisCacheRepositoryFromClient(client, ttl, log), nil
}

// NewRedisCacheRepositoryFromClient оборачивает готовый клиент Redis
func NewRedisCacheRepositoryFromClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CachePlan кеширует план
func (r *RedisCacheRepository) CachePlan(ctx context.Context, plan domain.Plan) error {
	return r.set(ctx, planKeyPrefix+string(plan.Code), plan)
}

// GetCachedPlan получает план из кеша. Промах возвращает (nil, nil).
func (r *RedisCacheRepository) GetCachedPlan(ctx context.Context, code domain.PlanCode) (*domain.Plan, error) {
	var plan domain.Plan
	found, err := r.get(ctx, planKeyPrefix+string(code), &plan)
	if err != nil || !found {
		return nil, err
	}
	return &plan, nil
}

// CacheCategoryPlans кеширует список планов категории
func (r *RedisCacheRepository) CacheCategoryPlans(ctx context.Context, category domain.Category, plans []domain.Plan) error {
	return r.set(ctx, categoryPlansKeyPrefix+string(category), plans)
}

// GetCachedCategoryPlans получает список планов категории. Промах возвращает (nil, nil).
func (r *RedisCacheRepository) GetCachedCategoryPlans(ctx context.Context, category domain.Category) ([]domain.Plan, error) {
	var plans []domain.Plan
	found, err := r.get(ctx, categoryPlansKeyPrefix+string(category), &plans)
	if err != nil || !found {
		return nil, err
	}
	return plans, nil
}

// InvalidatePlans удаляет из кеша план и список его категории
func (r *RedisCacheRepository) InvalidatePlans(ctx context.Context, code domain.PlanCode) error {
	keys := []string{planKeyPrefix + string(code), categoryPlansKeyPrefix + string(code.Category())}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.Errorw("Failed to invalidate plan cache", "error", err, "code", code)
		return fmt.Errorf("failed to invalidate plan cache: %w", err)
	}
	r.log.Debugw("Plan cache invalidated", "code", code)
	return nil
}

func (r *RedisCacheRepository) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		r.log.Errorw("Failed to marshal value for caching", "error", err, "key", key)
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Errorw("Failed to cache value in Redis", "error", err, "key", key)
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}

	r.log.Debugw("Value cached successfully", "key", key)
	return nil
}

func (r *RedisCacheRepository) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Ключ не найден в кеше
			r.log.Debugw("Key not found in cache", "key", key)
			return false, nil
		}
		r.log.Errorw("Error getting value from Redis", "error", err, "key", key)
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.log.Errorw("Failed to unmarshal cached value", "error", err, "key", key)
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}
