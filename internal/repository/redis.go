package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/DennisWilmot/land-mapping-web/internal/models"
)

// RedisSelectionRepository stores the collection as a JSON array under one key.
// A single SET keeps every write atomic.
type RedisSelectionRepository struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisSelectionRepository creates a store writing to key.
func NewRedisSelectionRepository(rdb redis.UniversalClient, key string) *RedisSelectionRepository {
	return &RedisSelectionRepository{rdb: rdb, key: key}
}

func (r *RedisSelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.SavedSelection{}, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var out []models.SavedSelection
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", ErrCorruptData, r.key, err)
	}
	if out == nil {
		out = []models.SavedSelection{}
	}
	return out, nil
}

func (r *RedisSelectionRepository) SaveAll(ctx context.Context, selections []models.SavedSelection) error {
	if selections == nil {
		selections = []models.SavedSelection{}
	}
	data, err := json.Marshal(selections)
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisSelectionRepository) Name() string { return "redis" }

func (r *RedisSelectionRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
