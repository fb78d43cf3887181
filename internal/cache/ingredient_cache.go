package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/domain"
)

const (
	ingredientKeyPrefix     = "ingredient:item"
	ingredientListKeyPrefix = "ingredient:list"
)

type IngredientCache interface {
	Get(ctx context.Context, id string) (*domain.Ingredient, bool, error)
	Set(ctx context.Context, ingredient *domain.Ingredient) error
	GetList(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, bool, error)
	SetList(ctx context.Context, filter domain.IngredientFilter, ingredients []*domain.Ingredient) error
	Invalidate(ctx context.Context, id string) error
}

type redisIngredientCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopIngredientCache struct{}

func NewIngredientCache(cfg config.CacheConfig) (IngredientCache, error) {
	if !cfg.Enabled {
		return &noopIngredientCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisIngredientCache(client, ttlFromSeconds(cfg.IngredientTTLSeconds)), nil
}

// NewRedisIngredientCache wraps an existing client.
func NewRedisIngredientCache(client *redis.Client, ttl time.Duration) IngredientCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisIngredientCache{client: client, ttl: ttl}
}

func NewNoopIngredientCache() IngredientCache {
	return &noopIngredientCache{}
}

func (c *redisIngredientCache) Get(ctx context.Context, id string) (*domain.Ingredient, bool, error) {
	var ingredient domain.Ingredient
	ok, err := getJSON(ctx, c.client, ingredientKey(id), &ingredient)
	if err != nil || !ok {
		return nil, false, err
	}
	return &ingredient, true, nil
}

func (c *redisIngredientCache) Set(ctx context.Context, ingredient *domain.Ingredient) error {
	return setJSON(ctx, c.client, ingredientKey(ingredient.ID), ingredient, c.ttl)
}

func (c *redisIngredientCache) GetList(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, bool, error) {
	var ingredients []*domain.Ingredient
	ok, err := getJSON(ctx, c.client, buildIngredientListKey(filter), &ingredients)
	if err != nil || !ok {
		return nil, false, err
	}
	return ingredients, true, nil
}

func (c *redisIngredientCache) SetList(ctx context.Context, filter domain.IngredientFilter, ingredients []*domain.Ingredient) error {
	return setJSON(ctx, c.client, buildIngredientListKey(filter), ingredients, c.ttl)
}

func (c *redisIngredientCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, ingredientKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return deleteKeysWithPrefix(ctx, c.client, ingredientListKeyPrefix, scanBatchSize)
}

func (n *noopIngredientCache) Get(ctx context.Context, id string) (*domain.Ingredient, bool, error) {
	return nil, false, nil
}

func (n *noopIngredientCache) Set(ctx context.Context, ingredient *domain.Ingredient) error {
	return nil
}

func (n *noopIngredientCache) GetList(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, bool, error) {
	return nil, false, nil
}

func (n *noopIngredientCache) SetList(ctx context.Context, filter domain.IngredientFilter, ingredients []*domain.Ingredient) error {
	return nil
}

func (n *noopIngredientCache) Invalidate(ctx context.Context, id string) error {
	return nil
}

func ingredientKey(id string) string {
	return ingredientKeyPrefix + ":" + id
}

func buildIngredientListKey(filter domain.IngredientFilter) string {
	var parts []string
	if filter.Category != "" {
		parts = append(parts, "category="+filter.Category)
	}
	if filter.Search != "" {
		parts = append(parts, "search="+strings.ToLower(strings.TrimSpace(filter.Search)))
	}
	if filter.IncludeInactive {
		parts = append(parts, "include_inactive=true")
	}
	return hashKey(ingredientListKeyPrefix, parts)
}
