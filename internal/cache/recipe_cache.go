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
	recipeKeyPrefix     = "recipe:item"
	recipeListKeyPrefix = "recipe:list"
)

type RecipeCache interface {
	Get(ctx context.Context, id string) (*domain.Recipe, bool, error)
	Set(ctx context.Context, recipe *domain.Recipe) error
	GetList(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, bool, error)
	SetList(ctx context.Context, filter domain.RecipeFilter, recipes []*domain.Recipe) error
	// Invalidate drops the recipe and every cached listing.
	Invalidate(ctx context.Context, ids ...string) error
	InvalidateAll(ctx context.Context) error
}

type redisRecipeCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecipeCache struct{}

func NewRecipeCache(cfg config.CacheConfig) (RecipeCache, error) {
	if !cfg.Enabled {
		return &noopRecipeCache{}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisRecipeCache(client, ttlFromSeconds(cfg.RecipeTTLSeconds)), nil
}

// NewRedisRecipeCache wraps an existing client.
func NewRedisRecipeCache(client *redis.Client, ttl time.Duration) RecipeCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisRecipeCache{client: client, ttl: ttl}
}

func NewNoopRecipeCache() RecipeCache {
	return &noopRecipeCache{}
}

func (c *redisRecipeCache) Get(ctx context.Context, id string) (*domain.Recipe, bool, error) {
	var recipe domain.Recipe
	ok, err := getJSON(ctx, c.client, recipeKey(id), &recipe)
	if err != nil || !ok {
		return nil, false, err
	}
	return &recipe, true, nil
}

func (c *redisRecipeCache) Set(ctx context.Context, recipe *domain.Recipe) error {
	return setJSON(ctx, c.client, recipeKey(recipe.ID), recipe, c.ttl)
}

func (c *redisRecipeCache) GetList(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, bool, error) {
	var recipes []*domain.Recipe
	ok, err := getJSON(ctx, c.client, buildRecipeListKey(filter), &recipes)
	if err != nil || !ok {
		return nil, false, err
	}
	return recipes, true, nil
}

func (c *redisRecipeCache) SetList(ctx context.Context, filter domain.RecipeFilter, recipes []*domain.Recipe) error {
	return setJSON(ctx, c.client, buildRecipeListKey(filter), recipes, c.ttl)
}

func (c *redisRecipeCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = recipeKey(id)
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	return deleteKeysWithPrefix(ctx, c.client, recipeListKeyPrefix, scanBatchSize)
}

func (c *redisRecipeCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, recipeKeyPrefix, scanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, recipeListKeyPrefix, scanBatchSize)
}

func (n *noopRecipeCache) Get(ctx context.Context, id string) (*domain.Recipe, bool, error) {
	return nil, false, nil
}

func (n *noopRecipeCache) Set(ctx context.Context, recipe *domain.Recipe) error {
	return nil
}

func (n *noopRecipeCache) GetList(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, bool, error) {
	return nil, false, nil
}

func (n *noopRecipeCache) SetList(ctx context.Context, filter domain.RecipeFilter, recipes []*domain.Recipe) error {
	return nil
}

func (n *noopRecipeCache) Invalidate(ctx context.Context, ids ...string) error {
	return nil
}

func (n *noopRecipeCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func recipeKey(id string) string {
	return recipeKeyPrefix + ":" + id
}

func buildRecipeListKey(filter domain.RecipeFilter) string {
	var parts []string
	if filter.Category != "" {
		parts = append(parts, "category="+filter.Category)
	}
	if filter.Search != "" {
		parts = append(parts, "search="+strings.ToLower(strings.TrimSpace(filter.Search)))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page), fmt.Sprintf("page_size=%d", filter.PageSize))
	}
	return hashKey(recipeListKeyPrefix, parts)
}
