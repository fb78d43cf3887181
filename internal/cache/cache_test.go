package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestRecipeCacheRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisRecipeCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	recipe := &domain.Recipe{
		ID:   "r1",
		Name: "Salmon",
		Preparations: domain.Preparations{{
			ID:        "p1",
			Processes: []domain.ProcessTag{domain.ProcessDefrosting},
			Ingredients: []domain.IngredientRef{
				{ID: "ing1_1", Name: "salmon", CurrentPrice: 10, WeightFrozen: 1, WeightThawed: 0.9},
			},
		}},
		IngredientIDs: []string{"ing1"},
		RecipeMetrics: domain.RecipeMetrics{TotalCost: 10, CostPerKgYield: 11.11},
	}
	require.NoError(t, c.Set(ctx, recipe))

	got, ok, err := c.Get(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Salmon", got.Name)
	assert.Equal(t, 11.11, got.CostPerKgYield)
	assert.Equal(t, 0.9, got.Preparations[0].Ingredients[0].WeightThawed.Float())

	assert.Equal(t, time.Minute, mr.TTL(recipeKey("r1")))
}

func TestRecipeCacheInvalidateDropsListings(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisRecipeCache(client, time.Minute)
	ctx := context.Background()

	filter := domain.RecipeFilter{Category: "mains"}
	require.NoError(t, c.Set(ctx, &domain.Recipe{ID: "r1"}))
	require.NoError(t, c.Set(ctx, &domain.Recipe{ID: "r2"}))
	require.NoError(t, c.SetList(ctx, filter, []*domain.Recipe{{ID: "r1"}, {ID: "r2"}}))

	list, ok, err := c.GetList(ctx, filter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, list, 2)

	require.NoError(t, c.Invalidate(ctx, "r1"))

	assert.False(t, mr.Exists(recipeKey("r1")))
	assert.True(t, mr.Exists(recipeKey("r2")))
	_, ok, err = c.GetList(ctx, filter)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.InvalidateAll(ctx))
	assert.False(t, mr.Exists(recipeKey("r2")))
}

func TestRecipeCacheCorruptEntry(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisRecipeCache(client, time.Minute)

	require.NoError(t, mr.Set(recipeKey("bad"), "{not json"))

	_, ok, err := c.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestIngredientCacheRoundTripAndInvalidate(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisIngredientCache(client, 0)
	ctx := context.Background()

	ing := &domain.Ingredient{ID: "ing1", Name: "Salmon", Unit: domain.UnitKilogram, PricePerKg: 10, Active: true}
	require.NoError(t, c.Set(ctx, ing))
	require.NoError(t, c.SetList(ctx, domain.IngredientFilter{}, []*domain.Ingredient{ing}))

	got, ok, err := c.Get(ctx, "ing1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10.0, got.PricePerKg)
	assert.Equal(t, defaultCacheTTL, mr.TTL(ingredientKey("ing1")))

	require.NoError(t, c.Invalidate(ctx, "ing1"))

	_, ok, _ = c.Get(ctx, "ing1")
	assert.False(t, ok)
	_, ok, _ = c.GetList(ctx, domain.IngredientFilter{})
	assert.False(t, ok)
}

func TestNoopCaches(t *testing.T) {
	ctx := context.Background()

	rc, err := NewRecipeCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, rc.Set(ctx, &domain.Recipe{ID: "r1"}))
	_, ok, err := rc.Get(ctx, "r1")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, rc.InvalidateAll(ctx))

	ic, err := NewIngredientCache(config.CacheConfig{})
	require.NoError(t, err)
	_, ok, err = ic.Get(ctx, "ing1")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRecipeCacheConnectsWithURL(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRecipeCache(config.CacheConfig{
		Enabled:          true,
		RedisURL:         "redis://" + mr.Addr() + "/0",
		RecipeTTLSeconds: 30,
	})
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), &domain.Recipe{ID: "r1"}))
	assert.Equal(t, 30*time.Second, mr.TTL(recipeKey("r1")))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisPassword: "secret", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://nope"})
	assert.Error(t, err)
}

func TestListKeysAreStable(t *testing.T) {
	// search is matched with ILIKE, category exactly
	a := buildRecipeListKey(domain.RecipeFilter{Category: "mains", Search: " Stew"})
	b := buildRecipeListKey(domain.RecipeFilter{Category: "mains", Search: "stew"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, buildRecipeListKey(domain.RecipeFilter{Category: "Mains"}), buildRecipeListKey(domain.RecipeFilter{Category: "mains"}))
	assert.NotEqual(t, buildIngredientListKey(domain.IngredientFilter{Category: "Fish"}), buildIngredientListKey(domain.IngredientFilter{Category: "fish"}))
	assert.Equal(t, recipeListKeyPrefix+":default", buildRecipeListKey(domain.RecipeFilter{}))
	assert.NotEqual(t, buildIngredientListKey(domain.IngredientFilter{}), buildIngredientListKey(domain.IngredientFilter{IncludeInactive: true}))
}

func TestListCachesKeepCategoryCase(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	recipes := NewRedisRecipeCache(client, time.Minute)
	require.NoError(t, recipes.SetList(ctx, domain.RecipeFilter{Category: "Main"}, []*domain.Recipe{{ID: "upper"}}))

	_, ok, err := recipes.GetList(ctx, domain.RecipeFilter{Category: "main"})
	require.NoError(t, err)
	assert.False(t, ok)

	list, ok, err := recipes.GetList(ctx, domain.RecipeFilter{Category: "Main"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "upper", list[0].ID)

	ingredients := NewRedisIngredientCache(client, time.Minute)
	require.NoError(t, ingredients.SetList(ctx, domain.IngredientFilter{Category: "Fish"}, []*domain.Ingredient{{ID: "upper"}}))

	_, ok, err = ingredients.GetList(ctx, domain.IngredientFilter{Category: "fish"})
	require.NoError(t, err)
	assert.False(t, ok)
}
