package service

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/recipecost/internal/domain"
)

type memRecipeRepo struct {
	mu         sync.Mutex
	recipes    map[string]*domain.Recipe
	gets       int
	listErr    error
	metricsErr map[string]error
	metrics    map[string]domain.RecipeMetrics
}

func newMemRecipeRepo(recipes ...*domain.Recipe) *memRecipeRepo {
	r := &memRecipeRepo{
		recipes:    make(map[string]*domain.Recipe),
		metricsErr: make(map[string]error),
		metrics:    make(map[string]domain.RecipeMetrics),
	}
	for _, recipe := range recipes {
		recipe.IngredientIDs = recipe.ReferencedIngredientIDs()
		r.recipes[recipe.ID] = recipe
	}
	return r
}

func (r *memRecipeRepo) Get(_ context.Context, id string) (*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	recipe, ok := r.recipes[id]
	if !ok {
		return nil, domain.ErrRecipeNotFound
	}
	return recipe, nil
}

func (r *memRecipeRepo) List(_ context.Context, _ domain.RecipeFilter) ([]*domain.Recipe, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Recipe, 0, len(r.recipes))
	for _, recipe := range r.recipes {
		out = append(out, recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRecipeRepo) ListByIngredient(_ context.Context, ingredientID string) ([]*domain.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Recipe
	for _, recipe := range r.recipes {
		for _, id := range recipe.IngredientIDs {
			if id == ingredientID {
				out = append(out, recipe)
				break
			}
		}
	}
	return out, nil
}

func (r *memRecipeRepo) Save(_ context.Context, recipe *domain.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[recipe.ID] = recipe
	return nil
}

func (r *memRecipeRepo) SaveMetrics(_ context.Context, id string, m domain.RecipeMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.metricsErr[id]; err != nil {
		return err
	}
	if _, ok := r.recipes[id]; !ok {
		return domain.ErrRecipeNotFound
	}
	r.metrics[id] = m
	return nil
}

type memIngredientRepo struct {
	mu          sync.Mutex
	ingredients map[string]*domain.Ingredient
	history     *memHistoryRepo
}

func newMemIngredientRepo(history *memHistoryRepo, ingredients ...*domain.Ingredient) *memIngredientRepo {
	r := &memIngredientRepo{ingredients: make(map[string]*domain.Ingredient), history: history}
	for _, ing := range ingredients {
		r.ingredients[ing.ID] = ing
	}
	return r
}

func (r *memIngredientRepo) Get(_ context.Context, id string) (*domain.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ing, ok := r.ingredients[id]
	if !ok {
		return nil, domain.ErrIngredientNotFound
	}
	cp := *ing
	return &cp, nil
}

func (r *memIngredientRepo) List(_ context.Context, _ domain.IngredientFilter) ([]*domain.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Ingredient, 0, len(r.ingredients))
	for _, ing := range r.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memIngredientRepo) Create(_ context.Context, ingredient *domain.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingredients[ingredient.ID] = ingredient
	return nil
}

func (r *memIngredientRepo) UpdatePrice(ctx context.Context, id string, price float64, entry *domain.PriceHistory) error {
	r.mu.Lock()
	ing, ok := r.ingredients[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrIngredientNotFound
	}
	ing.PricePerKg = price
	r.mu.Unlock()
	return r.history.Insert(ctx, entry)
}

type memHistoryRepo struct {
	mu        sync.Mutex
	entries   []*domain.PriceHistory
	lastLimit int
}

func (r *memHistoryRepo) Insert(_ context.Context, entry *domain.PriceHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memHistoryRepo) ListByIngredient(_ context.Context, ingredientID string, limit int) ([]*domain.PriceHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	var out []*domain.PriceHistory
	for _, e := range r.entries {
		if e.IngredientID == ingredientID {
			out = append(out, e)
		}
	}
	return out, nil
}

// spyRecipeCache is an in-memory recipe cache that records invalidations.
type spyRecipeCache struct {
	mu          sync.Mutex
	items       map[string]*domain.Recipe
	invalidated []string
	flushed     int
}

func newSpyRecipeCache() *spyRecipeCache {
	return &spyRecipeCache{items: make(map[string]*domain.Recipe)}
}

func (c *spyRecipeCache) Get(_ context.Context, id string) (*domain.Recipe, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[id]
	return r, ok, nil
}

func (c *spyRecipeCache) Set(_ context.Context, recipe *domain.Recipe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[recipe.ID] = recipe
	return nil
}

func (c *spyRecipeCache) GetList(context.Context, domain.RecipeFilter) ([]*domain.Recipe, bool, error) {
	return nil, false, nil
}

func (c *spyRecipeCache) SetList(context.Context, domain.RecipeFilter, []*domain.Recipe) error {
	return nil
}

func (c *spyRecipeCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func (c *spyRecipeCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*domain.Recipe)
	c.flushed++
	return nil
}

func salmonRecipe(id, ingredientID string, price float64) *domain.Recipe {
	return &domain.Recipe{
		ID:       id,
		Name:     "Salmon " + id,
		Category: "mains",
		Portions: 2,
		Preparations: domain.Preparations{{
			ID:        "p1",
			Title:     "Thaw",
			Processes: []domain.ProcessTag{domain.ProcessDefrosting},
			Ingredients: []domain.IngredientRef{{
				ID:           ingredientID + "_1700000000",
				IngredientID: ingredientID,
				Name:         "salmon",
				CurrentPrice: domain.Amount(price),
				WeightFrozen: 1,
				WeightThawed: 0.9,
			}},
		}},
	}
}
