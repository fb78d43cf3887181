package repository

import (
	"context"

	"github.com/andresuchdata/recipecost/internal/domain"
)

type RecipeRepository interface {
	Get(ctx context.Context, id string) (*domain.Recipe, error)
	List(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, error)
	// ListByIngredient returns the recipes whose ingredient index contains
	// ingredientID exactly.
	ListByIngredient(ctx context.Context, ingredientID string) ([]*domain.Recipe, error)
	// Save upserts the recipe document, its ingredient index and its metrics.
	Save(ctx context.Context, recipe *domain.Recipe) error
	SaveMetrics(ctx context.Context, id string, metrics domain.RecipeMetrics) error
}

type IngredientRepository interface {
	Get(ctx context.Context, id string) (*domain.Ingredient, error)
	List(ctx context.Context, filter domain.IngredientFilter) ([]*domain.Ingredient, error)
	Create(ctx context.Context, ingredient *domain.Ingredient) error
	// UpdatePrice stores the new price and appends entry to the price history
	// in one transaction.
	UpdatePrice(ctx context.Context, id string, price float64, entry *domain.PriceHistory) error
}

type PriceHistoryRepository interface {
	Insert(ctx context.Context, entry *domain.PriceHistory) error
	ListByIngredient(ctx context.Context, ingredientID string, limit int) ([]*domain.PriceHistory, error)
}
