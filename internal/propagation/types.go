package propagation

import (
	"context"
	"time"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/domain"
)

// RecipeStore is the slice of the recipe repository propagation needs.
type RecipeStore interface {
	ListByIngredient(ctx context.Context, ingredientID string) ([]*domain.Recipe, error)
	Save(ctx context.Context, recipe *domain.Recipe) error
}

// Config holds the worker pool settings.
type Config struct {
	Workers        int           // concurrent recipe saves
	PersistTimeout time.Duration // upper bound for a single save
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		PersistTimeout: 10 * time.Second,
	}
}

// ConfigFrom reads the pool settings from the costing configuration.
func ConfigFrom(cfg config.CostingConfig) Config {
	out := DefaultConfig()
	if cfg.PropagationWorkers > 0 {
		out.Workers = cfg.PropagationWorkers
	}
	if cfg.PersistTimeout > 0 {
		out.PersistTimeout = cfg.PersistTimeout
	}
	return out
}

// Failure is a recipe that could not be updated.
type Failure struct {
	RecipeID   string `json:"recipe_id"`
	RecipeName string `json:"recipe_name"`
	Reason     string `json:"error"`
	Err        error  `json:"-"`
}

// Report summarises one price propagation.
type Report struct {
	IngredientID string        `json:"ingredient_id"`
	NewPrice     float64       `json:"new_price"`
	Affected     []string      `json:"affected"`
	Failures     []Failure     `json:"failures"`
	Duration     time.Duration `json:"duration_ns"`
}

// Failed reports whether any recipe could not be updated.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

type outcome struct {
	recipe *domain.Recipe
	err    error
}
