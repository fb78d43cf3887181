package propagation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/recipecost/internal/costing"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/metrics"
	"github.com/andresuchdata/recipecost/internal/normalize"
)

// Propagator pushes an ingredient price change into every recipe that uses
// the ingredient and recomputes their metrics.
type Propagator struct {
	store      RecipeStore
	calculator *costing.RecipeCalculator
	config     Config
	metrics    *metrics.Collector
}

// NewPropagator creates a propagator. collector may be nil.
func NewPropagator(store RecipeStore, cfg Config, collector *metrics.Collector) *Propagator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}

	return &Propagator{
		store:      store,
		calculator: costing.NewRecipeCalculator(),
		config:     cfg,
		metrics:    collector,
	}
}

// OnIngredientPriceChange rewrites the denormalized price of ingredientID in
// every referencing recipe, recalculates and saves each one. Only a failure to
// load the candidate recipes is returned as an error; per-recipe failures are
// collected in the report and never retried.
func (p *Propagator) OnIngredientPriceChange(ctx context.Context, ingredientID string, newPrice float64) (*Report, error) {
	start := time.Now()

	if newPrice < 0 || normalize.Finite(newPrice) != newPrice {
		return nil, domain.ErrInvalidPrice
	}

	report := &Report{
		IngredientID: ingredientID,
		NewPrice:     newPrice,
		Affected:     []string{},
		Failures:     []Failure{},
	}

	candidates, err := p.store.ListByIngredient(ctx, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipes for ingredient %s: %w", ingredientID, err)
	}

	// the index may be stale; only exact references are touched
	recipes := make([]*domain.Recipe, 0, len(candidates))
	for _, r := range candidates {
		if r != nil && r.References(ingredientID) {
			recipes = append(recipes, r)
		}
	}

	log.Info().
		Str("ingredient_id", ingredientID).
		Float64("new_price", newPrice).
		Int("recipes", len(recipes)).
		Msg("propagating ingredient price")

	for _, o := range p.processParallel(ctx, ingredientID, newPrice, recipes) {
		if o.err != nil {
			report.Failures = append(report.Failures, Failure{
				RecipeID:   o.recipe.ID,
				RecipeName: o.recipe.Name,
				Reason:     o.err.Error(),
				Err:        o.err,
			})
			continue
		}
		report.Affected = append(report.Affected, o.recipe.ID)
	}

	sort.Strings(report.Affected)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].RecipeID < report.Failures[j].RecipeID
	})

	report.Duration = time.Since(start)
	p.metrics.RecordPropagation(len(report.Affected), len(report.Failures), report.Duration)

	event := log.Info()
	if report.Failed() {
		event = log.Warn()
	}
	event.
		Str("ingredient_id", ingredientID).
		Int("updated", len(report.Affected)).
		Int("failed", len(report.Failures)).
		Dur("took", report.Duration).
		Msg("price propagation finished")

	return report, nil
}

// processParallel updates recipes using a worker pool
func (p *Propagator) processParallel(ctx context.Context, ingredientID string, price float64, recipes []*domain.Recipe) []outcome {
	workerCount := p.config.Workers
	if workerCount > len(recipes) {
		workerCount = len(recipes)
	}

	jobChan := make(chan *domain.Recipe, len(recipes))
	resultChan := make(chan outcome, len(recipes))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for recipe := range jobChan {
				err := p.processRecipe(ctx, ingredientID, price, recipe)
				if err != nil {
					log.Warn().Err(err).
						Int("worker", workerID).
						Str("recipe_id", recipe.ID).
						Msg("failed to update recipe")
				}
				resultChan <- outcome{recipe: recipe, err: err}
			}
		}(i)
	}

	// Enqueue jobs
	for _, recipe := range recipes {
		jobChan <- recipe
	}
	close(jobChan)

	wg.Wait()
	close(resultChan)

	results := make([]outcome, 0, len(recipes))
	for o := range resultChan {
		results = append(results, o)
	}
	return results
}

func (p *Propagator) processRecipe(ctx context.Context, ingredientID string, price float64, recipe *domain.Recipe) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ApplyPrice(recipe, ingredientID, price)
	recipe.RecipeMetrics = p.calculator.CalculateRecipeMetrics(recipe.Preparations, costing.ContextFromRecipe(recipe))
	recipe.IngredientIDs = recipe.ReferencedIngredientIDs()

	saveCtx, cancel := context.WithTimeout(ctx, p.config.PersistTimeout)
	defer cancel()

	if err := p.store.Save(saveCtx, recipe); err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", recipe.ID, err)
	}
	return nil
}

// ApplyPrice overwrites the denormalized price of every ref to ingredientID
// and returns how many refs changed. A ref that carries its own raw price per
// kg gets that field updated too, since it takes precedence in costing.
func ApplyPrice(recipe *domain.Recipe, ingredientID string, price float64) int {
	changed := 0
	for i := range recipe.Preparations {
		refs := recipe.Preparations[i].Ingredients
		for j := range refs {
			if !refs[j].References(ingredientID) {
				continue
			}
			refs[j].CurrentPrice = domain.Amount(price)
			if refs[j].RawPriceKg.IsSet() {
				refs[j].RawPriceKg = domain.Amount(price)
			}
			changed++
		}
	}
	return changed
}
