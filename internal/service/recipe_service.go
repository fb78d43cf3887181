package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/recipecost/internal/cache"
	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/costing"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/metrics"
	"github.com/andresuchdata/recipecost/internal/repository"
)

const defaultRecalcConcurrency = 8

// ValidationError is returned by Save when the recipe has blocking errors.
type ValidationError struct {
	Result costing.ValidationResult
}

func (e *ValidationError) Error() string {
	return "recipe is invalid: " + strings.Join(e.Result.Errors, "; ")
}

// Preview is the live output for an unsaved recipe.
type Preview struct {
	Calculation costing.Calculation      `json:"calculation"`
	Validation  costing.ValidationResult `json:"validation"`
}

// RecalcFailure is a recipe whose metrics could not be stored.
type RecalcFailure struct {
	RecipeID string `json:"recipe_id"`
	Reason   string `json:"error"`
}

// RecalcReport summarises a bulk recalculation.
type RecalcReport struct {
	Updated  int             `json:"updated"`
	Failures []RecalcFailure `json:"failures"`
}

type RecipeService struct {
	repo        repository.RecipeRepository
	cache       cache.RecipeCache
	calculator  *costing.RecipeCalculator
	validation  costing.ValidationOptions
	concurrency int
	metrics     *metrics.Collector
}

func NewRecipeService(repo repository.RecipeRepository, cacheImpl cache.RecipeCache, cfg config.CostingConfig, collector *metrics.Collector) *RecipeService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecipeCache()
	}
	concurrency := cfg.RecalcConcurrency
	if concurrency <= 0 {
		concurrency = defaultRecalcConcurrency
	}
	return &RecipeService{
		repo:        repo,
		cache:       cacheImpl,
		calculator:  costing.NewRecipeCalculator(),
		validation:  costing.ValidationOptions{PriceCeiling: cfg.PriceCeiling},
		concurrency: concurrency,
		metrics:     collector,
	}
}

// Preview calculates an unsaved recipe. Validation problems never block the
// calculation.
func (s *RecipeService) Preview(recipe *domain.Recipe) Preview {
	rc := costing.ContextFromRecipe(recipe)
	s.metrics.RecordCalculation("preview")
	return Preview{
		Calculation: s.calculator.Calculate(recipe.Preparations, rc),
		Validation:  costing.Validate(rc, recipe.Preparations, s.validation),
	}
}

func (s *RecipeService) Validate(recipe *domain.Recipe) costing.ValidationResult {
	return costing.Validate(costing.ContextFromRecipe(recipe), recipe.Preparations, s.validation)
}

func (s *RecipeService) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	if recipe, ok, err := s.cache.Get(ctx, id); err == nil && ok {
		s.metrics.RecordCacheLookup("recipe", true)
		return recipe, nil
	} else if err != nil {
		log.Warn().Err(err).Str("recipe_id", id).Msg("recipe: cache get failed")
	}
	s.metrics.RecordCacheLookup("recipe", false)

	recipe, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, recipe); err != nil {
		log.Warn().Err(err).Str("recipe_id", id).Msg("recipe: cache set failed")
	}

	return recipe, nil
}

func (s *RecipeService) List(ctx context.Context, filter domain.RecipeFilter) ([]*domain.Recipe, error) {
	if recipes, ok, err := s.cache.GetList(ctx, filter); err == nil && ok {
		s.metrics.RecordCacheLookup("recipe_list", true)
		return recipes, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("recipe: cache get list failed")
	}
	s.metrics.RecordCacheLookup("recipe_list", false)

	recipes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = make([]*domain.Recipe, 0)
	}

	if err := s.cache.SetList(ctx, filter, recipes); err != nil {
		log.Warn().Err(err).Msg("recipe: cache set list failed")
	}

	return recipes, nil
}

// Save validates the recipe, recomputes its metrics and ingredient index and
// persists it. A recipe with validation errors is rejected with a
// *ValidationError; warnings are returned alongside the saved recipe.
func (s *RecipeService) Save(ctx context.Context, recipe *domain.Recipe) (*domain.Recipe, costing.ValidationResult, error) {
	result := s.Validate(recipe)
	if !result.IsValid {
		return nil, result, &ValidationError{Result: result}
	}

	if recipe.ID == "" {
		recipe.ID = uuid.NewString()
	}
	recipe.RecipeMetrics = s.calculator.CalculateRecipeMetrics(recipe.Preparations, costing.ContextFromRecipe(recipe))
	recipe.IngredientIDs = recipe.ReferencedIngredientIDs()
	s.metrics.RecordCalculation("save")

	if err := s.repo.Save(ctx, recipe); err != nil {
		return nil, result, fmt.Errorf("failed to save recipe %s: %w", recipe.ID, err)
	}

	if err := s.cache.Invalidate(ctx, recipe.ID); err != nil {
		log.Warn().Err(err).Str("recipe_id", recipe.ID).Msg("recipe: cache invalidate failed")
	}

	return recipe, result, nil
}

// RecalculateAll recomputes and stores the metrics of every recipe. Per
// recipe failures are collected; only a failure to list recipes or a
// cancelled context is returned as an error.
func (s *RecipeService) RecalculateAll(ctx context.Context) (*RecalcReport, error) {
	recipes, err := s.repo.List(ctx, domain.RecipeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	report := &RecalcReport{Failures: make([]RecalcFailure, 0)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, recipe := range recipes {
		recipe := recipe
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m := s.calculator.CalculateRecipeMetrics(recipe.Preparations, costing.ContextFromRecipe(recipe))
			s.metrics.RecordCalculation("recalculate")
			err := s.repo.SaveMetrics(gctx, recipe.ID, m)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("recipe_id", recipe.ID).Msg("recipe: recalculation save failed")
				report.Failures = append(report.Failures, RecalcFailure{RecipeID: recipe.ID, Reason: err.Error()})
				return nil
			}
			report.Updated++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].RecipeID < report.Failures[j].RecipeID
	})

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recipe: cache invalidate all failed")
	}

	s.metrics.RecordRecalculation(report.Updated, len(report.Failures))
	log.Info().
		Int("recipes", len(recipes)).
		Int("updated", report.Updated).
		Int("failed", len(report.Failures)).
		Msg("recipe recalculation finished")

	return report, nil
}
