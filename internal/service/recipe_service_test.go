package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/recipecost/internal/config"
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/metrics"
)

func costingConfig() config.CostingConfig {
	return config.CostingConfig{PriceCeiling: 1000, RecalcConcurrency: 2}
}

func TestRecipeServicePreview(t *testing.T) {
	svc := NewRecipeService(newMemRecipeRepo(), nil, costingConfig(), nil)

	preview := svc.Preview(salmonRecipe("r1", "ing1", 10))

	assert.True(t, preview.Validation.IsValid)
	assert.Empty(t, preview.Validation.Warnings)
	assert.InDelta(t, 10.0, preview.Calculation.Metrics.TotalCost, 1e-9)
	assert.InDelta(t, 11.11, preview.Calculation.Metrics.CostPerKgYield, 0.01)
	require.Len(t, preview.Calculation.Preparations, 1)
}

func TestRecipeServicePreviewStillCalculatesInvalidRecipe(t *testing.T) {
	svc := NewRecipeService(newMemRecipeRepo(), nil, costingConfig(), nil)

	recipe := salmonRecipe("r1", "ing1", 10)
	recipe.Name = ""
	preview := svc.Preview(recipe)

	assert.False(t, preview.Validation.IsValid)
	assert.Contains(t, preview.Validation.Errors, "recipe name is required")
	assert.InDelta(t, 10.0, preview.Calculation.Metrics.TotalCost, 1e-9)
}

func TestRecipeServiceSave(t *testing.T) {
	repo := newMemRecipeRepo()
	spy := newSpyRecipeCache()
	svc := NewRecipeService(repo, spy, costingConfig(), nil)

	recipe := salmonRecipe("", "ing1", 10)
	saved, result, err := svc.Save(context.Background(), recipe)

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, []string{"ing1"}, saved.IngredientIDs)
	assert.InDelta(t, 0.9, saved.YieldWeight, 1e-9)
	assert.InDelta(t, 11.11, saved.CostPerKgYield, 0.01)
	assert.Contains(t, repo.recipes, saved.ID)
	assert.Equal(t, []string{saved.ID}, spy.invalidated)
}

func TestRecipeServiceSaveRejectsInvalidRecipe(t *testing.T) {
	repo := newMemRecipeRepo()
	svc := NewRecipeService(repo, nil, costingConfig(), nil)

	recipe := salmonRecipe("r1", "ing1", 5000)
	_, result, err := svc.Save(context.Background(), recipe)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.False(t, result.IsValid)
	assert.Contains(t, verr.Error(), "suspicious price")
	assert.Empty(t, repo.recipes)
}

func TestRecipeServiceGetUsesCache(t *testing.T) {
	repo := newMemRecipeRepo(salmonRecipe("r1", "ing1", 10))
	collector := metrics.NewCollector()
	svc := NewRecipeService(repo, newSpyRecipeCache(), costingConfig(), collector)
	ctx := context.Background()

	first, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	second, err := svc.Get(ctx, "r1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.gets)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeServiceList(t *testing.T) {
	svc := NewRecipeService(newMemRecipeRepo(), nil, costingConfig(), nil)

	recipes, err := svc.List(context.Background(), domain.RecipeFilter{})

	require.NoError(t, err)
	assert.NotNil(t, recipes)
	assert.Empty(t, recipes)
}

func TestRecipeServiceRecalculateAll(t *testing.T) {
	repo := newMemRecipeRepo(
		salmonRecipe("r1", "ing1", 10),
		salmonRecipe("r2", "ing1", 20),
		salmonRecipe("r3", "ing2", 30),
	)
	repo.metricsErr["r2"] = errors.New("connection reset")
	spy := newSpyRecipeCache()
	collector := metrics.NewCollector()
	svc := NewRecipeService(repo, spy, costingConfig(), collector)

	report, err := svc.RecalculateAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Updated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "r2", report.Failures[0].RecipeID)
	assert.Contains(t, report.Failures[0].Reason, "connection reset")

	assert.InDelta(t, 30.0, repo.metrics["r3"].TotalCost, 1e-9)
	assert.InDelta(t, 33.33, repo.metrics["r3"].CostPerKgYield, 0.01)
	assert.Equal(t, 1, spy.flushed)
}

func TestRecipeServiceRecalculateAllListError(t *testing.T) {
	repo := newMemRecipeRepo()
	repo.listErr = errors.New("db down")
	svc := NewRecipeService(repo, nil, costingConfig(), nil)

	_, err := svc.RecalculateAll(context.Background())

	assert.ErrorContains(t, err, "db down")
}
