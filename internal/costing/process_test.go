package costing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/recipecost/internal/domain"
)

const eps = 1e-9

func TestComputeStage(t *testing.T) {
	tests := []struct {
		name             string
		initial, final   float64
		wantLossKg       float64
		wantLossPercent  float64
		wantYieldPercent float64
	}{
		{"ten percent loss", 1.0, 0.9, 0.1, 10, 90},
		{"no change", 2.0, 2.0, 0, 0, 100},
		{"weight gain is zero loss", 1.0, 1.2, 0, 0, 100},
		{"everything lost", 1.0, 0, 1.0, 100, 0},
		{"zero initial", 0, 0, 0, 0, 100},
		{"negative weights read as zero", -1, -2, 0, 0, 100},
		{"non-finite input", math.NaN(), math.Inf(1), 0, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStage(tt.initial, tt.final)

			assert.InDelta(t, tt.wantLossKg, got.LossKg, eps)
			assert.InDelta(t, tt.wantLossPercent, got.LossPercent, eps)
			assert.InDelta(t, tt.wantYieldPercent, got.YieldPercent, eps)
			assert.GreaterOrEqual(t, got.LossPercent, 0.0)
			assert.LessOrEqual(t, got.LossPercent, 100.0)
		})
	}
}

func TestRunStagesChainsMissingInitialWeights(t *testing.T) {
	ref := domain.IngredientRef{
		Name:         "shrimp",
		WeightFrozen: 2.0,
		WeightThawed: 1.8,
		WeightClean:  1.5,
		WeightCooked: 1.2,
	}

	// tag order must not matter
	stages := RunStages(ref, []domain.ProcessTag{
		domain.ProcessCooking,
		domain.ProcessDefrosting,
		domain.ProcessCleaning,
	})

	require.Len(t, stages, 3)
	assert.Equal(t, domain.ProcessDefrosting, stages[0].Process)
	assert.Equal(t, domain.ProcessCleaning, stages[1].Process)
	assert.Equal(t, domain.ProcessCooking, stages[2].Process)

	assert.InDelta(t, 1.8, stages[1].InitialWeight, eps)
	assert.InDelta(t, 1.5, stages[2].InitialWeight, eps)
	assert.InDelta(t, 0.6, CumulativeYield(stages), eps)
}

func TestRunStagesUnmeasuredFinalIsLossless(t *testing.T) {
	ref := domain.IngredientRef{WeightRaw: 1.0}

	stages := RunStages(ref, []domain.ProcessTag{domain.ProcessCleaning})

	require.Len(t, stages, 1)
	assert.False(t, stages[0].Measured)
	assert.InDelta(t, 100, stages[0].YieldPercent, eps)
}

func TestRunStagesIgnoresUnknownAndFinishingOnlyTags(t *testing.T) {
	ref := domain.IngredientRef{WeightRaw: 1.0, WeightClean: 0.5}

	assert.Empty(t, RunStages(ref, []domain.ProcessTag{"flambé"}))
	assert.Empty(t, RunStages(ref, nil))
	assert.Equal(t, 1.0, CumulativeYield(nil))
}

func TestCleanCost(t *testing.T) {
	ref := domain.IngredientRef{
		CurrentPrice: 10,
		WeightFrozen: 1.0,
		WeightThawed: 0.9,
	}

	got := CleanCost(ref, []domain.ProcessTag{domain.ProcessDefrosting})

	assert.InDelta(t, 11.11, got, 0.01)
}

func TestCleanCostPrefersRawPrice(t *testing.T) {
	ref := domain.IngredientRef{
		CurrentPrice: 10,
		RawPriceKg:   20,
		WeightRaw:    1.0,
		WeightClean:  0.5,
	}

	assert.InDelta(t, 40, CleanCost(ref, []domain.ProcessTag{domain.ProcessCleaning}), eps)
}

func TestCleanCostTotalLossIsZero(t *testing.T) {
	stages := []StageResult{ComputeStage(1, 0)}

	assert.Equal(t, 0.0, CleanCostFromStages(10, stages))
}

func TestCleanCostIsMonotoneInLoss(t *testing.T) {
	prev := 0.0
	for final := 1.0; final > 0.05; final -= 0.05 {
		stages := []StageResult{ComputeStage(1.0, final)}
		got := CleanCostFromStages(10, stages)

		assert.GreaterOrEqual(t, got, prev, "final weight %.2f", final)
		assert.GreaterOrEqual(t, got, 10.0)
		prev = got
	}
}

func TestDeclaredWeight(t *testing.T) {
	assert.Equal(t, 0.0, DeclaredWeight(domain.IngredientRef{}))
	assert.Equal(t, 0.8, DeclaredWeight(domain.IngredientRef{WeightClean: 0.8, WeightCooked: 0.6}))
	assert.Equal(t, 0.6, DeclaredWeight(domain.IngredientRef{WeightRaw: -1, WeightCooked: 0.6}))
}
