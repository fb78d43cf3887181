package costing

import (
	"math"

	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/normalize"
)

// ComputeStage measures the loss between two weights of one process stage.
// Weight gain is reported as zero loss; negative or non-finite weights are
// read as zero.
func ComputeStage(initialWeight, finalWeight float64) StageResult {
	initial := normalize.NonNegative(initialWeight)
	final := normalize.NonNegative(finalWeight)

	result := StageResult{
		InitialWeight: initial,
		FinalWeight:   final,
		Measured:      true,
	}

	// 1. Loss in kg, clamped so a gain never reads as negative loss
	result.LossKg = math.Max(0, initial-final)

	// 2. Loss percent relative to the initial weight
	if initial > 0 {
		result.LossPercent = clamp(result.LossKg/initial*100, 0, 100)
	}

	// 3. Yield is the complement of loss
	result.YieldPercent = clamp(100-result.LossPercent, 0, 100)

	return result
}

type stageDef struct {
	process domain.ProcessTag
	initial func(domain.IngredientRef) float64
	final   func(domain.IngredientRef) float64
}

// canonicalStages is the fixed order stages run in, regardless of the order
// the tags were given. Portioning has no dedicated initial weight; it always
// starts from what the previous stage produced.
var canonicalStages = []stageDef{
	{
		process: domain.ProcessDefrosting,
		initial: func(r domain.IngredientRef) float64 { return r.WeightFrozen.Float() },
		final:   func(r domain.IngredientRef) float64 { return r.WeightThawed.Float() },
	},
	{
		process: domain.ProcessCleaning,
		initial: func(r domain.IngredientRef) float64 { return r.WeightRaw.Float() },
		final:   func(r domain.IngredientRef) float64 { return r.WeightClean.Float() },
	},
	{
		process: domain.ProcessCooking,
		initial: func(r domain.IngredientRef) float64 { return r.WeightPreCooking.Float() },
		final:   func(r domain.IngredientRef) float64 { return r.WeightCooked.Float() },
	},
	{
		process: domain.ProcessPortioning,
		final:   func(r domain.IngredientRef) float64 { return r.WeightPortioned.Float() },
	},
}

// RunStages runs every active stage for ref in canonical order. A stage with
// no initial weight of its own chains from the previous stage's output; a
// stage with no final weight is assumed lossless and marked unmeasured.
func RunStages(ref domain.IngredientRef, processes []domain.ProcessTag) []StageResult {
	active := make(map[domain.ProcessTag]bool, len(processes))
	for _, p := range processes {
		active[p] = true
	}

	results := make([]StageResult, 0, len(canonicalStages))
	carry := 0.0
	for _, def := range canonicalStages {
		if !active[def.process] {
			continue
		}

		initial := 0.0
		if def.initial != nil {
			initial = normalize.NonNegative(def.initial(ref))
		}
		if initial <= 0 {
			initial = carry
		}
		if initial <= 0 && len(results) == 0 {
			initial = DeclaredWeight(ref)
		}

		final := normalize.NonNegative(def.final(ref))
		measured := final > 0
		if !measured {
			final = initial
		}

		stage := ComputeStage(initial, final)
		stage.Process = def.process
		stage.Measured = measured
		results = append(results, stage)

		carry = initial * stage.YieldPercent / 100
	}

	return results
}

// CumulativeYield multiplies the stage yields as a fraction in [0, 1]. An
// empty chain yields 1.
func CumulativeYield(stages []StageResult) float64 {
	y := 1.0
	for _, s := range stages {
		y *= s.YieldPercent / 100
	}
	return clamp(normalize.Finite(y), 0, 1)
}

// CleanCostFromStages divides the raw price by the cumulative yield of the
// chain. It returns 0 when everything was lost.
func CleanCostFromStages(rawPricePerKg float64, stages []StageResult) float64 {
	return safeDiv(normalize.NonNegative(rawPricePerKg), CumulativeYield(stages))
}

// CleanCost is the cost per kg of ref after every active stage's loss.
func CleanCost(ref domain.IngredientRef, processes []domain.ProcessTag) float64 {
	return CleanCostFromStages(ref.RawPrice(), RunStages(ref, processes))
}

// DeclaredWeight is the first populated weight of ref in stage order. It is
// used when a preparation has no stage telling which weight is the input.
func DeclaredWeight(ref domain.IngredientRef) float64 {
	weights := []domain.Amount{
		ref.WeightFrozen,
		ref.WeightThawed,
		ref.WeightRaw,
		ref.WeightClean,
		ref.WeightPreCooking,
		ref.WeightCooked,
		ref.WeightPortioned,
	}
	for _, w := range weights {
		if v := normalize.NonNegative(w.Float()); v > 0 {
			return v
		}
	}
	return 0
}

func computeIngredient(ref domain.IngredientRef, processes []domain.ProcessTag) IngredientResult {
	stages := RunStages(ref, processes)

	res := IngredientResult{
		RefID:        ref.ID,
		IngredientID: ref.ResolvedIngredientID(),
		Name:         ref.Name,
		RawPrice:     normalize.NonNegative(ref.RawPrice()),
		Stages:       stages,
	}

	if len(stages) > 0 {
		res.RawWeight = stages[0].InitialWeight
	} else {
		res.RawWeight = DeclaredWeight(ref)
	}

	yield := CumulativeYield(stages)
	res.YieldPercent = yield * 100
	res.YieldWeight = normalize.NonNegative(res.RawWeight * yield)
	res.Cost = normalize.NonNegative(res.RawWeight * res.RawPrice)
	res.CleanCost = CleanCostFromStages(res.RawPrice, stages)

	return res
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return normalize.Finite(num / den)
}
