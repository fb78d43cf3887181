package costing

import (
	"github.com/andresuchdata/recipecost/internal/domain"
	"github.com/andresuchdata/recipecost/internal/normalize"
)

// RecipeCalculator turns a recipe's preparations into its derived metrics.
type RecipeCalculator struct{}

func NewRecipeCalculator() *RecipeCalculator {
	return &RecipeCalculator{}
}

// CalculateRecipeMetrics returns only the aggregates that are persisted on
// the recipe.
func (c *RecipeCalculator) CalculateRecipeMetrics(preps []domain.Preparation, rc RecipeContext) domain.RecipeMetrics {
	return c.Calculate(preps, rc).Metrics
}

// Calculate runs every preparation in order and aggregates the recipe totals.
// The same input always yields the same output.
func (c *RecipeCalculator) Calculate(preps []domain.Preparation, rc RecipeContext) Calculation {
	calc := Calculation{
		Preparations: make([]PreparationResult, 0, len(preps)),
	}

	// cost per kg of yield of every preparation seen so far, by id
	resolved := make(map[string]float64, len(preps))

	var totalRaw, totalYield, totalCost float64
	finishing := -1

	for i := range preps {
		res := c.calculatePreparation(preps[i], resolved, rc)
		if preps[i].ID != "" {
			resolved[preps[i].ID] = res.CostPerKgYield
		}

		totalRaw += res.contribRaw
		totalYield += res.contribYield
		totalCost += res.contribCost

		calc.Preparations = append(calc.Preparations, res)
		if res.Finishing {
			finishing = len(calc.Preparations) - 1
		}
	}

	m := domain.RecipeMetrics{
		TotalWeight: normalize.NonNegative(totalRaw),
		YieldWeight: normalize.NonNegative(totalYield),
		TotalCost:   normalize.NonNegative(totalCost),
	}
	m.CostPerKgRaw = safeDiv(m.TotalCost, m.TotalWeight)
	m.CostPerKgYield = safeDiv(m.TotalCost, m.YieldWeight)

	if finishing >= 0 {
		last := calc.Preparations[finishing]
		calc.FinishingPreparationID = last.PreparationID
		m.CubaWeight = normalize.NonNegative(last.Portioning.CubaWeight)
		m.CubaCost = normalize.NonNegative(last.Portioning.CubaCost)
		m.PortionCost = normalize.NonNegative(last.Portioning.PortionCost)
	}

	calc.Metrics = m
	return calc
}

func (c *RecipeCalculator) calculatePreparation(prep domain.Preparation, resolved map[string]float64, rc RecipeContext) PreparationResult {
	res := PreparationResult{
		PreparationID: prep.ID,
		Title:         prep.Title,
		Ingredients:   make([]IngredientResult, 0, len(prep.Ingredients)),
		SubComponents: make([]SubComponent, 0, len(prep.SubComponents)+len(prep.Ingredients)),
		Finishing:     prep.HasProcess(domain.ProcessPortioning) || prep.HasProcess(domain.ProcessAssembly),
	}

	hasLoss := false
	for _, p := range prep.Processes {
		if p.IsLossStage() {
			hasLoss = true
			break
		}
	}

	switch {
	case hasLoss:
		res.Mode = ModeLoss
	case res.Finishing:
		res.Mode = ModeAssembly
	default:
		res.Mode = ModeRaw
	}

	// 1. Ingredients. Assembly-only preparations take them at their declared
	// weight and raw price without measuring any stage.
	for _, ref := range prep.Ingredients {
		if res.Mode == ModeAssembly {
			res.SubComponents = append(res.SubComponents, SubComponent{
				Name:      ref.Name,
				Quantity:  DeclaredWeight(ref),
				CostPerKg: normalize.NonNegative(ref.RawPrice()),
			})
			continue
		}

		ing := computeIngredient(ref, prep.Processes)
		res.Ingredients = append(res.Ingredients, ing)

		res.RawWeight += ing.RawWeight
		res.YieldWeight += ing.YieldWeight
		res.TotalCost += ing.Cost
	}

	// 2. Sub-components. Those produced by an earlier preparation take its
	// fresh cost per kg and stay out of the recipe totals.
	for _, sc := range prep.SubComponents {
		res.SubComponents = append(res.SubComponents, resolveSubComponent(sc, resolved))
	}

	// 3. Assembly over everything that is not a measured ingredient
	res.Assembly = ComputeAssembly(res.SubComponents)
	res.RawWeight += res.Assembly.TotalWeight
	res.YieldWeight += res.Assembly.TotalWeight
	res.TotalCost += res.Assembly.TotalCost

	res.RawWeight = normalize.NonNegative(res.RawWeight)
	res.YieldWeight = normalize.NonNegative(res.YieldWeight)
	res.TotalCost = normalize.NonNegative(res.TotalCost)
	res.CostPerKgYield = safeDiv(res.TotalCost, res.YieldWeight)

	// 4. Share in the recipe totals
	internal := ComputeAssembly(internalOnly(res.SubComponents))
	res.contribRaw = normalize.NonNegative(res.RawWeight - internal.TotalWeight)
	res.contribYield = normalize.NonNegative(res.YieldWeight - internal.TotalWeight)
	res.contribCost = normalize.NonNegative(res.TotalCost - internal.TotalCost)

	// 5. Sellable units for the finishing preparation
	if res.Finishing {
		count := prep.PortionCount.Float()
		if count <= 0 {
			count = rc.Portions
		}
		res.Portioning = Portion(res.YieldWeight, res.TotalCost, PortionTarget{
			CubaWeight:    prep.CubaWeight.Float(),
			PortionCount:  count,
			PortionWeight: prep.PortionWeight.Float(),
		})
	}

	return res
}

// resolveSubComponent prices sc from an earlier preparation when PreparationID
// names one. A reference to the preparation itself, a later one or an unknown
// id stays external: it keeps its declared cost per kg and counts in the
// recipe totals (Validate warns about it).
func resolveSubComponent(sc domain.SubComponentRef, resolved map[string]float64) SubComponent {
	out := SubComponent{
		Name:      sc.Name,
		Quantity:  normalize.NonNegative(sc.Quantity.Float()),
		CostPerKg: normalize.NonNegative(sc.CostPerKg.Float()),
	}

	if sc.PreparationID == "" {
		return out
	}
	fresh, ok := resolved[sc.PreparationID]
	if !ok {
		return out
	}

	out.Internal = true
	if fresh > 0 {
		out.CostPerKg = fresh
	}
	return out
}

func internalOnly(components []SubComponent) []SubComponent {
	out := make([]SubComponent, 0, len(components))
	for _, c := range components {
		if c.Internal {
			out = append(out, c)
		}
	}
	return out
}
