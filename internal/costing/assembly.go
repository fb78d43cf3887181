package costing

import (
	"github.com/andresuchdata/recipecost/internal/normalize"
)

// ComputeAssembly sums the weight and cost of the given inputs. Negative or
// non-finite quantities and prices count as zero.
func ComputeAssembly(components []SubComponent) AssemblyResult {
	var result AssemblyResult

	for _, c := range components {
		qty := normalize.NonNegative(c.Quantity)
		price := normalize.NonNegative(c.CostPerKg)

		result.TotalWeight += qty
		result.TotalCost += qty * price
	}

	result.TotalWeight = normalize.NonNegative(result.TotalWeight)
	result.TotalCost = normalize.NonNegative(result.TotalCost)
	result.CostPerKg = safeDiv(result.TotalCost, result.TotalWeight)

	return result
}

// Portion prices a finished batch of totalWeight kg costing totalCost.
//
// The cuba is the target CubaWeight when set, otherwise the whole batch. The
// portion cost splits the batch by PortionCount when set, falls back to
// PortionWeight at the batch cost per kg, and is zero when neither is known.
func Portion(totalWeight, totalCost float64, target PortionTarget) Portioning {
	weight := normalize.NonNegative(totalWeight)
	cost := normalize.NonNegative(totalCost)
	costPerKg := safeDiv(cost, weight)

	var p Portioning

	// 1. Cuba
	if cw := normalize.NonNegative(target.CubaWeight); cw > 0 {
		p.CubaWeight = cw
		p.CubaCost = costPerKg * cw
	} else {
		p.CubaWeight = weight
		p.CubaCost = cost
	}

	// 2. Portion
	switch {
	case normalize.NonNegative(target.PortionCount) > 0:
		p.PortionWeight = safeDiv(weight, target.PortionCount)
		p.PortionCost = safeDiv(cost, target.PortionCount)
	case normalize.NonNegative(target.PortionWeight) > 0:
		p.PortionWeight = target.PortionWeight
		p.PortionCost = costPerKg * target.PortionWeight
	}

	return p
}
