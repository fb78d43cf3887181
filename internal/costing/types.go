// Package costing computes recipe weights, yields and costs from preparation data.
//
// Every function in this package is pure: no I/O, no shared state, and no
// panics on malformed input. Non-finite intermediates are folded to zero
// before they reach an aggregate.
package costing

import "github.com/andresuchdata/recipecost/internal/domain"

// RecipeContext carries the recipe-level fields the engine reads besides the
// preparations themselves.
type RecipeContext struct {
	Name     string
	Category string
	PrepTime float64 // minutes
	Portions float64 // default portion count for the finishing preparation
}

// ContextFromRecipe extracts the calculation context from a stored recipe.
func ContextFromRecipe(r *domain.Recipe) RecipeContext {
	if r == nil {
		return RecipeContext{}
	}
	return RecipeContext{
		Name:     r.Name,
		Category: r.Category,
		PrepTime: r.PrepTime,
		Portions: r.Portions,
	}
}

// PreparationMode tells which path a preparation took through the engine.
type PreparationMode string

const (
	ModeLoss     PreparationMode = "loss"     // at least one loss stage is active
	ModeAssembly PreparationMode = "assembly" // portioning and/or assembly only
	ModeRaw      PreparationMode = "raw"      // no recognised process
)

// StageResult is the outcome of a single process stage for one ingredient.
type StageResult struct {
	Process       domain.ProcessTag `json:"process"`
	InitialWeight float64           `json:"initial_weight"`
	FinalWeight   float64           `json:"final_weight"`
	LossKg        float64           `json:"loss_kg"`
	LossPercent   float64           `json:"loss_percent"`
	YieldPercent  float64           `json:"yield_percent"`
	// Measured is false when the final weight was not provided and the stage
	// was assumed lossless.
	Measured bool `json:"measured"`
}

// IngredientResult is the per-ingredient breakdown of a loss-path preparation.
type IngredientResult struct {
	RefID        string        `json:"ref_id"`
	IngredientID string        `json:"ingredient_id"`
	Name         string        `json:"name"`
	RawPrice     float64       `json:"raw_price"`
	RawWeight    float64       `json:"raw_weight"`
	YieldWeight  float64       `json:"yield_weight"`
	YieldPercent float64       `json:"yield_percent"`
	Cost         float64       `json:"cost"`
	CleanCost    float64       `json:"clean_cost"`
	Stages       []StageResult `json:"stages"`
}

// SubComponent is a normalized assembly input.
type SubComponent struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	CostPerKg float64 `json:"cost_per_kg"`
	// Internal marks inputs produced by an earlier preparation of the same
	// recipe; they are already counted in the recipe totals.
	Internal bool `json:"internal"`
}

// AssemblyResult holds the totals of an assembly.
type AssemblyResult struct {
	TotalWeight float64 `json:"total_weight"`
	TotalCost   float64 `json:"total_cost"`
	CostPerKg   float64 `json:"cost_per_kg"`
}

// PortionTarget describes how a finished batch is split into sellable units.
type PortionTarget struct {
	CubaWeight    float64
	PortionCount  float64
	PortionWeight float64
}

// Portioning is the sellable-unit pricing of a finished batch.
type Portioning struct {
	CubaWeight    float64 `json:"cuba_weight"`
	CubaCost      float64 `json:"cuba_cost"`
	PortionWeight float64 `json:"portion_weight"`
	PortionCost   float64 `json:"portion_cost"`
}

// PreparationResult is the computed view of one preparation.
type PreparationResult struct {
	PreparationID  string             `json:"preparation_id"`
	Title          string             `json:"title"`
	Mode           PreparationMode    `json:"mode"`
	Finishing      bool               `json:"finishing"`
	Ingredients    []IngredientResult `json:"ingredients"`
	SubComponents  []SubComponent     `json:"sub_components"`
	Assembly       AssemblyResult     `json:"assembly"`
	RawWeight      float64            `json:"raw_weight"`
	YieldWeight    float64            `json:"yield_weight"`
	TotalCost      float64            `json:"total_cost"`
	CostPerKgYield float64            `json:"cost_per_kg_yield"`
	Portioning     Portioning         `json:"portioning"`

	// share of this preparation in the recipe totals
	contribRaw   float64
	contribYield float64
	contribCost  float64
}

// Calculation is the full engine output for a recipe.
type Calculation struct {
	Metrics      domain.RecipeMetrics `json:"metrics"`
	Preparations []PreparationResult  `json:"preparations"`
	// FinishingPreparationID is empty when no preparation is tagged
	// portioning or assembly.
	FinishingPreparationID string `json:"finishing_preparation_id"`
}

// ValidationOptions configures the advisory checks.
type ValidationOptions struct {
	// PriceCeiling flags prices above it as suspicious. Zero disables the check.
	PriceCeiling float64
}

// DefaultPriceCeiling is used when no ceiling is configured.
const DefaultPriceCeiling = 1000.0

// ValidationResult lists every violation found. Errors make IsValid false;
// Warnings never do.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
