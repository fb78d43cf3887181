package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrRecipeNotFound     = errors.New("recipe not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrInvalidPrice       = errors.New("price must be a finite non-negative number")
)

// Unit is the base unit an ingredient is bought in.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPiece      Unit = "unit"
)

// Ingredient is a purchasable raw material with its current price per base unit.
type Ingredient struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Unit       Unit      `json:"unit" db:"unit"`
	PricePerKg float64   `json:"price_per_kg" db:"price_per_kg"`
	Brand      string    `json:"brand" db:"brand"`
	Supplier   string    `json:"supplier" db:"supplier"`
	Category   string    `json:"category" db:"category"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// PriceSource records what triggered a price change.
type PriceSource string

const (
	PriceSourceManual      PriceSource = "manual"
	PriceSourceImport      PriceSource = "import"
	PriceSourcePropagation PriceSource = "propagation"
	PriceSourceCLI         PriceSource = "cli"
)

// PriceHistory is an immutable log entry written once per price change.
type PriceHistory struct {
	ID            string      `json:"id" db:"id"`
	IngredientID  string      `json:"ingredient_id" db:"ingredient_id"`
	OldPrice      float64     `json:"old_price" db:"old_price"`
	NewPrice      float64     `json:"new_price" db:"new_price"`
	ChangePercent float64     `json:"change_percent" db:"change_percent"`
	Supplier      string      `json:"supplier" db:"supplier"`
	Brand         string      `json:"brand" db:"brand"`
	Source        PriceSource `json:"source" db:"source"`
	ChangedAt     time.Time   `json:"changed_at" db:"changed_at"`
}

// IngredientRef is a denormalized copy of an ingredient inside a preparation,
// plus the weights measured at each process stage.
type IngredientRef struct {
	// ID is the legacy composite id "<ingredientID>_<timestamp>".
	ID           string `json:"id"`
	IngredientID string `json:"ingredient_id,omitempty"`
	Name         string `json:"name"`
	Unit         Unit   `json:"unit,omitempty"`

	CurrentPrice Amount `json:"current_price"`
	RawPriceKg   Amount `json:"raw_price_kg"`

	WeightFrozen     Amount `json:"weight_frozen"`
	WeightThawed     Amount `json:"weight_thawed"`
	WeightRaw        Amount `json:"weight_raw"`
	WeightClean      Amount `json:"weight_clean"`
	WeightPreCooking Amount `json:"weight_pre_cooking"`
	WeightCooked     Amount `json:"weight_cooked"`
	WeightPortioned  Amount `json:"weight_portioned"`
}

// RawPrice is the price per kg before any processing loss.
func (r IngredientRef) RawPrice() float64 {
	if p := r.RawPriceKg.Float(); p > 0 {
		return p
	}
	return r.CurrentPrice.Float()
}

// ResolvedIngredientID returns the referenced ingredient id. Refs written
// before IngredientID existed only carry the composite id, so the trailing
// "_<digits>" suffix is stripped from it.
func (r IngredientRef) ResolvedIngredientID() string {
	if r.IngredientID != "" {
		return r.IngredientID
	}

	idx := strings.LastIndexByte(r.ID, '_')
	if idx <= 0 || idx == len(r.ID)-1 {
		return r.ID
	}
	for _, c := range r.ID[idx+1:] {
		if c < '0' || c > '9' {
			return r.ID
		}
	}
	return r.ID[:idx]
}

// References reports whether the ref points at ingredientID. Matching is exact.
func (r IngredientRef) References(ingredientID string) bool {
	return ingredientID != "" && r.ResolvedIngredientID() == ingredientID
}

// SubComponentRef is a prepared item used as an input to an assembly.
// PreparationID points at an earlier preparation of the same recipe;
// RecipeID points at another recipe whose cost was computed elsewhere.
type SubComponentRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RecipeID      string `json:"recipe_id,omitempty"`
	PreparationID string `json:"preparation_id,omitempty"`
	Quantity      Amount `json:"quantity"`
	CostPerKg     Amount `json:"cost_per_kg"`
}

// Preparation is one stage group of a recipe.
type Preparation struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Processes     []ProcessTag      `json:"processes"`
	Ingredients   []IngredientRef   `json:"ingredients"`
	SubComponents []SubComponentRef `json:"sub_components,omitempty"`
	Instructions  string            `json:"instructions,omitempty"`

	CubaSize      string `json:"cuba_size,omitempty"`
	CubaWeight    Amount `json:"cuba_weight,omitempty"`
	PortionCount  Amount `json:"portion_count,omitempty"`
	PortionWeight Amount `json:"portion_weight,omitempty"`
}

// HasProcess reports whether tag is active on the preparation.
func (p Preparation) HasProcess(tag ProcessTag) bool {
	for _, t := range p.Processes {
		if t == tag {
			return true
		}
	}
	return false
}

// Preparations is the JSONB document column holding a recipe's preparations.
type Preparations []Preparation

// Value encodes the preparations as JSON text for the jsonb column.
func (p Preparations) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *Preparations) Scan(value interface{}) error {
	if value == nil {
		*p = Preparations{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported type for Preparations")
	}
}

// RecipeMetrics are the derived aggregates of a recipe. They are a cache of
// the engine output over Preparations and must be recomputed on every change.
type RecipeMetrics struct {
	TotalWeight    float64 `json:"total_weight" db:"total_weight"`
	YieldWeight    float64 `json:"yield_weight" db:"yield_weight"`
	CostPerKgRaw   float64 `json:"cost_per_kg_raw" db:"cost_per_kg_raw"`
	CostPerKgYield float64 `json:"cost_per_kg_yield" db:"cost_per_kg_yield"`
	CubaWeight     float64 `json:"cuba_weight" db:"cuba_weight"`
	CubaCost       float64 `json:"cuba_cost" db:"cuba_cost"`
	TotalCost      float64 `json:"total_cost" db:"total_cost"`
	PortionCost    float64 `json:"portion_cost" db:"portion_cost"`
}

// Recipe is a sellable item built from an ordered list of preparations.
type Recipe struct {
	ID            string       `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Category      string       `json:"category" db:"category"`
	PrepTime      float64      `json:"prep_time" db:"prep_time"`
	Portions      float64      `json:"portions" db:"portions"`
	Preparations  Preparations `json:"preparations" db:"preparations"`
	IngredientIDs []string     `json:"ingredient_ids" db:"-"`
	RecipeMetrics
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReferencedIngredientIDs collects the distinct ingredient ids used by the
// recipe, in first-seen order.
func (r *Recipe) ReferencedIngredientIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, prep := range r.Preparations {
		for _, ref := range prep.Ingredients {
			id := ref.ResolvedIngredientID()
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// References reports whether any preparation uses ingredientID.
func (r *Recipe) References(ingredientID string) bool {
	for _, prep := range r.Preparations {
		for _, ref := range prep.Ingredients {
			if ref.References(ingredientID) {
				return true
			}
		}
	}
	return false
}

// RecipeFilter narrows recipe listings.
type RecipeFilter struct {
	Category string `json:"category"`
	Search   string `json:"search"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// IngredientFilter narrows ingredient listings.
type IngredientFilter struct {
	Category        string `json:"category"`
	Search          string `json:"search"`
	IncludeInactive bool   `json:"include_inactive"`
}
