package costing

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/recipecost/internal/domain"
)

// Validate checks a recipe for data that would make its costing meaningless.
// It never stops at the first problem and never blocks calculation.
func Validate(rc RecipeContext, preps []domain.Preparation, opts ValidationOptions) ValidationResult {
	v := &validator{}

	if strings.TrimSpace(rc.Name) == "" {
		v.errorf("recipe name is required")
	}
	if strings.TrimSpace(rc.Category) == "" {
		v.errorf("recipe category is required")
	}
	if len(preps) == 0 {
		v.errorf("recipe must have at least one preparation")
	} else if !hasInputs(preps) {
		v.errorf("recipe must have at least one ingredient or sub-component")
	}
	if rc.PrepTime < 0 {
		v.errorf("prep time must not be negative")
	}
	if rc.Portions < 0 {
		v.errorf("portions must not be negative")
	}

	seen := make(map[string]int, len(preps))
	for i, prep := range preps {
		label := preparationLabel(i, prep)

		if prep.ID != "" {
			if first, dup := seen[prep.ID]; dup {
				v.errorf("%s: duplicate preparation id %q (first used by preparation %d)", label, prep.ID, first+1)
			} else {
				seen[prep.ID] = i
			}
		}

		for _, p := range prep.Processes {
			if _, known := domain.ParseProcessTag(string(p)); !known {
				v.warnf("%s: unknown process %q is ignored", label, p)
			}
		}

		if len(prep.Ingredients) == 0 && len(prep.SubComponents) == 0 {
			v.warnf("%s: has no ingredients or sub-components", label)
		}

		for _, ref := range prep.Ingredients {
			v.checkIngredient(label, ref, prep.Processes, opts)
		}
		for _, sc := range prep.SubComponents {
			v.checkSubComponent(label, i, sc, seen, opts)
		}

		v.checkFinishing(label, prep)
	}

	return v.result()
}

type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) result() ValidationResult {
	res := ValidationResult{
		Errors:   v.errors,
		Warnings: v.warnings,
	}
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

func (v *validator) checkIngredient(label string, ref domain.IngredientRef, processes []domain.ProcessTag, opts ValidationOptions) {
	name := ref.Name
	if strings.TrimSpace(name) == "" {
		v.errorf("%s: ingredient %q has no name", label, ref.ID)
		name = ref.ID
	}

	v.checkPrice(fmt.Sprintf("%s: ingredient %q", label, name), "price", ref.CurrentPrice.Float(), opts)
	if ref.RawPriceKg.IsSet() {
		v.checkPrice(fmt.Sprintf("%s: ingredient %q", label, name), "raw price", ref.RawPriceKg.Float(), opts)
	}

	weights := []struct {
		field string
		value float64
	}{
		{"weight_frozen", ref.WeightFrozen.Float()},
		{"weight_thawed", ref.WeightThawed.Float()},
		{"weight_raw", ref.WeightRaw.Float()},
		{"weight_clean", ref.WeightClean.Float()},
		{"weight_pre_cooking", ref.WeightPreCooking.Float()},
		{"weight_cooked", ref.WeightCooked.Float()},
		{"weight_portioned", ref.WeightPortioned.Float()},
	}
	for _, w := range weights {
		if w.value < 0 {
			v.errorf("%s: ingredient %q has negative %s", label, name, w.field)
		}
	}

	// a stage should never end heavier than it started
	active := make(map[domain.ProcessTag]bool, len(processes))
	for _, p := range processes {
		active[p] = true
	}
	for _, def := range canonicalStages {
		if !active[def.process] || def.initial == nil {
			continue
		}
		initial, final := def.initial(ref), def.final(ref)
		if initial > 0 && final > initial {
			v.warnf("%s: ingredient %q gains weight during %s (%.3f kg -> %.3f kg)",
				label, name, strings.ToLower(def.process.Label()), initial, final)
		}
	}
}

func (v *validator) checkSubComponent(label string, index int, sc domain.SubComponentRef, seen map[string]int, opts ValidationOptions) {
	name := sc.Name
	if strings.TrimSpace(name) == "" {
		name = sc.ID
	}

	if sc.Quantity.Float() < 0 {
		v.errorf("%s: sub-component %q has negative quantity", label, name)
	}
	v.checkPrice(fmt.Sprintf("%s: sub-component %q", label, name), "cost per kg", sc.CostPerKg.Float(), opts)

	if sc.PreparationID != "" {
		if at, ok := seen[sc.PreparationID]; !ok || at >= index {
			v.warnf("%s: sub-component %q refers to preparation %q which does not come before it", label, name, sc.PreparationID)
		}
	}
}

func (v *validator) checkPrice(subject, field string, price float64, opts ValidationOptions) {
	if price < 0 {
		v.errorf("%s has negative %s", subject, field)
		return
	}
	if opts.PriceCeiling > 0 && price > opts.PriceCeiling {
		v.errorf("%s has suspicious %s %.2f (above %.2f)", subject, field, price, opts.PriceCeiling)
	}
}

func (v *validator) checkFinishing(label string, prep domain.Preparation) {
	finishing := prep.HasProcess(domain.ProcessPortioning) || prep.HasProcess(domain.ProcessAssembly)

	targets := []struct {
		field string
		value float64
	}{
		{"cuba weight", prep.CubaWeight.Float()},
		{"portion count", prep.PortionCount.Float()},
		{"portion weight", prep.PortionWeight.Float()},
	}
	for _, t := range targets {
		if t.value < 0 {
			v.errorf("%s: %s must not be negative", label, t.field)
		} else if t.value > 0 && !finishing {
			v.warnf("%s: %s is ignored without portioning or assembly", label, t.field)
		}
	}
}

func hasInputs(preps []domain.Preparation) bool {
	for _, p := range preps {
		if len(p.Ingredients) > 0 || len(p.SubComponents) > 0 {
			return true
		}
	}
	return false
}

func preparationLabel(i int, prep domain.Preparation) string {
	if prep.Title != "" {
		return fmt.Sprintf("preparation %d (%s)", i+1, prep.Title)
	}
	return fmt.Sprintf("preparation %d", i+1)
}
