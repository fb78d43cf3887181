package costing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAssembly(t *testing.T) {
	got := ComputeAssembly([]SubComponent{
		{Name: "a", Quantity: 2, CostPerKg: 10},
		{Name: "b", Quantity: 3, CostPerKg: 20},
	})

	assert.InDelta(t, 5, got.TotalWeight, eps)
	assert.InDelta(t, 80, got.TotalCost, eps)
	assert.InDelta(t, 16, got.CostPerKg, eps)
}

func TestComputeAssemblyEmptyAndMalformed(t *testing.T) {
	assert.Equal(t, AssemblyResult{}, ComputeAssembly(nil))

	got := ComputeAssembly([]SubComponent{
		{Quantity: math.NaN(), CostPerKg: 10},
		{Quantity: -2, CostPerKg: 10},
		{Quantity: 1, CostPerKg: math.Inf(1)},
	})
	assert.Equal(t, AssemblyResult{TotalWeight: 1}, got)
}

func TestPortion(t *testing.T) {
	tests := []struct {
		name   string
		target PortionTarget
		want   Portioning
	}{
		{
			name:   "whole batch without targets",
			target: PortionTarget{},
			want:   Portioning{CubaWeight: 5, CubaCost: 80},
		},
		{
			name:   "cuba weight and portion count",
			target: PortionTarget{CubaWeight: 2, PortionCount: 10},
			want:   Portioning{CubaWeight: 2, CubaCost: 32, PortionWeight: 0.5, PortionCost: 8},
		},
		{
			name:   "portion weight fallback",
			target: PortionTarget{PortionWeight: 0.25},
			want:   Portioning{CubaWeight: 5, CubaCost: 80, PortionWeight: 0.25, PortionCost: 4},
		},
		{
			name:   "count wins over weight",
			target: PortionTarget{PortionCount: 4, PortionWeight: 0.25},
			want:   Portioning{CubaWeight: 5, CubaCost: 80, PortionWeight: 1.25, PortionCost: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Portion(5, 80, tt.target)

			assert.InDelta(t, tt.want.CubaWeight, got.CubaWeight, eps)
			assert.InDelta(t, tt.want.CubaCost, got.CubaCost, eps)
			assert.InDelta(t, tt.want.PortionWeight, got.PortionWeight, eps)
			assert.InDelta(t, tt.want.PortionCost, got.PortionCost, eps)
		})
	}
}

func TestPortionEmptyBatch(t *testing.T) {
	got := Portion(0, 0, PortionTarget{CubaWeight: 2, PortionWeight: 0.3})

	assert.Equal(t, 2.0, got.CubaWeight)
	assert.Equal(t, 0.0, got.CubaCost)
	assert.Equal(t, 0.0, got.PortionCost)
}
