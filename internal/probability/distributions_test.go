package probability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTailProbabilities(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"two-sided t at zero", TwoSidedT(0, 10), 1},
		{"two-sided t, df 38", TwoSidedT(2.024, 38), 0.05},
		{"t critical 95%, df 38", TCritical(0.95, 38), 2.024},
		{"chi-square 3.841, df 1", ChiSquareUpper(3.841, 1), 0.05},
		{"F 4.0, df 1,38", FUpper(4.098, 1, 38), 0.05},
		{"normal 1.96 two-sided", TwoSidedNormal(1.959964), 0.05},
		{"normal upper 0", NormalUpper(0), 0.5},
		{"normal quantile 0.975", NormalQuantile(0.975), 1.959964},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-3)
		})
	}
}

func TestDegenerateInputs(t *testing.T) {
	assert.Equal(t, 1.0, TwoSidedT(math.NaN(), 5))
	assert.Equal(t, 1.0, TwoSidedT(2, 0))
	assert.Equal(t, 1.0, FUpper(0, 2, 10))
	assert.Equal(t, 1.0, ChiSquareUpper(-1, 1))
	assert.Equal(t, 0.0, Clamp(-0.1))
	assert.Equal(t, 1.0, Clamp(1.2))
}
