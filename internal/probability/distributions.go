// Package probability wraps the gonum reference distributions behind the tail
// probabilities and critical values the engine needs.
package probability

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TwoSidedT returns the two-tailed p-value of a t statistic
func TwoSidedT(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return Clamp(2 * tDist.Survival(math.Abs(t)))
}

// TCritical returns the two-sided critical value for the given confidence
// level, e.g. 0.95 -> t_{0.975, df}
func TCritical(level, df float64) float64 {
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return tDist.Quantile(1 - (1-level)/2)
}

// FUpper returns P(F >= f) for F(d1, d2)
func FUpper(f, d1, d2 float64) float64 {
	if d1 <= 0 || d2 <= 0 || math.IsNaN(f) {
		return 1.0
	}
	if f <= 0 {
		return 1.0
	}
	fDist := distuv.F{D1: d1, D2: d2}
	return Clamp(fDist.Survival(f))
}

// ChiSquareUpper returns P(X >= x) for a chi-square with k degrees of freedom
func ChiSquareUpper(x, k float64) float64 {
	if k <= 0 || math.IsNaN(x) {
		return 1.0
	}
	if x <= 0 {
		return 1.0
	}
	chiDist := distuv.ChiSquared{K: k}
	return Clamp(chiDist.Survival(x))
}

// NormalUpper returns P(Z >= z) for the standard normal
func NormalUpper(z float64) float64 {
	return distuv.UnitNormal.Survival(z)
}

// TwoSidedNormal returns the two-tailed p-value of a z score
func TwoSidedNormal(z float64) float64 {
	return Clamp(2 * distuv.UnitNormal.Survival(math.Abs(z)))
}

// NormalQuantile is the inverse standard normal CDF
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// Clamp bounds a probability to [0, 1]
func Clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
