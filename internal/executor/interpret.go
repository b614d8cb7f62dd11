package executor

import "math"

// InterpretPValue maps a p-value to a plain-language significance band
func InterpretPValue(p float64) string {
	switch {
	case p < 0.001:
		return "Highly significant (p < 0.001)"
	case p < 0.01:
		return "Very significant (p < 0.01)"
	case p < 0.05:
		return "Significant (p < 0.05)"
	default:
		return "Not significant (p ≥ 0.05)"
	}
}

// band thresholds: |value| < small is negligible, < medium small, < large
// medium, otherwise large
type band struct {
	small, medium, large float64
}

var (
	cohenBands        = band{0.2, 0.5, 0.8}
	correlationBands  = band{0.1, 0.3, 0.5}
	varianceExplained = band{0.01, 0.06, 0.14}
)

func (b band) classify(v float64) string {
	a := math.Abs(v)
	switch {
	case a < b.small:
		return "negligible"
	case a < b.medium:
		return "small"
	case a < b.large:
		return "medium"
	default:
		return "large"
	}
}

// InterpretCohensD classifies a standardized mean difference
func InterpretCohensD(d float64) string {
	return cohenBands.classify(d)
}

// InterpretCorrelation classifies rank-biserial r and Cramér's V
func InterpretCorrelation(r float64) string {
	return correlationBands.classify(r)
}

// InterpretVarianceExplained classifies eta-squared and epsilon-squared
func InterpretVarianceExplained(v float64) string {
	return varianceExplained.classify(v)
}
