// Package assumptions runs the diagnostics that parametric tests rely on.
// Results are advisory values: a failed check informs test selection and is
// reported to the caller, it never aborts an analysis.
package assumptions

import (
	"fmt"

	"scifig/domain/analysis"

	"github.com/rs/zerolog"
)

const (
	testShapiro = "Shapiro-Wilk"
	testLevene  = "Levene"
)

// DefaultAlpha is the significance level used when none is configured
const DefaultAlpha = 0.05

// ReasonTooLarge marks a normality check skipped because the sample exceeds
// MaxShapiroN; it is not a rejection
const ReasonTooLarge = "sample too large for Shapiro-Wilk; not assessed"

// Checker evaluates normality and variance homogeneity at a fixed alpha
type Checker struct {
	alpha  float64
	logger zerolog.Logger
}

// NewChecker creates a checker; alpha outside (0,1) falls back to DefaultAlpha
func NewChecker(alpha float64, logger zerolog.Logger) *Checker {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &Checker{alpha: alpha, logger: logger.With().Str("component", "assumptions").Logger()}
}

// CheckNormality runs Shapiro-Wilk; passed means p > alpha
func (c *Checker) CheckNormality(values []float64) analysis.AssumptionResult {
	result := analysis.AssumptionResult{Test: testShapiro}
	if len(values) < 3 {
		result.Reason = "insufficient data"
		return result
	}
	if len(values) > MaxShapiroN {
		result.Reason = ReasonTooLarge
		return result
	}

	w, p, err := ShapiroWilk(values)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	result.Statistic = analysis.Float(w)
	result.PValue = analysis.Float(p)
	result.Passed = p > c.alpha
	if !result.Passed {
		result.Reason = fmt.Sprintf("p = %.4f <= %.2f, normality rejected", p, c.alpha)
	}
	return result
}

// CheckEqualVariance runs median-centred Levene; passed means p > alpha
func (c *Checker) CheckEqualVariance(samples ...[]float64) analysis.AssumptionResult {
	result := analysis.AssumptionResult{Test: testLevene}
	if len(samples) < 2 {
		result.Reason = "insufficient data"
		return result
	}

	w, p, err := Levene(samples...)
	if err != nil {
		result.Reason = err.Error()
		return result
	}

	result.Statistic = analysis.Float(w)
	result.PValue = analysis.Float(p)
	result.Passed = p > c.alpha
	if !result.Passed {
		result.Reason = fmt.Sprintf("p = %.4f <= %.2f, variances differ", p, c.alpha)
	}
	return result
}

// CheckSamples runs normality per group plus equal variance across groups
func (c *Checker) CheckSamples(samples []analysis.Sample) analysis.Assumptions {
	results := make(analysis.Assumptions, len(samples)+1)
	values := make([][]float64, len(samples))

	for i, s := range samples {
		r := c.CheckNormality(s.Values)
		results[analysis.CheckNormalityPrefix+s.Label] = r
		values[i] = s.Values
		if !r.Passed {
			c.logger.Debug().Str("group", s.Label).Str("reason", r.Reason).Msg("normality not met")
		}
	}

	if len(samples) >= 2 {
		r := c.CheckEqualVariance(values...)
		results[analysis.CheckEqualVariance] = r
		if !r.Passed {
			c.logger.Debug().Str("reason", r.Reason).Msg("equal variance not met")
		}
	}

	return results
}
