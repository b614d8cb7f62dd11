// Package executor computes test statistics, p-values, effect sizes and
// confidence intervals for a chosen test on a prepared dataset.
package executor

import (
	"fmt"
	"sort"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/profiling"

	"github.com/rs/zerolog"
)

// DefaultConfidence is the interval level used when none is configured
const DefaultConfidence = 0.95

// runner executes one test kind
type runner func(e *Executor, ds analysis.Dataset, assumptions analysis.Assumptions) (analysis.StatisticalResult, error)

// runners is the dispatch table; it is never mutated after init
var runners = map[analysis.TestKind]runner{
	analysis.TestTTest:         (*Executor).tTest,
	analysis.TestMannWhitney:   (*Executor).mannWhitney,
	analysis.TestOneWayANOVA:   (*Executor).anova,
	analysis.TestKruskalWallis: (*Executor).kruskalWallis,
	analysis.TestChiSquare:     (*Executor).chiSquare,
	analysis.TestFisherExact:   (*Executor).fisherExact,
	analysis.TestSurvival:      (*Executor).survival,
}

// Executor runs statistical tests. It is stateless apart from configuration.
type Executor struct {
	confidence float64
	logger     zerolog.Logger
}

// NewExecutor creates an executor; a confidence level outside (0,1) falls
// back to DefaultConfidence
func NewExecutor(confidence float64, logger zerolog.Logger) *Executor {
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}
	return &Executor{confidence: confidence, logger: logger.With().Str("component", "executor").Logger()}
}

// Supports reports whether a test kind can be executed
func Supports(kind analysis.TestKind) bool {
	_, ok := runners[kind]
	return ok
}

// Execute runs exactly the requested test. Assumptions may be nil; the
// t-test then uses the Welch variant.
func (e *Executor) Execute(kind analysis.TestKind, ds analysis.Dataset, assumptions analysis.Assumptions) (analysis.StatisticalResult, error) {
	run, ok := runners[kind]
	if !ok {
		return analysis.StatisticalResult{}, errors.UnsupportedTest(string(kind))
	}

	result, err := run(e, ds, assumptions)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	result.Test = kind
	if result.TestName == "" {
		result.TestName = kind.DisplayName()
	}
	if result.PValue != nil && result.Interpretation == "" {
		result.Interpretation = InterpretPValue(*result.PValue)
	}

	if err := checkFinite(result); err != nil {
		return analysis.StatisticalResult{}, err
	}

	e.logger.Debug().
		Str("test", string(kind)).
		Interface("statistic", result.Statistic).
		Msg("test executed")

	return result, nil
}

// checkFinite rejects results carrying NaN or infinite numbers
func checkFinite(r analysis.StatisticalResult) error {
	keys := make([]string, 0, len(r.Statistic))
	for k := range r.Statistic {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !profiling.Finite(r.Statistic[k]) {
			return errors.ComputationError("%s: statistic %s is not finite", r.TestName, k)
		}
	}
	if r.PValue != nil && !profiling.Finite(*r.PValue) {
		return errors.ComputationError("%s: p-value is not finite", r.TestName)
	}
	if r.EffectSize != nil && !profiling.Finite(r.EffectSize.Value) {
		return errors.ComputationError("%s: %s is not finite", r.TestName, r.EffectSize.Name)
	}
	if ci := r.ConfidenceInterval; ci != nil && !profiling.Finite(ci.Low, ci.High) {
		return errors.ComputationError("%s: confidence interval is not finite", r.TestName)
	}
	for label, g := range r.Groups {
		for _, v := range []*float64{g.Mean, g.Std, g.SEM, g.Median, g.IQR} {
			if v != nil && !profiling.Finite(*v) {
				return errors.ComputationError("%s: summary of group %s is not finite", r.TestName, label)
			}
		}
	}
	return nil
}

// requireSamples checks the group count and a minimum size per group
func requireSamples(ds analysis.Dataset, test string, minGroups, maxGroups, minSize int) error {
	k := len(ds.Samples)
	if k < minGroups || (maxGroups > 0 && k > maxGroups) {
		if minGroups == maxGroups {
			return errors.DataError("%s requires exactly %d groups, got %d", test, minGroups, k)
		}
		return errors.DataError("%s requires at least %d groups, got %d", test, minGroups, k)
	}
	for _, s := range ds.Samples {
		if len(s.Values) < minSize {
			return errors.DataError("%s requires at least %d observations in group %q, got %d", test, minSize, s.Label, len(s.Values))
		}
	}
	return nil
}

func groupOrder(samples []analysis.Sample) []string {
	order := make([]string, len(samples))
	for i, s := range samples {
		order[i] = s.Label
	}
	return order
}

// normalityWarnings surfaces failed normality checks next to a parametric result
func normalityWarnings(samples []analysis.Sample, assumptions analysis.Assumptions) []string {
	var warnings []string
	for _, s := range samples {
		r, ok := assumptions[analysis.CheckNormalityPrefix+s.Label]
		if !ok || r.Passed {
			continue
		}
		if r.PValue != nil {
			warnings = append(warnings, fmt.Sprintf("Normality assumption not met for group %s (%s p = %.4f)", s.Label, r.Test, *r.PValue))
		} else {
			warnings = append(warnings, fmt.Sprintf("Normality could not be assessed for group %s: %s", s.Label, r.Reason))
		}
	}
	return warnings
}

// formatP renders a p-value for summaries
func formatP(p float64) string {
	if p < 0.001 {
		return "p < .001"
	}
	return fmt.Sprintf("p = %.3f", p)
}
