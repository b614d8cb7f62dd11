package executor

import (
	"fmt"
	"math"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/probability"

	"gonum.org/v1/gonum/stat"
)

// TTestResult is the raw output of an independent-samples t-test
type TTestResult struct {
	T        float64
	DF       float64
	PValue   float64
	MeanDiff float64
	SE       float64
	CohensD  float64
	Pooled   bool
}

// TTest compares two independent samples. pooled selects Student's
// equal-variance form; otherwise Welch's form is used. Cohen's d always uses
// the pooled standard deviation.
func TTest(a, b []float64, pooled bool) (TTestResult, error) {
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, errors.DataError("t-test needs at least 2 observations per group")
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	res := TTestResult{MeanDiff: m1 - m2, Pooled: pooled}
	pooledVar := ((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2)

	if pooled {
		res.DF = n1 + n2 - 2
		res.SE = math.Sqrt(pooledVar * (1/n1 + 1/n2))
	} else {
		q1, q2 := v1/n1, v2/n2
		res.SE = math.Sqrt(q1 + q2)
		res.DF = (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	}

	if res.SE == 0 || pooledVar == 0 {
		return TTestResult{}, errors.ComputationError("t-test undefined: both groups have zero variance")
	}

	res.T = res.MeanDiff / res.SE
	res.PValue = probability.TwoSidedT(res.T, res.DF)
	res.CohensD = res.MeanDiff / math.Sqrt(pooledVar)
	return res, nil
}

func (e *Executor) tTest(ds analysis.Dataset, assumptions analysis.Assumptions) (analysis.StatisticalResult, error) {
	if err := requireSamples(ds, "t-test", 2, 2, 2); err != nil {
		return analysis.StatisticalResult{}, err
	}
	a, b := ds.Samples[0], ds.Samples[1]

	var warnings []string
	equalVar, checked := assumptions.EqualVariance()
	pooled := checked && equalVar.Passed
	if !checked {
		warnings = append(warnings, "Equal variance was not assessed; using Welch's t-test")
	}

	res, err := TTest(a.Values, b.Values, pooled)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	name := "Welch's t-test"
	if pooled {
		name = "Student's t-test"
	}

	crit := probability.TCritical(e.confidence, res.DF)
	groups, err := describeGroups(ds.Samples, true)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	warnings = append(warnings, normalityWarnings(ds.Samples, assumptions)...)

	return analysis.StatisticalResult{
		TestName:  name,
		Statistic: map[string]float64{"t": res.T, "df": res.DF},
		PValue:    analysis.Float(res.PValue),
		EffectSize: &analysis.EffectSize{
			Name:           "Cohen's d",
			Value:          res.CohensD,
			Interpretation: InterpretCohensD(res.CohensD),
		},
		ConfidenceInterval: &analysis.Interval{
			Low:   res.MeanDiff - crit*res.SE,
			High:  res.MeanDiff + crit*res.SE,
			Level: e.confidence,
		},
		Groups:         groups,
		GroupOrder:     groupOrder(ds.Samples),
		AssumptionsMet: analysis.Bool(len(warnings) == 0),
		Summary:        fmt.Sprintf("t(%s) = %.3f, %s, d = %.2f", formatDF(res.DF), res.T, formatP(res.PValue), res.CohensD),
		Warnings:       warnings,
	}, nil
}

// formatDF prints integral degrees of freedom without decimals
func formatDF(df float64) string {
	if df == math.Trunc(df) {
		return fmt.Sprintf("%.0f", df)
	}
	return fmt.Sprintf("%.2f", df)
}
