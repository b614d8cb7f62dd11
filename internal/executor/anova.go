package executor

import (
	"fmt"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/probability"
	"scifig/internal/profiling"

	"gonum.org/v1/gonum/stat"
)

// ANOVAResult is the raw output of a one-way ANOVA
type ANOVAResult struct {
	F          float64
	DFBetween  float64
	DFWithin   float64
	PValue     float64
	SSBetween  float64
	SSWithin   float64
	EtaSquared float64
}

// OneWayANOVA compares the means of k independent samples
func OneWayANOVA(samples ...[]float64) (ANOVAResult, error) {
	k := len(samples)
	if k < 2 {
		return ANOVAResult{}, errors.DataError("anova needs at least 2 groups, got %d", k)
	}

	var all []float64
	for i, s := range samples {
		if len(s) == 0 {
			return ANOVAResult{}, errors.DataError("anova group %d is empty", i+1)
		}
		all = append(all, s...)
	}
	n := len(all)
	if n <= k {
		return ANOVAResult{}, errors.DataError("anova needs more observations than groups")
	}

	grand := stat.Mean(all, nil)
	var res ANOVAResult
	for _, s := range samples {
		m := stat.Mean(s, nil)
		res.SSBetween += float64(len(s)) * (m - grand) * (m - grand)
		for _, v := range s {
			res.SSWithin += (v - m) * (v - m)
		}
	}

	res.DFBetween = float64(k - 1)
	res.DFWithin = float64(n - k)
	if res.SSWithin == 0 {
		return ANOVAResult{}, errors.ComputationError("anova undefined: zero within-group variance")
	}

	res.F = (res.SSBetween / res.DFBetween) / (res.SSWithin / res.DFWithin)
	res.PValue = probability.FUpper(res.F, res.DFBetween, res.DFWithin)
	res.EtaSquared = res.SSBetween / (res.SSBetween + res.SSWithin)
	return res, nil
}

func (e *Executor) anova(ds analysis.Dataset, assumptions analysis.Assumptions) (analysis.StatisticalResult, error) {
	if err := requireSamples(ds, "anova", 2, 0, 1); err != nil {
		return analysis.StatisticalResult{}, err
	}

	res, err := OneWayANOVA(sampleValues(ds.Samples)...)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	groups, err := describeGroups(ds.Samples, true)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	warnings := normalityWarnings(ds.Samples, assumptions)
	if ev, ok := assumptions.EqualVariance(); ok && !ev.Passed {
		warnings = append(warnings, fmt.Sprintf("Equal variance assumption not met (%s); consider Kruskal-Wallis", ev.Reason))
	}

	return analysis.StatisticalResult{
		Statistic: map[string]float64{"F": res.F, "df_between": res.DFBetween, "df_within": res.DFWithin},
		PValue:    analysis.Float(res.PValue),
		EffectSize: &analysis.EffectSize{
			Name:           "Eta squared",
			Value:          res.EtaSquared,
			Interpretation: InterpretVarianceExplained(res.EtaSquared),
		},
		Groups:         groups,
		GroupOrder:     groupOrder(ds.Samples),
		AssumptionsMet: analysis.Bool(len(warnings) == 0),
		Summary:        fmt.Sprintf("F(%.0f, %.0f) = %.3f, %s, η² = %.3f", res.DFBetween, res.DFWithin, res.F, formatP(res.PValue), res.EtaSquared),
		Warnings:       warnings,
	}, nil
}

// KruskalWallisResult is the raw output of a Kruskal-Wallis H test
type KruskalWallisResult struct {
	H             float64
	DF            float64
	PValue        float64
	EpsilonSquare float64
}

// KruskalWallis compares k independent samples by ranks, with tie correction
func KruskalWallis(samples ...[]float64) (KruskalWallisResult, error) {
	k := len(samples)
	if k < 2 {
		return KruskalWallisResult{}, errors.DataError("kruskal-wallis needs at least 2 groups, got %d", k)
	}
	n := 0
	for i, s := range samples {
		if len(s) == 0 {
			return KruskalWallisResult{}, errors.DataError("kruskal-wallis group %d is empty", i+1)
		}
		n += len(s)
	}

	rankSums, ties := rankSamples(samples...)
	fn := float64(n)
	h := 0.0
	for i, s := range samples {
		h += rankSums[i] * rankSums[i] / float64(len(s))
	}
	h = 12/(fn*(fn+1))*h - 3*(fn+1)

	correction := 1 - tieSum(ties)/(fn*fn*fn-fn)
	if correction <= 0 {
		return KruskalWallisResult{}, errors.ComputationError("kruskal-wallis undefined: all observations are tied")
	}
	h /= correction

	res := KruskalWallisResult{H: h, DF: float64(k - 1)}
	res.PValue = probability.ChiSquareUpper(h, res.DF)
	res.EpsilonSquare = h / (fn - 1)
	return res, nil
}

func (e *Executor) kruskalWallis(ds analysis.Dataset, _ analysis.Assumptions) (analysis.StatisticalResult, error) {
	if err := requireSamples(ds, "kruskal-wallis", 2, 0, 1); err != nil {
		return analysis.StatisticalResult{}, err
	}

	res, err := KruskalWallis(sampleValues(ds.Samples)...)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	groups, err := describeGroups(ds.Samples, false)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	return analysis.StatisticalResult{
		Statistic: map[string]float64{"H": res.H, "df": res.DF},
		PValue:    analysis.Float(res.PValue),
		EffectSize: &analysis.EffectSize{
			Name:           "Epsilon squared",
			Value:          res.EpsilonSquare,
			Interpretation: InterpretVarianceExplained(res.EpsilonSquare),
		},
		Groups:         groups,
		GroupOrder:     groupOrder(ds.Samples),
		AssumptionsMet: analysis.Bool(true),
		Summary:        fmt.Sprintf("H(%.0f) = %.3f, %s, ε² = %.3f", res.DF, res.H, formatP(res.PValue), res.EpsilonSquare),
	}, nil
}

func sampleValues(samples []analysis.Sample) [][]float64 {
	values := make([][]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Values
	}
	return values
}

func describeGroups(samples []analysis.Sample, parametric bool) (map[string]analysis.GroupSummary, error) {
	groups := make(map[string]analysis.GroupSummary, len(samples))
	for _, s := range samples {
		d, err := profiling.Describe(s.Values)
		if err != nil {
			return nil, err
		}
		if parametric {
			groups[s.Label] = d.Parametric()
		} else {
			groups[s.Label] = d.RankBased()
		}
	}
	return groups, nil
}
