package executor

import (
	"fmt"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/survival"
)

// SingleGroupLabel labels the curve of ungrouped survival data
const SingleGroupLabel = "All"

func (e *Executor) survival(ds analysis.Dataset, _ analysis.Assumptions) (analysis.StatisticalResult, error) {
	series := ds.Survival
	if series.Len() == 0 {
		return analysis.StatisticalResult{}, errors.DataError("survival analysis requires a validated time/event series")
	}
	if !series.Validation.Valid {
		return analysis.StatisticalResult{}, errors.DataError("survival series failed validation: %v", series.Validation.Warnings)
	}

	type split struct {
		times  []float64
		events []int
	}
	var order []string
	byGroup := make(map[string]*split)
	for i := range series.Time {
		label := SingleGroupLabel
		if len(series.Groups) > 0 {
			label = series.Groups[i]
		}
		g, ok := byGroup[label]
		if !ok {
			g = &split{}
			byGroup[label] = g
			order = append(order, label)
		}
		g.times = append(g.times, series.Time[i])
		g.events = append(g.events, series.Event[i])
	}

	summary := &analysis.SurvivalSummary{
		Groups:     make(map[string]analysis.SurvivalGroup, len(order)),
		GroupOrder: order,
		Validation: series.Validation,
		Encoding:   series.Encoding,

		EncodingAmbiguous: series.EncodingAmbiguous,
	}
	groups := make(map[string]analysis.GroupSummary, len(order))
	for _, label := range order {
		fit, err := survival.KaplanMeier(byGroup[label].times, byGroup[label].events)
		if err != nil {
			return analysis.StatisticalResult{}, err
		}
		summary.Groups[label] = fit
		groups[label] = analysis.GroupSummary{N: fit.N, Median: fit.MedianSurvival}
	}

	result := analysis.StatisticalResult{
		TestName:   "Kaplan-Meier survival analysis",
		Statistic:  map[string]float64{},
		Groups:     groups,
		GroupOrder: order,
		Survival:   summary,
		Warnings:   append([]string{}, series.Warnings...),
	}

	switch len(order) {
	case 2:
		a, b := byGroup[order[0]], byGroup[order[1]]
		lr, err := survival.LogRank(a.times, a.events, b.times, b.events)
		if err != nil {
			return analysis.StatisticalResult{}, err
		}
		result.TestName = "Kaplan-Meier with log-rank test"
		result.Statistic["chi2"] = lr.ChiSquare
		result.Statistic["df"] = float64(lr.DF)
		result.PValue = analysis.Float(lr.PValue)
		result.AssumptionsMet = analysis.Bool(true)
		result.Summary = fmt.Sprintf("Log-rank test: χ²(%d) = %.3f, %s", lr.DF, lr.ChiSquare, formatP(lr.PValue))
	case 1:
		result.Summary = "Single group analysis"
		result.Interpretation = "No comparison performed"
	default:
		result.Summary = fmt.Sprintf("%d-group analysis", len(order))
		result.Interpretation = "No comparison performed"
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Log-rank comparison is computed for exactly 2 groups; no omnibus test for %d groups", len(order)))
	}

	for _, label := range order {
		if summary.Groups[label].MedianSurvival == nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Median survival not reached for group %s", label))
		}
	}

	return result, nil
}
