package executor

import (
	"fmt"
	"math"
	"sort"

	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/probability"
	"scifig/internal/profiling"

	"gonum.org/v1/gonum/stat/combin"
)

// MinExpectedCount is the smallest expected cell count for which the
// chi-square approximation is considered reliable
const MinExpectedCount = 5.0

// ContingencyTable builds a groups x outcome-category count table. Rows follow
// the group order; columns are the outcome categories sorted (numerically
// when every label is a number).
func ContingencyTable(categories []analysis.CategorySample) (table [][]int, rows, cols []string) {
	seen := make(map[string]bool)
	for _, g := range categories {
		rows = append(rows, g.Label)
		for _, v := range g.Values {
			if !seen[v] {
				seen[v] = true
				cols = append(cols, v)
			}
		}
	}
	sortLabels(cols)

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}

	table = make([][]int, len(categories))
	for i, g := range categories {
		table[i] = make([]int, len(cols))
		for _, v := range g.Values {
			table[i][index[v]]++
		}
	}
	return table, rows, cols
}

func sortLabels(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, aok := profiling.ToFloat(labels[i])
		b, bok := profiling.ToFloat(labels[j])
		if aok && bok {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return labels[i] < labels[j]
	})
}

// ChiSquareResult is the raw output of a chi-square test of independence
type ChiSquareResult struct {
	ChiSquare   float64
	DF          int
	PValue      float64
	CramersV    float64
	Expected    [][]float64
	Corrected   bool
	MinExpected float64
}

// ChiSquare tests independence on an r x c table. A 2x2 table (df = 1) gets
// the Yates continuity correction.
func ChiSquare(table [][]int) (ChiSquareResult, error) {
	r := len(table)
	if r < 2 {
		return ChiSquareResult{}, errors.DataError("chi-square needs at least 2 rows, got %d", r)
	}
	c := len(table[0])
	if c < 2 {
		return ChiSquareResult{}, errors.DataError("chi-square needs at least 2 outcome categories, got %d", c)
	}

	rowSums := make([]float64, r)
	colSums := make([]float64, c)
	total := 0.0
	for i, row := range table {
		if len(row) != c {
			return ChiSquareResult{}, errors.DataError("contingency table is ragged")
		}
		for j, v := range row {
			rowSums[i] += float64(v)
			colSums[j] += float64(v)
			total += float64(v)
		}
	}
	for _, s := range append(append([]float64{}, rowSums...), colSums...) {
		if s == 0 {
			return ChiSquareResult{}, errors.ComputationError("contingency table has an empty row or column")
		}
	}

	res := ChiSquareResult{DF: (r - 1) * (c - 1), MinExpected: math.Inf(1)}
	res.Corrected = res.DF == 1
	res.Expected = make([][]float64, r)
	for i := range table {
		res.Expected[i] = make([]float64, c)
		for j, obs := range table[i] {
			exp := rowSums[i] * colSums[j] / total
			res.Expected[i][j] = exp
			res.MinExpected = math.Min(res.MinExpected, exp)

			diff := math.Abs(float64(obs) - exp)
			if res.Corrected {
				diff -= math.Min(0.5, diff)
			}
			res.ChiSquare += diff * diff / exp
		}
	}

	res.PValue = probability.ChiSquareUpper(res.ChiSquare, float64(res.DF))
	res.CramersV = math.Sqrt(res.ChiSquare / (total * float64(min(r, c)-1)))
	return res, nil
}

func (e *Executor) chiSquare(ds analysis.Dataset, _ analysis.Assumptions) (analysis.StatisticalResult, error) {
	if len(ds.Categories) < 2 {
		return analysis.StatisticalResult{}, errors.DataError("chi-square requires at least 2 groups, got %d", len(ds.Categories))
	}

	table, rows, cols := ContingencyTable(ds.Categories)
	res, err := ChiSquare(table)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	met := res.MinExpected >= MinExpectedCount
	var warnings []string
	if !met {
		warnings = append(warnings, fmt.Sprintf("Expected cell count below %.0f (minimum %.2f); chi-square approximation may be unreliable", MinExpectedCount, res.MinExpected))
		if len(rows) == 2 && len(cols) == 2 {
			warnings = append(warnings, "Consider Fisher's exact test for this 2x2 table")
		}
	}

	summary := fmt.Sprintf("χ²(%d) = %.3f, %s, V = %.2f", res.DF, res.ChiSquare, formatP(res.PValue), res.CramersV)
	if res.Corrected {
		summary += " (Yates corrected)"
	}

	return analysis.StatisticalResult{
		Statistic: map[string]float64{"chi2": res.ChiSquare, "df": float64(res.DF)},
		PValue:    analysis.Float(res.PValue),
		EffectSize: &analysis.EffectSize{
			Name:           "Cramér's V",
			Value:          res.CramersV,
			Interpretation: InterpretCorrelation(res.CramersV),
		},
		ContingencyTable: table,
		RowLabels:        rows,
		ColumnLabels:     cols,
		Groups:           categoryGroups(rows, table),
		GroupOrder:       rows,
		AssumptionsMet:   analysis.Bool(met),
		Summary:          summary,
		Warnings:         warnings,
	}, nil
}

// FisherResult is the raw output of Fisher's exact test on a 2x2 table
type FisherResult struct {
	PValue    float64
	OddsRatio float64
	// Adjusted is set when a zero cell forced the Haldane-Anscombe correction
	// of the odds ratio
	Adjusted bool
}

// FisherExact runs a two-sided Fisher exact test. The p-value sums every
// table at least as extreme (probability <= observed) under the
// hypergeometric null.
func FisherExact(table [][]int) (FisherResult, error) {
	if len(table) != 2 || len(table[0]) != 2 || len(table[1]) != 2 {
		return FisherResult{}, errors.DataError("fisher's exact test needs a 2x2 table")
	}
	a, b := table[0][0], table[0][1]
	c, d := table[1][0], table[1][1]
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return FisherResult{}, errors.DataError("contingency counts cannot be negative")
	}

	row1 := a + b
	col1 := a + c
	n := a + b + c + d
	if n == 0 {
		return FisherResult{}, errors.DataError("contingency table is empty")
	}

	logP := func(x int) float64 {
		return combin.LogGeneralizedBinomial(float64(col1), float64(x)) +
			combin.LogGeneralizedBinomial(float64(n-col1), float64(row1-x)) -
			combin.LogGeneralizedBinomial(float64(n), float64(row1))
	}

	lo := max(0, row1+col1-n)
	hi := min(row1, col1)
	observed := logP(a)
	threshold := observed + math.Log1p(1e-7)

	p := 0.0
	for x := lo; x <= hi; x++ {
		if lp := logP(x); lp <= threshold {
			p += math.Exp(lp)
		}
	}

	res := FisherResult{PValue: probability.Clamp(p)}
	if a == 0 || b == 0 || c == 0 || d == 0 {
		res.Adjusted = true
		res.OddsRatio = (float64(a) + 0.5) * (float64(d) + 0.5) / ((float64(b) + 0.5) * (float64(c) + 0.5))
	} else {
		res.OddsRatio = float64(a*d) / float64(b*c)
	}
	return res, nil
}

func (e *Executor) fisherExact(ds analysis.Dataset, _ analysis.Assumptions) (analysis.StatisticalResult, error) {
	if len(ds.Categories) != 2 {
		return analysis.StatisticalResult{}, errors.DataError("fisher's exact test requires exactly 2 groups, got %d", len(ds.Categories))
	}

	table, rows, cols := ContingencyTable(ds.Categories)
	if len(cols) != 2 {
		return analysis.StatisticalResult{}, errors.DataError("fisher's exact test requires a binary outcome, got %d categories", len(cols))
	}

	res, err := FisherExact(table)
	if err != nil {
		return analysis.StatisticalResult{}, err
	}

	var warnings []string
	if res.Adjusted {
		warnings = append(warnings, "Zero cell in table; odds ratio uses the Haldane-Anscombe 0.5 correction")
	}

	return analysis.StatisticalResult{
		Statistic: map[string]float64{"odds_ratio": res.OddsRatio},
		PValue:    analysis.Float(res.PValue),
		EffectSize: &analysis.EffectSize{
			Name:  "Odds ratio",
			Value: res.OddsRatio,
		},
		ContingencyTable: table,
		RowLabels:        rows,
		ColumnLabels:     cols,
		Groups:           categoryGroups(rows, table),
		GroupOrder:       rows,
		AssumptionsMet:   analysis.Bool(true),
		Summary:          fmt.Sprintf("Fisher's exact test, %s, OR = %.2f", formatP(res.PValue), res.OddsRatio),
		Warnings:         warnings,
	}, nil
}

func categoryGroups(rows []string, table [][]int) map[string]analysis.GroupSummary {
	groups := make(map[string]analysis.GroupSummary, len(rows))
	for i, label := range rows {
		n := 0
		for _, v := range table[i] {
			n += v
		}
		groups[label] = analysis.GroupSummary{N: n}
	}
	return groups
}
