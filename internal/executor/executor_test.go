package executor

import (
	"math"
	"testing"

	"scifig/domain/analysis"
	"scifig/internal/errors"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestExecutor() *Executor {
	return NewExecutor(0.95, zerolog.Nop())
}

func twoSamples(a, b []float64) analysis.Dataset {
	return analysis.Dataset{
		OutcomeVariable: "y",
		GroupVariable:   "g",
		Samples: []analysis.Sample{
			{Label: "A", Values: a},
			{Label: "B", Values: b},
		},
	}
}

func equalVariance(passed bool) analysis.Assumptions {
	return analysis.Assumptions{
		analysis.CheckEqualVariance: {Test: "Levene", Passed: passed, PValue: analysis.Float(0.5)},
	}
}

func TestTTest_Student(t *testing.T) {
	res, err := TTest([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10}, true)
	require.NoError(t, err)

	assert.InDelta(t, -1.8973665961010275, res.T, 1e-9)
	assert.Equal(t, 8.0, res.DF)
	assert.InDelta(t, 0.0943497728, res.PValue, 1e-6)
	assert.InDelta(t, -1.2, res.CohensD, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), res.SE, 1e-12)
	assert.True(t, res.Pooled)
}

func TestTTest_ReferenceValues(t *testing.T) {
	welchA := []float64{19.8, 20.4, 19.6, 17.8, 18.5, 18.9, 18.3, 18.9, 19.5, 22.0}
	welchB := []float64{28.2, 26.6, 20.1, 23.3, 25.2, 22.1, 17.7, 27.6, 20.6, 13.7, 23.2, 17.5, 20.6, 18.0, 23.9, 21.6, 24.3, 20.4, 23.9, 13.3}
	unevenA := []float64{3.1, 2.8, 3.6, 4.0, 3.3, 2.9}
	unevenB := []float64{4.2, 3.9, 5.1, 4.8, 4.4}
	linearA := []float64{1, 2, 3, 4, 5}
	linearB := []float64{2, 4, 6, 8, 10}

	tests := []struct {
		name   string
		a, b   []float64
		pooled bool
		t, df  float64
		p      float64
	}{
		{"student linear", linearA, linearB, true, -1.8973665961, 8, 0.0943497728},
		{"welch linear", linearA, linearB, false, -1.8973665961, 5.8823529412, 0.1075311949},
		{"student unequal spread", welchA, welchB, true, -1.6544465859, 28, 0.1092055042},
		{"welch unequal spread", welchA, welchB, false, -2.2255120400, 24.5246349443, 0.0354845308},
		{"student unequal sizes", unevenA, unevenB, true, -4.2605794909, 9, 0.0021093479},
		{"welch unequal sizes", unevenA, unevenB, false, -4.2394018728, 8.4615358414, 0.0025013159},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := TTest(tt.a, tt.b, tt.pooled)
			require.NoError(t, err)
			assert.Equal(t, tt.pooled, res.Pooled)
			assert.InDelta(t, tt.t, res.T, 1e-6)
			assert.InDelta(t, tt.df, res.DF, 1e-6)
			assert.InDelta(t, tt.p, res.PValue, 1e-6)
		})
	}
}

func TestExecute_TTestSelectsVariantFromAssumptions(t *testing.T) {
	e := newTestExecutor()
	ds := twoSamples([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 6, 8, 10})

	student, err := e.Execute(analysis.TestTTest, ds, equalVariance(true))
	require.NoError(t, err)
	assert.Equal(t, "Student's t-test", student.TestName)
	assert.Equal(t, 8.0, student.Statistic["df"])
	require.NotNil(t, student.ConfidenceInterval)
	assert.InDelta(t, -3-2.306004*math.Sqrt(2.5), student.ConfidenceInterval.Low, 1e-4)
	assert.InDelta(t, -3+2.306004*math.Sqrt(2.5), student.ConfidenceInterval.High, 1e-4)
	assert.Equal(t, "large", student.EffectSize.Interpretation)
	assert.Equal(t, []string{"A", "B"}, student.GroupOrder)
	assert.InDelta(t, 3.0, *student.Groups["A"].Mean, 1e-12)
	assert.Equal(t, "Not significant (p ≥ 0.05)", student.Interpretation)

	welch, err := e.Execute(analysis.TestTTest, ds, equalVariance(false))
	require.NoError(t, err)
	assert.Equal(t, "Welch's t-test", welch.TestName)
	assert.Less(t, welch.Statistic["df"], 8.0)

	unchecked, err := e.Execute(analysis.TestTTest, ds, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welch's t-test", unchecked.TestName)
	assert.NotEmpty(t, unchecked.Warnings)
}

func TestExecute_TTestZeroVarianceIsComputationError(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Execute(analysis.TestTTest, twoSamples([]float64{1, 1, 1}, []float64{1, 1, 1}), equalVariance(true))
	require.Error(t, err)
	assert.Equal(t, errors.CodeComputation, errors.GetCode(err))
}

func TestCohensDSignMatchesMeanDifference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.SliceOfN(rapid.Float64Range(-100, 100), 2, 40).Draw(t, "a")
		b := rapid.SliceOfN(rapid.Float64Range(-100, 100), 2, 40).Draw(t, "b")

		res, err := TTest(a, b, rapid.Bool().Draw(t, "pooled"))
		if err != nil {
			return
		}
		diff := mean(a) - mean(b)
		if math.Abs(diff) < 1e-9 {
			return
		}
		require.Equal(t, math.Signbit(diff), math.Signbit(res.CohensD))
		require.Equal(t, math.Signbit(diff), math.Signbit(res.T))
		require.GreaterOrEqual(t, res.PValue, 0.0)
		require.LessOrEqual(t, res.PValue, 1.0)
	})
}

func mean(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func TestMannWhitney_SeparatedGroupsFavourFirst(t *testing.T) {
	a := []float64{0.85, 0.91, 0.88, 0.92, 0.89, 0.87, 0.90, 0.86}
	b := []float64{0.72, 0.68, 0.74, 0.71, 0.69, 0.73, 0.70, 0.75}

	res, err := MannWhitney(a, b)
	require.NoError(t, err)
	assert.True(t, res.Exact)
	assert.Equal(t, 64.0, res.U1)
	assert.Equal(t, 0.0, res.U2)
	assert.Equal(t, 1.0, res.RankBiserial)
	assert.InDelta(t, 2.0/12870.0, res.PValue, 1e-12)

	e := newTestExecutor()
	result, err := e.Execute(analysis.TestMannWhitney, twoSamples(a, b), nil)
	require.NoError(t, err)
	assert.Greater(t, result.EffectSize.Value, 0.0)
	assert.Equal(t, "Rank-biserial correlation", result.EffectSize.Name)
	assert.NotNil(t, result.Groups["A"].Median)
	assert.Nil(t, result.Groups["A"].Mean)
	assert.Equal(t, "Highly significant (p < 0.001)", result.Interpretation)
}

func TestMannWhitney_Asymptotic(t *testing.T) {
	a := []float64{1, 2, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []float64{2, 3, 3, 4, 5, 6, 7, 8, 9, 10}

	res, err := MannWhitney(a, b)
	require.NoError(t, err)
	assert.False(t, res.Exact)
	assert.InDelta(t, 100.0, res.U1+res.U2, 1e-12)
	assert.Greater(t, res.PValue, 0.05)
	assert.Less(t, res.RankBiserial, 0.0)

	_, err = MannWhitney([]float64{3, 3, 3, 3, 3, 3, 3, 3, 3}, []float64{3, 3, 3, 3, 3, 3, 3, 3, 3})
	assert.Equal(t, errors.CodeComputation, errors.GetCode(err))
}

func TestMannWhitney_AsymptoticIdenticalSamples(t *testing.T) {
	a := []float64{1, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	res, err := MannWhitney(a, append([]float64(nil), a...))
	require.NoError(t, err)
	assert.False(t, res.Exact)
	assert.Equal(t, res.U1, res.U2)
	assert.Equal(t, 1.0, res.PValue)
}

func TestMannWhitney_ExactTailSymmetry(t *testing.T) {
	assert.InDelta(t, 1.0, exactUpperTail(3, 4, 0), 1e-12)
	assert.InDelta(t, 1.0/35.0, exactUpperTail(3, 4, 12), 1e-12)
	// U and m*n-U share a distribution, so P(U >= 20) == P(U <= 5)
	assert.InDelta(t, exactUpperTail(5, 5, 20), 1-exactUpperTail(5, 5, 6), 1e-12)
}

func TestOneWayANOVA(t *testing.T) {
	res, err := OneWayANOVA([]float64{1, 2, 3}, []float64{4, 5, 6}, []float64{7, 8, 9})
	require.NoError(t, err)

	assert.InDelta(t, 12.0, res.F, 1e-12)
	assert.Equal(t, 2.0, res.DFBetween)
	assert.Equal(t, 6.0, res.DFWithin)
	assert.InDelta(t, 0.008, res.PValue, 1e-9)
	assert.InDelta(t, 0.8, res.EtaSquared, 1e-12)

	_, err = OneWayANOVA([]float64{1, 1}, []float64{2, 2}, []float64{3, 3})
	assert.Equal(t, errors.CodeComputation, errors.GetCode(err))
}

func TestKruskalWallis(t *testing.T) {
	res, err := KruskalWallis([]float64{1, 2, 3}, []float64{4, 5, 6}, []float64{7, 8, 9})
	require.NoError(t, err)

	assert.InDelta(t, 7.2, res.H, 1e-9)
	assert.Equal(t, 2.0, res.DF)
	assert.InDelta(t, math.Exp(-3.6), res.PValue, 1e-9)
	assert.InDelta(t, 0.9, res.EpsilonSquare, 1e-9)
}

func TestExecute_MultiGroup(t *testing.T) {
	e := newTestExecutor()
	ds := analysis.Dataset{Samples: []analysis.Sample{
		{Label: "low", Values: []float64{1, 2, 3}},
		{Label: "mid", Values: []float64{4, 5, 6}},
		{Label: "high", Values: []float64{7, 8, 9}},
	}}

	anova, err := e.Execute(analysis.TestOneWayANOVA, ds, nil)
	require.NoError(t, err)
	assert.Equal(t, "One-way ANOVA", anova.TestName)
	assert.Equal(t, "large", anova.EffectSize.Interpretation)
	assert.Equal(t, []string{"low", "mid", "high"}, anova.GroupOrder)
	assert.Contains(t, anova.Summary, "F(2, 6) = 12.000")

	kw, err := e.Execute(analysis.TestKruskalWallis, ds, nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.2, kw.Statistic["H"], 1e-9)
}

func TestChiSquare_YatesMatchesReference(t *testing.T) {
	res, err := ChiSquare([][]int{{20, 10}, {15, 25}})
	require.NoError(t, err)

	assert.True(t, res.Corrected)
	assert.Equal(t, 1, res.DF)
	assert.InDelta(t, 4.725, res.ChiSquare, 1e-9)
	assert.InDelta(t, 0.029727, res.PValue, 1e-4)
	assert.Equal(t, [][]float64{{15, 15}, {20, 20}}, res.Expected)
	assert.InDelta(t, math.Sqrt(4.725/70), res.CramersV, 1e-12)
	assert.Equal(t, 15.0, res.MinExpected)
}

func TestChiSquare_LargerTableUncorrected(t *testing.T) {
	res, err := ChiSquare([][]int{{10, 10, 10}, {5, 10, 15}})
	require.NoError(t, err)
	assert.False(t, res.Corrected)
	assert.Equal(t, 2, res.DF)
	// expected rows: 7.5, 10, 12.5
	assert.InDelta(t, 2*(2.5*2.5/7.5)+2*(2.5*2.5/12.5), res.ChiSquare, 1e-9)

	_, err = ChiSquare([][]int{{0, 0}, {3, 4}})
	assert.Equal(t, errors.CodeComputation, errors.GetCode(err))
}

func categoryDataset(groups map[string][]string, order []string) analysis.Dataset {
	ds := analysis.Dataset{}
	for _, label := range order {
		ds.Categories = append(ds.Categories, analysis.CategorySample{Label: label, Values: groups[label]})
	}
	return ds
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestExecute_ChiSquareFromCategories(t *testing.T) {
	e := newTestExecutor()
	ds := categoryDataset(map[string][]string{
		"treated": append(repeat("yes", 20), repeat("no", 10)...),
		"control": append(repeat("yes", 15), repeat("no", 25)...),
	}, []string{"treated", "control"})

	res, err := e.Execute(analysis.TestChiSquare, ds, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"treated", "control"}, res.RowLabels)
	assert.Equal(t, []string{"no", "yes"}, res.ColumnLabels)
	assert.Equal(t, [][]int{{10, 20}, {25, 15}}, res.ContingencyTable)
	assert.InDelta(t, 4.725, res.Statistic["chi2"], 1e-9)
	require.NotNil(t, res.AssumptionsMet)
	assert.True(t, *res.AssumptionsMet)
	assert.Equal(t, 30, res.Groups["treated"].N)
}

func TestExecute_ChiSquareSmallExpectedWarns(t *testing.T) {
	e := newTestExecutor()
	ds := categoryDataset(map[string][]string{
		"a": {"1", "1", "2"},
		"b": {"2", "2", "1"},
	}, []string{"a", "b"})

	res, err := e.Execute(analysis.TestChiSquare, ds, nil)
	require.NoError(t, err)
	assert.False(t, *res.AssumptionsMet)
	assert.NotEmpty(t, res.Warnings)
}

func TestFisherExact(t *testing.T) {
	res, err := FisherExact([][]int{{3, 1}, {1, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 34.0/70.0, res.PValue, 1e-12)
	assert.Equal(t, 9.0, res.OddsRatio)
	assert.False(t, res.Adjusted)

	zero, err := FisherExact([][]int{{0, 5}, {5, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/252.0, zero.PValue, 1e-12)
	assert.True(t, zero.Adjusted)
	assert.InDelta(t, 0.25/30.25, zero.OddsRatio, 1e-12)

	_, err = FisherExact([][]int{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))
}

func TestExecute_Survival(t *testing.T) {
	e := newTestExecutor()
	ds := analysis.Dataset{Survival: &analysis.SurvivalSeries{
		Time:       []float64{1, 2, 3, 4, 5, 6},
		Event:      []int{1, 1, 1, 1, 1, 0},
		Groups:     []string{"A", "A", "A", "B", "B", "B"},
		Encoding:   "binary",
		Validation: analysis.ValidationReport{Valid: true, TotalObservations: 6, Events: 5, Censored: 1},
	}}

	res, err := e.Execute(analysis.TestSurvival, ds, nil)
	require.NoError(t, err)
	require.NotNil(t, res.PValue)
	assert.Contains(t, res.Statistic, "chi2")
	require.NotNil(t, res.Survival)
	assert.Equal(t, []string{"A", "B"}, res.Survival.GroupOrder)
	assert.Equal(t, 3, res.Survival.Groups["A"].Events)
	require.NotNil(t, res.Survival.Groups["A"].MedianSurvival)
	assert.Equal(t, 2.0, *res.Survival.Groups["A"].MedianSurvival)
}

func TestExecute_SurvivalWithoutComparison(t *testing.T) {
	e := newTestExecutor()
	single := analysis.Dataset{Survival: &analysis.SurvivalSeries{
		Time:       []float64{1, 2, 3, 4},
		Event:      []int{1, 0, 1, 0},
		Validation: analysis.ValidationReport{Valid: true},
	}}

	res, err := e.Execute(analysis.TestSurvival, single, nil)
	require.NoError(t, err)
	assert.Nil(t, res.PValue)
	assert.Equal(t, "No comparison performed", res.Interpretation)
	assert.Equal(t, []string{SingleGroupLabel}, res.GroupOrder)

	three := analysis.Dataset{Survival: &analysis.SurvivalSeries{
		Time:       []float64{1, 2, 3, 4, 5, 6},
		Event:      []int{1, 0, 1, 0, 1, 0},
		Groups:     []string{"x", "x", "y", "y", "z", "z"},
		Validation: analysis.ValidationReport{Valid: true},
	}}
	res, err = e.Execute(analysis.TestSurvival, three, nil)
	require.NoError(t, err)
	assert.Nil(t, res.PValue)
	assert.Len(t, res.Survival.Groups, 3)
	assert.NotEmpty(t, res.Warnings)
}

func TestExecute_SurvivalRejectsInvalidSeries(t *testing.T) {
	e := newTestExecutor()
	_, err := e.Execute(analysis.TestSurvival, analysis.Dataset{}, nil)
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))

	invalid := analysis.Dataset{Survival: &analysis.SurvivalSeries{
		Time:       []float64{1, 2},
		Event:      []int{0, 0},
		Validation: analysis.ValidationReport{Valid: false, Warnings: []string{"no events"}},
	}}
	_, err = e.Execute(analysis.TestSurvival, invalid, nil)
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))
}

func TestExecute_Errors(t *testing.T) {
	e := newTestExecutor()

	_, err := e.Execute(analysis.TestKind("regression"), analysis.Dataset{}, nil)
	assert.Equal(t, errors.CodeUnsupportedTest, errors.GetCode(err))

	three := analysis.Dataset{Samples: []analysis.Sample{
		{Label: "a", Values: []float64{1, 2}},
		{Label: "b", Values: []float64{3, 4}},
		{Label: "c", Values: []float64{5, 6}},
	}}
	_, err = e.Execute(analysis.TestTTest, three, nil)
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))

	_, err = e.Execute(analysis.TestFisherExact, categoryDataset(map[string][]string{
		"a": {"x", "y", "z"}, "b": {"x", "y"},
	}, []string{"a", "b"}), nil)
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))
}

func TestInterpretPValue(t *testing.T) {
	assert.Equal(t, "Highly significant (p < 0.001)", InterpretPValue(0.0005))
	assert.Equal(t, "Very significant (p < 0.01)", InterpretPValue(0.005))
	assert.Equal(t, "Significant (p < 0.05)", InterpretPValue(0.03))
	assert.Equal(t, "Not significant (p ≥ 0.05)", InterpretPValue(0.05))
}

func TestInterpretCohensD(t *testing.T) {
	assert.Equal(t, "negligible", InterpretCohensD(0.1))
	assert.Equal(t, "small", InterpretCohensD(-0.3))
	assert.Equal(t, "medium", InterpretCohensD(0.6))
	assert.Equal(t, "large", InterpretCohensD(-0.8))
}
