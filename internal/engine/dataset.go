package engine

import (
	"scifig/domain/analysis"
	"scifig/internal/errors"
	"scifig/internal/profiling"
)

// BuildDataset slices cleaned rows into the shape the chosen test reads.
// Grouping is computed once and reused for every view.
func (e *Engine) BuildDataset(kind analysis.TestKind, rows []analysis.Row, profile analysis.DataProfile) (analysis.Dataset, error) {
	ds := analysis.Dataset{
		OutcomeVariable: profile.OutcomeVariable,
		GroupVariable:   profile.GroupVariable,
	}

	switch kind {
	case analysis.TestSurvival:
		if !profile.HasSurvival() {
			return ds, errors.DataError("survival analysis requires both a time and an event variable")
		}
		var groups profiling.GroupIndex
		if profile.GroupVariable != "" {
			groups = profiling.BuildGroupIndex(rows, profile.GroupVariable)
		}
		series, err := e.normalizer.BuildSeries(rows, profile.TimeVariable, profile.EventVariable, groups)
		if err != nil {
			return ds, err
		}
		ds.Survival = series

	case analysis.TestChiSquare, analysis.TestFisherExact:
		groups, err := requireGroups(rows, profile, kind)
		if err != nil {
			return ds, err
		}
		for i, label := range groups.Labels {
			values := make([]string, len(groups.Indices[i]))
			for j, ri := range groups.Indices[i] {
				values[j] = profiling.Label(rows[ri][profile.OutcomeVariable])
			}
			ds.Categories = append(ds.Categories, analysis.CategorySample{Label: label, Values: values})
		}

	default:
		samples, err := numericSamples(rows, profile)
		if err != nil {
			return ds, err
		}
		ds.Samples = samples
	}

	return ds, nil
}

// numericSamples converts the outcome of each group to float64. A value that
// cannot be read as a number is a DataError, not a silent drop.
func numericSamples(rows []analysis.Row, profile analysis.DataProfile) ([]analysis.Sample, error) {
	groups, err := requireGroups(rows, profile, "")
	if err != nil {
		return nil, err
	}

	samples := make([]analysis.Sample, 0, groups.Len())
	for i, label := range groups.Labels {
		values := make([]float64, 0, len(groups.Indices[i]))
		for _, ri := range groups.Indices[i] {
			raw := rows[ri][profile.OutcomeVariable]
			v, ok := profiling.ToFloat(raw)
			if !ok {
				return nil, errors.DataError("outcome %q has non-numeric value %v in group %s", profile.OutcomeVariable, raw, label)
			}
			values = append(values, v)
		}
		samples = append(samples, analysis.Sample{Label: label, Values: values})
	}
	return samples, nil
}

func requireGroups(rows []analysis.Row, profile analysis.DataProfile, kind analysis.TestKind) (profiling.GroupIndex, error) {
	if profile.GroupVariable == "" {
		if kind != "" {
			return profiling.GroupIndex{}, errors.DataError("%s requires a group variable", kind.DisplayName())
		}
		return profiling.GroupIndex{}, errors.DataError("a group variable is required to compare samples")
	}
	return profiling.BuildGroupIndex(rows, profile.GroupVariable), nil
}
