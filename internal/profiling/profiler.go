package profiling

import (
	"sort"

	"scifig/domain/analysis"
	"scifig/internal/errors"

	"github.com/rs/zerolog"
)

// Type inference thresholds: a numeric column with fewer distinct values
// than CategoricalMaxDistinct, or a distinct/total ratio under
// CategoricalMaxRatio, is treated as categorical.
const (
	CategoricalMaxDistinct = 10
	CategoricalMaxRatio    = 0.05
)

// Request names the columns to profile. Group, Time and Event are optional.
type Request struct {
	Outcome string
	Group   string
	Time    string
	Event   string
}

// Columns returns the requested column names that are set
func (r Request) Columns() []string {
	var cols []string
	for _, c := range []string{r.Outcome, r.Group, r.Time, r.Event} {
		if c != "" && !contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// DataProfiler infers variable types, group structure and design from rows
type DataProfiler struct {
	logger zerolog.Logger
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler(logger zerolog.Logger) *DataProfiler {
	return &DataProfiler{logger: logger.With().Str("component", "profiler").Logger()}
}

// Clean drops rows with a missing value in any of the given columns. The
// input slice is not modified.
func Clean(rows []analysis.Row, columns ...string) []analysis.Row {
	cleaned := make([]analysis.Row, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, col := range columns {
			if IsMissing(row[col]) {
				keep = false
				break
			}
		}
		if keep {
			cleaned = append(cleaned, row)
		}
	}
	return cleaned
}

// Profile builds the DataProfile of already-cleaned rows. A missing outcome
// becomes the time column for survival requests; any referenced column absent
// from the rows is a DataError.
func (p *DataProfiler) Profile(rows []analysis.Row, req Request) (analysis.DataProfile, error) {
	if len(rows) == 0 {
		return analysis.DataProfile{}, errors.DataError("dataset is empty")
	}
	if req.Outcome == "" && req.Time != "" && req.Event != "" {
		req.Outcome = req.Time
	}
	if req.Outcome == "" {
		return analysis.DataProfile{}, errors.DataError("outcome variable is required")
	}
	if (req.Time == "") != (req.Event == "") {
		return analysis.DataProfile{}, errors.DataError("time and event variables must be supplied together")
	}

	variables := ColumnNames(rows)
	for _, col := range req.Columns() {
		if !contains(variables, col) {
			return analysis.DataProfile{}, errors.DataError("column %q not found in dataset", col)
		}
	}

	profile := analysis.DataProfile{
		SampleSize:      len(rows),
		OutcomeVariable: req.Outcome,
		OutcomeType:     InferType(ColumnValues(rows, req.Outcome)),
		GroupVariable:   req.Group,
		TimeVariable:    req.Time,
		EventVariable:   req.Event,
		Variables:       variables,
	}

	if req.Group != "" {
		groups := BuildGroupIndex(rows, req.Group)
		profile.NGroups = groups.Len()
		profile.GroupLabels = append([]string(nil), groups.Labels...)
		profile.GroupSizes = groups.Sizes()
		profile.IsPaired = isPairedDesign(groups, profile.SampleSize)
	}

	p.logger.Debug().
		Int("sample_size", profile.SampleSize).
		Str("outcome_type", string(profile.OutcomeType)).
		Int("n_groups", profile.NGroups).
		Bool("is_paired", profile.IsPaired).
		Msg("dataset profiled")

	return profile, nil
}

// isPairedDesign is a structural heuristic: two groups of equal size k that
// together account for every row. It does not look for subject identifiers.
func isPairedDesign(groups GroupIndex, sampleSize int) bool {
	if groups.Len() != 2 {
		return false
	}
	k := len(groups.Indices[0])
	return k == len(groups.Indices[1]) && sampleSize == 2*k
}

// InferType classifies a column from its values. Missing values are ignored;
// a column is numeric only if every present value coerces to a number.
func InferType(values []interface{}) analysis.OutcomeType {
	distinct := make(map[float64]struct{})
	total := 0

	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			return analysis.OutcomeCategorical
		}
		distinct[f] = struct{}{}
		total++
	}

	if total == 0 {
		return analysis.OutcomeCategorical
	}

	unique := len(distinct)
	if unique < CategoricalMaxDistinct || float64(unique)/float64(total) < CategoricalMaxRatio {
		return analysis.OutcomeCategorical
	}
	return analysis.OutcomeContinuous
}

// ColumnNames returns the union of keys across rows, sorted
func ColumnNames(rows []analysis.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ColumnValues extracts one column in row order
func ColumnValues(rows []analysis.Row, column string) []interface{} {
	values := make([]interface{}, len(rows))
	for i, row := range rows {
		values[i] = row[column]
	}
	return values
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
