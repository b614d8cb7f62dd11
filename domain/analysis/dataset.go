package analysis

// Sample is the outcome values of one group, in row order
type Sample struct {
	Label  string
	Values []float64
}

// Dataset is the cleaned, grouped view of the rows handed to the executor.
// Continuous tests read Samples; contingency tests read Categories;
// survival reads Survival.
type Dataset struct {
	OutcomeVariable string
	GroupVariable   string

	// Samples holds numeric outcomes per group in group-label order
	Samples []Sample

	// Categories holds the raw (stringified) outcome per group for
	// contingency tables, aligned with Samples' label order
	Categories []CategorySample

	Survival *SurvivalSeries
}

// CategorySample is the categorical outcome of one group
type CategorySample struct {
	Label  string
	Values []string
}

// SurvivalSeries is a validated time/event series. It is only constructed by
// the survival normalizer; event values are guaranteed to be 0 or 1.
type SurvivalSeries struct {
	Time       []float64
	Event      []int
	Groups     []string // per-observation group label, empty for single-group data
	Encoding   string
	Validation ValidationReport
	Warnings   []string
	// EncodingAmbiguous is set when some event cell could not be interpreted
	// and was read as censored
	EncodingAmbiguous bool
}

// Len returns the number of observations
func (s *SurvivalSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}
