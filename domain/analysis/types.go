package analysis

import (
	"time"

	"scifig/domain/core"
)

// ============================================================================
// INPUT
// ============================================================================

// Row is one record of the uploaded table: column name -> scalar cell value.
// Cells are float64, int, bool, string or nil (missing).
type Row map[string]interface{}

// OutcomeType classifies the outcome variable
type OutcomeType string

const (
	OutcomeContinuous  OutcomeType = "continuous"
	OutcomeCategorical OutcomeType = "categorical"
)

// ============================================================================
// DATA PROFILE
// ============================================================================

// DataProfile describes the structure of a dataset for one analysis request.
// INVARIANTS:
// - SampleSize > 0
// - sum(GroupSizes) == SampleSize when a group variable is present
// - IsPaired only when NGroups == 2, both sizes equal k and SampleSize == 2k
type DataProfile struct {
	SampleSize      int            `json:"sample_size"`
	OutcomeVariable string         `json:"outcome_variable"`
	OutcomeType     OutcomeType    `json:"outcome_type"`
	GroupVariable   string         `json:"group_variable,omitempty"`
	NGroups         int            `json:"n_groups,omitempty"`
	GroupLabels     []string       `json:"group_labels,omitempty"` // first-seen order
	GroupSizes      map[string]int `json:"group_sizes,omitempty"`
	TimeVariable    string         `json:"time_variable,omitempty"`
	EventVariable   string         `json:"event_variable,omitempty"`
	IsPaired        bool           `json:"is_paired"` // structural heuristic, not a subject-level pairing check
	Variables       []string       `json:"variables"`
}

// HasGroups reports whether the profile carries a group structure
func (p DataProfile) HasGroups() bool {
	return p.GroupVariable != "" && p.NGroups > 0
}

// HasSurvival reports whether both a time and an event variable were supplied
func (p DataProfile) HasSurvival() bool {
	return p.TimeVariable != "" && p.EventVariable != ""
}

// ============================================================================
// ASSUMPTIONS
// ============================================================================

// AssumptionResult is the outcome of one diagnostic. A failed assumption is
// a signal for the caller, not an error.
type AssumptionResult struct {
	Test      string   `json:"test"`
	Passed    bool     `json:"passed"`
	Statistic *float64 `json:"statistic,omitempty"`
	PValue    *float64 `json:"p_value,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Assumptions is the set of diagnostics run for one analysis, keyed by check
// name (e.g. "normality_A", "equal_variance").
type Assumptions map[string]AssumptionResult

// EqualVariance returns the variance-homogeneity check if it was run
func (a Assumptions) EqualVariance() (AssumptionResult, bool) {
	r, ok := a[CheckEqualVariance]
	return r, ok
}

// Check keys used in Assumptions
const (
	CheckEqualVariance   = "equal_variance"
	CheckNormalityPrefix = "normality_"
)

// ============================================================================
// RECOMMENDATION
// ============================================================================

// Candidate is one ranked test suggestion
type Candidate struct {
	Test       TestKind `json:"test"`
	Confidence float64  `json:"confidence"` // 0-1
	Reason     string   `json:"reason"`
}

// Recommendation is the ranked output of the decision rules
type Recommendation struct {
	Primary      TestKind    `json:"primary"`
	Confidence   float64     `json:"confidence"`
	Reasoning    string      `json:"reasoning"`
	Alternatives []Candidate `json:"alternatives"`
}

// ============================================================================
// RESULTS
// ============================================================================

// EffectSize is a named standardized effect
type EffectSize struct {
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	Interpretation string  `json:"interpretation,omitempty"`
}

// Interval is a two-sided confidence interval
type Interval struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Level float64 `json:"level"` // e.g. 0.95
}

// GroupSummary holds per-group descriptives. Parametric tests fill Mean/Std/SEM,
// rank-based tests fill Median/IQR.
type GroupSummary struct {
	N      int      `json:"n"`
	Mean   *float64 `json:"mean,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	SEM    *float64 `json:"sem,omitempty"`
	Median *float64 `json:"median,omitempty"`
	IQR    *float64 `json:"iqr,omitempty"`
}

// CurvePoint is one step of a Kaplan-Meier curve
type CurvePoint struct {
	Time     float64 `json:"time"`
	Survival float64 `json:"survival"`
	AtRisk   int     `json:"at_risk"`
	Events   int     `json:"events"`
	Censored int     `json:"censored"`
}

// SurvivalGroup is the Kaplan-Meier fit of one group
type SurvivalGroup struct {
	N              int          `json:"sample_size"`
	Events         int          `json:"events"`
	Censored       int          `json:"censored"`
	MedianSurvival *float64     `json:"median_survival"` // null when the curve never reaches 0.5
	Curve          []CurvePoint `json:"curve"`
}

// ValidationReport summarises a normalized survival series
type ValidationReport struct {
	TotalObservations int      `json:"total_observations"`
	Events            int      `json:"events"`
	Censored          int      `json:"censored"`
	EventRate         float64  `json:"event_rate"`
	Valid             bool     `json:"valid"`
	Warnings          []string `json:"warnings,omitempty"`
}

// SurvivalSummary carries everything the visualization collaborator needs to
// draw survival curves
type SurvivalSummary struct {
	Groups     map[string]SurvivalGroup `json:"groups"`
	GroupOrder []string                 `json:"group_order"`
	Validation ValidationReport         `json:"validation"`
	Encoding   string                   `json:"encoding"` // strategy that normalized the event column

	EncodingAmbiguous bool `json:"encoding_ambiguous"`
}

// StatisticalResult is the output of one executed test.
// INVARIANTS:
// - PValue, when present, lies in [0,1]
// - every number is finite
type StatisticalResult struct {
	Test               TestKind                `json:"test"`
	TestName           string                  `json:"test_name"`
	Statistic          map[string]float64      `json:"statistic"`
	PValue             *float64                `json:"p_value"` // null only when no comparison is defined
	EffectSize         *EffectSize             `json:"effect_size,omitempty"`
	ConfidenceInterval *Interval               `json:"confidence_interval,omitempty"`
	Groups             map[string]GroupSummary `json:"groups,omitempty"`
	GroupOrder         []string                `json:"group_order,omitempty"`
	ContingencyTable   [][]int                 `json:"contingency_table,omitempty"`
	RowLabels          []string                `json:"row_labels,omitempty"`
	ColumnLabels       []string                `json:"column_labels,omitempty"`
	AssumptionsMet     *bool                   `json:"assumptions_met,omitempty"`
	Survival           *SurvivalSummary        `json:"survival,omitempty"`
	Summary            string                  `json:"summary"`
	Interpretation     string                  `json:"interpretation,omitempty"`
	Warnings           []string                `json:"warnings,omitempty"`
}

// ============================================================================
// OUTCOME ENVELOPE
// ============================================================================

// Status of an analysis run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// AnalysisOutcome is the top-level envelope returned for every run.
// Failures are values: Status == failed with Error set.
type AnalysisOutcome struct {
	ID                 core.AnalysisID    `json:"id"`
	DataProfile        *DataProfile       `json:"data_profile,omitempty"`
	Recommendation     *Recommendation    `json:"recommendation,omitempty"`
	AssumptionsChecked Assumptions        `json:"assumptions_checked,omitempty"`
	FinalResult        *StatisticalResult `json:"final_result,omitempty"`
	Status             Status             `json:"status"`
	Error              string             `json:"error,omitempty"`
	ErrorCode          string             `json:"error_code,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Completed reports whether the run produced a result
func (o AnalysisOutcome) Completed() bool {
	return o.Status == StatusCompleted
}

// Float returns a pointer to v; used for optional numeric fields
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}
