// Package engine wires the profiler, brain, assumption checker, survival
// normalizer and executor into a single analysis run.
package engine

import (
	"fmt"
	"runtime/debug"
	"time"

	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/assumptions"
	"scifig/internal/brain"
	"scifig/internal/config"
	"scifig/internal/errors"
	"scifig/internal/executor"
	"scifig/internal/profiling"
	"scifig/internal/survival"

	"github.com/rs/zerolog"
)

// Request is one analysis request. Test forces a specific test instead of the
// recommended one; the recommendation is still computed and returned.
type Request struct {
	Rows    []analysis.Row `json:"rows"`
	Outcome string         `json:"outcome_variable"`
	Group   string         `json:"group_variable,omitempty"`
	Time    string         `json:"time_variable,omitempty"`
	Event   string         `json:"event_variable,omitempty"`
	Test    string         `json:"test,omitempty"`
}

func (r Request) profileRequest() profiling.Request {
	return profiling.Request{Outcome: r.Outcome, Group: r.Group, Time: r.Time, Event: r.Event}
}

// completeColumns lists the columns a row needs a value in to be kept. The
// event column is left out: a missing event is read as censored downstream.
func (r Request) completeColumns() []string {
	var cols []string
	for _, c := range r.profileRequest().Columns() {
		if c == r.Event && c != r.Outcome && c != r.Group && c != r.Time {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Engine runs the full pipeline. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	profiler   *profiling.DataProfiler
	brain      *brain.Brain
	checker    *assumptions.Checker
	normalizer *survival.Normalizer
	executor   *executor.Executor
	maxRows    int
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates an engine from validated configuration
func New(cfg config.EngineConfig, logger zerolog.Logger) (*Engine, error) {
	if err := config.ValidateEngine(cfg); err != nil {
		return nil, err
	}
	return &Engine{
		profiler:   profiling.NewDataProfiler(logger),
		brain:      brain.NewBrain(cfg.TTestMinSample, logger),
		checker:    assumptions.NewChecker(cfg.Alpha, logger),
		normalizer: survival.NewNormalizer(logger),
		executor:   executor.NewExecutor(cfg.Confidence, logger),
		maxRows:    cfg.MaxRows,
		now:        time.Now,
		logger:     logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Run executes one analysis. It never returns an error: failures, including
// panics inside a component, come back as an outcome with status failed and
// whatever partial results were produced before the failure.
func (e *Engine) Run(req Request) (outcome analysis.AnalysisOutcome) {
	outcome = analysis.AnalysisOutcome{
		ID:        core.NewAnalysisID(),
		CreatedAt: e.now().UTC(),
	}
	logger := e.logger.With().Str("analysis_id", outcome.ID.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("analysis panicked")
			outcome.FinalResult = nil
			fail(&outcome, errors.Newf(errors.CodeEngineFailure, "internal engine failure: %v", r))
		}
	}()

	if err := e.run(req, &outcome); err != nil {
		logger.Warn().Err(err).Str("error_code", errors.GetCode(err)).Msg("analysis failed")
		fail(&outcome, err)
		return outcome
	}

	outcome.Status = analysis.StatusCompleted
	logger.Info().
		Str("test", string(outcome.FinalResult.Test)).
		Int("sample_size", outcome.DataProfile.SampleSize).
		Msg("analysis completed")
	return outcome
}

func (e *Engine) run(req Request, outcome *analysis.AnalysisOutcome) error {
	profile, err := e.Profile(req)
	if err != nil {
		return err
	}
	outcome.DataProfile = &profile

	rec, err := e.brain.Recommend(profile)
	if err != nil {
		return err
	}
	outcome.Recommendation = &rec

	kind, err := e.selectTest(req, rec, profile)
	if err != nil {
		return err
	}

	rows := profiling.Clean(req.Rows, req.completeColumns()...)
	ds, err := e.BuildDataset(kind, rows, profile)
	if err != nil {
		return err
	}

	var checks analysis.Assumptions
	if kind.AssumptionSensitive() {
		checks = e.checker.CheckSamples(ds.Samples)
		outcome.AssumptionsChecked = checks
	}

	result, err := e.executor.Execute(kind, ds, checks)
	if err != nil {
		return err
	}
	outcome.FinalResult = &result
	return nil
}

// Profile validates the request and profiles its cleaned rows
func (e *Engine) Profile(req Request) (analysis.DataProfile, error) {
	if len(req.Rows) == 0 {
		return analysis.DataProfile{}, errors.DataError("dataset is empty")
	}
	if e.maxRows > 0 && len(req.Rows) > e.maxRows {
		return analysis.DataProfile{}, errors.DataError("dataset has %d rows, limit is %d", len(req.Rows), e.maxRows)
	}

	preq := req.profileRequest()
	columns := profiling.ColumnNames(req.Rows)
	for _, col := range preq.Columns() {
		if !contains(columns, col) {
			return analysis.DataProfile{}, errors.DataError("column %q not found in dataset", col)
		}
	}

	rows := profiling.Clean(req.Rows, req.completeColumns()...)
	if len(rows) == 0 {
		return analysis.DataProfile{}, errors.DataError("no complete rows remain after dropping missing values")
	}
	return e.profiler.Profile(rows, preq)
}

// Recommend profiles the request and returns the ranked test suggestions
// without executing anything
func (e *Engine) Recommend(req Request) (analysis.DataProfile, analysis.Recommendation, error) {
	profile, err := e.Profile(req)
	if err != nil {
		return analysis.DataProfile{}, analysis.Recommendation{}, err
	}
	rec, err := e.brain.Recommend(profile)
	if err != nil {
		return profile, analysis.Recommendation{}, err
	}
	return profile, rec, nil
}

// CheckAssumptions runs the normality and equal-variance diagnostics on the
// numeric outcome of each group
func (e *Engine) CheckAssumptions(req Request) (analysis.Assumptions, error) {
	profile, err := e.Profile(req)
	if err != nil {
		return nil, err
	}
	rows := profiling.Clean(req.Rows, req.completeColumns()...)
	samples, err := numericSamples(rows, profile)
	if err != nil {
		return nil, err
	}
	return e.checker.CheckSamples(samples), nil
}

func (e *Engine) selectTest(req Request, rec analysis.Recommendation, profile analysis.DataProfile) (analysis.TestKind, error) {
	if req.Test == "" {
		return rec.Primary, nil
	}
	kind, err := analysis.ParseTestKind(req.Test)
	if err != nil || !executor.Supports(kind) {
		return "", errors.UnsupportedTest(req.Test)
	}
	if kind.RequiresContinuousOutcome() && profile.OutcomeType != analysis.OutcomeContinuous {
		return "", errors.DataError("%s requires a continuous outcome, %q is %s",
			kind.DisplayName(), profile.OutcomeVariable, profile.OutcomeType)
	}
	if kind != rec.Primary {
		e.logger.Debug().
			Str("requested", string(kind)).
			Str("recommended", string(rec.Primary)).
			Msg("caller overrode recommended test")
	}
	return kind, nil
}

func fail(outcome *analysis.AnalysisOutcome, err error) {
	outcome.Status = analysis.StatusFailed
	outcome.Error = err.Error()
	outcome.ErrorCode = errors.GetCode(err)
	if !errors.IsAppError(err) {
		outcome.ErrorCode = errors.CodeInternalError
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// describeFailure renders an outcome error for logs and CLI output
func describeFailure(o analysis.AnalysisOutcome) string {
	return fmt.Sprintf("%s [%s]", o.Error, o.ErrorCode)
}
