package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/errors"
	"scifig/ports"

	"github.com/jmoiron/sqlx"
)

// DefaultListLimit caps ListAnalyses when no limit is given
const DefaultListLimit = 50

// AnalysisRepository implements ports.AnalysisRepository on PostgreSQL. The
// outcome's nested parts are stored as JSONB columns.
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new PostgreSQL analysis repository
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)

// analysisRow mirrors the analyses table
type analysisRow struct {
	ID              string         `db:"id"`
	Status          string         `db:"status"`
	Test            sql.NullString `db:"test_kind"`
	OutcomeVariable sql.NullString `db:"outcome_variable"`
	SampleSize      sql.NullInt64  `db:"sample_size"`
	Error           sql.NullString `db:"error"`
	ErrorCode       sql.NullString `db:"error_code"`
	DataProfile     []byte         `db:"data_profile"`
	Recommendation  []byte         `db:"recommendation"`
	Assumptions     []byte         `db:"assumptions"`
	FinalResult     []byte         `db:"final_result"`
	CreatedAt       time.Time      `db:"created_at"`
}

// SaveAnalysis inserts an outcome, replacing any row with the same ID
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, o analysis.AnalysisOutcome) error {
	profile, err := marshalNullable(o.DataProfile)
	if err != nil {
		return errors.Wrap(err, "failed to marshal data profile")
	}
	rec, err := marshalNullable(o.Recommendation)
	if err != nil {
		return errors.Wrap(err, "failed to marshal recommendation")
	}
	var checks interface{}
	if len(o.AssumptionsChecked) > 0 {
		data, err := json.Marshal(o.AssumptionsChecked)
		if err != nil {
			return errors.Wrap(err, "failed to marshal assumptions")
		}
		checks = data
	}
	result, err := marshalNullable(o.FinalResult)
	if err != nil {
		return errors.Wrap(err, "failed to marshal final result")
	}

	var test, outcomeVar sql.NullString
	var size sql.NullInt64
	if o.FinalResult != nil {
		test = sql.NullString{String: string(o.FinalResult.Test), Valid: true}
	}
	if o.DataProfile != nil {
		outcomeVar = sql.NullString{String: o.DataProfile.OutcomeVariable, Valid: true}
		size = sql.NullInt64{Int64: int64(o.DataProfile.SampleSize), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyses (id, status, test_kind, outcome_variable, sample_size, error, error_code,
			data_profile, recommendation, assumptions, final_result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			test_kind = EXCLUDED.test_kind,
			error = EXCLUDED.error,
			error_code = EXCLUDED.error_code,
			final_result = EXCLUDED.final_result
	`, o.ID.String(), string(o.Status), test, outcomeVar, size,
		nullString(o.Error), nullString(o.ErrorCode),
		profile, rec, checks, result, o.CreatedAt)
	if err != nil {
		return errors.DatabaseError(fmt.Sprintf("failed to save analysis %s", o.ID), err)
	}
	return nil
}

// GetAnalysis loads one outcome
func (r *AnalysisRepository) GetAnalysis(ctx context.Context, id core.AnalysisID) (*analysis.AnalysisOutcome, error) {
	var row analysisRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, status, test_kind, outcome_variable, sample_size, error, error_code,
			data_profile, recommendation, assumptions, final_result, created_at
		FROM analyses
		WHERE id = $1
	`, id.String())
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound(fmt.Sprintf("analysis %s", id))
		}
		return nil, errors.DatabaseError(fmt.Sprintf("failed to load analysis %s", id), err)
	}
	return row.toOutcome()
}

// ListAnalyses returns the most recent outcomes
func (r *AnalysisRepository) ListAnalyses(ctx context.Context, limit int) ([]ports.AnalysisSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	summaries := []ports.AnalysisSummary{}
	err := r.db.SelectContext(ctx, &summaries, `
		SELECT id, status, COALESCE(test_kind, '') AS test_kind,
			COALESCE(outcome_variable, '') AS outcome_variable,
			COALESCE(sample_size, 0) AS sample_size,
			COALESCE(error_code, '') AS error_code, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list analyses", err)
	}
	return summaries, nil
}

func (row analysisRow) toOutcome() (*analysis.AnalysisOutcome, error) {
	o := &analysis.AnalysisOutcome{
		ID:        core.AnalysisID(row.ID),
		Status:    analysis.Status(row.Status),
		Error:     row.Error.String,
		ErrorCode: row.ErrorCode.String,
		CreatedAt: row.CreatedAt,
	}

	if len(row.DataProfile) > 0 {
		o.DataProfile = &analysis.DataProfile{}
		if err := json.Unmarshal(row.DataProfile, o.DataProfile); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal data profile")
		}
	}
	if len(row.Recommendation) > 0 {
		o.Recommendation = &analysis.Recommendation{}
		if err := json.Unmarshal(row.Recommendation, o.Recommendation); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal recommendation")
		}
	}
	if len(row.Assumptions) > 0 {
		if err := json.Unmarshal(row.Assumptions, &o.AssumptionsChecked); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal assumptions")
		}
	}
	if len(row.FinalResult) > 0 {
		o.FinalResult = &analysis.StatisticalResult{}
		if err := json.Unmarshal(row.FinalResult, o.FinalResult); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal final result")
		}
	}
	return o, nil
}

// marshalNullable encodes v as a JSONB argument; a nil pointer becomes an
// untyped nil so the column stays NULL
func marshalNullable[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
