package ports

import (
	"context"
	"time"

	"scifig/domain/analysis"
	"scifig/domain/core"
)

// AnalysisRepository stores analysis outcomes
type AnalysisRepository interface {
	// SaveAnalysis inserts or replaces an outcome
	SaveAnalysis(ctx context.Context, outcome analysis.AnalysisOutcome) error

	// GetAnalysis returns a stored outcome; NOT_FOUND when absent
	GetAnalysis(ctx context.Context, id core.AnalysisID) (*analysis.AnalysisOutcome, error)

	// ListAnalyses returns summaries, newest first
	ListAnalyses(ctx context.Context, limit int) ([]AnalysisSummary, error)
}

// AnalysisSummary is the listing view of a stored outcome
type AnalysisSummary struct {
	ID              core.AnalysisID `json:"id" db:"id"`
	Status          analysis.Status `json:"status" db:"status"`
	Test            string          `json:"test,omitempty" db:"test_kind"`
	OutcomeVariable string          `json:"outcome_variable,omitempty" db:"outcome_variable"`
	SampleSize      int             `json:"sample_size" db:"sample_size"`
	ErrorCode       string          `json:"error_code,omitempty" db:"error_code"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
