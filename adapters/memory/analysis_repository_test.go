package memory

import (
	"context"
	"testing"
	"time"

	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcomeAt(id string, minute int) analysis.AnalysisOutcome {
	return analysis.AnalysisOutcome{
		ID:        core.AnalysisID(id),
		Status:    analysis.StatusCompleted,
		CreatedAt: time.Date(2025, 1, 1, 0, minute, 0, 0, time.UTC),
	}
}

func TestAnalysisRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(2)

	require.NoError(t, repo.SaveAnalysis(ctx, outcomeAt("a", 1)))
	require.NoError(t, repo.SaveAnalysis(ctx, outcomeAt("b", 2)))
	require.NoError(t, repo.SaveAnalysis(ctx, outcomeAt("c", 3)))

	_, err := repo.GetAnalysis(ctx, "a")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err), "oldest evicted")

	got, err := repo.GetAnalysis(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, core.AnalysisID("c"), got.ID)

	list, err := repo.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.AnalysisID("c"), list[0].ID)

	list, err = repo.ListAnalyses(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
