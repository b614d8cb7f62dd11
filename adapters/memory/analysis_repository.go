// Package memory holds in-process adapters used when no database is configured
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/errors"
	"scifig/ports"
)

// DefaultCapacity bounds the outcomes kept by a server without a database
const DefaultCapacity = 1000

// AnalysisRepository keeps outcomes in memory, evicting the oldest once the
// capacity is reached
type AnalysisRepository struct {
	mu       sync.RWMutex
	capacity int
	items    map[core.AnalysisID]analysis.AnalysisOutcome
	order    []core.AnalysisID
}

// NewAnalysisRepository creates a repository holding at most capacity
// outcomes; capacity <= 0 means unbounded
func NewAnalysisRepository(capacity int) *AnalysisRepository {
	return &AnalysisRepository{
		capacity: capacity,
		items:    make(map[core.AnalysisID]analysis.AnalysisOutcome),
	}
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)

func (r *AnalysisRepository) SaveAnalysis(_ context.Context, o analysis.AnalysisOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[o.ID]; !exists {
		r.order = append(r.order, o.ID)
	}
	r.items[o.ID] = o

	for r.capacity > 0 && len(r.order) > r.capacity {
		delete(r.items, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *AnalysisRepository) GetAnalysis(_ context.Context, id core.AnalysisID) (*analysis.AnalysisOutcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("analysis %s", id))
	}
	return &o, nil
}

func (r *AnalysisRepository) ListAnalyses(_ context.Context, limit int) ([]ports.AnalysisSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]ports.AnalysisSummary, 0, len(r.items))
	for _, o := range r.items {
		s := ports.AnalysisSummary{
			ID:        o.ID,
			Status:    o.Status,
			ErrorCode: o.ErrorCode,
			CreatedAt: o.CreatedAt,
		}
		if o.FinalResult != nil {
			s.Test = string(o.FinalResult.Test)
		}
		if o.DataProfile != nil {
			s.OutcomeVariable = o.DataProfile.OutcomeVariable
			s.SampleSize = o.DataProfile.SampleSize
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}
