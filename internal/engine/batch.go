package engine

import (
	"context"
	"sync"

	"scifig/domain/analysis"
	"scifig/domain/core"
	"scifig/internal/errors"

	"golang.org/x/sync/semaphore"
)

// DefaultBatchConcurrency bounds RunBatch when the caller passes a
// non-positive limit
const DefaultBatchConcurrency = 4

// RunBatch runs requests in parallel with at most concurrency runs in flight.
// Results keep request order. A failed run is a failed outcome in its slot;
// only context cancellation stops the batch, and unstarted requests then fail
// with the context error.
func (e *Engine) RunBatch(ctx context.Context, reqs []Request, concurrency int) ([]analysis.AnalysisOutcome, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	outcomes := make([]analysis.AnalysisOutcome, len(reqs))

	var wg sync.WaitGroup
	var ctxErr error
	for i := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			ctxErr = err
			for j := i; j < len(reqs); j++ {
				outcomes[j] = e.cancelled(err)
			}
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = e.Run(reqs[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Completed() {
			failed++
			e.logger.Debug().Str("analysis_id", o.ID.String()).Msg(describeFailure(o))
		}
	}
	e.logger.Info().
		Int("requests", len(reqs)).
		Int("failed", failed).
		Int("concurrency", concurrency).
		Msg("batch finished")

	if ctxErr != nil {
		return outcomes, errors.Wrap(ctxErr, "batch cancelled")
	}
	return outcomes, nil
}

func (e *Engine) cancelled(err error) analysis.AnalysisOutcome {
	o := analysis.AnalysisOutcome{ID: core.NewAnalysisID(), CreatedAt: e.now().UTC()}
	fail(&o, errors.Wrap(err, "analysis not started"))
	return o
}
