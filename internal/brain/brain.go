// Package brain maps a data profile to a ranked list of applicable
// statistical tests using a fixed rule table.
package brain

import (
	"fmt"
	"sort"
	"strings"

	"scifig/domain/analysis"
	"scifig/internal/errors"

	"github.com/rs/zerolog"
)

// DefaultTTestMinSample is the total sample size at which the t-test becomes
// a candidate for two-group continuous outcomes
const DefaultTTestMinSample = 30

// MaxAlternatives bounds the alternatives returned with a recommendation
const MaxAlternatives = 2

// rule proposes a candidate when its predicate matches the profile
type rule struct {
	name       string
	test       analysis.TestKind
	confidence float64
	reason     string
	// exclusive rules stop evaluation of the remaining table when they match
	exclusive bool
	applies   func(p analysis.DataProfile, b *Brain) bool
}

// rules is evaluated top to bottom. It is never mutated after init.
var rules = []rule{
	{
		name:       "survival",
		test:       analysis.TestSurvival,
		confidence: 1.0,
		reason:     "time-to-event data detected",
		exclusive:  true,
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return p.HasSurvival()
		},
	},
	{
		name:       "two-group-t",
		test:       analysis.TestTTest,
		confidence: 0.9,
		reason:     "continuous outcome, two groups, sample large enough for the t-test",
		applies: func(p analysis.DataProfile, b *Brain) bool {
			return continuous(p) && p.NGroups == 2 && p.SampleSize >= b.ttestMinSample
		},
	},
	{
		name:       "two-group-rank",
		test:       analysis.TestMannWhitney,
		confidence: 0.8,
		reason:     "continuous outcome, two groups, distribution-free comparison",
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return continuous(p) && p.NGroups == 2
		},
	},
	{
		name:       "multi-group-anova",
		test:       analysis.TestOneWayANOVA,
		confidence: 0.9,
		reason:     "continuous outcome, more than two groups",
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return continuous(p) && p.NGroups > 2
		},
	},
	{
		name:       "multi-group-rank",
		test:       analysis.TestKruskalWallis,
		confidence: 0.8,
		reason:     "continuous outcome, more than two groups, distribution-free comparison",
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return continuous(p) && p.NGroups > 2
		},
	},
	{
		name:       "contingency",
		test:       analysis.TestChiSquare,
		confidence: 0.9,
		reason:     "categorical outcome across groups",
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return categorical(p) && p.NGroups >= 2
		},
	},
	{
		name:       "contingency-exact",
		test:       analysis.TestFisherExact,
		confidence: 0.8,
		reason:     "categorical outcome, two groups, exact test",
		applies: func(p analysis.DataProfile, _ *Brain) bool {
			return categorical(p) && p.NGroups == 2
		},
	},
}

func continuous(p analysis.DataProfile) bool {
	return p.OutcomeType == analysis.OutcomeContinuous && p.HasGroups()
}

func categorical(p analysis.DataProfile) bool {
	return p.OutcomeType == analysis.OutcomeCategorical && p.HasGroups()
}

// Brain recommends tests for a profile. It holds no mutable state and is safe
// for concurrent use.
type Brain struct {
	ttestMinSample int
	logger         zerolog.Logger
}

// NewBrain creates a brain; a non-positive gate falls back to
// DefaultTTestMinSample
func NewBrain(ttestMinSample int, logger zerolog.Logger) *Brain {
	if ttestMinSample <= 0 {
		ttestMinSample = DefaultTTestMinSample
	}
	return &Brain{
		ttestMinSample: ttestMinSample,
		logger:         logger.With().Str("component", "brain").Logger(),
	}
}

// Candidates evaluates the rule table and returns every matching test sorted
// by confidence, highest first. Equal confidences keep table order.
func (b *Brain) Candidates(profile analysis.DataProfile) []analysis.Candidate {
	var candidates []analysis.Candidate
	for _, r := range rules {
		if !r.applies(profile, b) {
			continue
		}
		candidates = append(candidates, analysis.Candidate{
			Test:       r.test,
			Confidence: r.confidence,
			Reason:     r.reason,
		})
		if r.exclusive {
			break
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// Recommend picks the highest-confidence test and up to MaxAlternatives
// runners-up. A profile no rule covers is a DataError.
func (b *Brain) Recommend(profile analysis.DataProfile) (analysis.Recommendation, error) {
	candidates := b.Candidates(profile)
	if len(candidates) == 0 {
		return analysis.Recommendation{}, errors.DataError("no statistical test applies: %s", describe(profile))
	}

	primary := candidates[0]
	rest := candidates[1:]
	if len(rest) > MaxAlternatives {
		rest = rest[:MaxAlternatives]
	}

	rec := analysis.Recommendation{
		Primary:      primary.Test,
		Confidence:   primary.Confidence,
		Reasoning:    primary.Reason,
		Alternatives: append([]analysis.Candidate{}, rest...),
	}

	b.logger.Debug().
		Str("primary", string(rec.Primary)).
		Float64("confidence", rec.Confidence).
		Int("alternatives", len(rec.Alternatives)).
		Msg("test recommended")

	return rec, nil
}

func describe(p analysis.DataProfile) string {
	parts := []string{fmt.Sprintf("%s outcome", p.OutcomeType)}
	switch {
	case !p.HasGroups():
		parts = append(parts, "no group variable")
	default:
		parts = append(parts, fmt.Sprintf("%d group(s)", p.NGroups))
	}
	if p.TimeVariable != "" && p.EventVariable == "" {
		parts = append(parts, "time variable without event variable")
	}
	return strings.Join(parts, ", ")
}
