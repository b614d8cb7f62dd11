package survival

import (
	"sort"

	"scifig/domain/analysis"
	"scifig/internal/errors"
)

// MedianThreshold is the survival probability that defines median survival
const MedianThreshold = 0.5

type observation struct {
	time  float64
	event int
}

func sortedObservations(times []float64, events []int) []observation {
	obs := make([]observation, len(times))
	for i := range times {
		obs[i] = observation{time: times[i], event: events[i]}
	}
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].time < obs[j].time })
	return obs
}

// KaplanMeier fits the product-limit estimator. The curve has one point per
// distinct observed time, preceded by S(0) = 1 when no observation sits at 0.
// MedianSurvival is the first time at which S(t) <= 0.5 and stays nil when
// the curve never gets there.
func KaplanMeier(times []float64, events []int) (analysis.SurvivalGroup, error) {
	if len(times) != len(events) {
		return analysis.SurvivalGroup{}, errors.DataError("time and event lengths differ: %d vs %d", len(times), len(events))
	}
	if len(times) == 0 {
		return analysis.SurvivalGroup{}, errors.DataError("empty survival group")
	}

	obs := sortedObservations(times, events)
	fit := analysis.SurvivalGroup{N: len(obs)}

	if obs[0].time > 0 {
		fit.Curve = append(fit.Curve, analysis.CurvePoint{Time: 0, Survival: 1, AtRisk: len(obs)})
	}

	survival := 1.0
	atRisk := len(obs)
	for i := 0; i < len(obs); {
		t := obs[i].time
		deaths, censored := 0, 0
		for ; i < len(obs) && obs[i].time == t; i++ {
			if obs[i].event == 1 {
				deaths++
			} else {
				censored++
			}
		}

		if deaths > 0 {
			survival *= 1 - float64(deaths)/float64(atRisk)
		}
		fit.Curve = append(fit.Curve, analysis.CurvePoint{
			Time:     t,
			Survival: survival,
			AtRisk:   atRisk,
			Events:   deaths,
			Censored: censored,
		})
		if fit.MedianSurvival == nil && survival <= MedianThreshold {
			fit.MedianSurvival = analysis.Float(t)
		}

		fit.Events += deaths
		fit.Censored += censored
		atRisk -= deaths + censored
	}

	return fit, nil
}

