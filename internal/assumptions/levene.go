package assumptions

import (
	"math"

	"scifig/internal/errors"
	"scifig/internal/probability"

	"github.com/montanaflynn/stats"
)

// Levene computes the median-centred Levene statistic (Brown-Forsythe) and
// its F(k-1, N-k) p-value. Requires at least two groups and N > k.
func Levene(samples ...[]float64) (w, p float64, err error) {
	k := len(samples)
	if k < 2 {
		return 0, 0, errors.DataError("levene needs at least 2 groups, got %d", k)
	}

	deviations := make([][]float64, k)
	total := 0
	for i, s := range samples {
		if len(s) == 0 {
			return 0, 0, errors.DataError("levene group %d is empty", i+1)
		}
		median, err := stats.Median(s)
		if err != nil {
			return 0, 0, errors.Wrap(err, "group median")
		}
		z := make([]float64, len(s))
		for j, v := range s {
			z[j] = math.Abs(v - median)
		}
		deviations[i] = z
		total += len(s)
	}

	if total <= k {
		return 0, 0, errors.DataError("levene needs more observations than groups")
	}

	grand := 0.0
	groupMeans := make([]float64, k)
	for i, z := range deviations {
		sum := 0.0
		for _, v := range z {
			sum += v
		}
		groupMeans[i] = sum / float64(len(z))
		grand += sum
	}
	grand /= float64(total)

	between, within := 0.0, 0.0
	for i, z := range deviations {
		d := groupMeans[i] - grand
		between += float64(len(z)) * d * d
		for _, v := range z {
			e := v - groupMeans[i]
			within += e * e
		}
	}

	df1 := float64(k - 1)
	df2 := float64(total - k)

	if within == 0 {
		if between == 0 {
			return 0, 1, nil
		}
		return 0, 0, errors.ComputationError("levene statistic undefined: zero within-group spread of deviations")
	}

	w = (df2 / df1) * between / within
	return w, probability.FUpper(w, df1, df2), nil
}
