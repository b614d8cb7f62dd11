package survival

import (
	"sort"

	"scifig/internal/errors"
	"scifig/internal/probability"
)

// LogRankResult is a two-group log-rank comparison
type LogRankResult struct {
	ChiSquare float64
	DF        int
	PValue    float64
	Observed  [2]int
	Expected  [2]float64
}

// LogRank compares two survival curves with the Mantel-Cox test
func LogRank(t1 []float64, e1 []int, t2 []float64, e2 []int) (LogRankResult, error) {
	if len(t1) != len(e1) || len(t2) != len(e2) {
		return LogRankResult{}, errors.DataError("time and event lengths differ")
	}
	if len(t1) == 0 || len(t2) == 0 {
		return LogRankResult{}, errors.DataError("log-rank needs two non-empty groups")
	}

	type record struct {
		time  float64
		event int
		group int
	}
	records := make([]record, 0, len(t1)+len(t2))
	for i := range t1 {
		records = append(records, record{t1[i], e1[i], 0})
	}
	for i := range t2 {
		records = append(records, record{t2[i], e2[i], 1})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].time < records[j].time })

	atRisk := [2]float64{float64(len(t1)), float64(len(t2))}
	var result LogRankResult
	result.DF = 1
	variance := 0.0

	for i := 0; i < len(records); {
		t := records[i].time
		var deaths, removed [2]float64
		for ; i < len(records) && records[i].time == t; i++ {
			r := records[i]
			removed[r.group]++
			if r.event == 1 {
				deaths[r.group]++
			}
		}

		d := deaths[0] + deaths[1]
		n := atRisk[0] + atRisk[1]
		if d > 0 {
			e1 := d * atRisk[0] / n
			result.Expected[0] += e1
			result.Expected[1] += d - e1
			if n > 1 {
				variance += atRisk[0] * atRisk[1] * d * (n - d) / (n * n * (n - 1))
			}
		}
		result.Observed[0] += int(deaths[0])
		result.Observed[1] += int(deaths[1])

		atRisk[0] -= removed[0]
		atRisk[1] -= removed[1]
	}

	if variance <= 0 {
		return result, errors.ComputationError("log-rank variance is zero")
	}

	diff := float64(result.Observed[0]) - result.Expected[0]
	result.ChiSquare = diff * diff / variance
	result.PValue = probability.ChiSquareUpper(result.ChiSquare, 1)
	return result, nil
}
