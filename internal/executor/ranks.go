package executor

import "sort"

// rankSamples assigns mid-ranks to the pooled samples. It returns the rank
// sum per sample and the sizes of every tie block (only blocks > 1).
func rankSamples(samples ...[]float64) (rankSums []float64, ties []int) {
	type obs struct {
		value float64
		group int
	}
	var pooled []obs
	for g, s := range samples {
		for _, v := range s {
			pooled = append(pooled, obs{v, g})
		}
	}
	sort.SliceStable(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	rankSums = make([]float64, len(samples))
	for i := 0; i < len(pooled); {
		j := i
		for j < len(pooled) && pooled[j].value == pooled[i].value {
			j++
		}
		// positions i..j-1 share ranks i+1..j
		mid := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			rankSums[pooled[k].group] += mid
		}
		if j-i > 1 {
			ties = append(ties, j-i)
		}
		i = j
	}
	return rankSums, ties
}

// tieSum returns sum(t^3 - t) over tie blocks
func tieSum(ties []int) float64 {
	s := 0.0
	for _, t := range ties {
		ft := float64(t)
		s += ft*ft*ft - ft
	}
	return s
}
