package profiling

import (
	"math"
	"sort"

	"scifig/domain/analysis"
	"scifig/internal/errors"

	"github.com/montanaflynn/stats"
)

// Descriptives holds the summary statistics of one numeric sample
type Descriptives struct {
	N      int
	Mean   float64
	Std    float64 // sample standard deviation (n-1); 0 when N < 2
	SEM    float64
	Median float64
	Q1     float64
	Q3     float64
	IQR    float64
	Min    float64
	Max    float64
}

// Describe computes descriptive statistics for a sample. Quartiles
// interpolate linearly at (n-1)p on the sorted sample, matching the pandas
// and R type 7 definition.
func Describe(data []float64) (Descriptives, error) {
	d := Descriptives{N: len(data)}
	if len(data) == 0 {
		return d, errors.DataError("cannot describe an empty sample")
	}

	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return d, errors.Wrap(err, "mean")
	}
	if d.Median, err = stats.Median(data); err != nil {
		return d, errors.Wrap(err, "median")
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, errors.Wrap(err, "min")
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, errors.Wrap(err, "max")
	}

	if len(data) > 1 {
		if d.Std, err = stats.StandardDeviationSample(data); err != nil {
			return d, errors.Wrap(err, "standard deviation")
		}
		d.SEM = d.Std / math.Sqrt(float64(len(data)))
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	d.Q1 = Quantile(sorted, 0.25)
	d.Q3 = Quantile(sorted, 0.75)
	d.IQR = d.Q3 - d.Q1

	return d, nil
}

// Quantile returns the type 7 quantile of an ascending sample
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// Parametric returns the mean-based group summary used by t-test and ANOVA
func (d Descriptives) Parametric() analysis.GroupSummary {
	return analysis.GroupSummary{
		N:    d.N,
		Mean: analysis.Float(d.Mean),
		Std:  analysis.Float(d.Std),
		SEM:  analysis.Float(d.SEM),
	}
}

// RankBased returns the median-based group summary used by rank tests
func (d Descriptives) RankBased() analysis.GroupSummary {
	return analysis.GroupSummary{
		N:      d.N,
		Median: analysis.Float(d.Median),
		IQR:    analysis.Float(d.IQR),
	}
}

// Finite reports whether every value is a finite number
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
