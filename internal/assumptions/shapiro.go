package assumptions

import (
	"math"
	"sort"

	"scifig/internal/errors"
	"scifig/internal/probability"
)

// Royston (1995) AS R94 polynomial coefficients
var (
	swC1 = []float64{0.0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0.0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// MaxShapiroN is the largest sample for which the Royston approximation is
// valid
const MaxShapiroN = 5000

// ShapiroWilk computes the W statistic and its p-value. The sample must hold
// between 3 and MaxShapiroN observations with a non-zero range.
func ShapiroWilk(data []float64) (w, p float64, err error) {
	n := len(data)
	if n < 3 {
		return 0, 0, errors.DataError("shapiro-wilk needs at least 3 observations, got %d", n)
	}
	if n > MaxShapiroN {
		return 0, 0, errors.DataError("shapiro-wilk supports at most %d observations, got %d", MaxShapiroN, n)
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)

	if x[n-1]-x[0] < 1e-19 {
		return 0, 0, errors.DataError("sample has zero range")
	}

	a := swCoefficients(n)

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)

	ssx := 0.0
	for _, v := range x {
		d := v - mean
		ssx += d * d
	}

	b := 0.0
	for i, ai := range a {
		b += ai * (x[n-1-i] - x[i])
	}

	w = math.Min(b*b/ssx, 1.0)
	p = swPValue(w, n)
	return w, p, nil
}

// swCoefficients returns the first n/2 weights a_1..a_{n/2}; the remaining
// weights are their negatives
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)

	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	m := make([]float64, half)
	an25 := float64(n) + 0.25
	summ2 := 0.0
	for i := 0; i < half; i++ {
		m[i] = probability.NormalQuantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	a[0] = a1

	first := 1
	var fac float64
	if n > 5 {
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
		first = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}

	for i := first; i < half; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

func swPValue(w float64, n int) float64 {
	if w >= 1 {
		return 1
	}

	if n == 3 {
		const pi6 = 6 / math.Pi
		const stqr = math.Pi / 3
		return probability.Clamp(pi6 * (math.Asin(math.Sqrt(w)) - stqr))
	}

	y := math.Log(1 - w)
	var m, s float64

	if n <= 11 {
		gamma := poly(swG, float64(n))
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, float64(n))
		s = math.Exp(poly(swC4, float64(n)))
	} else {
		ln := math.Log(float64(n))
		m = poly(swC5, ln)
		s = math.Exp(poly(swC6, ln))
	}

	return probability.Clamp(probability.NormalUpper((y - m) / s))
}

// poly evaluates c[0] + c[1]x + c[2]x^2 + ...
func poly(c []float64, x float64) float64 {
	result := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}
