package technical

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// finite drops NaN and Inf values
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Mean returns the arithmetic mean, or NaN for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// PopStdDev returns the population (biased) standard deviation
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between the closest ranks, the same definition numpy uses by default.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}

	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Slope returns the least-squares slope of values against their position 0..n-1
func Slope(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}

	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}
