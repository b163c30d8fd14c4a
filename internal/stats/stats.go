package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0..100) with linear interpolation between
// closest ranks, the "linear" method of numpy. Returns NaN for empty input.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// PercentileOfScore returns the percentile rank (0..100) of score within vals.
// Ties are ranked by their average position.
func PercentileOfScore(vals []float64, score float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	left, right := 0, 0
	for _, v := range vals {
		if v < score {
			left++
		}
		if v <= score {
			right++
		}
	}
	extra := 0
	if right > left {
		extra = 1
	}
	return float64(left+right+extra) * 50 / float64(n)
}

// Median returns the middle value, averaging the two middle values for even lengths
func Median(vals []float64) float64 {
	return Percentile(vals, 50)
}

// Mean is the arithmetic mean, NaN when empty
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// StdDev is the sample (n-1) standard deviation, NaN for fewer than 2 values
func StdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

// PopStdDev is the population standard deviation
func PopStdDev(vals []float64) float64 {
	switch len(vals) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	_, variance := stat.PopMeanVariance(vals, nil)
	return math.Sqrt(variance)
}

// Max returns the largest value, 0 for empty input
func Max(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return floats.Max(vals)
}

// PctChange returns (x[i]-x[i-1])/x[i-1] for i >= 1. The first point has no
// predecessor and is dropped.
func PctChange(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		out = append(out, (series[i]-series[i-1])/series[i-1])
	}
	return out
}

// Finite drops NaN and infinite values
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Standardize scales each column of rows to zero mean and unit population
// variance in place. Columns with zero variance are only centred.
// It returns the per-column means and scales used.
func Standardize(rows [][]float64) (means, scales []float64) {
	if len(rows) == 0 {
		return nil, nil
	}
	dims := len(rows[0])
	means = make([]float64, dims)
	scales = make([]float64, dims)
	col := make([]float64, len(rows))
	for j := 0; j < dims; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		m, v := stat.PopMeanVariance(col, nil)
		sd := math.Sqrt(v)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		means[j], scales[j] = m, sd
		for _, r := range rows {
			r[j] = (r[j] - m) / sd
		}
	}
	return means, scales
}
