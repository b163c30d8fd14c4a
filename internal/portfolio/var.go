package portfolio

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"sanctions-risk-engine/internal/stats"
	"sanctions-risk-engine/internal/types"
)

// ctxCheckInterval is how many Monte Carlo draws run between cancellation checks
const ctxCheckInterval = 1024

// DailySeries sums volume per UTC calendar date and keeps the most recent
// lookback observations in date order.
func DailySeries(txns []types.Transaction, lookback int) []types.DailyValue {
	byDate := make(map[string]*types.DailyValue)
	for _, t := range txns {
		d := t.Date()
		v, ok := byDate[d]
		if !ok {
			v = &types.DailyValue{Date: d}
			byDate[d] = v
		}
		amt := t.Amount.InexactFloat64()
		v.Volume += amt
		if t.SanctionsFlag {
			v.SanctionedVolume += amt
		}
	}

	series := make([]types.DailyValue, 0, len(byDate))
	for _, v := range byDate {
		series = append(series, *v)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

	if lookback > 0 && len(series) > lookback {
		series = series[len(series)-lookback:]
	}
	return series
}

// Returns computes day-over-day percentage changes of the series volume.
// Non-finite changes (after a zero-volume day) are dropped.
func Returns(series []types.DailyValue) []float64 {
	vols := make([]float64, len(series))
	for i, v := range series {
		vols[i] = v.Volume
	}
	return stats.Finite(stats.PctChange(vols))
}

// HistoricalVaR is |P(returns, 100(1-c))| scaled by the latest value
func HistoricalVaR(returns []float64, confidence, latest float64) float64 {
	return math.Abs(stats.Percentile(returns, 100*(1-confidence))) * latest
}

// ParametricVaR is the normal (1-c) quantile of the fitted returns scaled by the
// latest value. Zero or undefined dispersion returns 0 with a
// DegenerateDistributionError.
func ParametricVaR(returns []float64, confidence, latest float64) (float64, error) {
	mean, std := stats.Mean(returns), stats.StdDev(returns)
	if degenerate(std) {
		return 0, &types.DegenerateDistributionError{Operation: "parametric VaR", Mean: mean, StdDev: std}
	}
	q := distuv.Normal{Mu: mean, Sigma: std}.Quantile(1 - confidence)
	return math.Abs(q) * latest, nil
}

// MonteCarloVaR draws samples from the normal fitted to the returns using a PCG
// source seeded with seed, and scales the (1-c) percentile by the latest value.
// Identical inputs and seed give identical results.
func MonteCarloVaR(ctx context.Context, returns []float64, confidence, latest float64, samples int, seed int64) (float64, error) {
	draws, err := simulate(ctx, returns, samples, seed)
	if err != nil {
		return 0, err
	}
	return math.Abs(stats.Percentile(draws, 100*(1-confidence))) * latest, nil
}

func simulate(ctx context.Context, returns []float64, samples int, seed int64) ([]float64, error) {
	mean, std := stats.Mean(returns), stats.StdDev(returns)
	if degenerate(std) {
		return nil, &types.DegenerateDistributionError{Operation: "Monte Carlo VaR", Mean: mean, StdDev: std}
	}

	r := rand.New(rand.NewPCG(uint64(seed), 0))
	draws := make([]float64, samples)
	for i := range draws {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		draws[i] = mean + std*r.NormFloat64()
	}
	return draws, nil
}

// ExpectedShortfall is the absolute mean of the returns at or below the
// historical VaR cutoff, scaled by the latest value.
func ExpectedShortfall(returns []float64, confidence, latest float64) float64 {
	cutoff := stats.Percentile(returns, 100*(1-confidence))
	tail := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r <= cutoff {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return 0
	}
	return math.Abs(stats.Mean(tail)) * latest
}

func degenerate(std float64) bool {
	return std == 0 || math.IsNaN(std) || math.IsInf(std, 0)
}
