package portfolio

import (
	"context"
	"errors"

	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/stats"
	"sanctions-risk-engine/internal/types"
)

// ComparisonLevels are the confidence levels reported side by side
var ComparisonLevels = []float64{0.90, 0.95, 0.99}

// Estimator implements the PortfolioEstimator interface
type Estimator struct {
	cfg types.PortfolioConfig
}

// NewEstimator validates the configuration and creates an estimator
func NewEstimator(cfg types.PortfolioConfig) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// Estimate builds the daily volume series and computes VaR by three methods plus
// Expected Shortfall. A degenerate (zero variance) return series sets Degenerate
// and reports 0 for the parametric and Monte Carlo estimates.
func (e *Estimator) Estimate(ctx context.Context, txns []types.Transaction) (*types.PortfolioRisk, error) {
	series := DailySeries(txns, e.cfg.LookbackDays)
	if len(series) < 2 {
		return nil, &types.InsufficientDataError{Operation: "portfolio returns", Required: 2, Got: len(series)}
	}
	returns := Returns(series)
	if len(returns) == 0 {
		return nil, &types.InsufficientDataError{Operation: "portfolio returns", Required: 1, Got: 0}
	}
	latest := series[len(series)-1].Volume

	// a single return has no sample std; report it as zero spread
	std := stats.StdDev(returns)
	flat := degenerate(std)
	if flat {
		std = 0
	}

	risk := &types.PortfolioRisk{
		ConfidenceLevel:   e.cfg.ConfidenceLevel,
		LatestValue:       latest,
		Observations:      len(returns),
		MeanReturn:        stats.Mean(returns),
		StdReturn:         std,
		Degenerate:        flat,
		MonteCarloSamples: e.cfg.MonteCarloSamples,
		Seed:              e.cfg.Seed,
		Series:            series,
	}

	cmp, err := e.compare(ctx, returns, e.cfg.ConfidenceLevel, latest)
	if err != nil {
		return nil, err
	}
	risk.HistoricalVaR = cmp.Historical
	risk.ParametricVaR = cmp.Parametric
	risk.MonteCarloVaR = cmp.MonteCarlo
	risk.ExpectedShortfall = cmp.ExpectedShortfall

	for _, level := range ComparisonLevels {
		c, err := e.compare(ctx, returns, level, latest)
		if err != nil {
			return nil, err
		}
		risk.Comparison = append(risk.Comparison, c)
	}

	if risk.Degenerate {
		logger.Warn(ctx, "Portfolio returns have zero variance, parametric estimates set to 0",
			"observations", risk.Observations,
			"mean_return", risk.MeanReturn)
	}
	logger.Debug(ctx, "Portfolio risk estimated",
		"confidence", risk.ConfidenceLevel,
		"historical_var", risk.HistoricalVaR,
		"parametric_var", risk.ParametricVaR,
		"monte_carlo_var", risk.MonteCarloVaR,
		"expected_shortfall", risk.ExpectedShortfall)

	return risk, nil
}

func (e *Estimator) compare(ctx context.Context, returns []float64, confidence, latest float64) (types.VaRComparison, error) {
	c := types.VaRComparison{
		ConfidenceLevel:   confidence,
		Historical:        HistoricalVaR(returns, confidence, latest),
		ExpectedShortfall: ExpectedShortfall(returns, confidence, latest),
	}

	var err error
	if c.Parametric, err = ParametricVaR(returns, confidence, latest); err != nil && !errors.Is(err, types.ErrDegenerateDistribution) {
		return c, err
	}
	if c.MonteCarlo, err = MonteCarloVaR(ctx, returns, confidence, latest, e.cfg.MonteCarloSamples, e.cfg.Seed); err != nil && !errors.Is(err, types.ErrDegenerateDistribution) {
		return c, err
	}
	return c, nil
}
