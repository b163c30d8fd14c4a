package types

import "math"

const weightSumTolerance = 1e-9

// DefaultHighRiskCountries is the static high-risk jurisdiction list used when no list is configured
var DefaultHighRiskCountries = []string{"Iran", "Russia", "Venezuela", "Cuba", "Syria", "North Korea"}

// FactorWeights assigns a weight to each of the four risk factors. Weights must sum to 1.0.
type FactorWeights struct {
	Amount           float64 `json:"amount" yaml:"amount"`
	SanctionsFlag    float64 `json:"sanctions_flag" yaml:"sanctions_flag"`
	CountryRisk      float64 `json:"country_risk" yaml:"country_risk"`
	FrequencyAnomaly float64 `json:"frequency_anomaly" yaml:"frequency_anomaly"`
}

// Sum returns the total weight
func (w FactorWeights) Sum() float64 {
	return w.Amount + w.SanctionsFlag + w.CountryRisk + w.FrequencyAnomaly
}

// RiskThresholds are the lower bounds of the high and medium categories
type RiskThresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
}

// Categorize maps a score to its category
func (t RiskThresholds) Categorize(score float64) RiskCategory {
	switch {
	case score >= t.High:
		return RiskHigh
	case score >= t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// PenaltyRates holds the penalty fraction applied per category
type PenaltyRates struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
	Low    float64 `json:"low" yaml:"low"`
}

// For returns the rate of a category
func (r PenaltyRates) For(c RiskCategory) float64 {
	switch c {
	case RiskHigh:
		return r.High
	case RiskMedium:
		return r.Medium
	default:
		return r.Low
	}
}

// ScoringConfig configures the transaction risk scorer
type ScoringConfig struct {
	Weights      FactorWeights  `json:"weights" yaml:"weights"`
	Thresholds   RiskThresholds `json:"thresholds" yaml:"thresholds"`
	PenaltyRates PenaltyRates   `json:"penalty_rates" yaml:"penalty_rates"`
}

// Validate checks weights, threshold ordering and rate bounds
func (c ScoringConfig) Validate() error {
	w := c.Weights
	for _, f := range []struct {
		field string
		v     float64
	}{
		{"weights.amount", w.Amount},
		{"weights.sanctions_flag", w.SanctionsFlag},
		{"weights.country_risk", w.CountryRisk},
		{"weights.frequency_anomaly", w.FrequencyAnomaly},
	} {
		if f.v < 0 || math.IsNaN(f.v) {
			return &ConfigurationError{Field: f.field, Value: f.v, Reason: "weight must be non-negative"}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return &ConfigurationError{Field: "weights", Value: sum, Reason: "weights must sum to 1.0"}
	}

	t := c.Thresholds
	if t.Medium < 0 {
		return &ConfigurationError{Field: "thresholds.medium", Value: t.Medium, Reason: "must be >= 0"}
	}
	if t.High <= t.Medium {
		return &ConfigurationError{Field: "thresholds.high", Value: t.High, Reason: "must be greater than thresholds.medium"}
	}

	r := c.PenaltyRates
	for _, rate := range []struct {
		field string
		v     float64
	}{{"penalty_rates.high", r.High}, {"penalty_rates.medium", r.Medium}, {"penalty_rates.low", r.Low}} {
		if rate.v < 0 || rate.v > 1 || math.IsNaN(rate.v) {
			return &ConfigurationError{Field: rate.field, Value: rate.v, Reason: "rate must be within [0,1]"}
		}
	}
	return nil
}

// PortfolioConfig configures the VaR / Expected Shortfall estimator
type PortfolioConfig struct {
	ConfidenceLevel   float64 `json:"confidence_level"`
	LookbackDays      int     `json:"lookback_days"`
	MonteCarloSamples int     `json:"monte_carlo_samples"`
	Seed              int64   `json:"seed"`
}

// Validate checks the estimator parameters
func (c PortfolioConfig) Validate() error {
	if err := ValidateConfidence(c.ConfidenceLevel); err != nil {
		return err
	}
	if c.LookbackDays < 2 {
		return &ConfigurationError{Field: "lookback_days", Value: c.LookbackDays, Reason: "must be at least 2"}
	}
	if c.MonteCarloSamples < 1 {
		return &ConfigurationError{Field: "monte_carlo_samples", Value: c.MonteCarloSamples, Reason: "must be positive"}
	}
	return nil
}

// ValidateConfidence checks that a confidence level lies strictly inside (0,1)
func ValidateConfidence(c float64) error {
	if !(c > 0 && c < 1) {
		return &ConfigurationError{Field: "confidence_level", Value: c, Reason: "must be within (0,1)"}
	}
	return nil
}

// AnomalyConfig configures the anomaly detector and its clustering stage
type AnomalyConfig struct {
	Clusters            int     `json:"clusters" yaml:"clusters"`
	NInit               int     `json:"n_init" yaml:"n_init"`
	MaxIterations       int     `json:"max_iterations" yaml:"max_iterations"`
	Tolerance           float64 `json:"tolerance" yaml:"tolerance"`
	Seed                int64   `json:"seed" yaml:"-"`
	TopN                int     `json:"top_n" yaml:"top_n"`
	ZScoreThreshold     float64 `json:"zscore_threshold" yaml:"zscore_threshold"`
	PercentileThreshold float64 `json:"percentile_threshold" yaml:"percentile_threshold"`
}

// Validate checks the detector parameters
func (c AnomalyConfig) Validate() error {
	switch {
	case c.Clusters < 1:
		return &ConfigurationError{Field: "anomaly.clusters", Value: c.Clusters, Reason: "must be positive"}
	case c.NInit < 1:
		return &ConfigurationError{Field: "anomaly.n_init", Value: c.NInit, Reason: "must be positive"}
	case c.MaxIterations < 1:
		return &ConfigurationError{Field: "anomaly.max_iterations", Value: c.MaxIterations, Reason: "must be positive"}
	case c.Tolerance < 0 || math.IsNaN(c.Tolerance):
		return &ConfigurationError{Field: "anomaly.tolerance", Value: c.Tolerance, Reason: "must be >= 0"}
	case c.ZScoreThreshold < 0 || math.IsNaN(c.ZScoreThreshold):
		return &ConfigurationError{Field: "anomaly.zscore_threshold", Value: c.ZScoreThreshold, Reason: "must be >= 0"}
	case c.TopN < 1:
		return &ConfigurationError{Field: "anomaly.top_n", Value: c.TopN, Reason: "must be positive"}
	case !(c.PercentileThreshold >= 0 && c.PercentileThreshold <= 100):
		return &ConfigurationError{Field: "anomaly.percentile_threshold", Value: c.PercentileThreshold, Reason: "must be within [0,100]"}
	}
	return nil
}

// NetworkConfig configures graph analysis and the path search budget
type NetworkConfig struct {
	HighRiskFlagRate float64 `json:"high_risk_flag_rate" yaml:"high_risk_flag_rate"`
	MaxHops          int     `json:"max_hops" yaml:"max_hops"`
	MaxPaths         int     `json:"max_paths" yaml:"max_paths"`
}

// Validate checks the network parameters
func (c NetworkConfig) Validate() error {
	switch {
	case c.HighRiskFlagRate < 0 || c.HighRiskFlagRate > 1:
		return &ConfigurationError{Field: "network.high_risk_flag_rate", Value: c.HighRiskFlagRate, Reason: "must be within [0,1]"}
	case c.MaxHops < 1:
		return &ConfigurationError{Field: "network.max_hops", Value: c.MaxHops, Reason: "must be positive"}
	case c.MaxPaths < 1:
		return &ConfigurationError{Field: "network.max_paths", Value: c.MaxPaths, Reason: "must be positive"}
	}
	return nil
}

// ReportMode selects how optional section failures are handled
type ReportMode string

const (
	// ModeStrict fails the whole report on any section error
	ModeStrict ReportMode = "strict"
	// ModeLenient records optional section errors and keeps going
	ModeLenient ReportMode = "lenient"
)

// AnalysisConfig is the full parameter set of one report invocation. It is passed by value.
type AnalysisConfig struct {
	ConfidenceLevel   float64       `json:"confidence_level"`
	Seed              int64         `json:"seed"`
	HighRiskCountries []string      `json:"high_risk_countries"`
	Scoring           ScoringConfig `json:"scoring"`
	LookbackDays      int           `json:"lookback_days"`
	MonteCarloSamples int           `json:"monte_carlo_samples"`
	Anomaly           AnomalyConfig `json:"anomaly"`
	Network           NetworkConfig `json:"network"`
	Mode              ReportMode    `json:"mode"`
	IncludePortfolio  bool          `json:"include_portfolio"`
	TopCountries      int           `json:"top_countries"`
	TopTransactions   int           `json:"top_transactions"`
	HighRiskAlertPct  float64       `json:"high_risk_alert_pct"`
	// Scenarios are evaluated after scoring; none skips the section
	Scenarios []Scenario `json:"scenarios,omitempty"`
}

// DefaultAnalysisConfig returns a fresh copy of the canonical configuration
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ConfidenceLevel:   0.95,
		Seed:              1337,
		HighRiskCountries: append([]string(nil), DefaultHighRiskCountries...),
		Scoring: ScoringConfig{
			Weights: FactorWeights{
				Amount:           0.3,
				SanctionsFlag:    0.4,
				CountryRisk:      0.2,
				FrequencyAnomaly: 0.1,
			},
			Thresholds:   RiskThresholds{High: 0.7, Medium: 0.4},
			PenaltyRates: PenaltyRates{High: 0.25, Medium: 0.10, Low: 0.01},
		},
		LookbackDays:      252,
		MonteCarloSamples: 10000,
		Anomaly: AnomalyConfig{
			Clusters:            3,
			NInit:               10,
			MaxIterations:       300,
			Tolerance:           1e-4,
			TopN:                20,
			ZScoreThreshold:     3,
			PercentileThreshold: 95,
		},
		Network: NetworkConfig{
			HighRiskFlagRate: 0.5,
			MaxHops:          3,
			MaxPaths:         10000,
		},
		Mode:             ModeStrict,
		IncludePortfolio: true,
		TopCountries:     10,
		TopTransactions:  20,
		HighRiskAlertPct: 10,
	}
}

// PortfolioSettings derives the estimator configuration
func (c AnalysisConfig) PortfolioSettings() PortfolioConfig {
	return PortfolioConfig{
		ConfidenceLevel:   c.ConfidenceLevel,
		LookbackDays:      c.LookbackDays,
		MonteCarloSamples: c.MonteCarloSamples,
		Seed:              c.Seed,
	}
}

// AnomalySettings derives the detector configuration, pinning the shared seed
func (c AnalysisConfig) AnomalySettings() AnomalyConfig {
	a := c.Anomaly
	a.Seed = c.Seed
	return a
}

// HighRiskSet returns the configured high-risk countries as a set
func (c AnalysisConfig) HighRiskSet() CountrySet {
	return NewCountrySet(c.HighRiskCountries...)
}

// Validate checks every nested section
func (c AnalysisConfig) Validate() error {
	if err := ValidateConfidence(c.ConfidenceLevel); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if err := c.PortfolioSettings().Validate(); err != nil {
		return err
	}
	if err := c.Anomaly.Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if c.Mode != ModeStrict && c.Mode != ModeLenient {
		return &ConfigurationError{Field: "mode", Value: c.Mode, Reason: "must be 'strict' or 'lenient'"}
	}
	if c.TopCountries < 1 {
		return &ConfigurationError{Field: "top_countries", Value: c.TopCountries, Reason: "must be positive"}
	}
	if c.TopTransactions < 1 {
		return &ConfigurationError{Field: "top_transactions", Value: c.TopTransactions, Reason: "must be positive"}
	}
	return nil
}
