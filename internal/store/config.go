package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sanctions-risk-engine/internal/scenario"
	"sanctions-risk-engine/internal/types"
)

type Config struct {
	Mode              string              `yaml:"mode"`
	ConfidenceLevel   float64             `yaml:"confidence_level"`
	Seed              int64               `yaml:"seed"`
	HighRiskCountries []string            `yaml:"high_risk_countries"`
	Scoring           types.ScoringConfig `yaml:"scoring"`
	Portfolio         struct {
		Enabled           bool `yaml:"enabled"`
		LookbackDays      int  `yaml:"lookback_days"`
		MonteCarloSamples int  `yaml:"monte_carlo_samples"`
	} `yaml:"portfolio"`
	Anomaly types.AnomalyConfig `yaml:"anomaly"`
	Network types.NetworkConfig `yaml:"network"`
	Report  struct {
		TopCountries     int     `yaml:"top_countries"`
		TopTransactions  int     `yaml:"top_transactions"`
		HighRiskAlertPct float64 `yaml:"high_risk_alert_pct"`
		OutputDir        string  `yaml:"output_dir"`
		Format           string  `yaml:"format"`
	} `yaml:"report"`
	Filter struct {
		Countries []string `yaml:"countries"`
		MinAmount string   `yaml:"min_amount"`
	} `yaml:"filter"`
	Synthetic struct {
		Count int   `yaml:"count"`
		Seed  int64 `yaml:"seed"`
	} `yaml:"synthetic"`
	Scenarios []types.Scenario `yaml:"scenarios"`
}

// Default returns the canonical configuration; LoadConfig overlays the file on it
func Default() Config {
	a := types.DefaultAnalysisConfig()

	var c Config
	c.Mode = string(a.Mode)
	c.ConfidenceLevel = a.ConfidenceLevel
	c.Seed = a.Seed
	c.HighRiskCountries = a.HighRiskCountries
	c.Scoring = a.Scoring
	c.Portfolio.Enabled = a.IncludePortfolio
	c.Portfolio.LookbackDays = a.LookbackDays
	c.Portfolio.MonteCarloSamples = a.MonteCarloSamples
	c.Anomaly = a.Anomaly
	c.Network = a.Network
	c.Report.TopCountries = a.TopCountries
	c.Report.TopTransactions = a.TopTransactions
	c.Report.HighRiskAlertPct = a.HighRiskAlertPct
	c.Report.OutputDir = "reports"
	c.Report.Format = "text"
	c.Filter.MinAmount = "0"
	c.Synthetic.Count = 1000
	c.Synthetic.Seed = a.Seed
	c.Scenarios = scenario.DefaultScenarios()
	return c
}

func (c *Config) Validate() error {
	if c.Mode != string(types.ModeStrict) && c.Mode != string(types.ModeLenient) {
		return fmt.Errorf("invalid mode '%s': must be 'strict' or 'lenient'", c.Mode)
	}
	if len(c.HighRiskCountries) == 0 {
		return fmt.Errorf("high_risk_countries cannot be empty")
	}
	switch strings.ToLower(c.Report.Format) {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("report.format must be 'text', 'json' or 'csv', got '%s'", c.Report.Format)
	}
	if _, err := c.MinAmount(); err != nil {
		return err
	}
	if c.Synthetic.Count < 0 {
		return fmt.Errorf("synthetic.count must be non-negative, got %d", c.Synthetic.Count)
	}
	return c.ToAnalysisConfig().Validate()
}

// MinAmount parses the filter's minimum amount
func (c *Config) MinAmount() (decimal.Decimal, error) {
	if strings.TrimSpace(c.Filter.MinAmount) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(c.Filter.MinAmount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("filter.min_amount %q: %w", c.Filter.MinAmount, err)
	}
	return d, nil
}

// ToAnalysisConfig converts the file layout into the analysis parameters
func (c *Config) ToAnalysisConfig() types.AnalysisConfig {
	return types.AnalysisConfig{
		ConfidenceLevel:   c.ConfidenceLevel,
		Seed:              c.Seed,
		HighRiskCountries: append([]string(nil), c.HighRiskCountries...),
		Scoring:           c.Scoring,
		LookbackDays:      c.Portfolio.LookbackDays,
		MonteCarloSamples: c.Portfolio.MonteCarloSamples,
		Anomaly:           c.Anomaly,
		Network:           c.Network,
		Mode:              types.ReportMode(c.Mode),
		IncludePortfolio:  c.Portfolio.Enabled,
		TopCountries:      c.Report.TopCountries,
		TopTransactions:   c.Report.TopTransactions,
		HighRiskAlertPct:  c.Report.HighRiskAlertPct,
		Scenarios:         append([]types.Scenario(nil), c.Scenarios...),
	}
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.Mode = strings.ToLower(c.Mode)
	for i := range c.Scenarios {
		if c.Scenarios[i].Kind == types.ScenarioIncreasedScrutiny && c.Scenarios[i].ScrutinyFactor == 0 {
			c.Scenarios[i].ScrutinyFactor = scenario.DefaultScrutinyFactor
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
