package types

import "github.com/shopspring/decimal"

// FlagRole distinguishes which side of a transfer a flag rate was measured on
type FlagRole string

const (
	RoleSender   FlagRole = "sender"
	RoleReceiver FlagRole = "receiver"
	RoleAny      FlagRole = "any"
)

// CountryFlagRate is the share of flagged transactions for one country in one role
type CountryFlagRate struct {
	Country          string   `json:"country"`
	Role             FlagRole `json:"role"`
	TransactionCount int      `json:"transaction_count"`
	FlaggedCount     int      `json:"flagged_count"`
	FlagRate         float64  `json:"flag_rate"`
}

// CountryExposure is the volume a country moved in each direction
type CountryExposure struct {
	Country  string          `json:"country"`
	Incoming decimal.Decimal `json:"incoming_volume"`
	Outgoing decimal.Decimal `json:"outgoing_volume"`
	Total    decimal.Decimal `json:"total"`
}

// ExposureMetrics is the output of the exposure calculator
type ExposureMetrics struct {
	TotalVolume       decimal.Decimal   `json:"total_volume"`
	SanctionedVolume  decimal.Decimal   `json:"sanctioned_volume"`
	PercentSanctioned float64           `json:"percent_sanctioned"`
	TransactionCount  int               `json:"transaction_count"`
	SanctionedCount   int               `json:"sanctioned_count"`
	SenderFlagRates   []CountryFlagRate `json:"sender_flag_rates"`
	ReceiverFlagRates []CountryFlagRate `json:"receiver_flag_rates"`
	CountryExposure   []CountryExposure `json:"sanction_exposure_by_country"`
}

// PenaltySummary aggregates potential penalties over a scored set
type PenaltySummary struct {
	ConfidenceLevel       float64                          `json:"confidence_level"`
	TotalPotentialPenalty decimal.Decimal                  `json:"total_potential_penalty"`
	PenaltyByCategory     map[RiskCategory]decimal.Decimal `json:"penalty_by_category"`
	WorstCaseExposure     decimal.Decimal                  `json:"worst_case_exposure"`
	PenaltyAtRisk         decimal.Decimal                  `json:"penalty_at_risk"`
}

// VaRMethod names a Value-at-Risk estimation method
type VaRMethod string

const (
	VaRHistorical VaRMethod = "historical"
	VaRParametric VaRMethod = "parametric"
	VaRMonteCarlo VaRMethod = "monte_carlo"
)

// DailyValue is one point of the daily portfolio series
type DailyValue struct {
	Date             string  `json:"date"`
	Volume           float64 `json:"volume"`
	SanctionedVolume float64 `json:"sanctioned_volume"`
}

// VaRComparison holds the three VaR estimates and ES at one confidence level
type VaRComparison struct {
	ConfidenceLevel   float64 `json:"confidence_level"`
	Historical        float64 `json:"historical"`
	Parametric        float64 `json:"parametric"`
	MonteCarlo        float64 `json:"monte_carlo"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
}

// PortfolioRisk is the output of the VaR / ES estimator
type PortfolioRisk struct {
	ConfidenceLevel   float64         `json:"confidence_level"`
	LatestValue       float64         `json:"latest_value"`
	Observations      int             `json:"observations"`
	MeanReturn        float64         `json:"mean_return"`
	StdReturn         float64         `json:"std_return"`
	HistoricalVaR     float64         `json:"historical_var"`
	ParametricVaR     float64         `json:"parametric_var"`
	MonteCarloVaR     float64         `json:"monte_carlo_var"`
	ExpectedShortfall float64         `json:"expected_shortfall"`
	Degenerate        bool            `json:"degenerate"`
	MonteCarloSamples int             `json:"monte_carlo_samples"`
	Seed              int64           `json:"seed"`
	Comparison        []VaRComparison `json:"comparison"`
	Series            []DailyValue    `json:"series"`
}

// TrendPoint is one day of the report time trend
type TrendPoint struct {
	Date             string          `json:"date"`
	Volume           decimal.Decimal `json:"volume"`
	SanctionedVolume decimal.Decimal `json:"sanctioned_volume"`
	TransactionCount int             `json:"transaction_count"`
	FlagCount        int             `json:"flag_count"`
	FlagRatio        float64         `json:"flag_ratio"`
}

// GeneratedAtFormat is the layout used for report timestamps in file names
const GeneratedAtFormat = "2006-01-02_15-04-05"
