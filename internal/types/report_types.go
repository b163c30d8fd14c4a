package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Report section names
const (
	SectionExposure  = "exposure"
	SectionScoring   = "scoring"
	SectionPortfolio = "portfolio"
	SectionAnomaly   = "anomaly"
	SectionNetwork   = "network"
	SectionScenarios = "scenarios"
)

// SummaryMetrics are the headline numbers of a report
type SummaryMetrics struct {
	TransactionCount         int             `json:"transaction_count"`
	SanctionedCount          int             `json:"sanctioned_count"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	SanctionedVolume         decimal.Decimal `json:"sanctioned_volume"`
	PercentSanctioned        float64         `json:"percent_sanctioned"`
	PercentHighRisk          float64         `json:"percent_high_risk"`
	PotentialPenaltyExposure decimal.Decimal `json:"potential_penalty_exposure"`
	PenaltyAtRisk            decimal.Decimal `json:"penalty_at_risk"`
	WorstCaseExposure        decimal.Decimal `json:"worst_case_exposure"`
	ConfidenceLevel          float64         `json:"confidence_level"`
}

// CategoryBreakdown is one row of the risk-by-category partition
type CategoryBreakdown struct {
	Category         RiskCategory    `json:"category"`
	Count            int             `json:"count"`
	Volume           decimal.Decimal `json:"volume"`
	SanctionedVolume decimal.Decimal `json:"sanctioned_volume"`
	Penalty          decimal.Decimal `json:"penalty"`
}

// CountryRisk is one row of the per-country risk table
type CountryRisk struct {
	Country          string          `json:"country"`
	TransactionCount int             `json:"transaction_count"`
	FlaggedCount     int             `json:"flagged_count"`
	FlagRate         float64         `json:"flag_rate"`
	SenderFlagRate   float64         `json:"sender_flag_rate"`
	ReceiverFlagRate float64         `json:"receiver_flag_rate"`
	TotalExposure    decimal.Decimal `json:"total_exposure"`
}

// SectionError marks a report section that failed in lenient mode
type SectionError struct {
	Section string `json:"section"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ComplianceReport is the immutable aggregate built from one transaction snapshot
type ComplianceReport struct {
	ReportID        uuid.UUID           `json:"report_id"`
	GeneratedAt     time.Time           `json:"generated_at"`
	ConfidenceLevel float64             `json:"confidence_level"`
	Mode            ReportMode          `json:"mode"`
	Summary         SummaryMetrics      `json:"summary_metrics"`
	RiskByCategory  []CategoryBreakdown `json:"risk_by_category"`
	CountryRisk     []CountryRisk       `json:"country_risk"`
	TimeTrend       []TrendPoint        `json:"time_trend"`
	TopTransactions []ScoredTransaction `json:"top_transactions"`
	Exposure        *ExposureMetrics    `json:"exposure"`
	Penalty         *PenaltySummary     `json:"penalty"`
	Portfolio       *PortfolioRisk      `json:"portfolio,omitempty"`
	Anomalies       *AnomalyResult      `json:"anomalies,omitempty"`
	Network         *NetworkAnalysis    `json:"network,omitempty"`
	Scenarios       []ScenarioResult    `json:"scenarios,omitempty"`
	SectionErrors   []SectionError      `json:"section_errors,omitempty"`
}

// HasErrors reports whether any section failed
func (r *ComplianceReport) HasErrors() bool {
	return len(r.SectionErrors) > 0
}

// Category returns the breakdown row of one category
func (r *ComplianceReport) Category(c RiskCategory) CategoryBreakdown {
	for _, b := range r.RiskByCategory {
		if b.Category == c {
			return b
		}
	}
	return CategoryBreakdown{Category: c}
}
