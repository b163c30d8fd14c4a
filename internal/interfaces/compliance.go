package interfaces

import (
	"context"

	"sanctions-risk-engine/internal/types"
)

// ExposureCalculator aggregates volumes and flag rates over a transaction snapshot
type ExposureCalculator interface {
	// Calculate computes totals, sanctioned share, per-country flag rates and exposure
	Calculate(ctx context.Context, txns []types.Transaction) (*types.ExposureMetrics, error)
}

// TransactionScorer assigns multi-factor risk scores and categories
type TransactionScorer interface {
	// Score returns a fresh scored snapshot of the transactions
	Score(ctx context.Context, txns []types.Transaction) ([]types.ScoredTransaction, error)

	// PenaltyExposure summarizes potential penalties of a scored set at a confidence level
	PenaltyExposure(scored []types.ScoredTransaction, confidence float64) (*types.PenaltySummary, error)
}

// PortfolioEstimator estimates Value-at-Risk and Expected Shortfall of daily volume
type PortfolioEstimator interface {
	// Estimate computes historical, parametric and Monte Carlo VaR plus ES
	Estimate(ctx context.Context, txns []types.Transaction) (*types.PortfolioRisk, error)
}

// AnomalyDetector scores statistical outliers and clusters risk patterns
type AnomalyDetector interface {
	// Detect scores every transaction and profiles the clusters
	Detect(ctx context.Context, txns []types.Transaction) (*types.AnomalyResult, error)
}

// NetworkAnalyser builds the country graph and ranks risky routes
type NetworkAnalyser interface {
	// Analyse builds the graph, enumerates high-risk paths and computes centrality.
	// A traversal limit returns the partial analysis together with the error.
	Analyse(ctx context.Context, txns []types.Transaction) (*types.NetworkAnalysis, error)
}

// ScenarioRunner evaluates what-if sanctions changes
type ScenarioRunner interface {
	// Run re-flags and re-scores the snapshot under each scenario
	Run(ctx context.Context, txns []types.Transaction, scenarios []types.Scenario) ([]types.ScenarioResult, error)
}

// ReportGenerator builds the consolidated compliance report
type ReportGenerator interface {
	// Generate runs every analysis and joins the results into one report
	Generate(ctx context.Context, txns []types.Transaction) (*types.ComplianceReport, error)
}
