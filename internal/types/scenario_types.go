package types

import "github.com/shopspring/decimal"

// ScenarioKind names a what-if sanctions change
type ScenarioKind string

const (
	ScenarioNewSanctions      ScenarioKind = "new_sanctions"
	ScenarioIncreasedScrutiny ScenarioKind = "increased_scrutiny"
	ScenarioSanctionsLifting  ScenarioKind = "sanctions_lifting"
)

// Scenario describes one hypothetical change to the sanctions regime
type Scenario struct {
	Name           string       `json:"name" yaml:"name"`
	Kind           ScenarioKind `json:"kind" yaml:"kind"`
	Countries      []string     `json:"countries" yaml:"countries"`
	ScrutinyFactor float64      `json:"scrutiny_factor,omitempty" yaml:"scrutiny_factor"`
}

// ScenarioResult is the re-scored outcome of a scenario
type ScenarioResult struct {
	Name              string          `json:"name"`
	Kind              ScenarioKind    `json:"kind"`
	AffectedCountries []string        `json:"affected_countries"`
	FlaggedCount      int             `json:"flagged_count"`
	FlaggedAmount     decimal.Decimal `json:"flagged_amount"`
	PercentSanctioned float64         `json:"percent_sanctioned"`
	HighRiskCount     int             `json:"high_risk_count"`
	PotentialPenalty  decimal.Decimal `json:"potential_penalty"`
	BaselinePenalty   decimal.Decimal `json:"baseline_penalty"`
	PenaltyDelta      decimal.Decimal `json:"penalty_delta"`
}
