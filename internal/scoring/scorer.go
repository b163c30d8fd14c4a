package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"sanctions-risk-engine/internal/exposure"
	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/stats"
	"sanctions-risk-engine/internal/types"
)

// Scorer implements the TransactionScorer interface
type Scorer struct {
	cfg types.ScoringConfig
}

// NewScorer validates the configuration and creates a scorer
func NewScorer(cfg types.ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns a copy of the scorer's configuration
func (s *Scorer) Config() types.ScoringConfig {
	return s.cfg
}

// Score computes the four risk factors, the weighted score, the category and the
// potential penalty of every transaction. The input is not modified.
func (s *Scorer) Score(ctx context.Context, txns []types.Transaction) ([]types.ScoredTransaction, error) {
	if len(txns) == 0 {
		return nil, &types.InsufficientDataError{Operation: "risk scoring", Required: 1, Got: 0}
	}

	amounts := make([]float64, len(txns))
	for i, t := range txns {
		amounts[i] = t.Amount.InexactFloat64()
	}
	maxAmount := stats.Max(amounts)
	countryRates := exposure.FlagRates(txns, types.RoleAny)
	freq := FrequencyAnomaly(txns)

	scored := make([]types.ScoredTransaction, len(txns))
	for i, t := range txns {
		st := types.ScoredTransaction{Transaction: t}
		if maxAmount > 0 {
			st.AmountRisk = amounts[i] / maxAmount
		}
		if t.SanctionsFlag {
			st.SanctionsRisk = 1
		}
		st.CountryRisk = math.Max(countryRates[t.SenderCountry].FlagRate, countryRates[t.ReceiverCountry].FlagRate)
		st.FrequencyAnomaly = freq[i]
		st.RiskScore = s.Combine(st.AmountRisk, st.SanctionsRisk, st.CountryRisk, st.FrequencyAnomaly)
		st.RiskCategory = s.cfg.Thresholds.Categorize(st.RiskScore)
		st.PotentialPenalty = s.Penalty(t.Amount, st.RiskCategory)
		scored[i] = st
	}

	logger.Debug(ctx, "Transactions scored",
		"transactions", len(scored),
		"max_amount", maxAmount)

	return scored, nil
}

// Combine applies the factor weights
func (s *Scorer) Combine(amountRisk, sanctionsRisk, countryRisk, frequencyAnomaly float64) float64 {
	w := s.cfg.Weights
	return w.Amount*amountRisk +
		w.SanctionsFlag*sanctionsRisk +
		w.CountryRisk*countryRisk +
		w.FrequencyAnomaly*frequencyAnomaly
}

// Penalty returns amount times the category's penalty rate
func (s *Scorer) Penalty(amount decimal.Decimal, c types.RiskCategory) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(s.cfg.PenaltyRates.For(c)))
}

// PenaltyExposure summarizes the potential penalties of a scored set
func (s *Scorer) PenaltyExposure(scored []types.ScoredTransaction, confidence float64) (*types.PenaltySummary, error) {
	if err := types.ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, &types.InsufficientDataError{Operation: "penalty exposure", Required: 1, Got: 0}
	}

	summary := &types.PenaltySummary{
		ConfidenceLevel:       confidence,
		TotalPotentialPenalty: decimal.Zero,
		PenaltyByCategory:     make(map[types.RiskCategory]decimal.Decimal, len(types.RiskCategories)),
		WorstCaseExposure:     decimal.Zero,
	}
	for _, c := range types.RiskCategories {
		summary.PenaltyByCategory[c] = decimal.Zero
	}

	penalties := make([]float64, len(scored))
	for i, st := range scored {
		summary.TotalPotentialPenalty = summary.TotalPotentialPenalty.Add(st.PotentialPenalty)
		summary.PenaltyByCategory[st.RiskCategory] = summary.PenaltyByCategory[st.RiskCategory].Add(st.PotentialPenalty)
		if st.RiskCategory == types.RiskHigh {
			summary.WorstCaseExposure = summary.WorstCaseExposure.Add(st.Amount)
		}
		penalties[i] = st.PotentialPenalty.InexactFloat64()
	}

	par := stats.Percentile(penalties, confidence*100)
	if math.IsNaN(par) {
		return nil, fmt.Errorf("penalty at risk: percentile undefined for %d penalties", len(penalties))
	}
	summary.PenaltyAtRisk = decimal.NewFromFloat(par)

	return summary, nil
}
