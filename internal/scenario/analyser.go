package scenario

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sanctions-risk-engine/internal/exposure"
	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/scoring"
	"sanctions-risk-engine/internal/types"
)

// DefaultScrutinyFactor multiplies penalties of transactions under increased scrutiny
const DefaultScrutinyFactor = 1.5

// DefaultScenarios returns the preset what-if scenarios
func DefaultScenarios() []types.Scenario {
	return []types.Scenario{
		{Name: "new_sanctions_scenario_1", Kind: types.ScenarioNewSanctions, Countries: []string{"China"}},
		{Name: "increased_scrutiny_scenario", Kind: types.ScenarioIncreasedScrutiny, Countries: []string{"France", "Germany", "Italy"}, ScrutinyFactor: DefaultScrutinyFactor},
		{Name: "sanctions_lifting_scenario", Kind: types.ScenarioSanctionsLifting, Countries: []string{"Cuba", "Venezuela"}},
	}
}

// Analyser implements the ScenarioRunner interface
type Analyser struct {
	scorer *scoring.Scorer
}

// NewAnalyser validates the scoring configuration used to re-score each scenario
func NewAnalyser(cfg types.ScoringConfig) (*Analyser, error) {
	s, err := scoring.NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	return &Analyser{scorer: s}, nil
}

// Run applies each scenario to a copy of the snapshot, re-scores it and reports
// the flag and penalty impact against the unchanged baseline. Scenarios run
// concurrently; results keep the order of the input.
func (a *Analyser) Run(ctx context.Context, txns []types.Transaction, scenarios []types.Scenario) ([]types.ScenarioResult, error) {
	for _, sc := range scenarios {
		if err := validate(sc); err != nil {
			return nil, err
		}
	}

	baseline, err := a.scorer.Score(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("baseline scoring: %w", err)
	}
	basePenalty := totalPenalty(baseline, nil, 1)

	results := make([]types.ScenarioResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := a.evaluate(gctx, txns, sc)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.Name, err)
			}
			res.BaselinePenalty = basePenalty
			res.PenaltyDelta = res.PotentialPenalty.Sub(basePenalty)
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "Scenario analysis complete",
		"scenarios", len(results),
		"baseline_penalty", basePenalty.StringFixed(2))

	return results, nil
}

func (a *Analyser) evaluate(ctx context.Context, txns []types.Transaction, sc types.Scenario) (*types.ScenarioResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	affected := types.NewCountrySet(sc.Countries...)
	modified := Apply(txns, sc)

	scored, err := a.scorer.Score(ctx, modified)
	if err != nil {
		return nil, err
	}

	res := &types.ScenarioResult{
		Name:              sc.Name,
		Kind:              sc.Kind,
		AffectedCountries: affected.Sorted(),
		FlaggedAmount:     decimal.Zero,
	}
	total := decimal.Zero
	for _, t := range modified {
		total = total.Add(t.Amount)
		if t.SanctionsFlag {
			res.FlaggedCount++
			res.FlaggedAmount = res.FlaggedAmount.Add(t.Amount)
		}
	}
	res.PercentSanctioned = exposure.PercentOf(res.FlaggedAmount, total)
	for _, st := range scored {
		if st.RiskCategory == types.RiskHigh {
			res.HighRiskCount++
		}
	}

	if sc.Kind == types.ScenarioIncreasedScrutiny {
		res.PotentialPenalty = totalPenalty(scored, affected, scrutinyFactor(sc))
	} else {
		res.PotentialPenalty = totalPenalty(scored, nil, 1)
	}
	return res, nil
}

// Apply returns a copy of the transactions with the scenario's flag changes.
// New sanctions flag every transaction touching an affected country; lifting
// clears the flag when both parties are lifted. Increased scrutiny leaves flags
// as they are and only weights penalties in evaluate.
func Apply(txns []types.Transaction, sc types.Scenario) []types.Transaction {
	affected := types.NewCountrySet(sc.Countries...)
	out := make([]types.Transaction, len(txns))
	for i, t := range txns {
		switch sc.Kind {
		case types.ScenarioNewSanctions:
			if affected.Contains(t.SenderCountry) || affected.Contains(t.ReceiverCountry) {
				t.SanctionsFlag = true
			}
		case types.ScenarioSanctionsLifting:
			if affected.Contains(t.SenderCountry) && affected.Contains(t.ReceiverCountry) {
				t.SanctionsFlag = false
			}
		}
		out[i] = t
	}
	return out
}

// totalPenalty sums potential penalties, scaling those of transactions touching
// scaled countries by factor
func totalPenalty(scored []types.ScoredTransaction, scaled types.CountrySet, factor float64) decimal.Decimal {
	f := decimal.NewFromFloat(factor)
	total := decimal.Zero
	for _, st := range scored {
		p := st.PotentialPenalty
		if scaled != nil && (scaled.Contains(st.SenderCountry) || scaled.Contains(st.ReceiverCountry)) {
			p = p.Mul(f)
		}
		total = total.Add(p)
	}
	return total
}

func scrutinyFactor(sc types.Scenario) float64 {
	if sc.ScrutinyFactor == 0 {
		return DefaultScrutinyFactor
	}
	return sc.ScrutinyFactor
}

func validate(sc types.Scenario) error {
	switch sc.Kind {
	case types.ScenarioNewSanctions, types.ScenarioIncreasedScrutiny, types.ScenarioSanctionsLifting:
	default:
		return &types.ConfigurationError{Field: "scenario.kind", Value: sc.Kind, Reason: "unknown scenario kind"}
	}
	if len(sc.Countries) == 0 {
		return &types.ConfigurationError{Field: "scenario.countries", Value: sc.Name, Reason: "at least one country is required"}
	}
	if sc.ScrutinyFactor < 0 {
		return &types.ConfigurationError{Field: "scenario.scrutiny_factor", Value: sc.ScrutinyFactor, Reason: "must be non-negative"}
	}
	return nil
}
