package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-risk-engine/internal/types"
)

func ledger() []types.Transaction {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mk := func(id, from, to string, flagged bool) types.Transaction {
		return types.Transaction{
			ID:              id,
			Timestamp:       at,
			Amount:          decimal.NewFromInt(100),
			SenderCountry:   from,
			ReceiverCountry: to,
			SanctionsFlag:   flagged,
		}
	}
	return []types.Transaction{
		mk("1", "A", "B", true),
		mk("2", "B", "A", true),
		mk("3", "C", "A", false),
		mk("4", "C", "D", false),
	}
}

func newAnalyser(t *testing.T) *Analyser {
	t.Helper()
	a, err := NewAnalyser(types.DefaultAnalysisConfig().Scoring)
	require.NoError(t, err)
	return a
}

func TestRunScenarios(t *testing.T) {
	a := newAnalyser(t)
	txns := ledger()

	results, err := a.Run(context.Background(), txns, []types.Scenario{
		{Name: "sanction_c", Kind: types.ScenarioNewSanctions, Countries: []string{"C"}},
		{Name: "lift_ab", Kind: types.ScenarioSanctionsLifting, Countries: []string{"B", "A"}},
		{Name: "lift_b", Kind: types.ScenarioSanctionsLifting, Countries: []string{"B"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	sanction := results[0]
	assert.Equal(t, "sanction_c", sanction.Name)
	assert.Equal(t, 4, sanction.FlaggedCount)
	assert.True(t, sanction.FlaggedAmount.Equal(decimal.NewFromInt(400)))
	assert.InDelta(t, 100.0, sanction.PercentSanctioned, 1e-9)

	lifted := results[1]
	assert.Equal(t, []string{"A", "B"}, lifted.AffectedCountries)
	assert.Equal(t, 0, lifted.FlaggedCount)
	assert.Equal(t, 0.0, lifted.PercentSanctioned)
	assert.True(t, lifted.PenaltyDelta.IsNegative())

	// one lifted party is not enough
	assert.Equal(t, 2, results[2].FlaggedCount)

	for _, r := range results {
		assert.True(t, r.PenaltyDelta.Equal(r.PotentialPenalty.Sub(r.BaselinePenalty)), r.Name)
		assert.True(t, r.BaselinePenalty.Equal(results[0].BaselinePenalty))
	}

	// the input snapshot is untouched
	assert.Equal(t, ledger(), txns)
}

func TestIncreasedScrutinyScalesPenalty(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	txns := []types.Transaction{
		{ID: "fr", Timestamp: at, Amount: decimal.NewFromInt(100), SenderCountry: "France", ReceiverCountry: "USA"},
		{ID: "us", Timestamp: at, Amount: decimal.NewFromInt(100), SenderCountry: "USA", ReceiverCountry: "UK"},
	}

	a := newAnalyser(t)
	results, err := a.Run(context.Background(), txns, []types.Scenario{
		{Name: "scrutiny_fr", Kind: types.ScenarioIncreasedScrutiny, Countries: []string{"France"}, ScrutinyFactor: 1.5},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// flags stay as they were; only the weighting changes
	r := results[0]
	assert.Equal(t, 0, r.FlaggedCount)
	assert.True(t, r.FlaggedAmount.IsZero())
	assert.Equal(t, 0.0, r.PercentSanctioned)

	baseline, err := a.scorer.Score(context.Background(), txns)
	require.NoError(t, err)
	french := baseline[0].PotentialPenalty
	assert.True(t, r.PotentialPenalty.Equal(french.Mul(decimal.NewFromFloat(1.5)).Add(baseline[1].PotentialPenalty)),
		"got %s", r.PotentialPenalty)
	assert.True(t, r.PenaltyDelta.Equal(french.Mul(decimal.NewFromFloat(0.5))), "got %s", r.PenaltyDelta)
}

func TestIncreasedScrutinyKeepsFlags(t *testing.T) {
	txns := ledger()
	out := Apply(txns, types.Scenario{Kind: types.ScenarioIncreasedScrutiny, Countries: []string{"D"}})
	assert.Equal(t, txns, out)
}

func TestApplyCopies(t *testing.T) {
	txns := ledger()
	out := Apply(txns, types.Scenario{Kind: types.ScenarioNewSanctions, Countries: []string{"D"}})
	assert.True(t, out[3].SanctionsFlag)
	assert.False(t, txns[3].SanctionsFlag)
}

func TestRunRejectsBadScenarios(t *testing.T) {
	a := newAnalyser(t)

	_, err := a.Run(context.Background(), ledger(), []types.Scenario{{Name: "x", Kind: "embargo", Countries: []string{"A"}}})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = a.Run(context.Background(), ledger(), []types.Scenario{{Name: "x", Kind: types.ScenarioNewSanctions}})
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	_, err = a.Run(context.Background(), nil, DefaultScenarios())
	assert.True(t, errors.Is(err, types.ErrInsufficientData))
}

func TestDefaultScenariosValid(t *testing.T) {
	for _, sc := range DefaultScenarios() {
		assert.NoError(t, validate(sc), sc.Name)
	}
}
