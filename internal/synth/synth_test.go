package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-risk-engine/internal/types"
)

func TestGenerateDeterministic(t *testing.T) {
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := Options{Count: 500, Seed: DefaultSeed, End: end, HighRisk: types.DefaultAnalysisConfig().HighRiskSet()}

	a, err := Generate(opts)
	require.NoError(t, err)
	b, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.Len(t, a, 500)

	known := map[string]bool{}
	for _, c := range Countries {
		known[c.Name] = true
	}
	risky := opts.HighRisk
	for _, tx := range a {
		assert.False(t, tx.Amount.IsNegative())
		assert.False(t, tx.Timestamp.After(end))
		assert.False(t, tx.Timestamp.Before(end.AddDate(0, 0, -366)))
		assert.True(t, known[tx.SenderCountry])
		assert.True(t, known[tx.ReceiverCountry])
		assert.Equal(t, risky.Contains(tx.SenderCountry) || risky.Contains(tx.ReceiverCountry), tx.SanctionsFlag)
	}

	opts.Seed = 7
	c, err := Generate(opts)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, c := range Countries {
		sum += c.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGenerateRejectsNegativeCount(t *testing.T) {
	_, err := Generate(Options{Count: -1})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
