package network

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

var at = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func tx(from, to string, amount int64, flagged bool) types.Transaction {
	return types.Transaction{
		ID:              from + "-" + to,
		Timestamp:       at,
		Amount:          decimal.NewFromInt(amount),
		SenderCountry:   from,
		ReceiverCountry: to,
		SanctionsFlag:   flagged,
	}
}

// A->B, B->C, C->D, A->C, D->A, all flagged from A
func cycleLedger() []types.Transaction {
	return []types.Transaction{
		tx("A", "B", 100, true),
		tx("A", "C", 100, true),
		tx("B", "C", 50, false),
		tx("C", "D", 50, false),
		tx("D", "A", 10, false),
	}
}

func TestRiskRatioZeroTransactions(t *testing.T) {
	assert.Equal(t, 0.0, types.NetworkEdge{}.RiskRatio())

	g := NewGraph()
	e := g.AddEdge("X", "Y")
	assert.Equal(t, 0, e.TransactionCount)
	assert.Equal(t, 0.0, e.RiskRatio())
}

func TestBuildGraphAggregates(t *testing.T) {
	g := BuildGraph([]types.Transaction{
		tx("A", "B", 100, true),
		tx("A", "B", 50, false),
		tx("C", "C", 10, false),
	})

	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes())
	e, ok := g.Edge("A", "B")
	require.True(t, ok)
	assert.Equal(t, 2, e.TransactionCount)
	assert.Equal(t, 1, e.FlaggedCount)
	assert.True(t, e.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 0.5, e.RiskRatio())

	loop, ok := g.Edge("C", "C")
	require.True(t, ok)
	assert.Equal(t, 1, loop.TransactionCount)

	_, ok = g.Edge("B", "A")
	assert.False(t, ok)
}

func TestHighRiskPathsBounded(t *testing.T) {
	g := BuildGraph(cycleLedger())
	paths, err := HighRiskPaths(context.Background(), g, []string{"A"}, 3, 100)
	require.NoError(t, err)

	var got [][]string
	for _, p := range paths {
		got = append(got, p.Countries)
		assert.LessOrEqual(t, p.Hops, 3)
		assert.Equal(t, "A", p.Source)
		assert.Equal(t, p.Countries[len(p.Countries)-1], p.Target)
	}
	assert.Equal(t, [][]string{
		{"A", "B"},
		{"A", "B", "C"},
		{"A", "B", "C", "D"},
		{"A", "C"},
		{"A", "C", "D"},
	}, got)
	assert.Equal(t, 1.0, paths[0].MeanRiskRatio)
	assert.Equal(t, 0.5, paths[1].MeanRiskRatio)
}

func TestHighRiskPathsBudgetReported(t *testing.T) {
	g := BuildGraph(cycleLedger())

	paths, err := HighRiskPaths(context.Background(), g, []string{"A"}, 3, 3)
	require.Error(t, err)
	assert.Len(t, paths, 3)

	var limit *types.GraphTraversalLimitError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, "A", limit.Source)
	assert.Equal(t, 3, limit.Collected)

	// a budget equal to the number of paths is not exceeded
	paths, err = HighRiskPaths(context.Background(), g, []string{"A"}, 3, 5)
	require.NoError(t, err)
	assert.Len(t, paths, 5)
}

func TestHighRiskPathsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := HighRiskPaths(ctx, BuildGraph(cycleLedger()), []string{"A"}, 3, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBetweennessLine(t *testing.T) {
	g := BuildGraph([]types.Transaction{tx("A", "B", 1, true), tx("B", "C", 1, true)})
	bc, err := Betweenness(context.Background(), g)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, bc["B"], 1e-12)
	assert.Equal(t, 0.0, bc["A"])
	assert.Equal(t, 0.0, bc["C"])
}

func TestBetweennessFollowsRiskWeights(t *testing.T) {
	g := BuildGraph([]types.Transaction{
		tx("A", "B", 1, false),
		tx("B", "D", 1, false),
		tx("A", "C", 1, true),
		tx("C", "D", 1, true),
		tx("C", "C", 1, true),
	})
	bc, err := Betweenness(context.Background(), g)
	require.NoError(t, err)

	assert.InDelta(t, 1.0/6.0, bc["B"], 1e-12)
	assert.Equal(t, 0.0, bc["C"])
}

func TestBetweennessTwoNodesUnscaled(t *testing.T) {
	bc, err := Betweenness(context.Background(), BuildGraph([]types.Transaction{tx("A", "B", 1, true)}))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 0, "B": 0}, bc)
}

func TestAnalyseSelectsHighRiskSources(t *testing.T) {
	cfg := types.DefaultAnalysisConfig().Network
	a, err := NewAnalyser(cfg)
	require.NoError(t, err)

	txns := append(cycleLedger(),
		tx("B", "A", 10, true), // B outbound rate exactly 0.5, not above threshold
	)
	res, err := a.Analyse(context.Background(), txns)
	require.NoError(t, err)

	require.Len(t, res.HighRiskCountries, 1)
	assert.Equal(t, "A", res.HighRiskCountries[0].Country)
	assert.Equal(t, 4, res.NodeCount)
	assert.Equal(t, 6, res.EdgeCount)
	assert.False(t, res.Truncated)
	assert.Len(t, res.Centrality, 4)
	for i := 1; i < len(res.Centrality); i++ {
		assert.GreaterOrEqual(t, res.Centrality[i-1].Betweenness, res.Centrality[i].Betweenness)
	}
}

func TestAnalyseReturnsPartialOnLimit(t *testing.T) {
	cfg := types.DefaultAnalysisConfig().Network
	cfg.MaxPaths = 2
	a, err := NewAnalyser(cfg)
	require.NoError(t, err)

	res, err := a.Analyse(context.Background(), cycleLedger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrGraphTraversalLimit))
	require.NotNil(t, res)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Paths, 2)
	assert.NotEmpty(t, res.Centrality)
}

func TestNewAnalyserValidates(t *testing.T) {
	cfg := types.DefaultAnalysisConfig().Network
	cfg.MaxHops = 0
	_, err := NewAnalyser(cfg)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}
