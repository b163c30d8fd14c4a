package compliance

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sanctions-risk-engine/internal/ledger"
	"sanctions-risk-engine/internal/metrics"
	"sanctions-risk-engine/internal/scenario"
	"sanctions-risk-engine/internal/synth"
	"sanctions-risk-engine/internal/types"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func syntheticLedger(t *testing.T, n int) []types.Transaction {
	t.Helper()
	txns, err := synth.Generate(synth.Options{
		Count:    n,
		Seed:     synth.DefaultSeed,
		End:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		HighRisk: types.DefaultAnalysisConfig().HighRiskSet(),
	})
	require.NoError(t, err)
	return txns
}

type mockNetwork struct {
	mock.Mock
}

func (m *mockNetwork) Analyse(ctx context.Context, txns []types.Transaction) (*types.NetworkAnalysis, error) {
	args := m.Called(ctx, txns)
	res, _ := args.Get(0).(*types.NetworkAnalysis)
	return res, args.Error(1)
}

type mockExposure struct {
	mock.Mock
}

func (m *mockExposure) Calculate(ctx context.Context, txns []types.Transaction) (*types.ExposureMetrics, error) {
	args := m.Called(ctx, txns)
	res, _ := args.Get(0).(*types.ExposureMetrics)
	return res, args.Error(1)
}

func TestGenerateReconcilesWithExposure(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.Scenarios = scenario.DefaultScenarios()
	agg, err := NewAggregator(cfg, WithClock(clock))
	require.NoError(t, err)

	txns := syntheticLedger(t, 400)
	report, err := agg.Generate(context.Background(), txns)
	require.NoError(t, err)
	require.False(t, report.HasErrors(), report.SectionErrors)

	// categories partition the dataset
	require.Len(t, report.RiskByCategory, 3)
	count := 0
	volume, sanctioned := decimal.Zero, decimal.Zero
	for _, c := range report.RiskByCategory {
		count += c.Count
		volume = volume.Add(c.Volume)
		sanctioned = sanctioned.Add(c.SanctionedVolume)
	}
	assert.Equal(t, len(txns), count)
	assert.True(t, volume.Equal(report.Exposure.TotalVolume))

	viaCategories := sanctioned.Div(volume).InexactFloat64() * 100
	assert.InDelta(t, report.Summary.PercentSanctioned, viaCategories, 1e-9)

	high := report.Category(types.RiskHigh)
	assert.InDelta(t, float64(high.Count)/float64(len(txns))*100, report.Summary.PercentHighRisk, 1e-12)
	assert.True(t, report.Summary.PotentialPenaltyExposure.Equal(report.Penalty.TotalPotentialPenalty))

	// country table
	assert.LessOrEqual(t, len(report.CountryRisk), cfg.TopCountries)
	assert.True(t, sort.SliceIsSorted(report.CountryRisk, func(i, j int) bool {
		return report.CountryRisk[i].FlagRate > report.CountryRisk[j].FlagRate
	}))

	// top transactions
	require.Len(t, report.TopTransactions, cfg.TopTransactions)
	for i := 1; i < len(report.TopTransactions); i++ {
		assert.GreaterOrEqual(t, report.TopTransactions[i-1].RiskScore, report.TopTransactions[i].RiskScore)
	}

	// trend covers every transaction in date order
	trendCount := 0
	for i, p := range report.TimeTrend {
		trendCount += p.TransactionCount
		if i > 0 {
			assert.Less(t, report.TimeTrend[i-1].Date, p.Date)
		}
	}
	assert.Equal(t, len(txns), trendCount)

	assert.NotNil(t, report.Portfolio)
	assert.NotNil(t, report.Anomalies)
	assert.NotNil(t, report.Network)
	assert.Len(t, report.Scenarios, 3)
	assert.Equal(t, fixedNow, report.GeneratedAt)
}

func TestGenerateDeterministic(t *testing.T) {
	agg, err := NewAggregator(types.DefaultAnalysisConfig(), WithClock(clock))
	require.NoError(t, err)
	txns := syntheticLedger(t, 300)

	first, err := agg.Generate(context.Background(), txns)
	require.NoError(t, err)
	second, err := agg.Generate(context.Background(), txns)
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.RiskByCategory, second.RiskByCategory)
	assert.Equal(t, first.CountryRisk, second.CountryRisk)
	assert.Equal(t, first.Portfolio, second.Portfolio)
	assert.Equal(t, first.Anomalies, second.Anomalies)
	assert.NotEqual(t, first.ReportID, second.ReportID)
}

func TestCountryRiskFixture(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	txns, err := ledger.Ingest([]ledger.Record{
		{ID: "1", Timestamp: at, Amount: "100", SenderCountry: "A", ReceiverCountry: "B"},
		{ID: "2", Timestamp: at, Amount: "50", SenderCountry: "A", ReceiverCountry: "C"},
		{ID: "3", Timestamp: at, Amount: "200", SenderCountry: "B", ReceiverCountry: "A"},
	}, types.NewCountrySet("B"))
	require.NoError(t, err)

	cfg := types.DefaultAnalysisConfig()
	cfg.Mode = types.ModeLenient
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)

	report, err := agg.Generate(context.Background(), txns)
	require.NoError(t, err)

	// one trading day leaves the portfolio section without returns
	require.Len(t, report.SectionErrors, 1)
	assert.Equal(t, types.SectionPortfolio, report.SectionErrors[0].Section)
	assert.Equal(t, types.KindInsufficientData, report.SectionErrors[0].Kind)
	assert.Nil(t, report.Portfolio)

	require.Len(t, report.CountryRisk, 3)
	assert.Equal(t, "B", report.CountryRisk[0].Country)
	assert.Equal(t, 1.0, report.CountryRisk[0].FlagRate)
	assert.Equal(t, "A", report.CountryRisk[1].Country)
	assert.InDelta(t, 2.0/3.0, report.CountryRisk[1].FlagRate, 1e-12)
	assert.Equal(t, 0.0, report.CountryRisk[2].FlagRate)
	assert.InDelta(t, 300.0/350.0*100, report.Summary.PercentSanctioned, 1e-9)
}

func TestTwoDayLedgerRendersAsJSON(t *testing.T) {
	day1 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)
	day2 := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)
	txns, err := ledger.Ingest([]ledger.Record{
		{ID: "1", Timestamp: day1, Amount: "100", SenderCountry: "Iran", ReceiverCountry: "UK"},
		{ID: "2", Timestamp: day1, Amount: "50", SenderCountry: "UK", ReceiverCountry: "France"},
		{ID: "3", Timestamp: day2, Amount: "200", SenderCountry: "France", ReceiverCountry: "UK"},
	}, types.DefaultAnalysisConfig().HighRiskSet())
	require.NoError(t, err)

	cfg := types.DefaultAnalysisConfig()
	cfg.Mode = types.ModeLenient
	agg, err := NewAggregator(cfg, WithClock(clock))
	require.NoError(t, err)

	report, err := agg.Generate(context.Background(), txns)
	require.NoError(t, err)
	require.NotNil(t, report.Portfolio)
	assert.True(t, report.Portfolio.Degenerate)
	assert.Equal(t, 0.0, report.Portfolio.StdReturn)

	out, err := NewReporter(t.TempDir()).GenerateReport(report, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, out, `"std_return": 0`)
}

func TestLenientModeKeepsOtherSections(t *testing.T) {
	net := &mockNetwork{}
	net.On("Analyse", mock.Anything, mock.Anything).Return(nil, errors.New("graph unavailable"))

	rec := metrics.New()
	cfg := types.DefaultAnalysisConfig()
	cfg.Mode = types.ModeLenient
	agg, err := NewAggregator(cfg, WithNetworkAnalyser(net), WithMetrics(rec))
	require.NoError(t, err)

	report, err := agg.Generate(context.Background(), syntheticLedger(t, 200))
	require.NoError(t, err)
	net.AssertExpectations(t)

	assert.Nil(t, report.Network)
	assert.NotNil(t, report.Anomalies)
	require.Len(t, report.SectionErrors, 1)
	assert.Equal(t, types.SectionError{Section: types.SectionNetwork, Kind: types.KindInternal, Message: "graph unavailable"}, report.SectionErrors[0])

	n, err := testutil.GatherAndCount(rec.Registry(), "sanctions_section_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLenientModeKeepsTruncatedNetwork(t *testing.T) {
	partial := &types.NetworkAnalysis{NodeCount: 2, Truncated: true}
	limit := &types.GraphTraversalLimitError{Source: "Iran", MaxPaths: 1, MaxHops: 3, Collected: 1}
	net := &mockNetwork{}
	net.On("Analyse", mock.Anything, mock.Anything).Return(partial, limit)

	cfg := types.DefaultAnalysisConfig()
	cfg.Mode = types.ModeLenient
	agg, err := NewAggregator(cfg, WithNetworkAnalyser(net))
	require.NoError(t, err)

	report, err := agg.Generate(context.Background(), syntheticLedger(t, 200))
	require.NoError(t, err)
	assert.Same(t, partial, report.Network)
	require.Len(t, report.SectionErrors, 1)
	assert.Equal(t, types.KindGraphTraversalLimit, report.SectionErrors[0].Kind)
}

func TestStrictModeFailsReport(t *testing.T) {
	net := &mockNetwork{}
	net.On("Analyse", mock.Anything, mock.Anything).Return(nil, &types.GraphTraversalLimitError{Source: "Iran", MaxPaths: 1})

	agg, err := NewAggregator(types.DefaultAnalysisConfig(), WithNetworkAnalyser(net))
	require.NoError(t, err)

	report, err := agg.Generate(context.Background(), syntheticLedger(t, 200))
	assert.Nil(t, report)
	assert.ErrorIs(t, err, types.ErrGraphTraversalLimit)
}

func TestCoreSectionFailsEvenWhenLenient(t *testing.T) {
	exp := &mockExposure{}
	exp.On("Calculate", mock.Anything, mock.Anything).Return(nil, errors.New("disk on fire"))

	cfg := types.DefaultAnalysisConfig()
	cfg.Mode = types.ModeLenient
	agg, err := NewAggregator(cfg, WithExposureCalculator(exp))
	require.NoError(t, err)

	_, err = agg.Generate(context.Background(), syntheticLedger(t, 50))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exposure section")
}

func TestNilExposureResultIsAnError(t *testing.T) {
	exp := &mockExposure{}
	exp.On("Calculate", mock.Anything, mock.Anything).Return(nil, nil)

	agg, err := NewAggregator(types.DefaultAnalysisConfig(), WithExposureCalculator(exp))
	require.NoError(t, err)

	var report *types.ComplianceReport
	require.NotPanics(t, func() {
		report, err = agg.Generate(context.Background(), syntheticLedger(t, 50))
	})
	assert.Nil(t, report)
	require.ErrorIs(t, err, errNoResult)
	assert.Contains(t, err.Error(), "exposure section")
	assert.Equal(t, types.KindInternal, types.ErrorKind(err))
}

func TestGenerateEmptyInput(t *testing.T) {
	agg, err := NewAggregator(types.DefaultAnalysisConfig())
	require.NoError(t, err)
	_, err = agg.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrInsufficientData)
}

func TestNewAggregatorRejectsBadConfig(t *testing.T) {
	cfg := types.DefaultAnalysisConfig()
	cfg.Scoring.Weights.Amount = 0.9
	_, err := NewAggregator(cfg)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestTopTransactionsTieBreak(t *testing.T) {
	scored := []types.ScoredTransaction{
		{Transaction: types.Transaction{ID: "b"}, RiskScore: 0.5},
		{Transaction: types.Transaction{ID: "a"}, RiskScore: 0.5},
		{Transaction: types.Transaction{ID: "c"}, RiskScore: 0.9},
	}
	top := TopTransactions(scored, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].ID)
	assert.Equal(t, "a", top[1].ID)
	assert.Equal(t, "b", scored[0].ID)
}
