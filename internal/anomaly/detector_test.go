package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sanctions-risk-engine/internal/types"
)

var start = time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)

func tx(id, from, to string, amount float64, flagged bool, at time.Time) types.Transaction {
	return types.Transaction{
		ID:              id,
		Timestamp:       at,
		Amount:          decimal.NewFromFloat(amount),
		SenderCountry:   from,
		ReceiverCountry: to,
		SanctionsFlag:   flagged,
	}
}

func ledger(n int) []types.Transaction {
	r := rand.New(rand.NewPCG(7, 7))
	countries := []string{"Germany", "France", "Iran", "Russia", "Japan"}
	risky := types.NewCountrySet("Iran", "Russia")
	txns := make([]types.Transaction, n)
	for i := range txns {
		from := countries[r.IntN(len(countries))]
		to := countries[r.IntN(len(countries))]
		amount := math.Round(r.ExpFloat64()*10000*100) / 100
		at := start.Add(time.Duration(r.IntN(24*90)) * time.Hour)
		txns[i] = tx(fmt.Sprintf("tx-%03d", i), from, to, amount, risky.Contains(from) || risky.Contains(to), at)
	}
	return txns
}

func defaultDetector(t *testing.T) *Detector {
	t.Helper()
	cfg := types.DefaultAnalysisConfig().AnomalySettings()
	d, err := NewDetector(cfg)
	require.NoError(t, err)
	return d
}

func TestNewDetectorRejectsBadThresholds(t *testing.T) {
	base := types.DefaultAnalysisConfig().AnomalySettings()
	cases := map[string]func(c *types.AnomalyConfig){
		"negative zscore":  func(c *types.AnomalyConfig) { c.ZScoreThreshold = -1 },
		"NaN zscore":       func(c *types.AnomalyConfig) { c.ZScoreThreshold = math.NaN() },
		"NaN tolerance":    func(c *types.AnomalyConfig) { c.Tolerance = math.NaN() },
		"NaN percentile":   func(c *types.AnomalyConfig) { c.PercentileThreshold = math.NaN() },
		"percentile > 100": func(c *types.AnomalyConfig) { c.PercentileThreshold = 101 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := NewDetector(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}

	_, err := NewDetector(base)
	require.NoError(t, err)
}

func TestDetectInsufficientData(t *testing.T) {
	_, err := defaultDetector(t).Detect(context.Background(), ledger(2))
	assert.True(t, errors.Is(err, types.ErrInsufficientData))
}

func TestPairZScoreAndPercentile(t *testing.T) {
	txns := []types.Transaction{
		tx("1", "A", "B", 100, false, start),
		tx("2", "A", "B", 200, false, start.Add(time.Hour)),
		tx("3", "A", "B", 300, true, start.Add(2*time.Hour)),
		tx("4", "C", "D", 5000, false, start.Add(3*time.Hour)),
	}
	res, err := defaultDetector(t).Detect(context.Background(), txns)
	require.NoError(t, err)

	recs := res.Records
	assert.InDelta(t, -1.0, recs[0].AmountZScore, 1e-12)
	assert.InDelta(t, 0.0, recs[1].AmountZScore, 1e-12)
	assert.InDelta(t, 1.0, recs[2].AmountZScore, 1e-12)
	assert.InDelta(t, 100.0/3.0, recs[0].FreqPercentile, 1e-9)
	assert.InDelta(t, 100.0, recs[2].FreqPercentile, 1e-9)

	// single member pair: std treated as 1 and the amount sits on its own mean
	assert.Equal(t, 0.0, recs[3].AmountZScore)
	assert.Equal(t, 100.0, recs[3].FreqPercentile)
	assert.True(t, recs[3].AmountAnomaly)
	assert.False(t, recs[1].AmountAnomaly)
}

func TestAnomalyScoreComposition(t *testing.T) {
	res, err := defaultDetector(t).Detect(context.Background(), ledger(120))
	require.NoError(t, err)

	for _, rec := range res.Records {
		pattern := 0.0
		if rec.HighRiskPattern {
			pattern = 1
		}
		want := 0.3*math.Abs(rec.AmountZScore) + 0.3*rec.FreqPercentile/100 + 0.4*pattern
		assert.InDelta(t, want, rec.AnomalyScore, 1e-12)
		assert.Equal(t, rec.ClusterID == res.HighRiskCluster, rec.HighRiskPattern)
	}
}

func TestClusteringDeterministicUnderSeed(t *testing.T) {
	txns := ledger(150)
	d := defaultDetector(t)

	a, err := d.Detect(context.Background(), txns)
	require.NoError(t, err)
	b, err := d.Detect(context.Background(), txns)
	require.NoError(t, err)

	require.Len(t, b.Records, len(a.Records))
	for i := range a.Records {
		assert.Equal(t, a.Records[i].ClusterID, b.Records[i].ClusterID, "record %d", i)
	}
	assert.Equal(t, a.HighRiskCluster, b.HighRiskCluster)
}

func TestHighRiskClusterHasMaxFlagRate(t *testing.T) {
	res, err := defaultDetector(t).Detect(context.Background(), ledger(150))
	require.NoError(t, err)

	require.Len(t, res.Profiles, 3)
	total := 0
	var high types.ClusterProfile
	for _, p := range res.Profiles {
		total += p.Size
		if p.HighRisk {
			high = p
		}
	}
	assert.Equal(t, len(res.Records)-res.Dropped, total)
	for _, p := range res.Profiles {
		assert.LessOrEqual(t, p.FlagRate, high.FlagRate)
	}
	assert.Contains(t, high.FeatureMeans, "amount_zscore")
}

func TestTopAnomaliesSorted(t *testing.T) {
	res, err := defaultDetector(t).Detect(context.Background(), ledger(150))
	require.NoError(t, err)

	require.Len(t, res.TopAnomalies, 20)
	for i := 1; i < len(res.TopAnomalies); i++ {
		assert.GreaterOrEqual(t, res.TopAnomalies[i-1].AnomalyScore, res.TopAnomalies[i].AnomalyScore)
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	var points [][]float64
	for _, c := range [][2]float64{{0, 0}, {10, 10}, {-10, 10}} {
		for i := 0; i < 10; i++ {
			points = append(points, []float64{c[0] + float64(i%3)*0.1, c[1] + float64(i%2)*0.1})
		}
	}

	res, err := KMeans(points, 3, 5, 300, 1e-4, 42)
	require.NoError(t, err)

	for blob := 0; blob < 3; blob++ {
		label := res.Labels[blob*10]
		for i := blob * 10; i < blob*10+10; i++ {
			assert.Equal(t, label, res.Labels[i])
		}
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[10])
	assert.NotEqual(t, res.Labels[10], res.Labels[20])
	assert.NotEqual(t, res.Labels[0], res.Labels[20])

	again, err := KMeans(points, 3, 5, 300, 1e-4, 42)
	require.NoError(t, err)
	assert.Equal(t, res.Labels, again.Labels)
}

func TestKMeansIdenticalPoints(t *testing.T) {
	points := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	res, err := KMeans(points, 3, 2, 10, 1e-4, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Inertia)
	for _, l := range res.Labels {
		assert.True(t, l >= 0 && l < 3)
	}
}

func TestKMeansTooFewPoints(t *testing.T) {
	_, err := KMeans([][]float64{{1}}, 3, 1, 10, 1e-4, 1)
	assert.True(t, errors.Is(err, types.ErrInsufficientData))
}
