package anomaly

import (
	"context"
	"math"
	"sort"

	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/stats"
	"sanctions-risk-engine/internal/types"
)

// Composite score weights
const (
	zscoreWeight     = 0.3
	percentileWeight = 0.3
	patternWeight    = 0.4
)

// Detector implements the AnomalyDetector interface
type Detector struct {
	cfg types.AnomalyConfig
}

// NewDetector validates the configuration and creates a detector
func NewDetector(cfg types.AnomalyConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

type pairKey struct {
	sender, receiver string
}

type pairStats struct {
	amounts []float64
	mean    float64
	std     float64
	flagSum int
}

// Detect scores every transaction against its country pair, clusters the
// standardized feature vectors and marks membership of the cluster with the
// highest sanctions flag rate.
func (d *Detector) Detect(ctx context.Context, txns []types.Transaction) (*types.AnomalyResult, error) {
	if len(txns) < d.cfg.Clusters {
		return nil, &types.InsufficientDataError{Operation: "anomaly detection", Required: d.cfg.Clusters, Got: len(txns)}
	}

	pairs := pairStatistics(txns)
	records := make([]types.AnomalyRecord, len(txns))
	features := make([][]float64, len(txns))
	for i, t := range txns {
		p := pairs[pairKey{t.SenderCountry, t.ReceiverCountry}]
		amount := t.Amount.InexactFloat64()

		rec := types.AnomalyRecord{Transaction: t, ClusterID: -1}
		rec.AmountZScore = (amount - p.mean) / p.std
		rec.FreqPercentile = stats.PercentileOfScore(p.amounts, amount)
		rec.AmountAnomaly = math.Abs(rec.AmountZScore) > d.cfg.ZScoreThreshold ||
			rec.FreqPercentile > d.cfg.PercentileThreshold
		records[i] = rec

		ts := t.Timestamp.UTC()
		features[i] = []float64{
			amount,
			rec.AmountZScore,
			float64(len(p.amounts)),
			float64(p.flagSum),
			float64((int(ts.Weekday()) + 6) % 7),
			float64(ts.Hour()),
			float64(ts.Month()),
		}
	}

	// rows with unresolvable features stay out of clustering instead of being zero-filled
	kept := make([]int, 0, len(features))
	for i, f := range features {
		if len(stats.Finite(f)) == len(f) {
			kept = append(kept, i)
		}
	}
	if len(kept) < d.cfg.Clusters {
		return nil, &types.InsufficientDataError{Operation: "anomaly clustering", Required: d.cfg.Clusters, Got: len(kept)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaled := make([][]float64, len(kept))
	for j, i := range kept {
		scaled[j] = append([]float64(nil), features[i]...)
	}
	stats.Standardize(scaled)

	km, err := KMeans(scaled, d.cfg.Clusters, d.cfg.NInit, d.cfg.MaxIterations, d.cfg.Tolerance, d.cfg.Seed)
	if err != nil {
		return nil, err
	}
	for j, i := range kept {
		records[i].ClusterID = km.Labels[j]
	}

	profiles := d.profiles(records, features, kept)
	highRisk := highRiskCluster(profiles)

	result := &types.AnomalyResult{
		HighRiskCluster: highRisk,
		Dropped:         len(txns) - len(kept),
		Seed:            d.cfg.Seed,
	}
	for i := range records {
		rec := &records[i]
		rec.HighRiskPattern = highRisk >= 0 && rec.ClusterID == highRisk
		pattern := 0.0
		if rec.HighRiskPattern {
			pattern = 1
		}
		rec.AnomalyScore = zscoreWeight*math.Abs(rec.AmountZScore) +
			percentileWeight*rec.FreqPercentile/100 +
			patternWeight*pattern
		if rec.AmountAnomaly {
			result.AmountAnomalies++
		}
	}
	for i := range profiles {
		profiles[i].HighRisk = profiles[i].ClusterID == highRisk
	}

	result.Records = records
	result.TopAnomalies = topByScore(records, d.cfg.TopN)
	result.Profiles = profiles

	logger.Debug(ctx, "Anomaly detection complete",
		"transactions", len(records),
		"dropped", result.Dropped,
		"high_risk_cluster", highRisk,
		"amount_anomalies", result.AmountAnomalies,
		"kmeans_inertia", km.Inertia)

	return result, nil
}

func pairStatistics(txns []types.Transaction) map[pairKey]*pairStats {
	pairs := make(map[pairKey]*pairStats)
	for _, t := range txns {
		k := pairKey{t.SenderCountry, t.ReceiverCountry}
		p, ok := pairs[k]
		if !ok {
			p = &pairStats{}
			pairs[k] = p
		}
		p.amounts = append(p.amounts, t.Amount.InexactFloat64())
		if t.SanctionsFlag {
			p.flagSum++
		}
	}
	for _, p := range pairs {
		p.mean = stats.Mean(p.amounts)
		p.std = stats.StdDev(p.amounts)
		if p.std == 0 || math.IsNaN(p.std) {
			p.std = 1
		}
	}
	return pairs
}

func (d *Detector) profiles(records []types.AnomalyRecord, features [][]float64, kept []int) []types.ClusterProfile {
	profiles := make([]types.ClusterProfile, d.cfg.Clusters)
	sums := make([][]float64, d.cfg.Clusters)
	flags := make([]int, d.cfg.Clusters)
	for c := range profiles {
		profiles[c].ClusterID = c
		sums[c] = make([]float64, len(types.AnomalyFeatureNames))
	}

	for _, i := range kept {
		c := records[i].ClusterID
		profiles[c].Size++
		for j, v := range features[i] {
			sums[c][j] += v
		}
		if records[i].SanctionsFlag {
			flags[c]++
		}
	}

	for c := range profiles {
		profiles[c].FeatureMeans = make(map[string]float64, len(types.AnomalyFeatureNames))
		if profiles[c].Size == 0 {
			continue
		}
		n := float64(profiles[c].Size)
		for j, name := range types.AnomalyFeatureNames {
			profiles[c].FeatureMeans[name] = sums[c][j] / n
		}
		profiles[c].FlagRate = float64(flags[c]) / n
	}
	return profiles
}

// highRiskCluster is the cluster with the highest mean sanctions flag, lowest id on ties
func highRiskCluster(profiles []types.ClusterProfile) int {
	best := -1
	for _, p := range profiles {
		if p.Size == 0 {
			continue
		}
		if best < 0 || p.FlagRate > profiles[best].FlagRate {
			best = p.ClusterID
		}
	}
	return best
}

func topByScore(records []types.AnomalyRecord, n int) []types.AnomalyRecord {
	top := append([]types.AnomalyRecord(nil), records...)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].AnomalyScore != top[j].AnomalyScore {
			return top[i].AnomalyScore > top[j].AnomalyScore
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
