package types

// AnomalyFeatureNames is the clustering feature order
var AnomalyFeatureNames = []string{
	"amount", "amount_zscore", "pair_count", "pair_flag_sum", "day_of_week", "hour", "month",
}

// AnomalyRecord is a transaction with its statistical outlier scores
type AnomalyRecord struct {
	Transaction
	AmountZScore    float64 `json:"amount_zscore"`
	FreqPercentile  float64 `json:"freq_percentile"`
	AmountAnomaly   bool    `json:"amount_anomaly"`
	ClusterID       int     `json:"cluster_id"` // -1 when excluded from clustering
	HighRiskPattern bool    `json:"high_risk_pattern"`
	AnomalyScore    float64 `json:"anomaly_score"`
}

// ClusterProfile summarizes the raw feature means of one cluster
type ClusterProfile struct {
	ClusterID    int                `json:"cluster_id"`
	Size         int                `json:"size"`
	FlagRate     float64            `json:"flag_rate"`
	HighRisk     bool               `json:"high_risk"`
	FeatureMeans map[string]float64 `json:"feature_means"`
}

// AnomalyResult is the output of the anomaly detector
type AnomalyResult struct {
	Records         []AnomalyRecord  `json:"records"`
	TopAnomalies    []AnomalyRecord  `json:"top_anomalies"`
	Profiles        []ClusterProfile `json:"cluster_profiles"`
	HighRiskCluster int              `json:"high_risk_cluster"`
	AmountAnomalies int              `json:"amount_anomalies"`
	Dropped         int              `json:"dropped"`
	Seed            int64            `json:"seed"`
}
