package types

import "github.com/shopspring/decimal"

// NetworkEdge aggregates all transfers along one directed country pair
type NetworkEdge struct {
	Sender           string          `json:"sender"`
	Receiver         string          `json:"receiver"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	FlaggedCount     int             `json:"flagged_count"`
}

// RiskRatio is the flagged share of the edge, 0 for an edge with no transactions
func (e NetworkEdge) RiskRatio() float64 {
	if e.TransactionCount == 0 {
		return 0
	}
	return float64(e.FlaggedCount) / float64(e.TransactionCount)
}

// EdgeSummary is the serialized form of an edge including its ratio
type EdgeSummary struct {
	NetworkEdge
	RiskRatio float64 `json:"risk_ratio"`
}

// RiskPath is one simple path from a high-risk source
type RiskPath struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Countries     []string `json:"countries"`
	Hops          int      `json:"hops"`
	MeanRiskRatio float64  `json:"mean_risk_ratio"`
}

// CentralityScore is the weighted betweenness of one country
type CentralityScore struct {
	Country     string  `json:"country"`
	Betweenness float64 `json:"betweenness"`
}

// NetworkAnalysis is the output of the network risk analyser
type NetworkAnalysis struct {
	NodeCount         int               `json:"node_count"`
	EdgeCount         int               `json:"edge_count"`
	Edges             []EdgeSummary     `json:"edges"`
	HighRiskCountries []CountryFlagRate `json:"high_risk_countries"`
	Paths             []RiskPath        `json:"paths"`
	Truncated         bool              `json:"truncated"`
	MaxHops           int               `json:"max_hops"`
	MaxPaths          int               `json:"max_paths"`
	Centrality        []CentralityScore `json:"centrality"`
}
