package network

import (
	"context"
	"errors"
	"sort"

	"sanctions-risk-engine/internal/logger"
	"sanctions-risk-engine/internal/types"
)

// Analyser implements the NetworkAnalyser interface
type Analyser struct {
	cfg types.NetworkConfig
}

// NewAnalyser validates the configuration and creates an analyser
func NewAnalyser(cfg types.NetworkConfig) (*Analyser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyser{cfg: cfg}, nil
}

// Analyse builds the country graph, finds the countries whose outbound flag rate
// exceeds the configured threshold, enumerates their bounded paths and computes
// risk-weighted betweenness. When the path budget runs out the partial analysis
// is returned with Truncated set, alongside the GraphTraversalLimitError.
func (a *Analyser) Analyse(ctx context.Context, txns []types.Transaction) (*types.NetworkAnalysis, error) {
	g := BuildGraph(txns)

	result := &types.NetworkAnalysis{
		NodeCount: g.NodeCount(),
		MaxHops:   a.cfg.MaxHops,
		MaxPaths:  a.cfg.MaxPaths,
	}
	for _, e := range g.Edges() {
		result.Edges = append(result.Edges, types.EdgeSummary{NetworkEdge: e, RiskRatio: e.RiskRatio()})
	}
	result.EdgeCount = len(result.Edges)

	var sources []string
	for _, r := range g.OutboundFlagRates() {
		if r.FlagRate > a.cfg.HighRiskFlagRate {
			result.HighRiskCountries = append(result.HighRiskCountries, r)
		}
	}
	sort.Slice(result.HighRiskCountries, func(i, j int) bool {
		hi, hj := result.HighRiskCountries[i], result.HighRiskCountries[j]
		if hi.FlagRate != hj.FlagRate {
			return hi.FlagRate > hj.FlagRate
		}
		return hi.Country < hj.Country
	})
	for _, r := range result.HighRiskCountries {
		sources = append(sources, r.Country)
	}

	bc, err := Betweenness(ctx, g)
	if err != nil {
		return nil, err
	}
	for country, score := range bc {
		result.Centrality = append(result.Centrality, types.CentralityScore{Country: country, Betweenness: score})
	}
	sort.Slice(result.Centrality, func(i, j int) bool {
		ci, cj := result.Centrality[i], result.Centrality[j]
		if ci.Betweenness != cj.Betweenness {
			return ci.Betweenness > cj.Betweenness
		}
		return ci.Country < cj.Country
	})

	paths, err := HighRiskPaths(ctx, g, sources, a.cfg.MaxHops, a.cfg.MaxPaths)
	result.Paths = paths
	if err != nil {
		var limit *types.GraphTraversalLimitError
		if !errors.As(err, &limit) {
			return nil, err
		}
		result.Truncated = true
		logger.Warn(ctx, "High-risk path enumeration truncated",
			"source", limit.Source,
			"max_paths", limit.MaxPaths,
			"max_hops", limit.MaxHops)
		return result, err
	}

	logger.Debug(ctx, "Network analysis complete",
		"nodes", result.NodeCount,
		"edges", result.EdgeCount,
		"high_risk_countries", len(sources),
		"paths", len(paths))

	return result, nil
}
