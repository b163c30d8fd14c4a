package network

import (
	"sort"

	"github.com/shopspring/decimal"

	"sanctions-risk-engine/internal/types"
)

// Graph is a directed country graph keyed by adjacency maps. Self-loops are kept.
type Graph struct {
	nodes []string
	out   map[string]map[string]*types.NetworkEdge
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{out: make(map[string]map[string]*types.NetworkEdge)}
}

// BuildGraph aggregates transactions into one edge per ordered country pair
func BuildGraph(txns []types.Transaction) *Graph {
	g := NewGraph()
	for _, t := range txns {
		e := g.AddEdge(t.SenderCountry, t.ReceiverCountry)
		e.TransactionCount++
		e.TotalAmount = e.TotalAmount.Add(t.Amount)
		if t.SanctionsFlag {
			e.FlaggedCount++
		}
	}
	return g
}

// AddNode registers a country without edges
func (g *Graph) AddNode(country string) {
	if _, ok := g.out[country]; ok {
		return
	}
	g.out[country] = make(map[string]*types.NetworkEdge)
	i := sort.SearchStrings(g.nodes, country)
	g.nodes = append(g.nodes, "")
	copy(g.nodes[i+1:], g.nodes[i:])
	g.nodes[i] = country
}

// AddEdge returns the edge from sender to receiver, creating both nodes and an
// empty edge when missing.
func (g *Graph) AddEdge(sender, receiver string) *types.NetworkEdge {
	g.AddNode(sender)
	g.AddNode(receiver)
	e, ok := g.out[sender][receiver]
	if !ok {
		e = &types.NetworkEdge{Sender: sender, Receiver: receiver, TotalAmount: decimal.Zero}
		g.out[sender][receiver] = e
	}
	return e
}

// Nodes returns the countries in sorted order
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// NodeCount is the number of distinct countries
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Edge returns a copy of the edge between two countries
func (g *Graph) Edge(sender, receiver string) (types.NetworkEdge, bool) {
	e, ok := g.out[sender][receiver]
	if !ok {
		return types.NetworkEdge{}, false
	}
	return *e, true
}

// Successors lists the receivers of a country in sorted order
func (g *Graph) Successors(country string) []string {
	succ := make([]string, 0, len(g.out[country]))
	for to := range g.out[country] {
		succ = append(succ, to)
	}
	sort.Strings(succ)
	return succ
}

// Edges returns every edge ordered by sender then receiver
func (g *Graph) Edges() []types.NetworkEdge {
	var edges []types.NetworkEdge
	for _, from := range g.nodes {
		for _, to := range g.Successors(from) {
			edges = append(edges, *g.out[from][to])
		}
	}
	return edges
}

// OutboundFlagRates is the flag rate of each country over the edges it sends on
func (g *Graph) OutboundFlagRates() map[string]types.CountryFlagRate {
	rates := make(map[string]types.CountryFlagRate, len(g.nodes))
	for _, from := range g.nodes {
		r := types.CountryFlagRate{Country: from, Role: types.RoleSender}
		for _, e := range g.out[from] {
			r.TransactionCount += e.TransactionCount
			r.FlaggedCount += e.FlaggedCount
		}
		if r.TransactionCount > 0 {
			r.FlagRate = float64(r.FlaggedCount) / float64(r.TransactionCount)
		}
		rates[from] = r
	}
	return rates
}
