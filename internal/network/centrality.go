package network

import (
	"container/heap"
	"context"
)

type queueItem struct {
	dist float64
	seq  int
	pred string
	node string
}

type queue []queueItem

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any) { *q = append(*q, x.(queueItem)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// Betweenness computes normalized betweenness centrality over the directed graph,
// using each edge's risk ratio as its length (Brandes' algorithm with Dijkstra).
// Scores are scaled by 1/((n-1)(n-2)) when the graph has more than two nodes.
// Self-loops never lie on a shortest path between distinct countries and are skipped.
func Betweenness(ctx context.Context, g *Graph) (map[string]float64, error) {
	nodes := g.nodes
	bc := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		bc[n] = 0
	}

	for _, s := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		order, preds, sigma := g.shortestPaths(s)

		delta := make(map[string]float64, len(order))
		for i := len(order) - 1; i >= 0; i-- {
			w := order[i]
			coeff := (1 + delta[w]) / sigma[w]
			for _, v := range preds[w] {
				delta[v] += sigma[v] * coeff
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	if n := float64(len(nodes)); n > 2 {
		scale := 1 / ((n - 1) * (n - 2))
		for k := range bc {
			bc[k] *= scale
		}
	}
	return bc, nil
}

// shortestPaths runs Dijkstra from s and returns nodes in settle order, the
// shortest-path predecessors of each node and the number of shortest paths.
func (g *Graph) shortestPaths(s string) ([]string, map[string][]string, map[string]float64) {
	var order []string
	preds := make(map[string][]string)
	sigma := map[string]float64{s: 1}
	settled := make(map[string]bool)
	seen := map[string]float64{s: 0}

	seq := 0
	q := &queue{{dist: 0, seq: seq, pred: s, node: s}}
	for q.Len() > 0 {
		it := heap.Pop(q).(queueItem)
		v := it.node
		if settled[v] {
			continue
		}
		if v != s {
			sigma[v] += sigma[it.pred]
		}
		order = append(order, v)
		settled[v] = true

		for _, w := range g.Successors(v) {
			if w == v {
				continue
			}
			e := g.out[v][w]
			d := it.dist + e.RiskRatio()
			prev, known := seen[w]
			switch {
			case !settled[w] && (!known || d < prev):
				seen[w] = d
				seq++
				heap.Push(q, queueItem{dist: d, seq: seq, pred: v, node: w})
				sigma[w] = 0
				preds[w] = []string{v}
			case known && d == prev:
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}
	return order, preds, sigma
}
