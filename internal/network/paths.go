package network

import (
	"context"
	"errors"

	"sanctions-risk-engine/internal/types"
)

var errPathBudget = errors.New("path budget exhausted")

type pathSearch struct {
	ctx      context.Context
	g        *Graph
	maxHops  int
	maxPaths int
	paths    []types.RiskPath
	visits   int
}

// HighRiskPaths enumerates, for every source, all simple directed paths of at most
// maxHops edges ending at another country. At most maxPaths paths are collected
// in total; when more exist, the collected paths are returned together with a
// GraphTraversalLimitError naming the source being searched.
func HighRiskPaths(ctx context.Context, g *Graph, sources []string, maxHops, maxPaths int) ([]types.RiskPath, error) {
	s := &pathSearch{ctx: ctx, g: g, maxHops: maxHops, maxPaths: maxPaths}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return s.paths, err
		}
		onPath := map[string]bool{src: true}
		err := s.walk([]string{src}, onPath, 0)
		if errors.Is(err, errPathBudget) {
			return s.paths, &types.GraphTraversalLimitError{
				Source:    src,
				MaxPaths:  maxPaths,
				MaxHops:   maxHops,
				Collected: len(s.paths),
			}
		}
		if err != nil {
			return s.paths, err
		}
	}
	return s.paths, nil
}

func (s *pathSearch) walk(path []string, onPath map[string]bool, ratioSum float64) error {
	s.visits++
	if s.visits%256 == 0 {
		if err := s.ctx.Err(); err != nil {
			return err
		}
	}
	if len(path)-1 >= s.maxHops {
		return nil
	}

	last := path[len(path)-1]
	for _, next := range s.g.Successors(last) {
		if onPath[next] {
			continue
		}
		e, _ := s.g.Edge(last, next)
		sum := ratioSum + e.RiskRatio()
		extended := append(append([]string(nil), path...), next)

		if len(s.paths) >= s.maxPaths {
			return errPathBudget
		}
		hops := len(extended) - 1
		s.paths = append(s.paths, types.RiskPath{
			Source:        extended[0],
			Target:        next,
			Countries:     extended,
			Hops:          hops,
			MeanRiskRatio: sum / float64(hops),
		})

		onPath[next] = true
		err := s.walk(extended, onPath, sum)
		delete(onPath, next)
		if err != nil {
			return err
		}
	}
	return nil
}
