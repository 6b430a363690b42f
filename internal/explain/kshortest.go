// Package explain implements F4: multi-criteria k-shortest evidence paths
// between a source and a destination address, scored and ranked
// by hop, value, and temporal criteria.
package explain

import (
	"container/heap"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Config holds the path-search tunables.
type Config struct {
	K             int
	MaxHops       int
	MinPathValue  float64
	WeightHops    float64
	WeightValue   float64
	WeightTime    float64
	TaintWeighted bool
	AnchorLimit   int
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		K:             20,
		MaxHops:       6,
		MinPathValue:  0.01,
		WeightHops:    0.3,
		WeightValue:   0.4,
		WeightTime:    0.3,
		TaintWeighted: true,
		AnchorLimit:   10,
	}
}

// pathState is one partial path under expansion in the best-first search.
type pathState struct {
	node       string
	hops       int
	cumCost    float64
	edges      []models.TxEdge
	visited    map[string]struct{}
	lastBlockT *int64
}

type pqItem struct {
	state pathState
	index int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].state.cumCost < pq[j].state.cumCost
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

func edgeCost(e models.TxEdge, last *pathState, cfg Config) float64 {
	hopCost := cfg.WeightHops
	value := e.Value
	if value < 0.1 {
		value = 0.1
	}
	valueCost := (1 / value) * cfg.WeightValue

	timeCost := 0.0
	if e.BlockTime != nil && last != nil && last.lastBlockT != nil {
		if *e.BlockTime >= *last.lastBlockT {
			gap := float64(*e.BlockTime - *last.lastBlockT)
			timeCost = cfg.WeightTime * min1(gap/3600)
		} else {
			timeCost = cfg.WeightTime * 2.0
		}
	}
	return hopCost + valueCost + timeCost
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// KShortest finds up to cfg.K simple paths from source to destination on
// g, minimizing the multi-criteria per-edge cost, via
// best-first search over (node, cumulative path) states.
func KShortest(g *graph.TxGraph, source, destination string, cfg Config) []models.EvidencePath {
	if !g.HasNode(source) || !g.HasNode(destination) || source == destination {
		return nil
	}

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{state: pathState{
		node:    source,
		hops:    0,
		cumCost: 0,
		visited: map[string]struct{}{source: {}},
	}})

	var found []models.EvidencePath
	for pq.Len() > 0 && len(found) < cfg.K {
		item := heap.Pop(pq).(*pqItem)
		st := item.state

		if st.node == destination && st.hops > 0 {
			totalValue := totalPathValue(st.edges)
			if totalValue >= cfg.MinPathValue {
				found = append(found, buildPath(source, destination, st.edges))
			}
			continue
		}

		if st.hops >= cfg.MaxHops {
			continue
		}

		for _, e := range g.OutEdges(st.node) {
			if _, seen := st.visited[e.To]; seen {
				continue
			}
			cost := st.cumCost + edgeCost(e, &st, cfg)

			nextVisited := make(map[string]struct{}, len(st.visited)+1)
			for k := range st.visited {
				nextVisited[k] = struct{}{}
			}
			nextVisited[e.To] = struct{}{}

			nextEdges := make([]models.TxEdge, len(st.edges)+1)
			copy(nextEdges, st.edges)
			nextEdges[len(st.edges)] = e

			var lastBlockT *int64
			if e.BlockTime != nil {
				lastBlockT = e.BlockTime
			} else {
				lastBlockT = st.lastBlockT
			}

			heap.Push(pq, &pqItem{state: pathState{
				node:       e.To,
				hops:       st.hops + 1,
				cumCost:    cost,
				edges:      nextEdges,
				visited:    nextVisited,
				lastBlockT: lastBlockT,
			}})
		}
	}
	return found
}

func totalPathValue(edges []models.TxEdge) float64 {
	total := 0.0
	for _, e := range edges {
		total += e.Value
	}
	return total
}

func buildPath(source, destination string, edges []models.TxEdge) models.EvidencePath {
	return models.EvidencePath{
		Source:      source,
		Destination: destination,
		Hops:        len(edges),
		TotalValue:  totalPathValue(edges),
		Segments:    edges,
	}
}
