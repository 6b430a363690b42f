package flow

import (
	"container/heap"
	"time"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

// DefaultTimeBudget is the hard wall-clock limit Decompose defaults to.
const DefaultTimeBudget = 30 * time.Second

type dijkstraItem struct {
	node string
	cost float64
}

type dijkstraQueue []dijkstraItem

func (q dijkstraQueue) Len() int            { return len(q) }
func (q dijkstraQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q dijkstraQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *dijkstraQueue) Push(x any)         { *q = append(*q, x.(dijkstraItem)) }
func (q *dijkstraQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// shortestPath runs Dijkstra from source over edges with positive residual
// capacity, returning the sequence of edge indexes forming the cheapest
// path to target, or nil if unreachable.
func (n *Network) shortestPath(source, target string, residual []float64) []int {
	dist := map[string]float64{source: 0}
	prevEdge := map[string]int{}
	visited := map[string]bool{}

	pq := &dijkstraQueue{{node: source, cost: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(dijkstraItem)
		if visited[item.node] {
			continue
		}
		visited[item.node] = true
		if item.node == target {
			break
		}
		for _, idx := range n.adjOut[item.node] {
			e := n.edges[idx]
			if residual[idx] <= 0 {
				continue
			}
			nd := item.cost + e.cost
			if cur, ok := dist[e.to]; !ok || nd < cur {
				dist[e.to] = nd
				prevEdge[e.to] = idx
				heap.Push(pq, dijkstraItem{node: e.to, cost: nd})
			}
		}
	}

	if _, ok := dist[target]; !ok {
		return nil
	}
	var path []int
	cur := target
	for cur != source {
		idx, ok := prevEdge[cur]
		if !ok {
			return nil
		}
		path = append([]int{idx}, path...)
		cur = n.edges[idx].from
	}
	return path
}

func pathCapacity(n *Network, path []int, residual []float64) float64 {
	cap := residual[path[0]]
	for _, idx := range path[1:] {
		if residual[idx] < cap {
			cap = residual[idx]
		}
	}
	return cap
}

// Decompose runs the successive-shortest-augmenting-path min-cost flow:
// for each source with residual supply, iterate sinks in a
// stable order, push min(remainingSupply, pathCapacity*0.5) along the
// cheapest path, and repeat until supply is exhausted, no path exists, or
// the time budget is breached.
func Decompose(n *Network, taint map[string]models.TaintResult, budget time.Duration) models.FlowDecomposition {
	deadline := time.Now().Add(budget)
	residual := make([]float64, len(n.edges))
	flowByEdge := make([]float64, len(n.edges))
	for i, e := range n.edges {
		residual[i] = e.capacity
	}

	sourceAttribution := make(map[string]float64)
	sinkAttribution := make(map[string]float64)
	partial := false

sourceLoop:
	for _, src := range n.sources {
		remaining := src.weight
		for remaining > 1e-9 {
			if time.Now().After(deadline) {
				partial = true
				break sourceLoop
			}
			pushed := false
			for _, sink := range n.sinks {
				if sink.address == src.address {
					continue
				}
				path := n.shortestPath(src.address, sink.address, residual)
				if path == nil {
					continue
				}
				cap := pathCapacity(n, path, residual)
				amount := remaining
				if cap*0.5 < amount {
					amount = cap * 0.5
				}
				if amount <= 1e-9 {
					continue
				}
				for _, idx := range path {
					residual[idx] -= amount
					flowByEdge[idx] += amount
				}
				sourceAttribution[src.address] += amount
				sinkAttribution[sink.address] += amount
				remaining -= amount
				pushed = true
				if remaining <= 1e-9 {
					break
				}
			}
			if !pushed {
				break
			}
		}
	}

	return summarize(n, flowByEdge, taint, sourceAttribution, sinkAttribution, partial)
}

func summarize(n *Network, flowByEdge []float64, taint map[string]models.TaintResult,
	sourceAttribution, sinkAttribution map[string]float64, partial bool) models.FlowDecomposition {

	var segments []models.FlowSegment
	var totalFlow, taintedFlow float64
	uniqueSources := make(map[string]struct{})
	uniqueSinks := make(map[string]struct{})

	for i, f := range flowByEdge {
		if f <= 1e-9 {
			continue
		}
		e := n.edges[i]
		segments = append(segments, models.FlowSegment{Edge: e.original, Flow: f})
		totalFlow += f
		taintedFlow += f * taintShare(taint, e.from)
		uniqueSources[e.from] = struct{}{}
		uniqueSinks[e.to] = struct{}{}
	}

	cleanFlow := totalFlow - taintedFlow

	flowEfficiency := 1.0
	if len(segments) > 0 {
		maxUnique := len(uniqueSources)
		if len(uniqueSinks) > maxUnique {
			maxUnique = len(uniqueSinks)
		}
		flowEfficiency = 1 - float64(len(segments)-maxUnique)/float64(len(segments))
		if flowEfficiency < 0 {
			flowEfficiency = 0
		}
		if flowEfficiency > 1 {
			flowEfficiency = 1
		}
	}

	decompositionQuality := 0.0
	if totalFlow > 0 {
		sum := 0.0
		for _, v := range sourceAttribution {
			sum += v
		}
		decompositionQuality = sum / totalFlow
		if decompositionQuality > 1 {
			decompositionQuality = 1
		}
	}

	qualityPenalty := 0.0
	if partial {
		qualityPenalty = 0.3
	}

	return models.FlowDecomposition{
		Segments:             segments,
		TotalFlow:            totalFlow,
		TaintedFlow:          taintedFlow,
		CleanFlow:            cleanFlow,
		SourceAttribution:    sourceAttribution,
		SinkAttribution:      sinkAttribution,
		FlowEfficiency:       flowEfficiency,
		DecompositionQuality: decompositionQuality,
		Partial:              partial,
		QualityPenalty:       qualityPenalty,
	}
}
