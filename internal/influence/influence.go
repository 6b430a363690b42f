// Package influence implements F5's influence-scoring half: counterfactual
// betweenness over the transaction graph.
package influence

import (
	"sort"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// totalFlow sums every edge's value in g.
func totalFlow(g *graph.TxGraph) float64 {
	total := 0.0
	for _, e := range g.Edges() {
		total += e.Value
	}
	return total
}

// prioritize ranks up to n addresses: target first, then by
// taint*0.7 + volumeNormalised*0.3.
func prioritize(g *graph.TxGraph, target string, taint map[string]models.TaintResult, n int) []string {
	maxVolume := 0.0
	volumes := make(map[string]float64)
	for _, addr := range g.Nodes() {
		flow := g.NetFlow(addr)
		volumes[addr] = flow.Inflow + flow.Outflow
		if volumes[addr] > maxVolume {
			maxVolume = volumes[addr]
		}
	}

	type scored struct {
		address string
		score   float64
	}
	var rest []scored
	for _, addr := range g.Nodes() {
		if addr == target {
			continue
		}
		taintShare := 0.0
		if r, ok := taint[addr]; ok {
			taintShare = r.Share
		}
		normVolume := 0.0
		if maxVolume > 0 {
			normVolume = volumes[addr] / maxVolume
		}
		score := taintShare*0.7 + normVolume*0.3
		rest = append(rest, scored{address: addr, score: score})
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].score != rest[j].score {
			return rest[i].score > rest[j].score
		}
		return rest[i].address < rest[j].address
	})

	out := []string{}
	if g.HasNode(target) {
		out = append(out, target)
	}
	for _, s := range rest {
		if len(out) >= n {
			break
		}
		out = append(out, s.address)
	}
	return out
}

// betweenness computes a normalised centrality for addr over g's
// unit-weighted directed adjacency: the fraction of reachable ordered
// pairs (s, t), both distinct from addr, for which BFS finds addr on at
// least one shortest s→t path. Each such pair counts once; the score is
// not weighted by the share of shortest paths that pass through addr.
func betweenness(g *graph.TxGraph, addr string) float64 {
	nodes := g.Nodes()
	if len(nodes) < 3 {
		return 0
	}

	var throughCount, totalPairs int
	for _, s := range nodes {
		if s == addr {
			continue
		}
		dist, sigma, reachedVia := bfsShortestPaths(g, s)
		for _, t := range nodes {
			if t == s || t == addr {
				continue
			}
			if _, ok := dist[t]; !ok {
				continue
			}
			totalPairs++
			if pathThrough(addr, s, t, dist, sigma, reachedVia) {
				throughCount++
			}
		}
	}
	if totalPairs == 0 {
		return 0
	}
	return float64(throughCount) / float64(totalPairs)
}

// bfsShortestPaths computes, from source, each node's shortest-hop
// distance and the number of shortest paths reaching it (sigma), plus
// each node's immediate shortest-path predecessors.
func bfsShortestPaths(g *graph.TxGraph, source string) (dist map[string]int, sigma map[string]int, preds map[string][]string) {
	dist = map[string]int{source: 0}
	sigma = map[string]int{source: 1}
	preds = map[string][]string{}

	queue := []string{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, e := range g.OutEdges(u) {
			v := e.To
			if _, seen := dist[v]; !seen {
				dist[v] = dist[u] + 1
				sigma[v] = 0
				queue = append(queue, v)
			}
			if dist[v] == dist[u]+1 {
				sigma[v] += sigma[u]
				preds[v] = append(preds[v], u)
			}
		}
	}
	return dist, sigma, preds
}

// pathThrough reports whether addr lies on at least one shortest path
// from s to t, by walking predecessors backward from t.
func pathThrough(addr, s, t string, dist map[string]int, sigma map[string]int, preds map[string][]string) bool {
	visited := map[string]bool{}
	var walk func(node string) bool
	walk = func(node string) bool {
		if node == s {
			return false
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, p := range preds[node] {
			if p == addr {
				return true
			}
			if walk(p) {
				return true
			}
		}
		return false
	}
	return walk(t)
}

// Analyze computes AddressInfluence for up to n prioritised addresses.
func Analyze(g *graph.TxGraph, target string, taint map[string]models.TaintResult, n int) []models.AddressInfluence {
	baseline := totalFlow(g)
	addrs := prioritize(g, target, taint, n)

	results := make([]models.AddressInfluence, 0, len(addrs))
	for _, addr := range addrs {
		counterfactual := totalFlow(g.WithoutNode(addr))
		score := 0.0
		if baseline > 0 {
			score = (baseline - counterfactual) / baseline
		}
		centrality := betweenness(g, addr)

		taintInfluence := 0.0
		if r, ok := taint[addr]; ok {
			taintInfluence = r.Share
		}

		results = append(results, models.AddressInfluence{
			Address:            addr,
			BaselineFlow:       baseline,
			CounterfactualFlow: counterfactual,
			InfluenceScore:     score,
			TaintInfluence:     taintInfluence,
			Centrality:         centrality,
			Criticality:        classifyCriticality(score, centrality),
		})
	}
	return results
}

func classifyCriticality(score, centrality float64) models.Criticality {
	switch {
	case score > 0.1 || centrality > 0.3:
		return models.CriticalityHigh
	case score > 0.05 || centrality > 0.1:
		return models.CriticalityMedium
	default:
		return models.CriticalityLow
	}
}

// NetworkFragility is the mean of the top-3 influenceScore.
func NetworkFragility(results []models.AddressInfluence) float64 {
	if len(results) == 0 {
		return 0
	}
	sorted := append([]models.AddressInfluence(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].InfluenceScore > sorted[j].InfluenceScore })
	top := sorted
	if len(top) > 3 {
		top = top[:3]
	}
	sum := 0.0
	for _, r := range top {
		sum += r.InfluenceScore
	}
	return sum / float64(len(top))
}
