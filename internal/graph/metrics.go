package graph

import "sort"

// FanStats summarises one side (in or out) of an address's edge set,
// considering only edges with Value > 0.
type FanStats struct {
	Count           int
	TotalValue      float64
	UniqueEndpoints int
	AvgValue        float64
	MaxValue        float64
}

func fanStats(edges []modelEdge) FanStats {
	var s FanStats
	seen := make(map[string]struct{})
	for _, e := range edges {
		if e.value <= 0 {
			continue
		}
		s.Count++
		s.TotalValue += e.value
		if e.value > s.MaxValue {
			s.MaxValue = e.value
		}
		seen[e.endpoint] = struct{}{}
	}
	s.UniqueEndpoints = len(seen)
	if s.Count > 0 {
		s.AvgValue = s.TotalValue / float64(s.Count)
	}
	return s
}

// modelEdge is the minimal shape fanStats needs, decoupled from which
// adjacency side (From/To) supplied it.
type modelEdge struct {
	endpoint string
	value    float64
}

// FanIn returns inbound fan statistics for addr.
func (g *TxGraph) FanIn(addr string) FanStats {
	edges := g.adjIn[addr]
	conv := make([]modelEdge, len(edges))
	for i, e := range edges {
		conv[i] = modelEdge{endpoint: e.From, value: e.Value}
	}
	return fanStats(conv)
}

// FanOut returns outbound fan statistics for addr.
func (g *TxGraph) FanOut(addr string) FanStats {
	edges := g.adjOut[addr]
	conv := make([]modelEdge, len(edges))
	for i, e := range edges {
		conv[i] = modelEdge{endpoint: e.To, value: e.Value}
	}
	return fanStats(conv)
}

// NetFlowStats is the net-flow summary for one address.
type NetFlowStats struct {
	Inflow           float64
	Outflow          float64
	NetFlow          float64 // inflow - outflow
	FlowRatio        float64 // inflow / (inflow + outflow); 0 when both are 0
	TransactionCount int
}

// NetFlow computes the netFlow(v): inflow minus outflow, a ratio,
// and the total transaction count incident to addr (value>0 edges only,
// matching FanIn/FanOut).
func (g *TxGraph) NetFlow(addr string) NetFlowStats {
	in := g.FanIn(addr)
	out := g.FanOut(addr)
	stats := NetFlowStats{
		Inflow:           in.TotalValue,
		Outflow:          out.TotalValue,
		TransactionCount: in.Count + out.Count,
	}
	stats.NetFlow = stats.Inflow - stats.Outflow
	denom := stats.Inflow + stats.Outflow
	if denom > 0 {
		stats.FlowRatio = stats.Inflow / denom
	}
	return stats
}

// ReachableWithin runs BFS over the undirected closure of the graph (an
// edge u->v also permits traversal v->u) and returns every address
// reachable from v within K hops, mapped to its minimum hop count.
// v itself is included at hop 0.
func (g *TxGraph) ReachableWithin(v string, k int) map[string]int {
	result := map[string]int{v: 0}
	if k <= 0 {
		return result
	}
	frontier := []string{v}
	for hop := 1; hop <= k; hop++ {
		var next []string
		for _, u := range frontier {
			for _, nb := range g.undirectedNeighbors(u) {
				if _, seen := result[nb]; seen {
					continue
				}
				result[nb] = hop
				next = append(next, nb)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return result
}

// undirectedNeighbors returns every address directly connected to addr by
// an edge in either direction, in a stable (sorted) order so BFS expansion
// is deterministic.
func (g *TxGraph) undirectedNeighbors(addr string) []string {
	seen := make(map[string]struct{})
	for _, e := range g.adjOut[addr] {
		seen[e.To] = struct{}{}
	}
	for _, e := range g.adjIn[addr] {
		seen[e.From] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Density returns |E| / (|V|*(|V|-1)), or 0 when |V| <= 1.
func (g *TxGraph) Density() float64 {
	v := len(g.nodes)
	if v <= 1 {
		return 0
	}
	return float64(len(g.edges)) / float64(v*(v-1))
}
