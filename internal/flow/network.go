// Package flow implements F5's flow-attribution half: a min-cost flow
// decomposition of the transaction graph that attributes value to sources
// and sinks while weighting by taint and program-level risk.
package flow

import (
	"sort"

	"github.com/rawblock/wallet-forensics/internal/catalog"
	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Config holds the flow-network tunables.
type Config struct {
	BaseCost              float64
	TaintCostFactor       float64
	BridgeProgramPenalty  float64
	DefaultProgramPenalty float64
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		BaseCost:              0.001,
		TaintCostFactor:       0.1,
		BridgeProgramPenalty:  0.005,
		DefaultProgramPenalty: 0.001,
	}
}

// flowEdge is one directed, capacitated, costed edge in the flow network.
type flowEdge struct {
	from, to string
	capacity float64
	cost     float64
	original models.TxEdge
}

// Network is the flow network built from a transaction graph, ready for
// min-cost flow decomposition.
type Network struct {
	edges   []flowEdge
	adjOut  map[string][]int // indexes into edges, by from-address
	sources []weighted
	sinks   []weighted
}

type weighted struct {
	address string
	weight  float64
}

func taintShare(taint map[string]models.TaintResult, addr string) float64 {
	if r, ok := taint[addr]; ok {
		return r.Share
	}
	return 0
}

// programPenalty looks up program in the integration catalog and applies
// the bridge penalty when it's tagged models.ServiceBridge, rather than
// guessing from the program id's text. cat may be nil (no catalog loaded),
// in which case every program gets the default penalty.
func programPenalty(program string, cat *catalog.Catalog, cfg Config) float64 {
	if cat != nil {
		if endpoint, ok := cat.Lookup(program); ok && endpoint.Type == models.ServiceBridge {
			return cfg.BridgeProgramPenalty
		}
	}
	return cfg.DefaultProgramPenalty
}

// BuildNetwork constructs the flow network: net senders (netFlow < 0) are
// sources and net receivers (netFlow > 0) are sinks, edge capacity from
// edge value, edge unit cost from the base cost plus taint delta plus
// program penalty. Self-loops are excluded (the graph builder already
// drops them). If every node's netFlow is near zero, sources/sinks are
// synthesized by syntheticSupplyDemand, which ranks by volume, not taint.
// cat resolves each edge's program id against the integration catalog to
// apply the bridge penalty; pass nil to skip the lookup entirely.
func BuildNetwork(g *graph.TxGraph, taint map[string]models.TaintResult, cat *catalog.Catalog, cfg Config) *Network {
	n := &Network{adjOut: make(map[string][]int)}

	for _, e := range g.Edges() {
		cost := cfg.BaseCost
		delta := taintShare(taint, e.To) - taintShare(taint, e.From)
		if delta > 0 {
			cost += delta * cfg.TaintCostFactor
		}
		cost += programPenalty(e.Program, cat, cfg)

		idx := len(n.edges)
		n.edges = append(n.edges, flowEdge{from: e.From, to: e.To, capacity: e.Value, cost: cost, original: e})
		n.adjOut[e.From] = append(n.adjOut[e.From], idx)
	}

	n.sources, n.sinks = deriveSupplyDemand(g)
	return n
}

func deriveSupplyDemand(g *graph.TxGraph) (sources, sinks []weighted) {
	nodes := g.Nodes()
	sort.Strings(nodes)

	allNearZero := true
	for _, addr := range nodes {
		nf := g.NetFlow(addr)
		if nf.NetFlow > 0.01 || nf.NetFlow < -0.01 {
			allNearZero = false
		}
		if nf.NetFlow < 0 {
			sources = append(sources, weighted{address: addr, weight: -nf.NetFlow})
		} else if nf.NetFlow > 0 {
			sinks = append(sinks, weighted{address: addr, weight: nf.NetFlow})
		}
	}
	if !allNearZero {
		sort.Slice(sources, func(i, j int) bool { return sources[i].weight > sources[j].weight })
		sort.Slice(sinks, func(i, j int) bool { return sinks[i].weight > sinks[j].weight })
		return sources, sinks
	}
	return syntheticSupplyDemand(g)
}

// syntheticSupplyDemand is used when real netFlow values are all near
// zero. It ranks addresses by transaction volume (inflow + outflow) and
// takes the top-3 as sources and the bottom-3 as sinks; taint shares are
// not consulted. With three or fewer active addresses the sinks are the
// same addresses as the sources.
func syntheticSupplyDemand(g *graph.TxGraph) (sources, sinks []weighted) {
	nodes := g.Nodes()
	sort.Strings(nodes)
	for _, addr := range nodes {
		flow := g.NetFlow(addr)
		volume := flow.Inflow + flow.Outflow
		if volume <= 0 {
			continue
		}
		sources = append(sources, weighted{address: addr, weight: volume})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].weight > sources[j].weight })
	if len(sources) > 3 {
		sinks = append([]weighted(nil), sources[len(sources)-3:]...)
		sources = sources[:3]
	} else {
		sinks = append([]weighted(nil), sources...)
	}
	return sources, sinks
}
