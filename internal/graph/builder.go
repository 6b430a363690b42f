// Package graph builds the directed transaction-flow graph (F1) and
// computes the per-node metrics the rest of the pipeline reads.
//
// A TxGraph is built once per investigation and never mutated afterward —
// every later stage (taint, clustering, explainability, flow, influence,
// risk) only reads it, so concurrent stages need no locking around it.
package graph

import (
	"fmt"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

// TxGraph is a directed multigraph over addresses. Edges keep insertion
// order; duplicate edges are kept, not merged, because analytics (taint
// share, fan-in/out counts) are multiplicity-aware.
type TxGraph struct {
	nodes map[string]struct{}
	edges []models.TxEdge

	// adjOut[addr] holds, in insertion order, every edge with From == addr.
	adjOut map[string][]models.TxEdge
	// adjIn[addr] holds, in insertion order, every edge with To == addr.
	adjIn map[string][]models.TxEdge
}

// New builds a TxGraph from a finite sequence of edges in O(E) time and
// O(V+E) memory. Self-loops (From == To) are dropped at build
// time: every analytic ignores them, so the one correct place to drop
// them is here.
// Zero-valued edges are kept: they still carry program/temporal
// information even though value-weighted metrics exclude them.
func New(edges []models.TxEdge) *TxGraph {
	g := &TxGraph{
		nodes:  make(map[string]struct{}),
		edges:  make([]models.TxEdge, 0, len(edges)),
		adjOut: make(map[string][]models.TxEdge),
		adjIn:  make(map[string][]models.TxEdge),
	}
	for _, e := range edges {
		g.addEdge(e)
	}
	return g
}

func (g *TxGraph) addEdge(e models.TxEdge) {
	if e.From == e.To {
		return
	}
	g.nodes[e.From] = struct{}{}
	g.nodes[e.To] = struct{}{}
	g.edges = append(g.edges, e)
	g.adjOut[e.From] = append(g.adjOut[e.From], e)
	g.adjIn[e.To] = append(g.adjIn[e.To], e)
}

// Nodes returns every address that appears as the source or sink of at
// least one edge. Order is unspecified; callers that need determinism
// should sort.
func (g *TxGraph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// HasNode reports whether addr appears in the graph.
func (g *TxGraph) HasNode(addr string) bool {
	_, ok := g.nodes[addr]
	return ok
}

// Edges returns every edge in insertion order. The returned slice must
// not be mutated by the caller.
func (g *TxGraph) Edges() []models.TxEdge {
	return g.edges
}

// OutEdges returns the edges with From == addr, in insertion order.
func (g *TxGraph) OutEdges(addr string) []models.TxEdge {
	return g.adjOut[addr]
}

// InEdges returns the edges with To == addr, in insertion order.
func (g *TxGraph) InEdges(addr string) []models.TxEdge {
	return g.adjIn[addr]
}

// NodeCount and EdgeCount give |V| and |E| without materializing Nodes().
func (g *TxGraph) NodeCount() int { return len(g.nodes) }
func (g *TxGraph) EdgeCount() int { return len(g.edges) }

// Validate checks the structural invariant that the adjacency index
// sizes sum to |E| on each side. Individual edges are not looked up in
// the indexes.
func (g *TxGraph) Validate() error {
	outTotal, inTotal := 0, 0
	for _, es := range g.adjOut {
		outTotal += len(es)
	}
	for _, es := range g.adjIn {
		inTotal += len(es)
	}
	if outTotal != len(g.edges) {
		return fmt.Errorf("graph: adjOut size %d does not match edge count %d", outTotal, len(g.edges))
	}
	if inTotal != len(g.edges) {
		return fmt.Errorf("graph: adjIn size %d does not match edge count %d", inTotal, len(g.edges))
	}
	return nil
}

// WithoutNode returns a new TxGraph with every edge incident to addr
// dropped. Used by influence analysis (F5) to compute the counterfactual
// flow if addr were removed from the network.
func (g *TxGraph) WithoutNode(addr string) *TxGraph {
	kept := make([]models.TxEdge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.From == addr || e.To == addr {
			continue
		}
		kept = append(kept, e)
	}
	return New(kept)
}
