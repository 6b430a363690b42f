package graph

import (
	"testing"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestFanInOut(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "b", 10),
		edge("c", "b", 5),
		edge("b", "d", 3),
	})

	in := g.FanIn("b")
	if in.Count != 2 || in.TotalValue != 15 || in.UniqueEndpoints != 2 {
		t.Fatalf("unexpected FanIn(b): %+v", in)
	}

	out := g.FanOut("b")
	if out.Count != 1 || out.TotalValue != 3 {
		t.Fatalf("unexpected FanOut(b): %+v", out)
	}
}

func TestFanStats_IgnoresZeroValue(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "b", 0),
		edge("c", "b", 5),
	})
	in := g.FanIn("b")
	if in.Count != 1 || in.TotalValue != 5 {
		t.Fatalf("expected zero-value edge excluded, got %+v", in)
	}
}

func TestNetFlow(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "b", 10),
		edge("b", "c", 4),
	})
	nf := g.NetFlow("b")
	if nf.Inflow != 10 || nf.Outflow != 4 || nf.NetFlow != 6 {
		t.Fatalf("unexpected NetFlow(b): %+v", nf)
	}
}

func TestReachableWithin(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "b", 1),
		edge("b", "c", 1),
		edge("c", "d", 1),
	})

	reach := g.ReachableWithin("a", 2)
	if reach["a"] != 0 || reach["b"] != 1 || reach["c"] != 2 {
		t.Fatalf("unexpected reachability: %+v", reach)
	}
	if _, ok := reach["d"]; ok {
		t.Fatalf("expected d unreachable within 2 hops, got present")
	}
}

func TestDensity(t *testing.T) {
	g := New([]models.TxEdge{edge("a", "b", 1), edge("b", "c", 1)})
	// |V|=3, |E|=2 -> 2/(3*2) = 1/3
	got := g.Density()
	want := 2.0 / 6.0
	if got != want {
		t.Fatalf("expected density %v, got %v", want, got)
	}
}

func TestDensity_TrivialGraph(t *testing.T) {
	g := New(nil)
	if d := g.Density(); d != 0 {
		t.Fatalf("expected 0 density for empty graph, got %v", d)
	}
}
