package graph

import (
	"testing"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func edge(from, to string, value float64) models.TxEdge {
	return models.TxEdge{From: from, To: to, Value: value}
}

func TestNew_DropsSelfLoops(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "a", 5),
		edge("a", "b", 10),
	})

	if g.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge after dropping self-loop, got %d", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}
}

func TestNew_PreservesInsertionOrderAndDuplicates(t *testing.T) {
	edges := []models.TxEdge{
		edge("a", "b", 1),
		edge("a", "b", 2),
		edge("a", "c", 3),
	}
	g := New(edges)

	out := g.OutEdges("a")
	if len(out) != 3 {
		t.Fatalf("expected 3 out edges for a, got %d", len(out))
	}
	for i, e := range out {
		if e.Value != edges[i].Value {
			t.Fatalf("out edge %d: expected value %v, got %v", i, edges[i].Value, e.Value)
		}
	}
}

func TestValidate_OK(t *testing.T) {
	g := New([]models.TxEdge{edge("a", "b", 1), edge("b", "c", 2)})
	if err := g.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestHasNode(t *testing.T) {
	g := New([]models.TxEdge{edge("a", "b", 1)})
	if !g.HasNode("a") || !g.HasNode("b") {
		t.Fatalf("expected both endpoints present")
	}
	if g.HasNode("z") {
		t.Fatalf("expected z absent")
	}
}

func TestWithoutNode(t *testing.T) {
	g := New([]models.TxEdge{
		edge("a", "b", 1),
		edge("b", "c", 2),
		edge("a", "c", 3),
	})

	pruned := g.WithoutNode("b")
	if pruned.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge remaining after removing b, got %d", pruned.EdgeCount())
	}
	if pruned.HasNode("b") {
		t.Fatalf("expected b removed from pruned graph")
	}
}
