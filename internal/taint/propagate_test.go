package taint

import (
	"math"
	"testing"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestPropagate_SingleHopProportional(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "seed", To: "x", Value: 3},
		{From: "seed", To: "y", Value: 1},
	})
	seeds := []models.TaintSeed{{Address: "seed", IncidentID: "inc-1", InitialTaint: 1.0}}
	cfg := DefaultConfig()

	results := Propagate(g, seeds, cfg)

	x, ok := results["x"]
	if !ok {
		t.Fatalf("expected x to receive taint")
	}
	wantX := 1.0 * (3.0 / 4.0) * cfg.DecayFactor
	if math.Abs(x.Share-wantX) > 1e-9 {
		t.Fatalf("expected x share %v, got %v", wantX, x.Share)
	}
	if x.Hop != 1 {
		t.Fatalf("expected x hop 1, got %d", x.Hop)
	}

	y, ok := results["y"]
	if !ok {
		t.Fatalf("expected y to receive taint")
	}
	wantY := 1.0 * (1.0 / 4.0) * cfg.DecayFactor
	if math.Abs(y.Share-wantY) > 1e-9 {
		t.Fatalf("expected y share %v, got %v", wantY, y.Share)
	}
}

func TestPropagate_LinearChainDecaysGeometrically(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "a", To: "b", Value: 10},
		{From: "b", To: "c", Value: 10},
	})
	seeds := []models.TaintSeed{{Address: "a", IncidentID: "inc-1", InitialTaint: 1.0}}
	cfg := DefaultConfig()

	results := Propagate(g, seeds, cfg)

	b := results["b"]
	if math.Abs(b.Share-0.8) > 1e-9 || b.Hop != 1 {
		t.Fatalf("expected b share 0.8 at hop 1, got %v at hop %d", b.Share, b.Hop)
	}
	c := results["c"]
	if math.Abs(c.Share-0.64) > 1e-9 || c.Hop != 2 {
		t.Fatalf("expected c share 0.64 at hop 2, got %v at hop %d", c.Share, c.Hop)
	}
	if len(results) != 3 {
		t.Fatalf("expected only a, b, c tainted, got %d results", len(results))
	}
}

func TestPropagate_DustThresholdDrops(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "seed", To: "x", Value: 1},
	})
	seeds := []models.TaintSeed{{Address: "seed", IncidentID: "inc-1", InitialTaint: 0.001}}
	cfg := DefaultConfig()
	cfg.DustThreshold = 0.01

	results := Propagate(g, seeds, cfg)
	if _, ok := results["x"]; ok {
		t.Fatalf("expected x dropped below dust threshold")
	}
}

func TestPropagate_MaxHopsRespected(t *testing.T) {
	edges := []models.TxEdge{
		{From: "seed", To: "h1", Value: 1},
		{From: "h1", To: "h2", Value: 1},
		{From: "h2", To: "h3", Value: 1},
	}
	g := graph.New(edges)
	seeds := []models.TaintSeed{{Address: "seed", IncidentID: "inc-1", InitialTaint: 1.0}}
	cfg := DefaultConfig()
	cfg.MaxHops = 1
	cfg.DustThreshold = 0

	results := Propagate(g, seeds, cfg)
	if _, ok := results["h1"]; !ok {
		t.Fatalf("expected h1 reached at hop 1")
	}
	if _, ok := results["h2"]; ok {
		t.Fatalf("expected h2 not reached: exceeds maxHops")
	}
}

func TestPropagate_NoPathRevisit(t *testing.T) {
	edges := []models.TxEdge{
		{From: "seed", To: "a", Value: 1},
		{From: "a", To: "b", Value: 1},
		{From: "b", To: "seed", Value: 1},
	}
	g := graph.New(edges)
	seeds := []models.TaintSeed{{Address: "seed", IncidentID: "inc-1", InitialTaint: 1.0}}
	cfg := DefaultConfig()
	cfg.DustThreshold = 0
	cfg.MaxHops = 10

	results := Propagate(g, seeds, cfg)
	if err := Validate(results, seeds); err != nil {
		t.Fatalf("expected valid propagation result, got %v", err)
	}
}

func TestPropagate_BestShareWins(t *testing.T) {
	edges := []models.TxEdge{
		{From: "seedStrong", To: "mid", Value: 1},
		{From: "mid", To: "target", Value: 1},
		{From: "seedWeak", To: "target", Value: 1},
	}
	g := graph.New(edges)
	seeds := []models.TaintSeed{
		{Address: "seedStrong", IncidentID: "inc-strong", InitialTaint: 1.0},
		{Address: "seedWeak", IncidentID: "inc-weak", InitialTaint: 0.01},
	}
	cfg := DefaultConfig()
	cfg.DustThreshold = 0

	results := Propagate(g, seeds, cfg)
	target, ok := results["target"]
	if !ok {
		t.Fatalf("expected target to be reached")
	}
	if target.IncidentID != "inc-strong" {
		t.Fatalf("expected target's best arrival to come from the strong seed, got incident %s", target.IncidentID)
	}
}

func TestSummarize(t *testing.T) {
	results := map[string]models.TaintResult{
		"a": {Share: 0.5, Hop: 1, IncidentID: "x", TotalFlow: 10},
		"b": {Share: 0.25, Hop: 2, IncidentID: "y", TotalFlow: 5},
	}
	m := Summarize(results)
	if m.TaintedCount != 2 {
		t.Fatalf("expected count 2, got %d", m.TaintedCount)
	}
	if m.MaxShare != 0.5 {
		t.Fatalf("expected max share 0.5, got %v", m.MaxShare)
	}
	if m.DistinctIncidents != 2 {
		t.Fatalf("expected 2 distinct incidents, got %d", m.DistinctIncidents)
	}
}
