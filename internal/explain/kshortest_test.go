package explain

import (
	"testing"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestKShortest_FindsDirectPath(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "a", To: "b", Value: 10},
	})
	cfg := DefaultConfig()
	paths := KShortest(g, "a", "b", cfg)
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	if paths[0].Hops != 1 {
		t.Fatalf("expected 1 hop, got %d", paths[0].Hops)
	}
}

func TestKShortest_NoRevisit(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "a", To: "b", Value: 10},
		{From: "b", To: "a", Value: 10},
		{From: "b", To: "c", Value: 5},
	})
	cfg := DefaultConfig()
	paths := KShortest(g, "a", "c", cfg)
	if len(paths) == 0 {
		t.Fatalf("expected at least 1 path from a to c")
	}
	for _, p := range paths {
		seen := map[string]bool{p.Source: true}
		for _, e := range p.Segments {
			if seen[e.To] {
				t.Fatalf("path revisits node %s", e.To)
			}
			seen[e.To] = true
		}
	}
}

func TestKShortest_RespectsMaxHops(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "a", To: "b", Value: 1},
		{From: "b", To: "c", Value: 1},
		{From: "c", To: "d", Value: 1},
	})
	cfg := DefaultConfig()
	cfg.MaxHops = 1
	paths := KShortest(g, "a", "d", cfg)
	if len(paths) != 0 {
		t.Fatalf("expected no path within 1 hop, got %d", len(paths))
	}
}

func TestKShortest_HigherValuePathRanksFirst(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "s", To: "m1", Value: 5},
		{From: "m1", To: "t", Value: 5},
		{From: "s", To: "m2", Value: 50},
		{From: "m2", To: "t", Value: 50},
	})
	cfg := DefaultConfig()
	cfg.K = 2

	paths := KShortest(g, "s", "t", cfg)
	if len(paths) != 2 {
		t.Fatalf("expected both two-hop paths, got %d", len(paths))
	}
	for _, p := range paths {
		if p.Segments[0].From != "s" || p.Segments[len(p.Segments)-1].To != "t" {
			t.Fatalf("path endpoints do not match source/destination: %+v", p)
		}
		for i := 1; i < len(p.Segments); i++ {
			if p.Segments[i].From != p.Segments[i-1].To {
				t.Fatalf("segments do not chain: %+v", p.Segments)
			}
		}
	}

	scored := []models.EvidencePath{
		ScorePath(paths[0], nil, cfg),
		ScorePath(paths[1], nil, cfg),
	}
	var highValue, lowValue models.EvidencePath
	for _, p := range scored {
		if p.TotalValue == 100 {
			highValue = p
		} else {
			lowValue = p
		}
	}
	if highValue.PathScore <= lowValue.PathScore {
		t.Fatalf("expected the 50-per-hop path to outrank the 5-per-hop path: %v vs %v",
			highValue.PathScore, lowValue.PathScore)
	}
}

func TestScorePath_TaintBoost(t *testing.T) {
	cfg := DefaultConfig()
	path := models.EvidencePath{
		Source: "a", Destination: "b", Hops: 1, TotalValue: 10,
		Segments: []models.TxEdge{{From: "a", To: "b", Value: 10}},
	}
	taint := map[string]models.TaintResult{"a": {Share: 1.0}}

	withTaint := ScorePath(path, taint, cfg)
	withoutTaint := ScorePath(path, nil, cfg)
	if withTaint.PathScore <= withoutTaint.PathScore {
		t.Fatalf("expected taint-weighted score to exceed unweighted: %v vs %v", withTaint.PathScore, withoutTaint.PathScore)
	}
}
