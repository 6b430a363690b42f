package cluster

import (
	"testing"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestAssemble_AcceptsConfidentComponent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinClusterConfidence = 0.1
	cfg.MinSignalStrength = 0.1

	signals := []models.EntitySignal{
		{Kind: models.SignalFeePayer, Strength: 0.9, Addresses: []string{"a", "b", "c"}},
	}

	clusters := Assemble(signals, cfg)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Addresses) != 3 {
		t.Fatalf("expected 3 members, got %d", len(clusters[0].Addresses))
	}
}

func TestAssemble_RejectsBelowMinSignalStrength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSignalStrength = 0.5

	signals := []models.EntitySignal{
		{Kind: models.SignalFeePayer, Strength: 0.1, Addresses: []string{"a", "b"}},
	}

	clusters := Assemble(signals, cfg)
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters when signal strength is below the floor, got %d", len(clusters))
	}
}

func TestAssemble_RejectsOversizedComponent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClusterSize = 2
	cfg.MinSignalStrength = 0.1
	cfg.MinClusterConfidence = 0.0

	signals := []models.EntitySignal{
		{Kind: models.SignalFeePayer, Strength: 0.9, Addresses: []string{"a", "b", "c"}},
	}

	clusters := Assemble(signals, cfg)
	if len(clusters) != 0 {
		t.Fatalf("expected oversized component rejected, got %d clusters", len(clusters))
	}
}

func TestAssemble_DisjointComponentsSeparate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSignalStrength = 0.1
	cfg.MinClusterConfidence = 0.0

	signals := []models.EntitySignal{
		{Kind: models.SignalFeePayer, Strength: 0.9, Addresses: []string{"a", "b"}},
		{Kind: models.SignalTemporal, Strength: 0.9, Addresses: []string{"x", "y"}},
	}

	clusters := Assemble(signals, cfg)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 disjoint clusters, got %d", len(clusters))
	}
	if err := ValidateDisjoint(clusters); err != nil {
		t.Fatalf("expected assembled clusters to validate disjoint, got %v", err)
	}
}

func TestValidateDisjoint_CatchesOverlap(t *testing.T) {
	clusters := []models.EntityCluster{
		{ID: "c1", Addresses: []string{"a", "b"}},
		{ID: "c2", Addresses: []string{"b", "c"}},
	}
	if err := ValidateDisjoint(clusters); err == nil {
		t.Fatalf("expected overlap to be rejected")
	}
}
