package orchestrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rawblock/wallet-forensics/internal/catalog"
	"github.com/rawblock/wallet-forensics/internal/chain"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

func fixtureChainWithChain(t *testing.T) *chain.FixtureClient {
	t.Helper()
	f := chain.NewFixtureClient()
	slot1, slot2 := int64(1), int64(2)
	bt1, bt2 := int64(1000), int64(2000)
	f.AddTransaction(&chain.RawTransaction{
		Signature:    "sig-a-b",
		Slot:         slot1,
		BlockTime:    &bt1,
		Success:      true,
		AccountKeys:  []string{"alice", "bob"},
		PreBalances:  []int64{10_000_000_000, 0},
		PostBalances: []int64{4_000_000_000, 6_000_000_000},
	})
	f.AddTransaction(&chain.RawTransaction{
		Signature:    "sig-b-carol",
		Slot:         slot2,
		BlockTime:    &bt2,
		Success:      true,
		AccountKeys:  []string{"bob", "carol"},
		PreBalances:  []int64{6_000_000_000, 0},
		PostBalances: []int64{1_000_000_000, 5_000_000_000},
	})
	return f
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cat, err := catalog.Load(filepath.Join(t.TempDir(), "catalog.json"), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return New(fixtureChainWithChain(t), cat, nil, nil)
}

func TestInvestigate_ProducesReport(t *testing.T) {
	o := newTestOrchestrator(t)
	opts := Options{
		TaintSeeds: []models.TaintSeed{
			{Address: "alice", IncidentID: "inc-1", InitialTaint: 1.0, Source: "test"},
		},
	}
	report, err := o.Investigate(context.Background(), "inv-1", "alice", opts)
	if err != nil {
		t.Fatalf("Investigate: %v", err)
	}
	if report.GraphOverview.NodeCount != 3 {
		t.Fatalf("expected 3 nodes, got %d", report.GraphOverview.NodeCount)
	}
	if report.TargetAddress != "alice" {
		t.Fatalf("unexpected target address: %s", report.TargetAddress)
	}
	if _, ok := report.TaintAnalysis.Results["carol"]; !ok {
		t.Fatalf("expected taint to propagate to carol, got %+v", report.TaintAnalysis.Results)
	}

	inv, ok := o.Lookup("inv-1")
	if !ok {
		t.Fatalf("expected investigation inv-1 to be tracked")
	}
	stage, rep, ierr := inv.Snapshot()
	if stage != StageReported {
		t.Fatalf("expected stage reported, got %s", stage)
	}
	if rep == nil || ierr != nil {
		t.Fatalf("unexpected snapshot: rep=%v err=%v", rep, ierr)
	}
}

func TestInvestigate_UnknownProfileFails(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Investigate(context.Background(), "inv-2", "alice", Options{Profile: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected an error for an unknown risk profile")
	}
}

func TestInvestigate_NoHistoryYieldsZeroReport(t *testing.T) {
	o := newTestOrchestrator(t)
	report, err := o.Investigate(context.Background(), "inv-3", "nobody", Options{})
	if err != nil {
		t.Fatalf("expected a zero report for an address with no history, got error %v", err)
	}
	if report.RiskAssessment.FinalScore != 0 || report.RiskAssessment.Level != models.RiskLow {
		t.Fatalf("expected score 0 at level LOW, got %v at %v",
			report.RiskAssessment.FinalScore, report.RiskAssessment.Level)
	}
	if len(report.Clusters) != 0 || len(report.EvidencePaths) != 0 {
		t.Fatalf("expected empty clusters and evidence paths, got %d and %d",
			len(report.Clusters), len(report.EvidencePaths))
	}
	disabled := 0
	for _, st := range report.StageStatuses {
		if !st.Enabled {
			disabled++
		}
	}
	if disabled == 0 {
		t.Fatalf("expected analytical stages reported as disabled, got %+v", report.StageStatuses)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StageCreated, StageDataFetched) {
		t.Fatalf("expected created -> dataFetched to be legal")
	}
	if CanTransition(StageCreated, StageScored) {
		t.Fatalf("expected created -> scored to be illegal")
	}
	if !CanTransition(StageScored, StageFailed) {
		t.Fatalf("expected scored -> failed to be legal")
	}
}
