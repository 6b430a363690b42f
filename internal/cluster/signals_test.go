package cluster

import (
	"testing"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func tInt64(v int64) *int64 { return &v }

func TestFeePayerSignals_ThresholdEnforced(t *testing.T) {
	cfg := DefaultConfig()
	edges := []models.TxEdge{
		{From: "payer", To: "a", TxSignature: "t1"},
		{From: "payer", To: "b", TxSignature: "t2"},
	}
	signals := feePayerSignals(edges, cfg)
	if len(signals) != 0 {
		t.Fatalf("expected no signal below MinFeePayerOccurrences, got %d", len(signals))
	}

	edges = append(edges, models.TxEdge{From: "payer", To: "c", TxSignature: "t3"})
	signals = feePayerSignals(edges, cfg)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal once threshold is met, got %d", len(signals))
	}
	if signals[0].Kind != models.SignalFeePayer {
		t.Fatalf("expected feePayer signal kind")
	}
}

func TestFanPatternSignals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FanPatternThreshold = 2
	edges := []models.TxEdge{
		{From: "a", To: "hub", BlockTime: tInt64(100), TxSignature: "t1"},
		{From: "b", To: "hub", BlockTime: tInt64(110), TxSignature: "t2"},
	}
	signals := fanPatternSignals(edges, cfg)
	if len(signals) == 0 {
		t.Fatalf("expected at least one fan-in signal for hub")
	}
}

func TestTemporalSignals_AddressCountBounds(t *testing.T) {
	cfg := DefaultConfig()
	edges := []models.TxEdge{
		{From: "a", To: "b", BlockTime: tInt64(100), TxSignature: "t1"},
		{From: "b", To: "c", BlockTime: tInt64(110), TxSignature: "t2"},
		{From: "c", To: "a", BlockTime: tInt64(120), TxSignature: "t3"},
	}
	signals := temporalSignals(edges, cfg)
	if len(signals) != 1 {
		t.Fatalf("expected 1 temporal signal for a 3-address bucket, got %d", len(signals))
	}
}

func TestTemporalSignals_TooFewEdges(t *testing.T) {
	cfg := DefaultConfig()
	edges := []models.TxEdge{
		{From: "a", To: "b", BlockTime: tInt64(100), TxSignature: "t1"},
	}
	signals := temporalSignals(edges, cfg)
	if len(signals) != 0 {
		t.Fatalf("expected no signal for a bucket with fewer than 3 edges")
	}
}
