package chain

import (
	"context"
	"testing"
)

func TestFixtureClient_RoundTrip(t *testing.T) {
	f := NewFixtureClient()
	slot := int64(100)
	tx := &RawTransaction{
		Signature:    "sig1",
		Slot:         slot,
		Success:      true,
		AccountKeys:  []string{"a", "b"},
		PreBalances:  []int64{10_000_000_000, 0},
		PostBalances: []int64{9_000_000_000, 1_000_000_000},
	}
	f.AddTransaction(tx)

	sigs, err := f.SignaturesForAddress(context.Background(), "a", 10)
	if err != nil || len(sigs) != 1 {
		t.Fatalf("expected 1 signature for a, got %d err=%v", len(sigs), err)
	}

	got, err := f.TransactionDetails(context.Background(), "sig1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	edges := ExtractEdges(got)
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].From != "a" || edges[0].To != "b" {
		t.Fatalf("unexpected edge endpoints: %+v", edges[0])
	}
	if edges[0].Value != 1.0 {
		t.Fatalf("expected 1.0 native-unit transfer, got %v", edges[0].Value)
	}
}

func TestExtractEdges_FailedTxSkipped(t *testing.T) {
	tx := &RawTransaction{Signature: "bad", Success: false}
	if edges := ExtractEdges(tx); edges != nil {
		t.Fatalf("expected no edges for a failed transaction, got %v", edges)
	}
}
