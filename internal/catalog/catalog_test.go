package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestLoad_FallsBackToEmbeddedDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "catalog.json"), DefaultUpdateInterval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep, ok := c.Lookup("binance-hot-1"); !ok || ep.Type != models.ServiceCEX {
		t.Fatalf("expected embedded default to include binance-hot-1, got %+v ok=%v", ep, ok)
	}
}

func TestLoad_PersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	if _, err := Load(path, DefaultUpdateInterval); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c2, err := Load(path, DefaultUpdateInterval)
	if err != nil {
		t.Fatalf("unexpected error on reload: %v", err)
	}
	if c2.Version() != 1 {
		t.Fatalf("expected reloaded catalog version 1, got %d", c2.Version())
	}
}

func TestFilterByType(t *testing.T) {
	c := New(EmbeddedDefaults())
	dexes := c.FilterByType(models.ServiceDEX)
	if len(dexes) == 0 {
		t.Fatalf("expected at least one DEX entry")
	}
	for _, d := range dexes {
		if d.Type != models.ServiceDEX {
			t.Fatalf("expected only DEX entries, got %v", d.Type)
		}
	}
}

func TestCheckInvolvement(t *testing.T) {
	c := New(EmbeddedDefaults())
	hits := c.CheckInvolvement([]string{"unknown-addr", "binance-hot-1"})
	if len(hits) != 1 {
		t.Fatalf("expected 1 match, got %d", len(hits))
	}
}

func unixPtr(t int64) *int64 { return &t }

func TestDetectEvents_CashOut(t *testing.T) {
	c := New(EmbeddedDefaults())
	edges := []models.TxEdge{
		{From: "suspect", To: "binance-hot-1", Value: 10, BlockTime: unixPtr(time.Now().Unix()), TxSignature: "tx1"},
	}
	taint := map[string]models.TaintResult{"suspect": {Address: "suspect", Share: 0.5}}

	events := DetectEvents(c, edges, taint, DefaultEventConfig())
	found := false
	for _, e := range events {
		if e.Kind == models.EventCashOut {
			found = true
			if e.RiskScore <= 0 {
				t.Fatalf("expected positive risk score")
			}
		}
	}
	if !found {
		t.Fatalf("expected a cashOut event")
	}
}

func TestDetectEvents_CashOutRiskFormula(t *testing.T) {
	c := New(EmbeddedDefaults())
	cfg := EventConfig{MinCashOutValue: 10, MinTaintThreshold: 0.1, SuspiciousVelocityThreshold: 100}
	edges := []models.TxEdge{
		{From: "suspect", To: "binance-hot-1", Value: 20, BlockTime: unixPtr(1_700_000_000), TxSignature: "tx1"},
	}
	taint := map[string]models.TaintResult{"suspect": {Address: "suspect", Share: 0.3}}

	events := DetectEvents(c, edges, taint, cfg)
	var cashOut *models.IntegrationEvent
	for i := range events {
		if events[i].Kind == models.EventCashOut {
			cashOut = &events[i]
		}
	}
	if cashOut == nil {
		t.Fatalf("expected a cashOut event")
	}
	if cashOut.Value != 20 {
		t.Fatalf("expected event value 20, got %v", cashOut.Value)
	}
	want := 0.7*0.3 + 0.3*(20.0/1000.0)
	if diff := cashOut.RiskScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected risk %v, got %v", want, cashOut.RiskScore)
	}
}

func TestDetectEvents_CashOutSkippedBelowTaintThreshold(t *testing.T) {
	c := New(EmbeddedDefaults())
	edges := []models.TxEdge{
		{From: "clean", To: "binance-hot-1", Value: 10, BlockTime: unixPtr(time.Now().Unix()), TxSignature: "tx1"},
	}
	events := DetectEvents(c, edges, nil, DefaultEventConfig())
	for _, e := range events {
		if e.Kind == models.EventCashOut {
			t.Fatalf("expected no cashOut event for untainted source")
		}
	}
}
