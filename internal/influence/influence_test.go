package influence

import (
	"testing"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestAnalyze_HubHasHigherInfluenceThanLeaf(t *testing.T) {
	g := graph.New([]models.TxEdge{
		{From: "a", To: "hub", Value: 10},
		{From: "hub", To: "b", Value: 10},
		{From: "hub", To: "c", Value: 10},
		{From: "d", To: "leaf", Value: 1},
	})

	results := Analyze(g, "hub", nil, 10)
	var hubScore, leafScore float64
	for _, r := range results {
		switch r.Address {
		case "hub":
			hubScore = r.InfluenceScore
		case "leaf":
			leafScore = r.InfluenceScore
		}
	}
	if hubScore <= leafScore {
		t.Fatalf("expected hub influence (%v) to exceed leaf influence (%v)", hubScore, leafScore)
	}
}

func TestNetworkFragility_MeanOfTopThree(t *testing.T) {
	results := []models.AddressInfluence{
		{Address: "a", InfluenceScore: 0.9},
		{Address: "b", InfluenceScore: 0.6},
		{Address: "c", InfluenceScore: 0.3},
		{Address: "d", InfluenceScore: 0.1},
	}
	got := NetworkFragility(results)
	want := (0.9 + 0.6 + 0.3) / 3
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClassifyCriticality(t *testing.T) {
	cases := []struct {
		score, centrality float64
		want              models.Criticality
	}{
		{0.2, 0, models.CriticalityHigh},
		{0, 0.4, models.CriticalityHigh},
		{0.06, 0, models.CriticalityMedium},
		{0, 0, models.CriticalityLow},
	}
	for _, c := range cases {
		if got := classifyCriticality(c.score, c.centrality); got != c.want {
			t.Fatalf("classifyCriticality(%v,%v) = %v, want %v", c.score, c.centrality, got, c.want)
		}
	}
}
