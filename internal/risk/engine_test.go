package risk

import (
	"testing"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func TestAssess_CleanWalletIsLow(t *testing.T) {
	cfg := Profiles()[ProfileBalanced]
	in := Inputs{ParseSuccessRate: 1.0, TimestampOK: true, DeltaOK: true}
	assessment := Assess(in, cfg)
	if assessment.Level != models.RiskLow {
		t.Fatalf("expected LOW for a clean wallet, got %v (score %v)", assessment.Level, assessment.FinalScore)
	}
	if assessment.Flagged {
		t.Fatalf("expected clean wallet not flagged")
	}
}

func TestAssess_FullTaintAloneIsMedium(t *testing.T) {
	cfg := Profiles()[ProfileBalanced]
	in := Inputs{
		TargetTaintShare: 1.0,
		TargetTaintHop:   1,
		MaxTaintScore:    1.0,
		ParseSuccessRate: 1.0,
		TimestampOK:      true,
		DeltaOK:          true,
	}
	assessment := Assess(in, cfg)
	// Taint proximity saturates at 1.0; with its balanced weight of 0.30 and
	// every other component at 0 the weighted mean is 0.30, the MEDIUM floor.
	if assessment.Level != models.RiskMedium || absF(assessment.FinalScore-0.3) > 1e-9 {
		t.Fatalf("expected MEDIUM with score 0.3 for full taint alone, got %v (score %v)", assessment.Level, assessment.FinalScore)
	}
}

func TestConfig_ValidateAutoNormalizes(t *testing.T) {
	cfg := Config{
		Weights: map[ComponentName]float64{
			ComponentTaintProximity: 0.5,
			ComponentConvergence:    0.505, // sums to 1.005, within 1% band
		},
		Thresholds: DefaultThresholds(),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected auto-normalisation to succeed, got %v", err)
	}
	sum := cfg.Weights[ComponentTaintProximity] + cfg.Weights[ComponentConvergence]
	if absF(sum-1.0) > 1e-9 {
		t.Fatalf("expected normalised weights to sum to 1, got %v", sum)
	}
}

func TestConfig_ValidateRejectsNonMonotoneThresholds(t *testing.T) {
	cfg := Config{
		Weights:    map[ComponentName]float64{ComponentTaintProximity: 1.0},
		Thresholds: Thresholds{Medium: 0.6, High: 0.5, Critical: 0.8},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for non-monotone thresholds")
	}
}

func TestRecommend(t *testing.T) {
	if got := Recommend(RecommendationContext{HasIncident: true}); got != ProfileTaintFocused {
		t.Fatalf("expected taint_focused for an incident-linked case, got %s", got)
	}
	if got := Recommend(RecommendationContext{InvestigationType: "financial_crime"}); got != ProfileFinancialCrime {
		t.Fatalf("expected financial_crime profile, got %s", got)
	}
	if got := Recommend(RecommendationContext{}); got != ProfileBalanced {
		t.Fatalf("expected balanced default, got %s", got)
	}
}

func TestRun_PassRateAndScoreAccuracy(t *testing.T) {
	cfg := Profiles()[ProfileBalanced]
	cases := []Case{
		{
			Name:             "heavy-taint-reaches-medium",
			Inputs:           Inputs{TargetTaintShare: 1.0, TargetTaintHop: 1, MaxTaintScore: 1.0, ParseSuccessRate: 1.0, TimestampOK: true, DeltaOK: true},
			ExpectedMinScore: 0.3,
		},
		{
			Name:             "clean-wallet-stays-low",
			Inputs:           Inputs{ParseSuccessRate: 1.0, TimestampOK: true, DeltaOK: true},
			ExpectedMinScore: 0.0,
			Legitimate:       true,
		},
	}
	report := Run(cases, cfg)
	if report.PassRate != 1.0 {
		t.Fatalf("expected pass rate 1.0, got %v (results: %+v)", report.PassRate, report.Results)
	}
	if len(report.FalsePositives) != 0 {
		t.Fatalf("expected no false positives, got %v", report.FalsePositives)
	}
}
