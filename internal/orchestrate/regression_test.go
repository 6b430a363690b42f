package orchestrate

import (
	"context"
	"testing"

	"github.com/rawblock/wallet-forensics/internal/risk"
)

func TestRunRegression_AllCasesPass(t *testing.T) {
	report := RunRegression(context.Background(), RegressionCases())

	if report.PassRate != 1.0 {
		t.Fatalf("expected pass rate 1.0, got %v (results: %+v)", report.PassRate, report.Results)
	}
	if len(report.FalsePositives) != 0 {
		t.Fatalf("expected no false positives, got %v", report.FalsePositives)
	}
	if len(report.Recommendations) != 0 {
		t.Fatalf("expected no tuning recommendations, got %v", report.Recommendations)
	}
}

func TestRunRegression_HackCaseBreachesTaintComponent(t *testing.T) {
	report := RunRegression(context.Background(), RegressionCases())

	acc, ok := report.ComponentAccuracy[risk.ComponentTaintProximity]
	if !ok {
		t.Fatalf("expected taint proximity accuracy to be tracked, got %+v", report.ComponentAccuracy)
	}
	if acc != 1.0 {
		t.Fatalf("expected taint proximity accuracy 1.0, got %v", acc)
	}
}

func TestRunRegression_LegitimateUserStaysLow(t *testing.T) {
	cases := RegressionCases()
	legit := cases[len(cases)-1:]
	report := RunRegression(context.Background(), legit)

	if len(report.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(report.Results))
	}
	r := report.Results[0]
	if !r.Passed || r.FalsePositive {
		t.Fatalf("expected legitimate user to pass without a flag, got %+v", r)
	}
	if r.ActualScore >= 0.3 {
		t.Fatalf("expected legitimate user score below 0.3, got %v", r.ActualScore)
	}
}
