package risk

import "testing"

func TestOutlierRamp(t *testing.T) {
	if got := outlierRamp(1.0); got != 0 {
		t.Fatalf("expected 0 below the 1.5 sigma floor, got %v", got)
	}
	if got := outlierRamp(4.5); got != 1 {
		t.Fatalf("expected 1 above the 4 sigma ceiling, got %v", got)
	}
	mid := outlierRamp(2.75)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("expected a mid-ramp value in (0,1), got %v", mid)
	}
}

func TestSampleStats(t *testing.T) {
	max, mean, std := sampleStats([]float64{1, 1, 1})
	if max != 1 || mean != 1 || std != 0 {
		t.Fatalf("expected max=1 mean=1 std=0 for a constant sample, got max=%v mean=%v std=%v", max, mean, std)
	}
}

func TestIntegrationEventsComponent_EmptyEventsZeroScore(t *testing.T) {
	cfg := Profiles()[ProfileBalanced]
	c := integrationEvents(Inputs{}, cfg)
	if c.Score != 0 {
		t.Fatalf("expected zero score with no events, got %v", c.Score)
	}
}
