package risk

import (
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Assess computes the final RiskAssessment: a weighted sum of
// the five additive components minus the weighted data-quality penalty,
// normalised by the sum of weights, then classified against cfg's
// thresholds.
func Assess(in Inputs, cfg Config) models.RiskAssessment {
	components := ComputeComponents(in, cfg)

	var weightedSum, weightSum, confidenceSum float64
	for _, c := range components {
		weightSum += c.Weight
		confidenceSum += c.Confidence * c.Weight
		if c.Name == string(ComponentDataQuality) {
			weightedSum -= c.Score * c.Weight
		} else {
			weightedSum += c.Score * c.Weight
		}
	}

	finalScore := 0.0
	confidence := 0.0
	if weightSum > 0 {
		finalScore = weightedSum / weightSum
		confidence = confidenceSum / weightSum
	}
	if finalScore < 0 {
		finalScore = 0
	}
	if finalScore > 1 {
		finalScore = 1
	}

	level := classifyLevel(finalScore, cfg.Thresholds)
	flagged := level == models.RiskHigh || level == models.RiskCritical

	return models.RiskAssessment{
		FinalScore:        finalScore,
		Level:             level,
		Confidence:        confidence,
		Components:        components,
		Flagged:           flagged,
		Recommendations:   recommendations(components, level),
		AssessmentQuality: confidence,
	}
}

func classifyLevel(score float64, t Thresholds) models.RiskLevel {
	switch {
	case score >= t.Critical:
		return models.RiskCritical
	case score >= t.High:
		return models.RiskHigh
	case score >= t.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func recommendations(components []models.RiskComponent, level models.RiskLevel) []string {
	var recs []string
	if level == models.RiskCritical {
		recs = append(recs, "escalate for manual review")
	}
	for _, c := range components {
		if c.ThresholdBreached {
			recs = append(recs, "review "+c.Name+": threshold breached")
		}
	}
	return recs
}
