package risk

import (
	"math"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// Inputs aggregates the per-stage statistics the six risk components
// read. It is assembled by the orchestrator from F1-F5's
// outputs for the target address under assessment.
type Inputs struct {
	// TaintProximity
	TargetTaintShare float64
	TargetTaintHop   int
	MaxTaintScore    float64

	// Convergence
	SinkConcentration float64 // top-sink share of sum(flow)
	FanOutRatio       float64 // [0,1], already normalised
	FanInRatio        float64 // [0,1], already normalised

	// ControlSignals
	FeePayerConcentration float64
	TemporalBurstRatio    float64
	ProgramConcentration  float64

	// IntegrationEvents
	HighRiskEvents   int
	MediumRiskEvents int
	TotalEvents      int
	TotalEventValue  float64

	// LargeOutlierTx
	SampledNetFlows []float64 // signed net flows; scored by absolute value

	// DataQualityPenalty
	TimestampOK      bool
	DeltaOK          bool
	RPCFallbackRatio float64
	ParseSuccessRate float64
}

func taintProximity(in Inputs, cfg Config) models.RiskComponent {
	// An untainted target contributes nothing; the hop term only has
	// meaning once some taint actually reached the neighbourhood.
	if in.TargetTaintShare <= 0 && in.MaxTaintScore <= 0 {
		return models.RiskComponent{
			Name:       string(ComponentTaintProximity),
			Score:      0,
			Weight:     cfg.Weights[ComponentTaintProximity],
			Confidence: 1.0,
		}
	}
	hopDecay := 1 - float64(in.TargetTaintHop-1)*0.2
	if hopDecay < 0 {
		hopDecay = 0
	}
	// hopDecay exceeds 1 when the target is itself a seed (hop 0), so the
	// sum needs a final clamp to stay a valid component score.
	score := min1(0.6*min1(in.TargetTaintShare*2) + 0.25*hopDecay + 0.15*min1(in.MaxTaintScore))
	return models.RiskComponent{
		Name:              string(ComponentTaintProximity),
		Score:             score,
		Weight:            cfg.Weights[ComponentTaintProximity],
		Confidence:        1.0,
		ThresholdBreached: score > cfg.TaintCriticalThreshold,
		RawValue:          in.TargetTaintShare,
	}
}

func convergence(in Inputs, cfg Config) models.RiskComponent {
	score := 0.4*in.SinkConcentration + 0.3*in.FanOutRatio + 0.3*in.FanInRatio
	return models.RiskComponent{
		Name:       string(ComponentConvergence),
		Score:      min1(score),
		Weight:     cfg.Weights[ComponentConvergence],
		Confidence: 1.0,
		RawValue:   in.SinkConcentration,
	}
}

func controlSignals(in Inputs, cfg Config) models.RiskComponent {
	score := 0.5*in.FeePayerConcentration + 0.3*in.TemporalBurstRatio + 0.2*in.ProgramConcentration
	return models.RiskComponent{
		Name:       string(ComponentControlSignals),
		Score:      min1(score),
		Weight:     cfg.Weights[ComponentControlSignals],
		Confidence: 1.0,
		RawValue:   in.FeePayerConcentration,
	}
}

func integrationEvents(in Inputs, cfg Config) models.RiskComponent {
	if in.TotalEvents == 0 {
		return models.RiskComponent{
			Name:       string(ComponentIntegrationEvents),
			Score:      0,
			Weight:     cfg.Weights[ComponentIntegrationEvents],
			Confidence: 0.5,
		}
	}
	riskRatio := float64(2*in.HighRiskEvents+in.MediumRiskEvents) / float64(2*in.TotalEvents)
	score := min1(0.7*riskRatio + 0.3*min1(in.TotalEventValue/1000))
	return models.RiskComponent{
		Name:       string(ComponentIntegrationEvents),
		Score:      score,
		Weight:     cfg.Weights[ComponentIntegrationEvents],
		Confidence: 1.0,
		RawValue:   riskRatio,
	}
}

func largeOutlierTx(in Inputs, cfg Config) models.RiskComponent {
	if len(in.SampledNetFlows) == 0 {
		return models.RiskComponent{
			Name:       string(ComponentLargeOutlierTx),
			Score:      0,
			Weight:     cfg.Weights[ComponentLargeOutlierTx],
			Confidence: 0.3,
		}
	}

	max, mean, std := sampleStats(in.SampledNetFlows)
	z := 0.0
	if std > 0 {
		z = (max - mean) / std
	}
	outlierScore := outlierRamp(z)
	sizeFactor := min1(max / 10000)

	score := outlierScore
	if 0.8*sizeFactor > score {
		score = 0.8 * sizeFactor
	}
	return models.RiskComponent{
		Name:       string(ComponentLargeOutlierTx),
		Score:      score,
		Weight:     cfg.Weights[ComponentLargeOutlierTx],
		Confidence: 1.0,
		RawValue:   max,
	}
}

// outlierRamp is a piecewise ramp in the z-score: no signal below 1.5
// sigma, linear ramp to 1.0 signal at 4 sigma.
func outlierRamp(z float64) float64 {
	switch {
	case z <= 1.5:
		return 0
	case z >= 4:
		return 1
	default:
		return (z - 1.5) / 2.5
	}
}

func sampleStats(values []float64) (max, mean, std float64) {
	for _, v := range values {
		av := math.Abs(v)
		if av > max {
			max = av
		}
		mean += av
	}
	mean /= float64(len(values))

	for _, v := range values {
		d := math.Abs(v) - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return max, mean, std
}

func dataQualityPenalty(in Inputs, cfg Config) models.RiskComponent {
	penalty := 0.0
	if !in.TimestampOK {
		penalty += 0.3
	}
	if !in.DeltaOK {
		penalty += 0.2
	}
	penalty += min1(in.RPCFallbackRatio) * 0.3
	if in.ParseSuccessRate < 0.9 {
		penalty += (1 - in.ParseSuccessRate) * 0.4
	}
	return models.RiskComponent{
		Name:       string(ComponentDataQuality),
		Score:      min1(penalty),
		Weight:     cfg.Weights[ComponentDataQuality],
		Confidence: 1.0,
		RawValue:   penalty,
	}
}

// ComputeComponents runs all six component calculators.
func ComputeComponents(in Inputs, cfg Config) []models.RiskComponent {
	return []models.RiskComponent{
		taintProximity(in, cfg),
		convergence(in, cfg),
		controlSignals(in, cfg),
		integrationEvents(in, cfg),
		largeOutlierTx(in, cfg),
		dataQualityPenalty(in, cfg),
	}
}
