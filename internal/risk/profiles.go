package risk

// Profile names match the six bundled configurations.
const (
	ProfileBalanced       = "balanced"
	ProfileTaintFocused   = "taint_focused"
	ProfileBehavioral     = "behavioral"
	ProfileFinancialCrime = "financial_crime"
	ProfileHighVolume     = "high_volume"
	ProfileConservative   = "conservative"
)

// Profiles returns the six built-in configurations, keyed
// by name.
func Profiles() map[string]Config {
	return map[string]Config{
		ProfileBalanced: {
			Name: ProfileBalanced,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.30,
				ComponentConvergence:       0.20,
				ComponentControlSignals:    0.15,
				ComponentIntegrationEvents: 0.20,
				ComponentLargeOutlierTx:    0.10,
				ComponentDataQuality:       0.05,
			},
			Thresholds:             DefaultThresholds(),
			TaintCriticalThreshold: 0.5,
		},
		ProfileTaintFocused: {
			Name: ProfileTaintFocused,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.50,
				ComponentConvergence:       0.15,
				ComponentControlSignals:    0.10,
				ComponentIntegrationEvents: 0.15,
				ComponentLargeOutlierTx:    0.05,
				ComponentDataQuality:       0.05,
			},
			Thresholds:             Thresholds{Medium: 0.25, High: 0.55, Critical: 0.80},
			TaintCriticalThreshold: 0.4,
		},
		ProfileBehavioral: {
			Name: ProfileBehavioral,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.15,
				ComponentConvergence:       0.25,
				ComponentControlSignals:    0.35,
				ComponentIntegrationEvents: 0.15,
				ComponentLargeOutlierTx:    0.05,
				ComponentDataQuality:       0.05,
			},
			Thresholds:             DefaultThresholds(),
			TaintCriticalThreshold: 0.5,
		},
		ProfileFinancialCrime: {
			Name: ProfileFinancialCrime,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.25,
				ComponentConvergence:       0.15,
				ComponentControlSignals:    0.10,
				ComponentIntegrationEvents: 0.40,
				ComponentLargeOutlierTx:    0.05,
				ComponentDataQuality:       0.05,
			},
			Thresholds:             Thresholds{Medium: 0.25, High: 0.50, Critical: 0.75},
			TaintCriticalThreshold: 0.4,
		},
		ProfileHighVolume: {
			Name: ProfileHighVolume,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.20,
				ComponentConvergence:       0.20,
				ComponentControlSignals:    0.10,
				ComponentIntegrationEvents: 0.15,
				ComponentLargeOutlierTx:    0.30,
				ComponentDataQuality:       0.05,
			},
			Thresholds:             DefaultThresholds(),
			TaintCriticalThreshold: 0.5,
		},
		ProfileConservative: {
			Name: ProfileConservative,
			Weights: map[ComponentName]float64{
				ComponentTaintProximity:    0.25,
				ComponentConvergence:       0.15,
				ComponentControlSignals:    0.15,
				ComponentIntegrationEvents: 0.20,
				ComponentLargeOutlierTx:    0.10,
				ComponentDataQuality:       0.15,
			},
			Thresholds:             Thresholds{Medium: 0.20, High: 0.45, Critical: 0.70},
			TaintCriticalThreshold: 0.3,
		},
	}
}

// RecommendationContext is the summary of an investigation used to pick a
// profile.
type RecommendationContext struct {
	HasIncident        bool
	HasCexInteractions bool
	MaxValue           float64
	TransactionCount   int
	InvestigationType  string // "financial_crime", "behavioral", "" etc.
}

// Recommend picks a profile name for ctx, per the context-driven
// recommender.
func Recommend(ctx RecommendationContext) string {
	switch {
	case ctx.InvestigationType == "financial_crime":
		return ProfileFinancialCrime
	case ctx.InvestigationType == "behavioral":
		return ProfileBehavioral
	case ctx.HasIncident:
		return ProfileTaintFocused
	case ctx.HasCexInteractions:
		return ProfileFinancialCrime
	case ctx.TransactionCount > 5000 || ctx.MaxValue > 10000:
		return ProfileHighVolume
	default:
		return ProfileBalanced
	}
}
