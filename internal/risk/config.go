// Package risk implements F6: a six-component, weighted, explainable risk
// engine with profile-driven configuration and a regression harness.
package risk

import (
	"fmt"
)

// ComponentName closes the enumeration of the six risk components.
type ComponentName string

const (
	ComponentTaintProximity    ComponentName = "taintProximity"
	ComponentConvergence       ComponentName = "convergence"
	ComponentControlSignals    ComponentName = "controlSignals"
	ComponentIntegrationEvents ComponentName = "integrationEvents"
	ComponentLargeOutlierTx    ComponentName = "largeOutlierTx"
	ComponentDataQuality       ComponentName = "dataQualityPenalty"
)

// Thresholds holds the level-classification boundaries.
// Must be monotone: Medium < High < Critical.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultThresholds returns the standard classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.30, High: 0.60, Critical: 0.85}
}

// Config bundles the weights and thresholds of one risk profile.
type Config struct {
	Name                   string
	Weights                map[ComponentName]float64
	Thresholds             Thresholds
	TaintCriticalThreshold float64
}

// Validate enforces the configuration invariants: weights sum to
// 1 within 0.1%, auto-normalising when within 1%; thresholds strictly
// increasing Medium < High < Critical; every weight and threshold in
// [0,1].
func (c *Config) Validate() error {
	sum := 0.0
	for name, w := range c.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("risk: weight for %s out of [0,1]: %v", name, w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("risk: weights sum to zero")
	}

	diff := sum - 1.0
	if diff < 0 {
		diff = -diff
	}
	if diff > 0.001 {
		if diff > 0.01 {
			return fmt.Errorf("risk: weights sum to %v, outside the 1%% auto-normalisation band", sum)
		}
		for name := range c.Weights {
			c.Weights[name] /= sum
		}
	}

	t := c.Thresholds
	if !(t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("risk: thresholds must satisfy medium < high < critical, got %+v", t)
	}
	for _, v := range []float64{t.Medium, t.High, t.Critical} {
		if v < 0 || v > 1 {
			return fmt.Errorf("risk: threshold %v out of [0,1]", v)
		}
	}
	return nil
}
