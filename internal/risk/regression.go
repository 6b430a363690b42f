package risk

import (
	"fmt"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Expectation is the assertable half of a regression case: what the
// assessment must look like, regardless of how it was produced.
type Expectation struct {
	Name               string
	ExpectedMinScore   float64
	RequiredComponents []ComponentName // components expected to breach threshold
	Legitimate         bool            // a known-clean case; must not be flagged
}

// Case is one fixed regression case evaluated directly against the engine
// from pre-built component inputs. Harnesses that produce the assessment
// through the full pipeline instead pair an Expectation with the
// pipeline's output and hand both to Summarize.
type Case struct {
	Name               string
	Inputs             Inputs
	ExpectedMinScore   float64
	RequiredComponents []ComponentName
	Legitimate         bool
}

func (c Case) expectation() Expectation {
	return Expectation{
		Name:               c.Name,
		ExpectedMinScore:   c.ExpectedMinScore,
		RequiredComponents: c.RequiredComponents,
		Legitimate:         c.Legitimate,
	}
}

// Evaluated pairs a case's expectations with the assessment the system
// actually produced for it.
type Evaluated struct {
	Expectation Expectation
	Assessment  models.RiskAssessment
}

// CaseResult is one case's outcome against a given Config.
type CaseResult struct {
	CaseName      string
	ActualScore   float64
	Passed        bool
	Delta         float64 // actual - expected, signed
	FalsePositive bool
}

// Report summarises a regression run over a Config.
type Report struct {
	PassRate          float64
	ScoreAccuracy     float64 // 1 - mean|delta|
	ComponentAccuracy map[ComponentName]float64
	Results           []CaseResult
	FalsePositives    []string
	Recommendations   []string
}

// Run evaluates every case against cfg and reports pass rate, score
// accuracy, and per-component accuracy.
func Run(cases []Case, cfg Config) Report {
	evaluated := make([]Evaluated, 0, len(cases))
	for _, c := range cases {
		evaluated = append(evaluated, Evaluated{
			Expectation: c.expectation(),
			Assessment:  Assess(c.Inputs, cfg),
		})
	}
	return Summarize(evaluated)
}

// Summarize aggregates evaluated cases into pass rate, score accuracy,
// per-component accuracy, and tuning recommendations.
func Summarize(evaluated []Evaluated) Report {
	var results []CaseResult
	var sumAbsDelta float64
	componentHits := make(map[ComponentName]int)
	componentTotal := make(map[ComponentName]int)
	var falsePositives []string
	passes := 0

	for _, e := range evaluated {
		assessment := e.Assessment
		delta := assessment.FinalScore - e.Expectation.ExpectedMinScore
		sumAbsDelta += absF(delta)

		passed := assessment.FinalScore >= e.Expectation.ExpectedMinScore
		for _, name := range e.Expectation.RequiredComponents {
			componentTotal[name]++
			if breached(assessment.Components, name) {
				componentHits[name]++
			} else {
				passed = false
			}
		}

		falsePositive := e.Expectation.Legitimate && assessment.Flagged
		if falsePositive {
			falsePositives = append(falsePositives, e.Expectation.Name)
			passed = false
		}

		if passed {
			passes++
		}
		results = append(results, CaseResult{
			CaseName:      e.Expectation.Name,
			ActualScore:   assessment.FinalScore,
			Passed:        passed,
			Delta:         delta,
			FalsePositive: falsePositive,
		})
	}

	report := Report{
		Results:           results,
		FalsePositives:    falsePositives,
		ComponentAccuracy: make(map[ComponentName]float64),
	}
	if len(evaluated) > 0 {
		report.PassRate = float64(passes) / float64(len(evaluated))
		report.ScoreAccuracy = 1 - sumAbsDelta/float64(len(evaluated))
	}
	for name, total := range componentTotal {
		if total > 0 {
			report.ComponentAccuracy[name] = float64(componentHits[name]) / float64(total)
		}
	}

	report.Recommendations = buildRecommendations(report)
	return report
}

func breached(components []models.RiskComponent, name ComponentName) bool {
	for _, c := range components {
		if c.Name == string(name) && c.ThresholdBreached {
			return true
		}
	}
	return false
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func buildRecommendations(r Report) []string {
	var recs []string
	if r.PassRate < 0.8 {
		recs = append(recs, fmt.Sprintf("pass rate %.2f below 0.80 floor: review weight/threshold tuning", r.PassRate))
	}
	for name, acc := range r.ComponentAccuracy {
		if acc < 0.7 {
			recs = append(recs, fmt.Sprintf("component %s accuracy %.2f below 0.70 floor", name, acc))
		}
	}
	if len(r.FalsePositives) > 0 {
		recs = append(recs, fmt.Sprintf("%d legitimate case(s) flagged as false positives", len(r.FalsePositives)))
	}
	return recs
}
