// Package orchestrate drives the fork-join investigation pipeline:
// fetch, graph, the fanned-out analytical stages, risk
// scoring, and report assembly, tracked through the investigation state machine.
package orchestrate

import "fmt"

// Stage is one state in an investigation's lifecycle.
type Stage string

const (
	StageCreated           Stage = "created"
	StageDataFetched       Stage = "dataFetched"
	StageGraphBuilt        Stage = "graphBuilt"
	StageAnalysed          Stage = "analysed"
	StageScored            Stage = "scored"
	StageReported          Stage = "reported"
	StageCachedResultReuse Stage = "cachedResultReuse"
	StageFailed            Stage = "failed"
)

// validTransitions enumerates the state machine's edges. failed is
// reachable from every non-terminal stage but is listed per-source for
// clarity rather than special-cased in CanTransition.
var validTransitions = map[Stage][]Stage{
	StageCreated:     {StageDataFetched, StageFailed},
	StageDataFetched: {StageGraphBuilt, StageFailed},
	StageGraphBuilt:  {StageAnalysed, StageFailed},
	StageAnalysed:    {StageScored, StageFailed},
	StageScored:      {StageReported, StageFailed},
	StageReported:    {StageCachedResultReuse},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to Stage) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether stage is StageFailed, the one stage an
// investigation never leaves once it has failed.
func IsTerminal(stage Stage) bool {
	return stage == StageFailed
}

// transitionError reports an illegal state-machine move; callers that hit
// this have a driver bug, not a data problem.
func transitionError(from, to Stage) error {
	return fmt.Errorf("orchestrate: illegal transition %s -> %s", from, to)
}
