package explain

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// ScorePath computes pathScore and TaintInvolvement for a path, given the
// propagated taint map for TaintInvolvement lookups.
func ScorePath(path models.EvidencePath, taint map[string]models.TaintResult, cfg Config) models.EvidencePath {
	hopsScore := 1 - float64(path.Hops)/float64(cfg.MaxHops)
	if hopsScore < 0 {
		hopsScore = 0
	}
	valueScore := min1(path.TotalValue / 100)
	temporalScore := temporalConsistency(path.Segments)

	pathScore := cfg.WeightHops*hopsScore + cfg.WeightValue*valueScore + cfg.WeightTime*temporalScore

	taintInvolvement := maxTaintInvolvement(path.Segments, taint)
	if cfg.TaintWeighted {
		pathScore *= 1 + taintInvolvement*0.5
	}

	path.PathScore = pathScore
	path.TaintInvolvement = taintInvolvement
	path.ID = uuid.NewString()
	return path
}

func temporalConsistency(segments []models.TxEdge) float64 {
	var timed []int64
	violations := 0
	withTime := 0
	for i, e := range segments {
		if e.BlockTime == nil {
			continue
		}
		withTime++
		timed = append(timed, *e.BlockTime)
		if i > 0 && segments[i-1].BlockTime != nil && *e.BlockTime < *segments[i-1].BlockTime {
			violations++
		}
	}
	if withTime == 0 {
		return 0
	}
	consistency := 1 - float64(violations)/float64(withTime)

	maxGap := int64(0)
	for i := 1; i < len(timed); i++ {
		gap := timed[i] - timed[i-1]
		if gap < 0 {
			gap = -gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}
	proximity := 1 - float64(maxGap)/86400
	if proximity < 0 {
		proximity = 0
	}
	return (consistency + proximity) / 2
}

func maxTaintInvolvement(segments []models.TxEdge, taint map[string]models.TaintResult) float64 {
	max := 0.0
	for _, e := range segments {
		if r, ok := taint[e.From]; ok && r.Share > max {
			max = r.Share
		}
		if r, ok := taint[e.To]; ok && r.Share > max {
			max = r.Share
		}
	}
	return max
}

// anchorCandidate is one address considered as a k-shortest-path anchor.
type anchorCandidate struct {
	address string
	score   float64
}

// SelectAnchors picks high-value or highly-tainted addresses, distinct
// from target, as anchors for evidence-path search.
func SelectAnchors(g *graph.TxGraph, target string, taint map[string]models.TaintResult, limit int) []string {
	var candidates []anchorCandidate
	for _, addr := range g.Nodes() {
		if addr == target {
			continue
		}
		flow := g.NetFlow(addr)
		volume := flow.Inflow + flow.Outflow
		taintShare := 0.0
		if r, ok := taint[addr]; ok {
			taintShare = r.Share
		}
		score := taintShare*0.7 + min1(volume/1000)*0.3
		candidates = append(candidates, anchorCandidate{address: addr, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].address < candidates[j].address
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.address
	}
	return out
}

// Explain runs k-shortest both to and from target against each anchor and
// returns the top 20 paths by pathScore.
func Explain(g *graph.TxGraph, target string, taint map[string]models.TaintResult, cfg Config) []models.EvidencePath {
	limit := cfg.AnchorLimit
	if limit <= 0 {
		limit = 10
	}
	anchors := SelectAnchors(g, target, taint, limit)

	var scored []models.EvidencePath
	for _, anchor := range anchors {
		for _, p := range KShortest(g, anchor, target, cfg) {
			scored = append(scored, ScorePath(p, taint, cfg))
		}
		for _, p := range KShortest(g, target, anchor, cfg) {
			scored = append(scored, ScorePath(p, taint, cfg))
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].PathScore > scored[j].PathScore })
	if len(scored) > 20 {
		scored = scored[:20]
	}
	return scored
}
