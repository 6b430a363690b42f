// Package cluster implements F3's entity-clustering half: signal
// extraction over a transaction graph followed by connected-components
// assembly into EntityCluster candidates.
package cluster

import (
	"sort"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Config holds the signal-extraction and cluster-assembly tunables.
type Config struct {
	MinFeePayerOccurrences int
	FanPatternThreshold    int
	FanPatternWindowSec    int64
	TemporalWindowSec      int64
	MinSignalStrength      float64
	MinClusterConfidence   float64
	MaxClusterSize         int
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		MinFeePayerOccurrences: 3,
		FanPatternThreshold:    5,
		FanPatternWindowSec:    300,
		TemporalWindowSec:      3600,
		MinSignalStrength:      0.3,
		MinClusterConfidence:   0.4,
		MaxClusterSize:         50,
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// ExtractSignals runs every signal extractor over g's edges
// and returns the combined signal list.
func ExtractSignals(g *graph.TxGraph, cfg Config) []models.EntitySignal {
	edges := g.Edges()
	var signals []models.EntitySignal
	signals = append(signals, feePayerSignals(edges, cfg)...)
	signals = append(signals, fanPatternSignals(edges, cfg)...)
	signals = append(signals, temporalSignals(edges, cfg)...)
	return signals
}

// feePayerSignals groups edges by edge.From (the heuristic fee payer) and
// emits a signal for any group meeting the occurrence floor.
func feePayerSignals(edges []models.TxEdge, cfg Config) []models.EntitySignal {
	groups := make(map[string][]models.TxEdge)
	for _, e := range edges {
		groups[e.From] = append(groups[e.From], e)
	}

	var out []models.EntitySignal
	for payer, group := range groups {
		if len(group) < cfg.MinFeePayerOccurrences {
			continue
		}
		distinct := make(map[string]struct{})
		var evidence []string
		for _, e := range group {
			distinct[e.To] = struct{}{}
			evidence = append(evidence, e.TxSignature)
		}
		addrs := []string{payer}
		for a := range distinct {
			addrs = append(addrs, a)
		}
		strength := minF(1, float64(len(group))/10*float64(len(distinct))/5)
		out = append(out, models.EntitySignal{
			Kind:        models.SignalFeePayer,
			Strength:    strength,
			Addresses:   addrs,
			EvidenceTxs: evidence,
		})
	}
	return out
}

// fanPatternSignals buckets edges into FanPatternWindowSec windows and
// emits a fan-in/fan-out signal for any bucket whose edge count meets the
// threshold.
func fanPatternSignals(edges []models.TxEdge, cfg Config) []models.EntitySignal {
	type bucketKey struct {
		addr   string
		window int64
		fanIn  bool
	}
	buckets := make(map[bucketKey][]models.TxEdge)

	for _, e := range edges {
		if e.BlockTime == nil {
			continue
		}
		window := *e.BlockTime / cfg.FanPatternWindowSec
		buckets[bucketKey{addr: e.To, window: window, fanIn: true}] = append(
			buckets[bucketKey{addr: e.To, window: window, fanIn: true}], e)
		buckets[bucketKey{addr: e.From, window: window, fanIn: false}] = append(
			buckets[bucketKey{addr: e.From, window: window, fanIn: false}], e)
	}

	var out []models.EntitySignal
	for key, group := range buckets {
		if len(group) < cfg.FanPatternThreshold {
			continue
		}
		distinct := make(map[string]struct{})
		var evidence []string
		for _, e := range group {
			if key.fanIn {
				distinct[e.From] = struct{}{}
			} else {
				distinct[e.To] = struct{}{}
			}
			evidence = append(evidence, e.TxSignature)
		}
		addrs := []string{key.addr}
		for a := range distinct {
			addrs = append(addrs, a)
		}
		out = append(out, models.EntitySignal{
			Kind:        models.SignalFanPattern,
			Strength:    minF(1, float64(len(group))/20),
			Addresses:   addrs,
			EvidenceTxs: evidence,
		})
	}
	return out
}

// temporalSignals buckets all edges by TemporalWindowSec and emits a
// signal for any bucket with at least 3 edges and an address count in
// [3,15].
func temporalSignals(edges []models.TxEdge, cfg Config) []models.EntitySignal {
	buckets := make(map[int64][]models.TxEdge)
	for _, e := range edges {
		if e.BlockTime == nil {
			continue
		}
		window := *e.BlockTime / cfg.TemporalWindowSec
		buckets[window] = append(buckets[window], e)
	}

	var out []models.EntitySignal
	for _, group := range buckets {
		if len(group) < 3 {
			continue
		}
		distinct := make(map[string]struct{})
		var evidence []string
		for _, e := range group {
			distinct[e.From] = struct{}{}
			distinct[e.To] = struct{}{}
			evidence = append(evidence, e.TxSignature)
		}
		addrCount := len(distinct)
		if addrCount < 3 || addrCount > 15 {
			continue
		}
		density := float64(len(group)) / float64(addrCount)
		addrs := make([]string, 0, addrCount)
		for a := range distinct {
			addrs = append(addrs, a)
		}
		sort.Strings(addrs)
		out = append(out, models.EntitySignal{
			Kind:        models.SignalTemporal,
			Strength:    minF(1, density/3),
			Addresses:   addrs,
			EvidenceTxs: evidence,
		})
	}
	return out
}
