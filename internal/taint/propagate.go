// Package taint implements F2: breadth-first taint propagation over a
// transaction graph, seeded from known-incident addresses, with proportional
// inheritance and geometric hop decay.
package taint

import (
	"fmt"

	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// Config holds the propagation tunables. Zero-value Config is not usable;
// callers should start from DefaultConfig.
type Config struct {
	DecayFactor       float64 // α, default 0.8
	DustThreshold     float64 // default 0.001
	MaxHops           int     // default 6
	MinValueThreshold float64 // default 0.01
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		DecayFactor:       0.8,
		DustThreshold:     0.001,
		MaxHops:           6,
		MinValueThreshold: 0.01,
	}
}

// Metrics summarises one propagation run.
type Metrics struct {
	TaintedCount      int
	MaxShare          float64
	AvgShare          float64
	MaxHop            int
	AvgHop            float64
	TotalFlow         float64
	DistinctIncidents int
}

// worklistEntry is one pending relaxation: address addr carries the best
// known arrival recorded in best[addr] at the time it was enqueued.
type worklistEntry struct {
	addr string
}

// Propagate runs the BFS relaxation and returns the best
// (highest-share) TaintResult recorded per address, keyed by address. Seed
// addresses are included in the result at hop 0.
func Propagate(g *graph.TxGraph, seeds []models.TaintSeed, cfg Config) map[string]models.TaintResult {
	best := make(map[string]models.TaintResult)

	// Seed: multiple seeds on the same address keep the highest initial taint.
	for _, s := range seeds {
		cur, exists := best[s.Address]
		if !exists || s.InitialTaint > cur.Share {
			best[s.Address] = models.TaintResult{
				Address:    s.Address,
				Share:      s.InitialTaint,
				Hop:        0,
				IncidentID: s.IncidentID,
				Path:       []string{s.Address},
				TotalFlow:  0,
			}
		}
	}

	queue := make([]worklistEntry, 0, len(best))
	for addr := range best {
		queue = append(queue, worklistEntry{addr: addr})
	}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		parent, ok := best[entry.addr]
		if !ok {
			continue
		}
		if !g.HasNode(entry.addr) {
			continue
		}

		out := g.OutEdges(entry.addr)
		totalOut := qualifyingTotal(out, cfg.MinValueThreshold)
		if totalOut <= 0 {
			continue
		}

		for _, e := range out {
			if e.Value < cfg.MinValueThreshold {
				continue
			}
			nextHop := parent.Hop + 1
			if nextHop > cfg.MaxHops {
				continue
			}
			if containsAddr(parent.Path, e.To) {
				continue
			}

			// parent.Share already carries the decay accumulated on the
			// way to u, so each relaxation applies one more factor of α;
			// a straight chain ends up at initialTaint*α^hop.
			childShare := parent.Share * (e.Value / totalOut) * cfg.DecayFactor
			if childShare < cfg.DustThreshold {
				continue
			}

			existing, exists := best[e.To]
			if exists && childShare <= existing.Share {
				continue
			}

			path := make([]string, len(parent.Path)+1)
			copy(path, parent.Path)
			path[len(parent.Path)] = e.To

			best[e.To] = models.TaintResult{
				Address:    e.To,
				Share:      childShare,
				Hop:        nextHop,
				IncidentID: parent.IncidentID,
				Path:       path,
				TotalFlow:  parent.TotalFlow + e.Value,
			}
			queue = append(queue, worklistEntry{addr: e.To})
		}
	}

	return best
}

func qualifyingTotal(edges []models.TxEdge, minValue float64) float64 {
	total := 0.0
	for _, e := range edges {
		if e.Value >= minValue {
			total += e.Value
		}
	}
	return total
}

func containsAddr(path []string, addr string) bool {
	for _, p := range path {
		if p == addr {
			return true
		}
	}
	return false
}

// Validate checks the invariants: every share in [0,1], every
// hop >= 0, every path begins at a seed, no path revisits an address.
func Validate(results map[string]models.TaintResult, seeds []models.TaintSeed) error {
	seedSet := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s.Address] = struct{}{}
	}
	for addr, r := range results {
		if r.Share < 0 || r.Share > 1 {
			return fmt.Errorf("taint: address %s has out-of-range share %f", addr, r.Share)
		}
		if r.Hop < 0 {
			return fmt.Errorf("taint: address %s has negative hop %d", addr, r.Hop)
		}
		if len(r.Path) == 0 {
			return fmt.Errorf("taint: address %s has empty path", addr)
		}
		if _, ok := seedSet[r.Path[0]]; !ok {
			return fmt.Errorf("taint: address %s path does not begin at a seed", addr)
		}
		seen := make(map[string]struct{}, len(r.Path))
		for _, p := range r.Path {
			if _, dup := seen[p]; dup {
				return fmt.Errorf("taint: address %s path revisits %s", addr, p)
			}
			seen[p] = struct{}{}
		}
	}
	return nil
}

// Summarize computes the metrics over a propagation result.
func Summarize(results map[string]models.TaintResult) Metrics {
	var m Metrics
	incidents := make(map[string]struct{})
	var sumShare, sumHop float64
	for _, r := range results {
		m.TaintedCount++
		sumShare += r.Share
		sumHop += float64(r.Hop)
		if r.Share > m.MaxShare {
			m.MaxShare = r.Share
		}
		if r.Hop > m.MaxHop {
			m.MaxHop = r.Hop
		}
		m.TotalFlow += r.TotalFlow
		if r.IncidentID != "" {
			incidents[r.IncidentID] = struct{}{}
		}
	}
	if m.TaintedCount > 0 {
		m.AvgShare = sumShare / float64(m.TaintedCount)
		m.AvgHop = sumHop / float64(m.TaintedCount)
	}
	m.DistinctIncidents = len(incidents)
	return m
}
