package cluster

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// unionFind is a weighted, path-compressed disjoint-set structure: union by
// rank, find with path compression.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string), rank: make(map[string]int)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// connectionMatrix holds the strongest signal strength observed between
// each unordered address pair, keyed "min|max" so direction doesn't
// matter.
type connectionMatrix map[string]float64

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// buildConnectionMatrix computes C[i,j] = max over signals involving both
// i and j of the signal's strength.
func buildConnectionMatrix(signals []models.EntitySignal) connectionMatrix {
	matrix := make(connectionMatrix)
	for _, s := range signals {
		addrs := append([]string(nil), s.Addresses...)
		sort.Strings(addrs)
		for i := 0; i < len(addrs); i++ {
			for j := i + 1; j < len(addrs); j++ {
				key := pairKey(addrs[i], addrs[j])
				if s.Strength > matrix[key] {
					matrix[key] = s.Strength
				}
			}
		}
	}
	return matrix
}

// Assemble builds EntityCluster candidates from the signals extracted by
// ExtractSignals: connect addresses whose strongest shared
// signal meets minSignalStrength, take connected components, and accept a
// component as a cluster iff its size and confidence both clear the
// configured floors.
func Assemble(signals []models.EntitySignal, cfg Config) []models.EntityCluster {
	matrix := buildConnectionMatrix(signals)

	addrSet := make(map[string]struct{})
	for _, s := range signals {
		for _, a := range s.Addresses {
			addrSet[a] = struct{}{}
		}
	}
	addrs := make([]string, 0, len(addrSet))
	for a := range addrSet {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	uf := newUnionFind()
	for _, a := range addrs {
		uf.find(a)
	}
	for key, strength := range matrix {
		if strength < cfg.MinSignalStrength {
			continue
		}
		a, b := splitPairKey(key)
		uf.union(a, b)
	}

	groups := make(map[string][]string)
	for _, a := range addrs {
		root := uf.find(a)
		groups[root] = append(groups[root], a)
	}

	signalsByAddr := groupSignalsByAddress(signals)

	roots := make([]string, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	now := timeNow()
	var clusters []models.EntityCluster
	for _, root := range roots {
		members := groups[root]
		if len(members) < 2 || len(members) > cfg.MaxClusterSize {
			continue
		}

		memberSignals := collectSignals(members, signalsByAddr)
		if len(memberSignals) == 0 {
			continue
		}
		avgStrength := averageStrength(memberSignals)
		confidence := minF(1, avgStrength*float64(len(members))/10)
		if confidence < cfg.MinClusterConfidence {
			continue
		}

		sort.Strings(members)
		clusters = append(clusters, models.EntityCluster{
			ID:          uuid.NewString(),
			Addresses:   members,
			Signals:     memberSignals,
			Confidence:  confidence,
			CreatedAt:   now,
			LastUpdated: now,
		})
	}
	return clusters
}

// ValidateDisjoint checks that no address appears in more than one
// cluster. Union-find components are disjoint by construction, so a
// failure here means the assembly itself is broken.
func ValidateDisjoint(clusters []models.EntityCluster) error {
	seen := make(map[string]string)
	for _, c := range clusters {
		for _, a := range c.Addresses {
			if other, dup := seen[a]; dup {
				return fmt.Errorf("cluster: address %s appears in clusters %s and %s", a, other, c.ID)
			}
			seen[a] = c.ID
		}
	}
	return nil
}

func splitPairKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func groupSignalsByAddress(signals []models.EntitySignal) map[string][]models.EntitySignal {
	out := make(map[string][]models.EntitySignal)
	for _, s := range signals {
		for _, a := range s.Addresses {
			out[a] = append(out[a], s)
		}
	}
	return out
}

// collectSignals deduplicates signals touching any member address,
// identifying duplicates by a structural key built from the signal kind,
// its sorted addresses and its tx evidence list.
func collectSignals(members []string, byAddr map[string][]models.EntitySignal) []models.EntitySignal {
	seen := make(map[string]struct{})
	var out []models.EntitySignal
	for _, m := range members {
		for _, s := range byAddr[m] {
			key := signalKey(s)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func signalKey(s models.EntitySignal) string {
	addrs := append([]string(nil), s.Addresses...)
	sort.Strings(addrs)
	key := string(s.Kind)
	for _, a := range addrs {
		key += "|" + a
	}
	for _, tx := range s.EvidenceTxs {
		key += "|" + tx
	}
	return key
}

func averageStrength(signals []models.EntitySignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range signals {
		sum += s.Strength
	}
	return sum / float64(len(signals))
}

// timeNow is a seam so tests can't depend on wall-clock time drifting a
// run's result; production code always calls time.Now().
var timeNow = time.Now
