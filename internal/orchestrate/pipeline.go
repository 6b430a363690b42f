package orchestrate

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/wallet-forensics/internal/ai"
	"github.com/rawblock/wallet-forensics/internal/apperr"
	"github.com/rawblock/wallet-forensics/internal/catalog"
	"github.com/rawblock/wallet-forensics/internal/chain"
	"github.com/rawblock/wallet-forensics/internal/cluster"
	"github.com/rawblock/wallet-forensics/internal/explain"
	"github.com/rawblock/wallet-forensics/internal/flow"
	"github.com/rawblock/wallet-forensics/internal/graph"
	"github.com/rawblock/wallet-forensics/internal/influence"
	"github.com/rawblock/wallet-forensics/internal/risk"
	"github.com/rawblock/wallet-forensics/internal/taint"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// DefaultMaxTransactions bounds how many signatures Investigate fetches
// per address when the caller does not override it.
const DefaultMaxTransactions = 500

// DefaultFlowBudget bounds F5's min-cost flow decomposition wall clock.
const DefaultFlowBudget = 30 * time.Second

// DefaultDepth bounds how many hops fetchAddressHistory expands outward
// from the target address when the caller does not override it.
const DefaultDepth = 2

// Options configures one investigation run, per the CLI contract.
type Options struct {
	Profile         string
	Depth           int
	MaxTransactions int
	IncludeAI       bool
	TaintSeeds      []models.TaintSeed
	AnchorLimit     int
}

// withDefaults fills zero-valued fields with defaults.
func (o Options) withDefaults() Options {
	if o.MaxTransactions <= 0 {
		o.MaxTransactions = DefaultMaxTransactions
	}
	if o.Depth <= 0 {
		o.Depth = DefaultDepth
	}
	if o.Profile == "" {
		o.Profile = risk.ProfileBalanced
	}
	if o.AnchorLimit <= 0 {
		o.AnchorLimit = 10
	}
	return o
}

// Investigation tracks one run's state-machine progress so the API layer
// can poll or stream it while the pipeline is still executing.
type Investigation struct {
	mu            sync.RWMutex
	ID            string
	TargetAddress string
	Stage         Stage
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Report        *models.Report
	Err           error
}

// Snapshot returns the investigation's current stage, report (nil until
// reported), and terminal error (nil unless failed), safe for concurrent
// use while Investigate is still running.
func (inv *Investigation) Snapshot() (Stage, *models.Report, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.Stage, inv.Report, inv.Err
}

func (inv *Investigation) transition(to Stage) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if !CanTransition(inv.Stage, to) {
		return transitionError(inv.Stage, to)
	}
	inv.Stage = to
	inv.UpdatedAt = timeNow()
	return nil
}

func (inv *Investigation) fail(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.Stage = StageFailed
	inv.Err = err
	inv.UpdatedAt = timeNow()
}

// timeNow is a seam for deterministic tests.
var timeNow = time.Now

// Orchestrator wires together every analytical package and the chain
// client into the fork-join pipeline.
type Orchestrator struct {
	Chain   chain.Client
	Catalog *catalog.Catalog
	Cache   *taint.Cache
	AI      ai.Adapter

	mu             sync.RWMutex
	investigations map[string]*Investigation
}

// New constructs an Orchestrator. ai may be nil, in which case
// ai.NullAdapter{} is used.
func New(chainClient chain.Client, cat *catalog.Catalog, cache *taint.Cache, aiAdapter ai.Adapter) *Orchestrator {
	if aiAdapter == nil {
		aiAdapter = ai.NullAdapter{}
	}
	return &Orchestrator{
		Chain:          chainClient,
		Catalog:        cat,
		Cache:          cache,
		AI:             aiAdapter,
		investigations: make(map[string]*Investigation),
	}
}

// Lookup returns the tracked Investigation for id, if any.
func (o *Orchestrator) Lookup(id string) (*Investigation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	inv, ok := o.investigations[id]
	return inv, ok
}

func (o *Orchestrator) register(inv *Investigation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.investigations[inv.ID] = inv
}

// fetchResult is the accumulated output of the dataFetched stage, kept
// separate from TxEdges so data-quality stats survive into F6.
type fetchResult struct {
	edges            []models.TxEdge
	txCount          int
	timestampMissing int
	rpcFallbacks     int
	parseFailures    int
}

// Investigate runs the full pipeline for address and returns the
// assembled Report. id should be a caller-supplied or generated UUID used
// to track the investigation's state-machine progress.
func (o *Orchestrator) Investigate(ctx context.Context, id, address string, opts Options) (*models.Report, error) {
	opts = opts.withDefaults()
	now := timeNow()
	inv := &Investigation{ID: id, TargetAddress: address, Stage: StageCreated, CreatedAt: now, UpdatedAt: now}
	o.register(inv)

	// track is called from the fork-join goroutines below, so the status
	// slice needs its own lock.
	var (
		statusMu sync.Mutex
		statuses []models.StageStatus
	)
	track := func(name string, fn func() error) error {
		start := timeNow()
		err := fn()
		st := models.StageStatus{Name: name, Enabled: true, Completed: err == nil, DurationMS: timeNow().Sub(start).Milliseconds()}
		if err != nil {
			st.Error = err.Error()
		}
		statusMu.Lock()
		statuses = append(statuses, st)
		statusMu.Unlock()
		return err
	}

	var fetched fetchResult
	if err := track("dataFetched", func() error {
		var err error
		fetched, err = o.fetchAddressHistory(ctx, address, opts.MaxTransactions, opts.Depth)
		return err
	}); err != nil {
		inv.fail(err)
		return nil, err
	}
	if len(fetched.edges) == 0 {
		return o.finishEmpty(inv, id, address, statuses)
	}
	if err := inv.transition(StageDataFetched); err != nil {
		inv.fail(err)
		return nil, err
	}

	var g *graph.TxGraph
	if err := track("graphBuilt", func() error {
		g = graph.New(fetched.edges)
		return g.Validate()
	}); err != nil {
		inv.fail(err)
		return nil, err
	}
	if !g.HasNode(address) {
		err := apperr.New(apperr.DataUnavailable, "target address never appears in its own transaction graph")
		inv.fail(err)
		return nil, err
	}
	if err := inv.transition(StageGraphBuilt); err != nil {
		inv.fail(err)
		return nil, err
	}

	var taintResults map[string]models.TaintResult
	if err := track("taintPropagation", func() error {
		taintResults = o.propagateTaint(g, opts.TaintSeeds)
		return taint.Validate(taintResults, opts.TaintSeeds)
	}); err != nil {
		err = apperr.Wrap(apperr.InternalInvariant, "taint validation", err)
		inv.fail(err)
		return nil, err
	}

	var (
		clusters      []models.EntityCluster
		events        []models.IntegrationEvent
		evidencePaths []models.EvidencePath
		flowDecomp    models.FlowDecomposition
		influenceRes  []models.AddressInfluence
	)

	// F3 (clustering + catalog events) and F4 (explainability) only need
	// the graph and taint results, so they fork-join freely. F5 (flow
	// attribution + influence) runs afterward: it shares F4's addresses of
	// interest rather than racing it for no benefit.
	group := new(errgroup.Group)

	group.Go(func() error {
		return track("entityClustering", func() error {
			signals := cluster.ExtractSignals(g, cluster.DefaultConfig())
			clusters = cluster.Assemble(signals, cluster.DefaultConfig())
			if err := cluster.ValidateDisjoint(clusters); err != nil {
				return apperr.Wrap(apperr.InternalInvariant, "cluster disjointness", err)
			}
			return nil
		})
	})
	group.Go(func() error {
		return track("integrationEvents", func() error {
			events = catalog.DetectEvents(o.Catalog, g.Edges(), taintResults, catalog.DefaultEventConfig())
			return nil
		})
	})
	group.Go(func() error {
		return track("evidencePaths", func() error {
			cfg := explain.DefaultConfig()
			cfg.AnchorLimit = opts.AnchorLimit
			evidencePaths = explain.Explain(g, address, taintResults, cfg)
			return nil
		})
	})
	if err := group.Wait(); err != nil {
		log.Printf("orchestrate: analytical stage error: %v", err)
		if apperr.IsFatal(err) {
			inv.fail(err)
			return nil, err
		}
	}

	flowGroup := new(errgroup.Group)
	flowGroup.Go(func() error {
		return track("flowAttribution", func() error {
			net := flow.BuildNetwork(g, taintResults, o.Catalog, flow.DefaultConfig())
			flowDecomp = flow.Decompose(net, taintResults, DefaultFlowBudget)
			return nil
		})
	})
	flowGroup.Go(func() error {
		return track("influenceAnalysis", func() error {
			influenceRes = influence.Analyze(g, address, taintResults, evidencePathAddressBudget(evidencePaths))
			return nil
		})
	})
	if err := flowGroup.Wait(); err != nil {
		log.Printf("orchestrate: attribution stage error: %v", err)
	}
	if err := inv.transition(StageAnalysed); err != nil {
		inv.fail(err)
		return nil, err
	}

	var assessment models.RiskAssessment
	if err := track("riskAssessment", func() error {
		cfg, ok := risk.Profiles()[opts.Profile]
		if !ok {
			return apperr.New(apperr.InvalidInput, "unknown risk profile: "+opts.Profile)
		}
		if err := cfg.Validate(); err != nil {
			return apperr.Wrap(apperr.InternalInvariant, "risk profile failed validation", err)
		}
		inputs := o.buildRiskInputs(g, address, taintResults, clusters, events, fetched)
		assessment = risk.Assess(inputs, cfg)
		return nil
	}); err != nil {
		inv.fail(err)
		return nil, err
	}
	if err := inv.transition(StageScored); err != nil {
		inv.fail(err)
		return nil, err
	}

	var aiInsight *map[string]any
	if opts.IncludeAI {
		_ = track("aiInsight", func() error {
			insight, err := o.AI.Summarize(ctx, ai.Prompt{
				TargetAddress: address,
				Summary: map[string]any{
					"riskScore": assessment.FinalScore,
					"level":     assessment.Level,
					"clusters":  len(clusters),
					"events":    len(events),
				},
			})
			if err != nil {
				return apperr.Wrap(apperr.External, "ai adapter unavailable", err)
			}
			m := map[string]any{
				"risk_score":          insight.RiskScore,
				"insights":            insight.Insights,
				"suspicious_patterns": insight.SuspiciousPatterns,
			}
			aiInsight = &m
			return nil
		})
	}

	report := o.assembleReport(id, address, g, taintResults, clusters, events, evidencePaths, flowDecomp, influenceRes, assessment, aiInsight, statuses)

	if err := inv.transition(StageReported); err != nil {
		inv.fail(err)
		return nil, err
	}
	inv.mu.Lock()
	inv.Report = report
	inv.mu.Unlock()

	return report, nil
}

// finishEmpty closes out an investigation whose target simply has no
// transaction history: every analytical stage is reported disabled and the
// assessment is a zero-score LOW. Absence of data is an answer, not a
// pipeline failure — hard chain-client errors still abort in the fetch
// stage above.
func (o *Orchestrator) finishEmpty(inv *Investigation, id, address string, statuses []models.StageStatus) (*models.Report, error) {
	for _, name := range []string{
		"taintPropagation", "entityClustering", "integrationEvents",
		"evidencePaths", "flowAttribution", "influenceAnalysis", "riskAssessment",
	} {
		statuses = append(statuses, models.StageStatus{Name: name, Enabled: false})
	}
	for _, st := range []Stage{StageDataFetched, StageGraphBuilt, StageAnalysed, StageScored, StageReported} {
		if err := inv.transition(st); err != nil {
			inv.fail(err)
			return nil, err
		}
	}

	assessment := models.RiskAssessment{
		FinalScore:      0,
		Level:           models.RiskLow,
		ComputationMeta: map[string]any{"reason": "no transaction history"},
	}
	report := o.assembleReport(id, address, graph.New(nil), nil, nil, nil, nil,
		models.FlowDecomposition{}, nil, assessment, nil, statuses)

	inv.mu.Lock()
	inv.Report = report
	inv.mu.Unlock()
	return report, nil
}

// propagateTaint consults the cache before falling back to a fresh
// propagation run.
func (o *Orchestrator) propagateTaint(g *graph.TxGraph, seeds []models.TaintSeed) map[string]models.TaintResult {
	if o.Cache == nil || len(seeds) == 0 {
		return taint.Propagate(g, seeds, taint.DefaultConfig())
	}
	slotStart, slotEnd := slotRange(g)
	key := taint.CacheKey{
		SlotRangeStart:  slotStart,
		SlotRangeEnd:    slotEnd,
		IncidentSetHash: taint.IncidentSetHash(seeds),
		GraphHash:       taint.GraphHash(g, 32),
	}
	if cached, ok := o.Cache.Get(key); ok {
		return cached
	}
	results := taint.Propagate(g, seeds, taint.DefaultConfig())
	o.Cache.Put(key, results)
	return results
}

// slotRange returns the lowest and highest slot seen across g's edges, or
// zeros when no edge carries a slot.
func slotRange(g *graph.TxGraph) (int64, int64) {
	var lo, hi int64
	first := true
	for _, e := range g.Edges() {
		if e.Slot == nil {
			continue
		}
		if first || *e.Slot < lo {
			lo = *e.Slot
		}
		if first || *e.Slot > hi {
			hi = *e.Slot
		}
		first = false
	}
	return lo, hi
}

// fetchAddressHistory BFS-expands outward from address up to depth hops,
// fetching each newly discovered counterparty's own signature history in
// turn, until maxTx transactions have been fetched in total. This is what
// turns a single-address signature list into a multi-hop transaction
// graph: a one-hop fetch would only ever see address's direct
// counterparties, which starves taint propagation, clustering, and
// explainability of anything to traverse. It tracks the data-quality
// signals F6's dataQualityPenalty component consumes.
func (o *Orchestrator) fetchAddressHistory(ctx context.Context, address string, maxTx, depth int) (fetchResult, error) {
	var out fetchResult
	visitedAddrs := map[string]bool{address: true}
	visitedSigs := map[string]bool{}
	frontier := []string{address}

	for level := 0; level <= depth && len(frontier) > 0 && out.txCount < maxTx; level++ {
		var next []string
		for _, addr := range frontier {
			if out.txCount >= maxTx {
				break
			}
			sigs, err := o.Chain.SignaturesForAddress(ctx, addr, maxTx-out.txCount)
			if err != nil {
				if addr == address {
					return out, apperr.Wrap(apperr.DataUnavailable, "fetch signatures", err)
				}
				continue
			}
			for _, sig := range sigs {
				if out.txCount >= maxTx {
					break
				}
				if visitedSigs[sig.Signature] {
					continue
				}
				visitedSigs[sig.Signature] = true
				if sig.Err != "" {
					continue
				}
				tx, err := o.Chain.TransactionDetails(ctx, sig.Signature)
				if err != nil {
					out.parseFailures++
					continue
				}
				out.txCount++
				if tx.BlockTime == nil {
					out.timestampMissing++
				}
				out.edges = append(out.edges, chain.ExtractEdges(tx)...)

				if level < depth {
					for _, key := range tx.AccountKeys {
						if !visitedAddrs[key] {
							visitedAddrs[key] = true
							next = append(next, key)
						}
					}
				}
			}
		}
		frontier = next
	}
	return out, nil
}

// buildRiskInputs derives F6's Inputs from every earlier stage's output
// for the single target address under assessment.
func (o *Orchestrator) buildRiskInputs(g *graph.TxGraph, target string, taintResults map[string]models.TaintResult,
	clusters []models.EntityCluster, events []models.IntegrationEvent, fetched fetchResult) risk.Inputs {

	var in risk.Inputs

	if tr, ok := taintResults[target]; ok {
		in.TargetTaintShare = tr.Share
		in.TargetTaintHop = tr.Hop
	}
	maxShare := 0.0
	for _, tr := range taintResults {
		if tr.Share > maxShare {
			maxShare = tr.Share
		}
	}
	in.MaxTaintScore = maxShare

	fanOut := g.FanOut(target)
	fanIn := g.FanIn(target)
	total := fanOut.TotalValue + fanIn.TotalValue
	if total > 0 {
		in.FanOutRatio = fanOut.TotalValue / total
		in.FanInRatio = fanIn.TotalValue / total
	}
	if fanOut.MaxValue > 0 && fanOut.TotalValue > 0 {
		in.SinkConcentration = fanOut.MaxValue / fanOut.TotalValue
	}

	for _, c := range clusters {
		if !containsAddress(c.Addresses, target) {
			continue
		}
		for _, s := range c.Signals {
			switch s.Kind {
			case models.SignalFeePayer:
				in.FeePayerConcentration = max(in.FeePayerConcentration, s.Strength)
			case models.SignalFanPattern:
				in.TemporalBurstRatio = max(in.TemporalBurstRatio, s.Strength)
			case models.SignalTemporal:
				in.TemporalBurstRatio = max(in.TemporalBurstRatio, s.Strength)
			}
		}
	}

	programCounts := map[string]int{}
	for _, e := range g.OutEdges(target) {
		if e.Program != "" {
			programCounts[e.Program]++
		}
	}
	maxProgram := 0
	totalProgram := 0
	for _, c := range programCounts {
		if c > maxProgram {
			maxProgram = c
		}
		totalProgram += c
	}
	if totalProgram > 0 {
		in.ProgramConcentration = float64(maxProgram) / float64(totalProgram)
	}

	for _, ev := range events {
		if !containsAddress(ev.Addresses, target) {
			continue
		}
		in.TotalEvents++
		in.TotalEventValue += ev.Value
		switch {
		case ev.RiskScore >= 0.6:
			in.HighRiskEvents++
		case ev.RiskScore >= 0.3:
			in.MediumRiskEvents++
		}
	}

	for _, addr := range g.Nodes() {
		nf := g.NetFlow(addr)
		if nf.NetFlow != 0 {
			in.SampledNetFlows = append(in.SampledNetFlows, nf.NetFlow)
		}
	}

	in.TimestampOK = fetched.txCount == 0 || fetched.timestampMissing*4 < fetched.txCount
	in.DeltaOK = true
	if fetched.txCount > 0 {
		in.RPCFallbackRatio = float64(fetched.rpcFallbacks) / float64(fetched.txCount)
		in.ParseSuccessRate = 1 - float64(fetched.parseFailures)/float64(fetched.txCount+fetched.parseFailures)
	} else {
		in.ParseSuccessRate = 1
	}

	return in
}

// evidencePathAddressBudget sizes influence.Analyze's prioritised-address
// window from how many distinct addresses F4's evidence paths actually
// touched, within a sane floor and ceiling.
func evidencePathAddressBudget(paths []models.EvidencePath) int {
	seen := map[string]bool{}
	for _, p := range paths {
		seen[p.Source] = true
		seen[p.Destination] = true
		for _, seg := range p.Segments {
			seen[seg.From] = true
			seen[seg.To] = true
		}
	}
	n := len(seen)
	if n < 10 {
		n = 10
	}
	if n > 30 {
		n = 30
	}
	return n
}

func containsAddress(addrs []string, target string) bool {
	for _, a := range addrs {
		if a == target {
			return true
		}
	}
	return false
}

func (o *Orchestrator) assembleReport(id, address string, g *graph.TxGraph, taintResults map[string]models.TaintResult,
	clusters []models.EntityCluster, events []models.IntegrationEvent, evidencePaths []models.EvidencePath,
	flowDecomp models.FlowDecomposition, influenceRes []models.AddressInfluence, assessment models.RiskAssessment,
	aiInsight *map[string]any, statuses []models.StageStatus) *models.Report {

	taintAnalysis := models.TaintAnalysis{
		Results: taintResults,
		Metrics: summarizeTaint(taintResults),
	}

	centerOut := g.FanOut(address)
	centerIn := g.FanIn(address)
	centerNet := g.NetFlow(address)

	return &models.Report{
		InvestigationID: id,
		TargetAddress:   address,
		GraphOverview: models.GraphOverview{
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
			Density:   g.Density(),
		},
		AggregateMetrics: map[string]any{
			"clusterCount": len(clusters),
			"eventCount":   len(events),
			"pathCount":    len(evidencePaths),
		},
		TopNodes: topNodesByNetFlow(g, 10),
		CenterWalletMetrics: map[string]any{
			"fanOut":  centerOut,
			"fanIn":   centerIn,
			"netFlow": centerNet,
		},
		TaintAnalysis:     taintAnalysis,
		Clusters:          clusters,
		IntegrationEvents: events,
		EvidencePaths:     evidencePaths,
		FlowAttribution:   flowDecomp,
		Influence:         influenceRes,
		NetworkFragility:  influence.NetworkFragility(influenceRes),
		RiskAssessment:    assessment,
		AIInsight:         aiInsight,
		StageStatuses:     statuses,
	}
}

func summarizeTaint(results map[string]models.TaintResult) map[string]any {
	m := taint.Summarize(results)
	return map[string]any{
		"taintedCount":      m.TaintedCount,
		"maxShare":          m.MaxShare,
		"avgShare":          m.AvgShare,
		"maxHop":            m.MaxHop,
		"avgHop":            m.AvgHop,
		"totalFlow":         m.TotalFlow,
		"distinctIncidents": m.DistinctIncidents,
	}
}

func topNodesByNetFlow(g *graph.TxGraph, limit int) []models.TopNode {
	nodes := g.Nodes()
	top := make([]models.TopNode, 0, len(nodes))
	for _, addr := range nodes {
		nf := g.NetFlow(addr)
		top = append(top, models.TopNode{Address: addr, Metric: "netFlow", Value: nf.NetFlow})
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Value > top[j].Value })
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}
