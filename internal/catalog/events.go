package catalog

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// EventConfig holds the event-detector tunables.
type EventConfig struct {
	MinCashOutValue             float64
	MinTaintThreshold           float64
	SuspiciousVelocityThreshold float64 // native-unit value per hour
}

// DefaultEventConfig returns reasonable defaults for the event detectors.
func DefaultEventConfig() EventConfig {
	return EventConfig{
		MinCashOutValue:             1.0,
		MinTaintThreshold:           0.1,
		SuspiciousVelocityThreshold: 100.0,
	}
}

func minF1(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// DetectEvents runs every detector over edges, using taint to
// resolve per-address taint share, and returns the combined event list
// including derived suspicious-pattern events.
func DetectEvents(c *Catalog, edges []models.TxEdge, taint map[string]models.TaintResult, cfg EventConfig) []models.IntegrationEvent {
	var events []models.IntegrationEvent
	events = append(events, detectCashOuts(c, edges, taint, cfg)...)
	events = append(events, detectBridgeOps(c, edges)...)
	events = append(events, detectDexInteractions(c, edges)...)

	suspicious := append(detectRapidCashOut(events), detectHighVelocity(events, cfg)...)
	events = append(events, suspicious...)
	return events
}

func taintShareOf(taint map[string]models.TaintResult, addr string) float64 {
	if r, ok := taint[addr]; ok {
		return r.Share
	}
	return 0
}

func blockTimeOf(e models.TxEdge) time.Time {
	if e.BlockTime != nil {
		return time.Unix(*e.BlockTime, 0)
	}
	return time.Time{}
}

func detectCashOuts(c *Catalog, edges []models.TxEdge, taint map[string]models.TaintResult, cfg EventConfig) []models.IntegrationEvent {
	var out []models.IntegrationEvent
	for _, e := range edges {
		ep, ok := c.Lookup(e.To)
		if !ok || ep.Type != models.ServiceCEX {
			continue
		}
		if e.Value < cfg.MinCashOutValue {
			continue
		}
		share := taintShareOf(taint, e.From)
		if share < cfg.MinTaintThreshold {
			continue
		}
		risk := minF1(1, 0.7*share+0.3*minF1(e.Value/1000, 1))
		out = append(out, models.IntegrationEvent{
			ID:          uuid.NewString(),
			Kind:        models.EventCashOut,
			Timestamp:   blockTimeOf(e),
			Slot:        e.Slot,
			Addresses:   []string{e.From, e.To},
			ServiceInfo: &ep,
			TxSignature: e.TxSignature,
			Value:       e.Value,
			RiskScore:   risk,
		})
	}
	return out
}

func detectBridgeOps(c *Catalog, edges []models.TxEdge) []models.IntegrationEvent {
	var out []models.IntegrationEvent
	for _, e := range edges {
		var ep models.ServiceEndpoint
		var matched bool
		if hit, ok := c.Lookup(e.From); ok && hit.Type == models.ServiceBridge {
			ep, matched = hit, true
		} else if hit, ok := c.Lookup(e.To); ok && hit.Type == models.ServiceBridge {
			ep, matched = hit, true
		}
		if !matched || e.Value < 1.0 {
			continue
		}
		risk := 0.4 + 0.4*minF1(e.Value/500, 1)
		out = append(out, models.IntegrationEvent{
			ID:          uuid.NewString(),
			Kind:        models.EventBridgeOp,
			Timestamp:   blockTimeOf(e),
			Slot:        e.Slot,
			Addresses:   []string{e.From, e.To},
			ServiceInfo: &ep,
			TxSignature: e.TxSignature,
			Value:       e.Value,
			RiskScore:   risk,
		})
	}
	return out
}

func detectDexInteractions(c *Catalog, edges []models.TxEdge) []models.IntegrationEvent {
	var out []models.IntegrationEvent
	for _, e := range edges {
		ep, ok := c.Lookup(e.To)
		if !ok || ep.Type != models.ServiceDEX {
			continue
		}
		if e.Value < 5.0 {
			continue
		}
		risk := 0.2 + 0.3*minF1(e.Value/100, 1)
		out = append(out, models.IntegrationEvent{
			ID:          uuid.NewString(),
			Kind:        models.EventDexInteraction,
			Timestamp:   blockTimeOf(e),
			Slot:        e.Slot,
			Addresses:   []string{e.From, e.To},
			ServiceInfo: &ep,
			TxSignature: e.TxSignature,
			Value:       e.Value,
			RiskScore:   risk,
		})
	}
	return out
}

// detectRapidCashOut flags pairs of cashOut events on the same address set
// within 1 hour whose combined value is >= 50.
func detectRapidCashOut(events []models.IntegrationEvent) []models.IntegrationEvent {
	var cashOuts []models.IntegrationEvent
	for _, e := range events {
		if e.Kind == models.EventCashOut {
			cashOuts = append(cashOuts, e)
		}
	}
	sort.Slice(cashOuts, func(i, j int) bool { return cashOuts[i].Timestamp.Before(cashOuts[j].Timestamp) })

	var out []models.IntegrationEvent
	flagged := make(map[string]struct{})
	for i := 0; i < len(cashOuts); i++ {
		for j := i + 1; j < len(cashOuts); j++ {
			if cashOuts[j].Timestamp.Sub(cashOuts[i].Timestamp) > time.Hour {
				break
			}
			if !sameAddressSet(cashOuts[i].Addresses, cashOuts[j].Addresses) {
				continue
			}
			if cashOuts[i].Value+cashOuts[j].Value < 50 {
				continue
			}
			key := cashOuts[i].ID + "|" + cashOuts[j].ID
			if _, dup := flagged[key]; dup {
				continue
			}
			flagged[key] = struct{}{}
			out = append(out, models.IntegrationEvent{
				ID:          uuid.NewString(),
				Kind:        models.EventSuspiciousPattern,
				Timestamp:   cashOuts[j].Timestamp,
				Addresses:   cashOuts[i].Addresses,
				TxSignature: cashOuts[j].TxSignature,
				Value:       cashOuts[i].Value + cashOuts[j].Value,
				RiskScore:   0.8,
				Metadata:    map[string]any{"pattern": "rapidCashOut"},
			})
		}
	}
	return out
}

func sameAddressSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// detectHighVelocity flags the overall event stream when cumulative value
// per elapsed hour meets the configured threshold.
func detectHighVelocity(events []models.IntegrationEvent, cfg EventConfig) []models.IntegrationEvent {
	if len(events) < 2 {
		return nil
	}
	sorted := append([]models.IntegrationEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	elapsed := sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Hours()
	if elapsed <= 0 {
		return nil
	}
	total := 0.0
	for _, e := range sorted {
		total += e.Value
	}
	velocity := total / elapsed
	if velocity < cfg.SuspiciousVelocityThreshold {
		return nil
	}
	risk := minF1(1, 0.6+0.3*(velocity/cfg.SuspiciousVelocityThreshold))
	return []models.IntegrationEvent{{
		ID:        uuid.NewString(),
		Kind:      models.EventSuspiciousPattern,
		Timestamp: sorted[len(sorted)-1].Timestamp,
		Value:     total,
		RiskScore: risk,
		Metadata:  map[string]any{"pattern": "highVelocity", "velocity": velocity},
	}}
}
