// Package models defines the shared data types of the wallet-investigation
// pipeline: the transaction graph, taint results, entity clusters,
// integration catalog entries and events, evidence paths, flow attribution,
// influence, and the risk assessment that aggregates all of them.
//
// Types here are the immutable currency passed between pipeline stages
// (internal/graph, internal/taint, internal/cluster, internal/catalog,
// internal/explain, internal/flow, internal/influence, internal/risk).
// None of them are mutated after a stage returns them.
package models

import "time"

// Direction classifies a TxEdge relative to a focal address under analysis.
type Direction string

const (
	DirectionIn      Direction = "in"
	DirectionOut     Direction = "out"
	DirectionNeutral Direction = "neutral"
)

// TxEdge is one directed value transfer extracted from chain transaction
// history. From and To are opaque address keys; self-loops (From == To)
// are never produced by the extraction layer and are ignored by all
// analytics that do encounter one defensively.
type TxEdge struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Value       float64   `json:"value"` // native-unit amount, >= 0
	Slot        *int64    `json:"slot,omitempty"`
	BlockTime   *int64    `json:"blockTime,omitempty"` // unix seconds
	Program     string    `json:"program"`
	TxSignature string    `json:"txSignature"`
	Direction   Direction `json:"direction"`
}

// TaintSeed marks an address as associated with a known incident.
type TaintSeed struct {
	Address      string  `json:"address"`
	IncidentID   string  `json:"incidentId"`
	InitialTaint float64 `json:"initialTaint"` // [0,1]
	Source       string  `json:"source"`
}

// TaintResult is the best (highest-share) taint arrival recorded for one
// address during a single propagation run.
type TaintResult struct {
	Address    string   `json:"address"`
	Share      float64  `json:"share"` // [0,1]
	Hop        int      `json:"hop"`   // >= 0
	IncidentID string   `json:"incidentId"`
	Path       []string `json:"path"` // seed -> ... -> address
	TotalFlow  float64  `json:"totalFlow"`
}

// EntitySignalKind closes the enumeration of behavioral signal types used
// to connect addresses during clustering.
type EntitySignalKind string

const (
	SignalFeePayer    EntitySignalKind = "feePayer"
	SignalFanPattern  EntitySignalKind = "fanPattern"
	SignalTemporal    EntitySignalKind = "temporal"
	SignalTokenAcct   EntitySignalKind = "tokenAccount"
)

// EntitySignal is one piece of evidence that a set of addresses are
// co-controlled.
type EntitySignal struct {
	Kind        EntitySignalKind `json:"kind"`
	Strength    float64          `json:"strength"` // [0,1]
	Addresses   []string         `json:"addresses"`
	EvidenceTxs []string         `json:"evidenceTxs"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// EntityCluster is a set of addresses inferred to be co-controlled.
type EntityCluster struct {
	ID          string         `json:"id"`
	Addresses   []string       `json:"addresses"` // size in [2, maxClusterSize]
	Signals     []EntitySignal `json:"signals"`
	Confidence  float64        `json:"confidence"` // [0,1]
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// ServiceType closes the enumeration of integration endpoint kinds.
type ServiceType string

const (
	ServiceCEX     ServiceType = "cex"
	ServiceBridge  ServiceType = "bridge"
	ServiceGateway ServiceType = "gateway"
	ServiceDEX     ServiceType = "dex"
)

// ServiceEndpoint is one catalog entry identifying an address as a known
// off-chain or protocol counterparty.
type ServiceEndpoint struct {
	Address      string         `json:"address"`
	Type         ServiceType    `json:"service_type"`
	Name         string         `json:"service_name"`
	Confidence   float64        `json:"confidence"` // [0,1]
	LastVerified time.Time      `json:"last_verified"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IntegrationCatalog is the versioned, disk-persisted list of known
// service endpoints.
type IntegrationCatalog struct {
	Version     int               `json:"version"`
	LastUpdated time.Time         `json:"last_updated"`
	Services    []ServiceEndpoint `json:"services"`
	Sources     []string          `json:"sources"`
}

// IntegrationEventKind closes the enumeration of detected integration
// interactions.
type IntegrationEventKind string

const (
	EventCashOut            IntegrationEventKind = "cashOut"
	EventBridgeOp           IntegrationEventKind = "bridgeOp"
	EventDexInteraction     IntegrationEventKind = "dexInteraction"
	EventSuspiciousPattern  IntegrationEventKind = "suspiciousPattern"
)

// IntegrationEvent records a detected interaction with a cataloged
// integration, or a suspicious pattern spanning several such interactions.
type IntegrationEvent struct {
	ID            string               `json:"id"`
	Kind          IntegrationEventKind `json:"kind"`
	Timestamp     time.Time            `json:"timestamp"`
	Slot          *int64               `json:"slot,omitempty"`
	Addresses     []string             `json:"addresses"`
	ServiceInfo   *ServiceEndpoint     `json:"serviceInfo,omitempty"`
	TxSignature   string               `json:"txSignature"`
	Value         float64              `json:"value"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
	RiskScore     float64              `json:"riskScore"` // [0,1]
	TaintRef      *string              `json:"taintRef,omitempty"`
}

// EvidencePath is a simple directed path explaining how value moved
// between a source and a destination address.
type EvidencePath struct {
	ID                string         `json:"id"`
	Source            string         `json:"source"`
	Destination       string         `json:"destination"`
	Hops              int            `json:"hops"`
	TotalValue        float64        `json:"totalValue"`
	Segments          []TxEdge       `json:"segments"`
	PathScore         float64        `json:"pathScore"` // >= 0
	TaintInvolvement  float64        `json:"taintInvolvement"` // [0,1]
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// FlowSegment is the flow assigned to one edge after min-cost flow
// decomposition.
type FlowSegment struct {
	Edge TxEdge  `json:"edge"`
	Flow float64 `json:"flow"`
}

// FlowDecomposition is the full output of F5's min-cost flow attribution.
type FlowDecomposition struct {
	Segments              []FlowSegment      `json:"segments"`
	TotalFlow             float64            `json:"totalFlow"`
	TaintedFlow           float64            `json:"taintedFlow"`
	CleanFlow             float64            `json:"cleanFlow"`
	SourceAttribution     map[string]float64 `json:"sourceAttribution"`
	SinkAttribution       map[string]float64 `json:"sinkAttribution"`
	FlowEfficiency        float64            `json:"flowEfficiency"` // [0,1]
	DecompositionQuality  float64            `json:"decompositionQuality"` // [0,1]
	Partial               bool               `json:"partial"`
	QualityPenalty        float64            `json:"qualityPenalty"`
}

// Criticality closes the enumeration of influence-criticality bands.
type Criticality string

const (
	CriticalityLow    Criticality = "LOW"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityHigh   Criticality = "HIGH"
)

// AddressInfluence is the counterfactual-betweenness result for one
// prioritised address.
type AddressInfluence struct {
	Address             string      `json:"address"`
	BaselineFlow        float64     `json:"baselineFlow"`
	CounterfactualFlow  float64     `json:"counterfactualFlow"`
	InfluenceScore      float64     `json:"influenceScore"`
	TaintInfluence      float64     `json:"taintInfluence"`
	Centrality          float64     `json:"centrality"`
	Criticality         Criticality `json:"criticality"`
}

// RiskLevel closes the enumeration of final risk bands.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskComponent is one normalised, weighted contributor to the final
// risk score.
type RiskComponent struct {
	Name              string         `json:"name"`
	Score             float64        `json:"score"` // [0,1]
	Weight            float64        `json:"weight"` // [0,1]
	Confidence        float64        `json:"confidence"` // [0,1]
	Evidence          []string       `json:"evidence"`
	ThresholdBreached bool           `json:"thresholdBreached"`
	RawValue          float64        `json:"rawValue"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// RiskAssessment is the final, explainable output of the risk engine.
type RiskAssessment struct {
	FinalScore         float64         `json:"finalScore"` // [0,1]
	Level              RiskLevel       `json:"level"`
	Confidence         float64         `json:"confidence"`
	Components         []RiskComponent `json:"components"`
	Flagged            bool            `json:"flagged"`
	Recommendations    []string        `json:"recommendations"`
	AssessmentQuality  float64         `json:"assessmentQuality"`
	ComputationMeta    map[string]any  `json:"computationMeta,omitempty"`
}
