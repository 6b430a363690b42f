// Package chain defines the external chain-client interface and provides
// two implementations: an RPC client against a Solana-style JSON-RPC
// endpoint, and an in-memory fixture used by tests and the regression
// harness.
package chain

import "context"

// SignatureMeta is one entry returned by getSignaturesFor.
type SignatureMeta struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       string // non-empty if the transaction itself failed on-chain
}

// RawTransaction is the structured transaction record:
// account keys, program ids touched, and balance deltas the extraction
// layer turns into TxEdges.
type RawTransaction struct {
	Signature    string
	Slot         int64
	BlockTime    *int64
	Fee          int64
	Success      bool
	AccountKeys  []string
	Programs     []string
	PreBalances  []int64
	PostBalances []int64
}

// Client is the chain RPC collaborator the pipeline fetches history from.
type Client interface {
	SignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureMeta, error)
	TransactionDetails(ctx context.Context, signature string) (*RawTransaction, error)
}
