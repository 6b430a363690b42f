package chain

import (
	"context"
	"fmt"
)

// FixtureClient is an in-memory, deterministic stand-in for a chain RPC
// endpoint, used by tests and the regression harness instead of a live
// network call.
type FixtureClient struct {
	signatures map[string][]SignatureMeta
	txs        map[string]*RawTransaction
}

// NewFixtureClient constructs an empty FixtureClient; use AddTransaction
// to populate it.
func NewFixtureClient() *FixtureClient {
	return &FixtureClient{
		signatures: make(map[string][]SignatureMeta),
		txs:        make(map[string]*RawTransaction),
	}
}

// AddTransaction registers tx and indexes its signature under every
// address in tx.AccountKeys, so SignaturesForAddress finds it.
func (f *FixtureClient) AddTransaction(tx *RawTransaction) {
	f.txs[tx.Signature] = tx
	meta := SignatureMeta{Signature: tx.Signature, Slot: tx.Slot, BlockTime: tx.BlockTime}
	if !tx.Success {
		meta.Err = "transaction failed"
	}
	for _, addr := range tx.AccountKeys {
		f.signatures[addr] = append(f.signatures[addr], meta)
	}
}

// SignaturesForAddress returns the first up-to-limit signatures touching
// address, in the order they were added.
func (f *FixtureClient) SignaturesForAddress(_ context.Context, address string, limit int) ([]SignatureMeta, error) {
	sigs := f.signatures[address]
	if limit > 0 && len(sigs) > limit {
		sigs = sigs[:limit]
	}
	return sigs, nil
}

// TransactionDetails returns the registered transaction for signature.
func (f *FixtureClient) TransactionDetails(_ context.Context, signature string) (*RawTransaction, error) {
	tx, ok := f.txs[signature]
	if !ok {
		return nil, fmt.Errorf("chain fixture: unknown signature %s", signature)
	}
	return tx, nil
}
