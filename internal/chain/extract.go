package chain

import "github.com/rawblock/wallet-forensics/pkg/models"

// LamportsPerUnit converts lamports to a native-unit float, the only
// place in the pipeline that performs unit conversion — every core stage
// deals exclusively in native-unit float64 values.
const LamportsPerUnit = 1_000_000_000

// ExtractEdges turns one RawTransaction's balance deltas into TxEdges: any
// account whose balance decreased is treated as a source, any account
// whose balance increased as a destination, and value is split
// proportionally across destinations by their share of the total gain.
// This is a simple balance-delta extractor; program-aware extraction
// (instruction-level transfers) would be a later refinement.
func ExtractEdges(tx *RawTransaction) []models.TxEdge {
	if tx == nil || !tx.Success {
		return nil
	}
	n := len(tx.AccountKeys)
	if n == 0 || len(tx.PreBalances) != n || len(tx.PostBalances) != n {
		return nil
	}

	var sources, dests []string
	var totalGain int64
	deltas := make([]int64, n)
	for i := 0; i < n; i++ {
		deltas[i] = tx.PostBalances[i] - tx.PreBalances[i]
		switch {
		case deltas[i] < 0:
			sources = append(sources, tx.AccountKeys[i])
		case deltas[i] > 0:
			dests = append(dests, tx.AccountKeys[i])
			totalGain += deltas[i]
		}
	}
	if len(sources) == 0 || len(dests) == 0 || totalGain == 0 {
		return nil
	}

	// The first program in the list is treated as the transfer's primary
	// program; instruction-level attribution would refine this.
	program := ""
	if len(tx.Programs) > 0 {
		program = tx.Programs[0]
	}

	var edges []models.TxEdge
	for i := 0; i < n; i++ {
		if deltas[i] >= 0 {
			continue
		}
		lost := -deltas[i]
		for j := 0; j < n; j++ {
			if deltas[j] <= 0 {
				continue
			}
			share := float64(deltas[j]) / float64(totalGain)
			value := float64(lost) * share / LamportsPerUnit
			if value <= 0 {
				continue
			}
			edges = append(edges, models.TxEdge{
				From:        tx.AccountKeys[i],
				To:          tx.AccountKeys[j],
				Value:       value,
				Slot:        &tx.Slot,
				BlockTime:   tx.BlockTime,
				Program:     program,
				TxSignature: tx.Signature,
			})
		}
	}
	return edges
}
