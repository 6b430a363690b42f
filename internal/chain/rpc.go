package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RPCConfig configures an RPCClient.
type RPCConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// RPCClient implements Client with hand-rolled JSON-RPC over net/http:
// construct the envelope, POST it, unmarshal the result field.
type RPCClient struct {
	cfg        RPCConfig
	httpClient *http.Client
}

// NewRPCClient constructs an RPCClient. A zero Timeout defaults to 30s.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &RPCClient{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []any         `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("chain rpc: marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("chain rpc: create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chain rpc: %s http request: %w", method, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("chain rpc: %s read body: %w", method, err)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("chain rpc: %s unmarshal envelope: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("chain rpc: %s: %d %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("chain rpc: %s unmarshal result: %w", method, err)
		}
	}
	return nil
}

type signatureResult struct {
	Signature string `json:"signature"`
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Err       any    `json:"err"`
}

// SignaturesForAddress calls getSignaturesForAddress.
func (c *RPCClient) SignaturesForAddress(ctx context.Context, address string, limit int) ([]SignatureMeta, error) {
	var raw []signatureResult
	params := []any{address, map[string]any{"limit": limit}}
	if err := c.call(ctx, "getSignaturesForAddress", params, &raw); err != nil {
		return nil, err
	}

	out := make([]SignatureMeta, len(raw))
	for i, r := range raw {
		errStr := ""
		if r.Err != nil {
			errStr = fmt.Sprintf("%v", r.Err)
		}
		out[i] = SignatureMeta{Signature: r.Signature, Slot: r.Slot, BlockTime: r.BlockTime, Err: errStr}
	}
	return out, nil
}

type transactionResult struct {
	Slot      int64  `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
	Meta      struct {
		Fee          int64   `json:"fee"`
		Err          any     `json:"err"`
		PreBalances  []int64 `json:"preBalances"`
		PostBalances []int64 `json:"postBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys  []string `json:"accountKeys"`
			Instructions []struct {
				ProgramIDIndex int `json:"programIdIndex"`
			} `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

// programsOf resolves each instruction's program id through the account
// key table, deduplicated in instruction order.
func programsOf(raw *transactionResult) []string {
	keys := raw.Transaction.Message.AccountKeys
	seen := make(map[string]struct{})
	var programs []string
	for _, ins := range raw.Transaction.Message.Instructions {
		if ins.ProgramIDIndex < 0 || ins.ProgramIDIndex >= len(keys) {
			continue
		}
		p := keys[ins.ProgramIDIndex]
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		programs = append(programs, p)
	}
	return programs
}

// TransactionDetails calls getTransaction.
func (c *RPCClient) TransactionDetails(ctx context.Context, signature string) (*RawTransaction, error) {
	var raw transactionResult
	params := []any{signature, map[string]any{"encoding": "json", "maxSupportedTransactionVersion": 0}}
	if err := c.call(ctx, "getTransaction", params, &raw); err != nil {
		return nil, err
	}

	return &RawTransaction{
		Signature:    signature,
		Slot:         raw.Slot,
		BlockTime:    raw.BlockTime,
		Fee:          raw.Meta.Fee,
		Success:      raw.Meta.Err == nil,
		AccountKeys:  raw.Transaction.Message.AccountKeys,
		Programs:     programsOf(&raw),
		PreBalances:  raw.Meta.PreBalances,
		PostBalances: raw.Meta.PostBalances,
	}, nil
}
