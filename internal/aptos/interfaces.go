package aptos

import (
	"context"
	"encoding/json"
)

// Node is the read side of a fullnode.
type Node interface {
	// BaseURL identifies the node in logs
	BaseURL() string

	// View calls a Move view function
	View(ctx context.Context, req ViewRequest) ([]json.RawMessage, error)

	// AccountResource fetches a resource stored under an account
	AccountResource(ctx context.Context, address, resourceType string) (*Resource, error)

	// CoinBalance returns the raw balance of a coin type
	CoinBalance(ctx context.Context, address, coinType string) (uint64, error)

	// TransactionByHash fetches a transaction
	TransactionByHash(ctx context.Context, hash string) (*Transaction, error)
}

// Submitter signs and submits entry-function transactions.
type Submitter interface {
	// SubmitAndWait signs payload, submits it and waits for the commit
	SubmitAndWait(ctx context.Context, signer Signer, payload *EntryFunctionPayload) (*Transaction, error)

	// SimulateTransaction dry-runs payload without submitting it
	SimulateTransaction(ctx context.Context, signer Signer, payload *EntryFunctionPayload) ([]Transaction, error)
}

var (
	_ Node      = (*Client)(nil)
	_ Node      = (*MultiNodeClient)(nil)
	_ Submitter = (*Client)(nil)
)
