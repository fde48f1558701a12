package aptos

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrResourceNotFound is returned when the node answers 404 for a resource or account.
	ErrResourceNotFound = errors.New("aptos: resource not found")
	// ErrTransactionFailed is returned when a committed transaction did not succeed.
	ErrTransactionFailed = errors.New("aptos: transaction failed")
	// ErrTransactionPending is returned when waiting for a transaction runs out of time.
	ErrTransactionPending = errors.New("aptos: transaction still pending")
)

// APIError is the error body returned by the fullnode REST API.
type APIError struct {
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	VMErrorCode *int   `json:"vm_error_code,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("aptos api error: status=%d, code=%s, message=%s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("aptos api error: status=%d, message=%s", e.StatusCode, e.Message)
}

// ViewRequest 视图函数调用
type ViewRequest struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// Resource is an account resource as returned by the node.
type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AccountInfo 账户信息
type AccountInfo struct {
	SequenceNumber    uint64 `json:"sequence_number,string"`
	AuthenticationKey string `json:"authentication_key"`
}

// LedgerInfo is the subset of GET / used for signing.
type LedgerInfo struct {
	ChainID         uint8  `json:"chain_id"`
	LedgerVersion   string `json:"ledger_version"`
	LedgerTimestamp string `json:"ledger_timestamp"`
}

// GasEstimate 燃料价格估算
type GasEstimate struct {
	GasEstimate              uint64 `json:"gas_estimate"`
	DeprioritizedGasEstimate uint64 `json:"deprioritized_gas_estimate"`
	PrioritizedGasEstimate   uint64 `json:"prioritized_gas_estimate"`
}

// EntryFunctionPayload is an entry-function call in JSON submission form.
// u64 arguments travel as decimal strings, u8 as numbers.
type EntryFunctionPayload struct {
	Type          string   `json:"type"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// NewEntryFunctionPayload builds a payload for module::function with arguments.
func NewEntryFunctionPayload(function string, args ...any) *EntryFunctionPayload {
	if args == nil {
		args = []any{}
	}
	return &EntryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      function,
		TypeArguments: []string{},
		Arguments:     args,
	}
}

// TransactionRequest is a user transaction in JSON submission form.
type TransactionRequest struct {
	Sender                  string                `json:"sender"`
	SequenceNumber          string                `json:"sequence_number"`
	MaxGasAmount            string                `json:"max_gas_amount"`
	GasUnitPrice            string                `json:"gas_unit_price"`
	ExpirationTimestampSecs string                `json:"expiration_timestamp_secs"`
	Payload                 *EntryFunctionPayload `json:"payload"`
	Signature               *Signature            `json:"signature,omitempty"`
}

// Signature 单签名 ed25519
type Signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// PendingTransaction is returned by POST /transactions.
type PendingTransaction struct {
	Hash           string `json:"hash"`
	Sender         string `json:"sender"`
	SequenceNumber string `json:"sequence_number"`
}

// Transaction is the subset of a transaction the client inspects.
type Transaction struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Version  string `json:"version,omitempty"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
	GasUsed  string `json:"gas_used,omitempty"`
}

// IsPending reports whether the node has not committed the transaction yet.
func (t *Transaction) IsPending() bool {
	return t.Type == "pending_transaction"
}
