package ai

import (
	"context"
	"time"

	"github.com/songzhibin97/supercircle/internal/models"
)

// Judge defines an LLM-backed judge for a single circle
type Judge interface {
	// Name identifies the provider in logs and audit records
	Name() string

	// Judge lets the model decide circle and resolve it through exec
	Judge(ctx context.Context, circle *models.Circle, exec ToolExecutor) (*Verdict, error)
}

// ToolExecutor runs the tools the model may call
type ToolExecutor interface {
	// ResolveChallenge resolves a circle on chain in favour of a side
	ResolveChallenge(ctx context.Context, args ResolveArgs) (*ToolResult, error)
}

// ResolveArgs resolve_challenge 工具参数
type ResolveArgs struct {
	CircleID uint64 `json:"circle_id"`
	Winner   string `json:"winner"`
}

// Side returns the winning side.
func (a ResolveArgs) Side() (models.Side, error) {
	return models.ParseSide(a.Winner)
}

// ToolResult is returned to the model after a tool call.
type ToolResult struct {
	Successful bool           `json:"successful"`
	Data       ToolResultData `json:"data"`
}

type ToolResultData struct {
	Result          string `json:"result"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Winner          string `json:"winner,omitempty"`
	WinnerAddress   string `json:"winnerAddress,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Verdict 判决结果
type Verdict struct {
	CircleID        uint64    `json:"circle_id"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	Resolved        bool      `json:"resolved"`
	Winner          string    `json:"winner,omitempty"`
	WinnerAddress   string    `json:"winner_address,omitempty"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Reasoning       string    `json:"reasoning,omitempty"`
	ToolCalls       int       `json:"tool_calls"`
	DecidedAt       time.Time `json:"decided_at"`
}
