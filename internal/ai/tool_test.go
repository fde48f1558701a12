package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/supercircle/internal/models"
)

type mockExecutor struct {
	calls  []ResolveArgs
	result *ToolResult
	err    error
}

func (m *mockExecutor) ResolveChallenge(ctx context.Context, args ResolveArgs) (*ToolResult, error) {
	m.calls = append(m.calls, args)
	return m.result, m.err
}

func TestParseResolveArgs(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		expected    ResolveArgs
		expectError bool
	}{
		{name: "creator", raw: `{"circle_id": 3, "winner": "creator"}`, expected: ResolveArgs{CircleID: 3, Winner: "creator"}},
		{name: "normalises case", raw: `{"circle_id": 0, "winner": " Opponent "}`, expected: ResolveArgs{CircleID: 0, Winner: "opponent"}},
		{name: "bad winner", raw: `{"circle_id": 3, "winner": "nobody"}`, expectError: true},
		{name: "negative id", raw: `{"circle_id": -1, "winner": "creator"}`, expectError: true},
		{name: "not json", raw: `resolve it`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := ParseResolveArgs([]byte(tt.raw))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestResolveArgs_Side(t *testing.T) {
	side, err := ResolveArgs{Winner: "opponent"}.Side()
	require.NoError(t, err)
	assert.Equal(t, models.SideOpponent, side)
}

func TestDispatch(t *testing.T) {
	circle := &models.Circle{ID: 3, Description: "chess"}
	success := &ToolResult{
		Successful: true,
		Data:       ToolResultData{Result: "Challenge resolved successfully", TransactionHash: "0xfeed", Winner: "creator", WinnerAddress: "0xa"},
	}

	t.Run("executes matching call", func(t *testing.T) {
		exec := &mockExecutor{result: success}
		result := Dispatch(context.Background(), circle, exec, ToolResolveChallenge, []byte(`{"circle_id":3,"winner":"creator"}`))
		assert.Equal(t, success, result)
		assert.Equal(t, []ResolveArgs{{CircleID: 3, Winner: "creator"}}, exec.calls)
	})

	t.Run("refuses other circle", func(t *testing.T) {
		exec := &mockExecutor{result: success}
		result := Dispatch(context.Background(), circle, exec, ToolResolveChallenge, []byte(`{"circle_id":4,"winner":"creator"}`))
		assert.False(t, result.Successful)
		assert.Contains(t, result.Data.Error, "does not match")
		assert.Empty(t, exec.calls)
	})

	t.Run("unknown tool", func(t *testing.T) {
		exec := &mockExecutor{result: success}
		result := Dispatch(context.Background(), circle, exec, "transfer_funds", []byte(`{}`))
		assert.False(t, result.Successful)
		assert.Empty(t, exec.calls)
	})

	t.Run("executor error", func(t *testing.T) {
		exec := &mockExecutor{err: errors.New("node down")}
		result := Dispatch(context.Background(), circle, exec, ToolResolveChallenge, []byte(`{"circle_id":3,"winner":"opponent"}`))
		assert.False(t, result.Successful)
		assert.Equal(t, "node down", result.Data.Error)
	})
}

func TestVerdict_Record(t *testing.T) {
	v := NewVerdict(&models.Circle{ID: 9}, "openai", "gpt-4o-mini")

	v.Record(&ToolResult{Data: ToolResultData{Error: "nope"}})
	assert.False(t, v.Resolved)
	assert.Equal(t, 1, v.ToolCalls)

	v.Record(&ToolResult{Successful: true, Data: ToolResultData{Winner: "opponent", WinnerAddress: "0xb", TransactionHash: "0x1"}})
	assert.True(t, v.Resolved)
	assert.Equal(t, 2, v.ToolCalls)
	assert.Equal(t, "opponent", v.Winner)
	assert.Equal(t, "0xb", v.WinnerAddress)
	assert.Equal(t, "0x1", v.TransactionHash)
	assert.Equal(t, uint64(9), v.CircleID)
}

func TestPrompt(t *testing.T) {
	opponent := "0xb"
	prompt := Prompt(&models.Circle{ID: 7, Description: "who wins the chess match", Creator: "0xa", Opponent: &opponent})

	assert.Contains(t, prompt, "The challenge is: who wins the chess match")
	assert.Contains(t, prompt, "The challenge ID is: 7")
	assert.Contains(t, prompt, "Opponent: 0xb")
	assert.Contains(t, prompt, ToolResolveChallenge)
}

func TestResultMap(t *testing.T) {
	m := ResultMap(&ToolResult{Successful: true, Data: ToolResultData{Result: "ok", TransactionHash: "0x1"}})
	assert.Equal(t, true, m["successful"])
	data, ok := m["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x1", data["transactionHash"])
}
