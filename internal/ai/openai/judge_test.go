package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

type recordingExecutor struct {
	calls []ai.ResolveArgs
}

func (r *recordingExecutor) ResolveChallenge(ctx context.Context, args ai.ResolveArgs) (*ai.ToolResult, error) {
	r.calls = append(r.calls, args)
	return &ai.ToolResult{
		Successful: true,
		Data: ai.ToolResultData{
			Result:          "Challenge resolved successfully",
			TransactionHash: "0xfeed",
			Winner:          args.Winner,
			WinnerAddress:   "0xb",
		},
	}, nil
}

func toolCallResponse(id, args string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []interface{}{
			map[string]interface{}{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": "",
					"tool_calls": []interface{}{
						map[string]interface{}{
							"id":   id,
							"type": "function",
							"function": map[string]interface{}{
								"name":      ai.ToolResolveChallenge,
								"arguments": args,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			},
		},
	}
}

func textResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-2",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []interface{}{
			map[string]interface{}{
				"index":         0,
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func setupTestServer(t *testing.T, responses ...map[string]interface{}) (*httptest.Server, *int32, *[]map[string]interface{}) {
	var count int32
	requests := make([]map[string]interface{}, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		i := atomic.AddInt32(&count, 1) - 1
		require.Less(t, int(i), len(responses))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(responses[i]))
	}))

	return server, &count, &requests
}

func TestOpenAIJudge_Resolves(t *testing.T) {
	server, count, requests := setupTestServer(t,
		toolCallResponse("call_1", `{"circle_id": 99, "winner": "creator"}`),
		toolCallResponse("call_2", `{"circle_id": 3, "winner": "opponent"}`),
	)
	defer server.Close()

	judge := NewOpenAIJudge("test-key", "", server.URL)
	exec := &recordingExecutor{}
	circle := &models.Circle{ID: 3, Description: "chess match", Creator: "0xa"}

	verdict, err := judge.Judge(context.Background(), circle, exec)
	require.NoError(t, err)

	assert.True(t, verdict.Resolved)
	assert.Equal(t, "opponent", verdict.Winner)
	assert.Equal(t, "0xfeed", verdict.TransactionHash)
	assert.Equal(t, 2, verdict.ToolCalls)
	assert.Equal(t, "openai", verdict.Provider)
	assert.Equal(t, "gpt-4o-mini", verdict.Model)
	assert.Equal(t, []ai.ResolveArgs{{CircleID: 3, Winner: "opponent"}}, exec.calls)
	assert.Equal(t, int32(2), atomic.LoadInt32(count))

	// the refused call is reported back to the model
	second := (*requests)[1]
	messages, ok := second["messages"].([]interface{})
	require.True(t, ok)
	last := messages[len(messages)-1].(map[string]interface{})
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_1", last["tool_call_id"])
	assert.Contains(t, last["content"], "does not match")

	tools, ok := second["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	assert.Equal(t, ai.ToolResolveChallenge, fn["name"])
}

func TestOpenAIJudge_NoToolCall(t *testing.T) {
	server, _, _ := setupTestServer(t, textResponse("Not enough information to decide."))
	defer server.Close()

	judge := NewOpenAIJudge("test-key", "gpt-4o", server.URL)
	exec := &recordingExecutor{}

	verdict, err := judge.Judge(context.Background(), &models.Circle{ID: 1}, exec)
	require.NoError(t, err)
	assert.False(t, verdict.Resolved)
	assert.Equal(t, "Not enough information to decide.", verdict.Reasoning)
	assert.Empty(t, exec.calls)
}

func TestOpenAIJudge_RoundLimit(t *testing.T) {
	bad := toolCallResponse("call_x", `{"circle_id": 5, "winner": "nobody"}`)
	server, count, _ := setupTestServer(t, bad, bad, bad)
	defer server.Close()

	judge := NewOpenAIJudge("test-key", "", server.URL)

	verdict, err := judge.Judge(context.Background(), &models.Circle{ID: 5}, &recordingExecutor{})
	require.NoError(t, err)
	assert.False(t, verdict.Resolved)
	assert.Equal(t, 3, verdict.ToolCalls)
	assert.Equal(t, int32(ai.DefaultMaxRounds), atomic.LoadInt32(count))
}

func TestOpenAIJudge_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	judge := NewOpenAIJudge("bad", "", server.URL)
	verdict, err := judge.Judge(context.Background(), &models.Circle{ID: 1}, &recordingExecutor{})
	assert.Error(t, err)
	assert.Nil(t, verdict)
}

func TestOpenAIJudgeIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if testing.Short() || apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	judge := NewOpenAIJudge(apiKey, "", os.Getenv("AI_BASE_URL"))
	circle := &models.Circle{ID: 0, Description: "the sky is blue on a clear day at noon", Creator: "0xa"}

	verdict, err := judge.Judge(context.Background(), circle, &recordingExecutor{})
	require.NoError(t, err)
	t.Logf("verdict: %+v", verdict)
}
