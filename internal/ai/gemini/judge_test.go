package gemini

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

type scriptedGenerator struct {
	responses []*genai.GenerateContentResponse
	err       error
	requests  [][]*genai.Content
	configs   []*genai.GenerateContentConfig
}

func (s *scriptedGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	snapshot := make([]*genai.Content, len(contents))
	copy(snapshot, contents)
	s.requests = append(s.requests, snapshot)
	s.configs = append(s.configs, config)

	if s.err != nil {
		return nil, s.err
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func functionCall(id string, circleID float64, winner string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role: "model",
					Parts: []*genai.Part{
						{
							FunctionCall: &genai.FunctionCall{
								ID:   id,
								Name: ai.ToolResolveChallenge,
								Args: map[string]any{"circle_id": circleID, "winner": winner},
							},
						},
					},
				},
			},
		},
	}
}

func text(content string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}}},
		},
	}
}

type fixedExecutor struct {
	calls []ai.ResolveArgs
}

func (f *fixedExecutor) ResolveChallenge(ctx context.Context, args ai.ResolveArgs) (*ai.ToolResult, error) {
	f.calls = append(f.calls, args)
	return &ai.ToolResult{
		Successful: true,
		Data:       ai.ToolResultData{Result: "Challenge resolved successfully", TransactionHash: "0xbeef", Winner: args.Winner, WinnerAddress: "0xa"},
	}, nil
}

func newTestJudge(gen contentGenerator) *GeminiJudge {
	return &GeminiJudge{models: gen, model: defaultModel, maxRounds: ai.DefaultMaxRounds}
}

func TestGeminiJudge_Resolves(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		functionCall("fc1", 8, "creator"),
		functionCall("fc2", 2, "creator"),
	}}
	exec := &fixedExecutor{}

	verdict, err := newTestJudge(gen).Judge(context.Background(), &models.Circle{ID: 2, Description: "run 5k"}, exec)
	require.NoError(t, err)

	assert.True(t, verdict.Resolved)
	assert.Equal(t, "creator", verdict.Winner)
	assert.Equal(t, "0xbeef", verdict.TransactionHash)
	assert.Equal(t, 2, verdict.ToolCalls)
	assert.Equal(t, "gemini", verdict.Provider)
	assert.Equal(t, []ai.ResolveArgs{{CircleID: 2, Winner: "creator"}}, exec.calls)

	require.Len(t, gen.requests, 2)
	// prompt, model turn, function response
	second := gen.requests[1]
	require.Len(t, second, 3)
	response := second[2].Parts[0].FunctionResponse
	require.NotNil(t, response)
	assert.Equal(t, "fc1", response.ID)
	assert.Equal(t, false, response.Response["successful"])

	tool := gen.configs[0].Tools[0].FunctionDeclarations[0]
	assert.Equal(t, ai.ToolResolveChallenge, tool.Name)
	assert.Equal(t, []string{"circle_id", "winner"}, tool.Parameters.Required)
}

func TestGeminiJudge_NoFunctionCall(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{text("Cannot verify this challenge.")}}
	exec := &fixedExecutor{}

	verdict, err := newTestJudge(gen).Judge(context.Background(), &models.Circle{ID: 1}, exec)
	require.NoError(t, err)
	assert.False(t, verdict.Resolved)
	assert.Equal(t, "Cannot verify this challenge.", verdict.Reasoning)
	assert.Empty(t, exec.calls)
}

func TestGeminiJudge_Errors(t *testing.T) {
	_, err := newTestJudge(&scriptedGenerator{err: errors.New("quota exceeded")}).
		Judge(context.Background(), &models.Circle{ID: 1}, &fixedExecutor{})
	assert.ErrorContains(t, err, "quota exceeded")

	empty := &scriptedGenerator{responses: []*genai.GenerateContentResponse{{}}}
	_, err = newTestJudge(empty).Judge(context.Background(), &models.Circle{ID: 1}, &fixedExecutor{})
	assert.ErrorContains(t, err, "no response")

	_, err = NewGeminiJudge(context.Background(), "", "")
	assert.Error(t, err)
}

func TestGeminiJudgeIntegration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if testing.Short() || apiKey == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}

	judge, err := NewGeminiJudge(context.Background(), apiKey, "")
	require.NoError(t, err)

	verdict, err := judge.Judge(context.Background(), &models.Circle{ID: 0, Description: "water boils at 100C at sea level", Creator: "0xa"}, &fixedExecutor{})
	require.NoError(t, err)
	t.Logf("verdict: %+v", verdict)
}
