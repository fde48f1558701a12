package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

const providerName = "openai"

// OpenAIJudge implements ai.Judge with chat completions and function tools.
// Any OpenAI-compatible endpoint works through the base URL.
type OpenAIJudge struct {
	client    *openai.Client
	name      string
	model     string
	maxRounds int
}

// NewOpenAIJudge creates a judge. An empty baseURL targets api.openai.com.
func NewOpenAIJudge(apiKey, model, baseURL string) *OpenAIJudge {
	return NewCompatibleJudge(providerName, apiKey, model, baseURL)
}

// NewCompatibleJudge creates a judge for an OpenAI-compatible provider.
func NewCompatibleJudge(name, apiKey, model, baseURL string) *OpenAIJudge {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini // 与原判官一致
	}
	return &OpenAIJudge{
		client:    openai.NewClientWithConfig(cfg),
		name:      name,
		model:     model,
		maxRounds: ai.DefaultMaxRounds,
	}
}

// Name implements ai.Judge
func (j *OpenAIJudge) Name() string {
	return j.name
}

// Judge implements ai.Judge
func (j *OpenAIJudge) Judge(ctx context.Context, circle *models.Circle, exec ai.ToolExecutor) (*ai.Verdict, error) {
	verdict := ai.NewVerdict(circle, j.name, j.model)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: ai.SystemInstruction,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: ai.Prompt(circle),
		},
	}

	for round := 0; round < j.maxRounds; round++ {
		msg, err := j.createChatCompletion(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("failed to judge circle %d: %w", circle.ID, err)
		}
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			verdict.Reasoning = msg.Content
			return verdict, nil
		}

		for _, call := range msg.ToolCalls {
			result := ai.Dispatch(ctx, circle, exec, call.Function.Name, []byte(call.Function.Arguments))
			verdict.Record(result)

			content, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tool result: %w", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(content),
				ToolCallID: call.ID,
			})
		}

		if verdict.Resolved {
			return verdict, nil
		}
	}

	verdict.Reasoning = fmt.Sprintf("no resolution after %d rounds", j.maxRounds)
	return verdict, nil
}

// createChatCompletion is a helper function to make OpenAI API calls
func (j *OpenAIJudge) createChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionMessage, error) {
	resp, err := j.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       j.model,
			Messages:    messages,
			Tools:       []openai.Tool{resolveTool()},
			Temperature: 0.2, // 判决需要稳定输出
		},
	)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message, nil
}

func resolveTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ai.ToolResolveChallenge,
			Description: ai.ToolDescription,
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"circle_id": {
						Type:        jsonschema.Integer,
						Description: ai.ArgCircleIDDescription,
					},
					"winner": {
						Type:        jsonschema.String,
						Enum:        ai.WinnerValues,
						Description: ai.ArgWinnerDescription,
					},
				},
				Required: []string{"circle_id", "winner"},
			},
		},
	}
}
