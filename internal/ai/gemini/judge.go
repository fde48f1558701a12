package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/songzhibin97/supercircle/internal/ai"
	"github.com/songzhibin97/supercircle/internal/models"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

// contentGenerator is the subset of genai.Models the judge needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiJudge implements ai.Judge with Gemini function calling.
type GeminiJudge struct {
	models    contentGenerator
	model     string
	maxRounds int
}

// NewGeminiJudge creates a judge on the Gemini API.
func NewGeminiJudge(ctx context.Context, apiKey, model string) (*GeminiJudge, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiJudge{
		models:    client.Models,
		model:     model,
		maxRounds: ai.DefaultMaxRounds,
	}, nil
}

// Name implements ai.Judge
func (j *GeminiJudge) Name() string {
	return providerName
}

// Judge implements ai.Judge
func (j *GeminiJudge) Judge(ctx context.Context, circle *models.Circle, exec ai.ToolExecutor) (*ai.Verdict, error) {
	verdict := ai.NewVerdict(circle, providerName, j.model)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ai.SystemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{resolveTool()},
		Temperature:       genai.Ptr[float32](0.2),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(ai.Prompt(circle), genai.RoleUser),
	}

	for round := 0; round < j.maxRounds; round++ {
		resp, err := j.models.GenerateContent(ctx, j.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("failed to judge circle %d: gemini api error: %w", circle.ID, err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("failed to judge circle %d: no response from gemini", circle.ID)
		}
		contents = append(contents, resp.Candidates[0].Content)

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			verdict.Reasoning = resp.Text()
			return verdict, nil
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			rawArgs, err := json.Marshal(call.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode function args: %w", err)
			}

			result := ai.Dispatch(ctx, circle, exec, call.Name, rawArgs)
			verdict.Record(result)

			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: ai.ResultMap(result),
				},
			})
		}
		contents = append(contents, &genai.Content{Role: string(genai.RoleUser), Parts: parts})

		if verdict.Resolved {
			return verdict, nil
		}
	}

	verdict.Reasoning = fmt.Sprintf("no resolution after %d rounds", j.maxRounds)
	return verdict, nil
}

func resolveTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        ai.ToolResolveChallenge,
				Description: ai.ToolDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"circle_id": {
							Type:        genai.TypeInteger,
							Description: ai.ArgCircleIDDescription,
						},
						"winner": {
							Type:        genai.TypeString,
							Enum:        ai.WinnerValues,
							Description: ai.ArgWinnerDescription,
						},
					},
					Required: []string{"circle_id", "winner"},
				},
			},
		},
	}
}
