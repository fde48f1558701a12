package deepseek

import (
	"github.com/songzhibin97/supercircle/internal/ai/openai"
)

const (
	defaultAPIEndpoint = "https://api.deepseek.com/v1"
	defaultModel       = "deepseek-chat"
)

// NewDeepSeekJudge creates a judge backed by DeepSeek's OpenAI-compatible API.
func NewDeepSeekJudge(apiKey, model, endpoint string) *openai.OpenAIJudge {
	if model == "" {
		model = defaultModel
	}
	if endpoint == "" {
		endpoint = defaultAPIEndpoint
	}
	return openai.NewCompatibleJudge("deepseek", apiKey, model, endpoint)
}
