package gemini

import (
	"fmt"

	"github.com/aktagon/llmkit/google"
	googletypes "github.com/aktagon/llmkit/google/types"
)

// googleGenerator adapts llmkit's Gemini transport to the TextGenerator
// boundary. Kept to one file so the rest of the client never sees provider
// types.
type googleGenerator struct {
	apiKey string
}

func (g *googleGenerator) Generate(model, systemPrompt, userPrompt string) (string, error) {
	settings := googletypes.RequestSettings{
		Model:       model,
		MaxTokens:   8192,
		Temperature: 0.7,
	}

	response, err := google.PromptWithSettings(systemPrompt, userPrompt, "", g.apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}
