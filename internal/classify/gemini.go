package classify

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements ModelClient against the Gemini API. The API
// key comes from the environment (GEMINI_API_KEY / GOOGLE_API_KEY),
// which is the genai client's default lookup.
type GeminiClient struct {
	model string
}

// NewGeminiClient creates a client for the given model name.
func NewGeminiClient(model string) *GeminiClient {
	return &GeminiClient{model: model}
}

// GenerateText sends the prompt and returns the model's raw text.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("creating genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
