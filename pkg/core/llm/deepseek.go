package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const deepseekURL = "https://api.deepseek.com/chat/completions"

// DeepSeekProvider is the fallback completion backend for deployments
// without Gemini access.
type DeepSeekProvider struct {
	apiKey string
	model  string
	client *http.Client
}

var _ Provider = (*DeepSeekProvider)(nil)

func NewDeepSeekProvider(apiKey, model string) (*DeepSeekProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek api key not set")
	}
	if model == "" {
		model = "deepseek-chat"
	}
	return &DeepSeekProvider{apiKey: apiKey, model: model, client: &http.Client{}}, nil
}

type deepseekMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type deepseekRequest struct {
	Messages    []deepseekMessage `json:"messages"`
	Model       string            `json:"model"`
	MaxTokens   int               `json:"max_tokens"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature"`
}

type deepseekResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *DeepSeekProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	model := p.model
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	reqBody := deepseekRequest{
		Messages: []deepseekMessage{
			{Content: systemPrompt, Role: "system"},
			{Content: prompt, Role: "user"},
		},
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.1,
	}
	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("deepseek marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deepseekURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("deepseek request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	res, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepseek api call error: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("deepseek read body error: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek api error: status=%d body=%s", res.StatusCode, string(body))
	}

	var response deepseekResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("deepseek unmarshal error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("deepseek returned no choices: %s", string(body))
	}
	return response.Choices[0].Message.Content, nil
}
