package llm

import "context"

// Provider is the completion interface the extraction, insight and chat
// layers depend on. Implementations must tolerate partial prompts and may
// return degraded output; callers own parsing and validation.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}
