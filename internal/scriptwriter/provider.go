package scriptwriter

import "context"

// Provider abstracts the hosted text model used to write scripts
// (Gemini, OpenAI, Anthropic).
type Provider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	Name() string
}
