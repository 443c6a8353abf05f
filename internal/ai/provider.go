package ai

import "context"

// Provider performs one completion round trip and returns the assistant text.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	Name() string
}

// Response formats a caller can request. Providers that support a native JSON mode use it,
// the mock picks the matching fixture.
const (
	FormatJSON  = "json"
	FormatProse = "prose"
)

type CompletionRequest struct {
	System string
	Prompt string
	Format string
}

type CompletionResult struct {
	Text  string
	Model string
}
