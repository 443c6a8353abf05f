package ai

import (
	"context"
	_ "embed"
	"strings"
)

var (
	//go:embed fixtures/week_plan.json
	mockJSONPlan string

	//go:embed fixtures/week_plan.txt
	mockProsePlan string
)

// MockProvider returns a canned weekly plan in the requested format.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResult{}, &TransportError{Err: err}
	}

	text := mockJSONPlan
	if req.Format == FormatProse {
		text = mockProsePlan
	}
	return CompletionResult{Text: strings.TrimSpace(text), Model: "mock"}, nil
}
