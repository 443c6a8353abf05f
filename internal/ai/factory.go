package ai

import (
	"context"
	"strings"

	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/rs/zerolog"
)

// NewProvider picks the completion backend by AI_MODE.
func NewProvider(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (Provider, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = config.AIModeMock
	}

	switch mode {
	case config.AIModeOpenAI:
		return NewOpenAIProvider(cfg, logger), nil
	case config.AIModeGemini:
		gp, err := NewGeminiProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return gp, nil
	default:
		return NewMockProvider(), nil
	}
}
