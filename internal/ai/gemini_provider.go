package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider uses the Google Generative AI SDK as the completion backend.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	cfg     config.AIConfig
	timeout time.Duration
	logger  zerolog.Logger
}

func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &GeminiProvider{
		client:  client,
		model:   cfg.GeminiModel,
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With().Str("component", "ai.gemini").Logger(),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(float32(p.cfg.Temperature))
	model.SetTopP(float32(p.cfg.TopP))
	model.SetMaxOutputTokens(int32(p.cfg.MaxOutputTokens))
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Format == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return CompletionResult{}, p.wrapError(ctx, err)
	}
	if resp == nil {
		return CompletionResult{}, ErrEmptyResponse
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return CompletionResult{}, ErrNoChoices
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	p.logger.Debug().
		Int("bytes", sb.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("completion response")

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return CompletionResult{}, ErrEmptyResponse
	}
	return CompletionResult{Text: text, Model: p.model}, nil
}

func (p *GeminiProvider) wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &TransportError{Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = strings.TrimSpace(apiErr.Body)
		}
		return &UpstreamError{Status: apiErr.Code, Message: msg}
	}

	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return &UpstreamError{Status: coded.HTTPCode(), Message: err.Error()}
	}

	return &TransportError{Err: err}
}
