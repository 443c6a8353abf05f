package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/rs/zerolog"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
// (Scaleway Generative APIs by default).
type OpenAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	topP        float64
	httpClient  *http.Client
	logger      zerolog.Logger
}

func NewOpenAIProvider(cfg config.AIConfig, logger zerolog.Logger) *OpenAIProvider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultAIBaseURL
	}

	// one timeout for connect, read and write
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	return &OpenAIProvider{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxOutputTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With().Str("component", "ai.openai").Logger(),
	}
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionsRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		TopP:        p.topP,
		Stream:      false,
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return CompletionResult{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResult{}, &TransportError{Err: err}
	}

	p.logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(responseBody)).
		Dur("elapsed", time.Since(started)).
		Msg("completion response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CompletionResult{}, &UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(resp.StatusCode, responseBody),
		}
	}

	if len(bytes.TrimSpace(responseBody)) == 0 {
		return CompletionResult{}, ErrEmptyResponse
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return CompletionResult{}, ErrNoChoices
	}

	model := parsed.Model
	if model == "" {
		model = p.model
	}
	return CompletionResult{
		Text:  strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model: model,
	}, nil
}

// upstreamMessage prefers error.message from the body and falls back to the raw body.
func upstreamMessage(status int, body []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
	}
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return http.StatusText(status)
	}
	return raw
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
