package devserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaNarrator работает с локальной Ollama через нативный API.
type ollamaNarrator struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllamaNarrator создает рассказчика. host - адрес Ollama без суффикса /v1.
func NewOllamaNarrator(host, model string, timeout time.Duration, logger *zap.Logger) (Narrator, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama narrator requires a model")
	}
	host = strings.TrimSuffix(strings.TrimSuffix(host, "/"), "/v1")
	parsedURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	return &ollamaNarrator{
		client: api.NewClient(parsedURL, &http.Client{Timeout: timeout}),
		model:  model,
		logger: logger.Named("OllamaNarrator"),
	}, nil
}

func (n *ollamaNarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	content, err := n.chat(ctx, req.Model, req.SystemPrompt, narrationUserPrompt(req.History), "json", req.Temperature)
	if err != nil {
		return nil, err
	}
	return parseNarration(content)
}

func (n *ollamaNarrator) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	content, err := n.chat(ctx, req.Model, req.SystemPrompt, summaryUserPrompt(req.ExistingSummary, req.Recent), "", 0.5)
	if err != nil {
		return req.ExistingSummary, err
	}
	return acceptSummary(req.ExistingSummary, content), nil
}

func (n *ollamaNarrator) chat(ctx context.Context, model, system, user, format string, temperature float64) (string, error) {
	if model == "" {
		model = n.model
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": temperature},
	}
	if format != "" {
		chatReq.Format = []byte(`"` + format + `"`)
	}

	var resp api.ChatResponse
	err := n.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("%w: empty response from model %s", ErrGenerationFailed, model)
	}
	n.logger.Debug("Ollama chat completed",
		zap.String("model", model),
		zap.Int("promptEvalCount", resp.PromptEvalCount),
		zap.Int("evalCount", resp.EvalCount),
	)
	return resp.Message.Content, nil
}
