package devserver

import (
	"context"
	"fmt"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAINarrator работает с любым OpenAI-совместимым API (OpenAI, OpenRouter, vLLM).
type openAINarrator struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

// NewOpenAINarrator создает рассказчика поверх go-openai. baseURL может быть пустым.
func NewOpenAINarrator(apiKey, baseURL, model string, logger *zap.Logger) (Narrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai narrator requires an API key")
	}
	if model == "" {
		return nil, fmt.Errorf("openai narrator requires a model")
	}
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &openAINarrator{
		client: openaigo.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.Named("OpenAINarrator"),
	}, nil
}

func (n *openAINarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	model := req.Model
	if model == "" {
		model = n.model
	}
	content, err := n.complete(ctx, openaigo.ChatCompletionRequest{
		Model: model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: narrationUserPrompt(req.History)},
		},
		Temperature:    float32(req.Temperature),
		MaxTokens:      2000,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, err
	}
	return parseNarration(content)
}

func (n *openAINarrator) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = n.model
	}
	content, err := n.complete(ctx, openaigo.ChatCompletionRequest{
		Model: model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: summaryUserPrompt(req.ExistingSummary, req.Recent)},
		},
		Temperature: 0.5,
		MaxTokens:   1000,
	})
	if err != nil {
		return req.ExistingSummary, err
	}
	return acceptSummary(req.ExistingSummary, content), nil
}

func (n *openAINarrator) complete(ctx context.Context, chatReq openaigo.ChatCompletionRequest) (string, error) {
	n.logger.Debug("Sending chat completion", zap.String("model", chatReq.Model), zap.Int("messages", len(chatReq.Messages)))
	resp, err := n.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response from model %s", ErrGenerationFailed, chatReq.Model)
	}
	n.logger.Debug("Chat completion received",
		zap.String("model", chatReq.Model),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
