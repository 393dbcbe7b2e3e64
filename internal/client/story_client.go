package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

type storyClient struct {
	api    *APIClient
	logger *zap.Logger
}

// NewStoryClient создает StoryAPI поверх APIClient.
func NewStoryClient(api *APIClient, logger *zap.Logger) (StoryAPI, error) {
	if api == nil {
		return nil, fmt.Errorf("api client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &storyClient{api: api, logger: logger.Named("StoryClient")}, nil
}

func (c *storyClient) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := c.api.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/health"}, &resp); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return &resp, nil
}

func (c *storyClient) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := c.api.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/base-stories"}, &templates); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (c *storyClient) CreateSession(ctx context.Context, userID, templateID string, title *string) (*models.CreatedSession, error) {
	body := models.CreateSessionRequest{UserID: userID, BaseStoryID: templateID, Title: title}
	var created models.CreatedSession
	if err := c.api.DoJSON(ctx, Request{Method: http.MethodPost, Path: "/stories", Body: body}, &created); err != nil {
		return nil, fmt.Errorf("failed to create session from template %s: %w", templateID, err)
	}
	c.logger.Info("Session created", zap.String("story_id", created.ID), zap.String("template_id", templateID))
	return &created, nil
}

func (c *storyClient) ListSessions(ctx context.Context, userID string, includeCompleted bool) ([]models.SessionMetadata, error) {
	query := url.Values{}
	query.Set("userId", userID)
	query.Set("includeCompleted", strconv.FormatBool(includeCompleted))

	var sessions []models.SessionMetadata
	if err := c.api.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/stories", Query: query}, &sessions); err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}

func (c *storyClient) GetSession(ctx context.Context, storyID string) (*models.SessionDetail, error) {
	var detail models.SessionDetail
	req := Request{Method: http.MethodGet, Path: "/stories/" + escapeSegment(storyID), Route: "/stories/{id}"}
	if err := c.api.DoJSON(ctx, req, &detail); err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", storyID, err)
	}
	return &detail, nil
}

func (c *storyClient) GenerateTurn(ctx context.Context, genReq models.GenerateRequest) (*models.StoryResponse, error) {
	var resp models.StoryResponse
	req := Request{Method: http.MethodPost, Path: "/generate-segment", Body: genReq}
	if err := c.api.DoJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to generate turn %d for story %s: %w", genReq.CurrentTurnNumber, genReq.StoryID, err)
	}
	return &resp, nil
}

func (c *storyClient) CompleteSession(ctx context.Context, storyID string) (*models.StatusResponse, error) {
	return c.postStatus(ctx, storyID, "complete")
}

func (c *storyClient) ContinueSession(ctx context.Context, storyID string) (*models.StatusResponse, error) {
	return c.postStatus(ctx, storyID, "continue")
}

func (c *storyClient) postStatus(ctx context.Context, storyID, verb string) (*models.StatusResponse, error) {
	var status models.StatusResponse
	req := Request{
		Method: http.MethodPost,
		Path:   "/stories/" + escapeSegment(storyID) + "/" + verb,
		Route:  "/stories/{id}/" + verb,
	}
	if err := c.api.DoJSON(ctx, req, &status); err != nil {
		return nil, fmt.Errorf("failed to %s session %s: %w", verb, storyID, err)
	}
	return &status, nil
}

func (c *storyClient) SummarizeSession(ctx context.Context, storyID string) (*models.SummarizeResponse, error) {
	var resp models.SummarizeResponse
	req := Request{Method: http.MethodPost, Path: "/summarize", Body: models.SummarizeRequest{StoryID: storyID}}
	if err := c.api.DoJSON(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to summarize session %s: %w", storyID, err)
	}
	return &resp, nil
}
