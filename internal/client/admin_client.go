package client

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

type adminClient struct {
	api    *APIClient
	auth   Authenticator
	logger *zap.Logger
}

// NewAdminClient создает AdminAPI. auth прикладывается к каждому запросу.
func NewAdminClient(api *APIClient, auth Authenticator, logger *zap.Logger) (AdminAPI, error) {
	if api == nil {
		return nil, fmt.Errorf("api client cannot be nil")
	}
	if auth == nil {
		return nil, fmt.Errorf("admin client requires credentials")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminClient{api: api, auth: auth, logger: logger.Named("AdminClient")}, nil
}

func (c *adminClient) do(ctx context.Context, method, path, route string, body, out any) error {
	req := Request{Method: method, Path: path, Route: route, Body: body, Auth: c.auth}
	return c.api.DoJSON(ctx, req, out)
}

// --- Типы историй ---

func (c *adminClient) CreateStoryType(ctx context.Context, in models.StoryTypeInput) (*models.StoryTypeDetail, error) {
	var out models.StoryTypeDetail
	if err := c.do(ctx, http.MethodPost, "/admin/story-types", "", in, &out); err != nil {
		return nil, fmt.Errorf("failed to create story type %q: %w", in.Name, err)
	}
	c.logger.Info("Story type created", zap.String("id", out.ID), zap.String("name", out.Name))
	return &out, nil
}

func (c *adminClient) ListStoryTypes(ctx context.Context) ([]models.StoryTypeBasic, error) {
	var out []models.StoryTypeBasic
	if err := c.do(ctx, http.MethodGet, "/admin/story-types", "", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list story types: %w", err)
	}
	return out, nil
}

func (c *adminClient) GetStoryType(ctx context.Context, id string) (*models.StoryTypeDetail, error) {
	var out models.StoryTypeDetail
	if err := c.do(ctx, http.MethodGet, "/admin/story-types/"+escapeSegment(id), "/admin/story-types/{id}", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get story type %s: %w", id, err)
	}
	return &out, nil
}

func (c *adminClient) UpdateStoryType(ctx context.Context, id string, in models.StoryTypeInput) (*models.StoryTypeDetail, error) {
	var out models.StoryTypeDetail
	if err := c.do(ctx, http.MethodPut, "/admin/story-types/"+escapeSegment(id), "/admin/story-types/{id}", in, &out); err != nil {
		return nil, fmt.Errorf("failed to update story type %s: %w", id, err)
	}
	return &out, nil
}

func (c *adminClient) DeleteStoryType(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/story-types/"+escapeSegment(id), "/admin/story-types/{id}", nil, nil); err != nil {
		return fmt.Errorf("failed to delete story type %s: %w", id, err)
	}
	c.logger.Info("Story type deleted", zap.String("id", id))
	return nil
}

// --- Шаблоны ---

func (c *adminClient) CreateBaseStory(ctx context.Context, in models.BaseStoryInput) (*models.BaseStoryRef, error) {
	var out models.BaseStoryRef
	if err := c.do(ctx, http.MethodPost, "/admin/base-stories", "", in, &out); err != nil {
		return nil, fmt.Errorf("failed to create base story %q: %w", in.Title, err)
	}
	c.logger.Info("Base story created", zap.String("id", out.ID), zap.String("title", out.Title))
	return &out, nil
}

func (c *adminClient) GetBaseStory(ctx context.Context, id string) (*models.BaseStoryDetail, error) {
	var out models.BaseStoryDetail
	if err := c.do(ctx, http.MethodGet, "/admin/base-stories/"+escapeSegment(id), "/admin/base-stories/{id}", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get base story %s: %w", id, err)
	}
	return &out, nil
}

func (c *adminClient) UpdateBaseStory(ctx context.Context, id string, in models.BaseStoryInput) (*models.BaseStoryRef, error) {
	var out models.BaseStoryRef
	if err := c.do(ctx, http.MethodPut, "/admin/base-stories/"+escapeSegment(id), "/admin/base-stories/{id}", in, &out); err != nil {
		return nil, fmt.Errorf("failed to update base story %s: %w", id, err)
	}
	return &out, nil
}

func (c *adminClient) DeleteBaseStory(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/base-stories/"+escapeSegment(id), "/admin/base-stories/{id}", nil, nil); err != nil {
		return fmt.Errorf("failed to delete base story %s: %w", id, err)
	}
	c.logger.Info("Base story deleted", zap.String("id", id))
	return nil
}

func (c *adminClient) SetBaseStoryActive(ctx context.Context, id string, active bool) (*models.ToggleResponse, error) {
	var out models.ToggleResponse
	body := models.ToggleRequest{Active: &active}
	if err := c.do(ctx, http.MethodPut, "/admin/toggle-base-story/"+escapeSegment(id), "/admin/toggle-base-story/{id}", body, &out); err != nil {
		return nil, fmt.Errorf("failed to toggle base story %s: %w", id, err)
	}
	return &out, nil
}

// --- Промпты ---

func (c *adminClient) CreatePrompt(ctx context.Context, in models.PromptInput) (*models.PromptSimple, error) {
	var out models.PromptSimple
	if err := c.do(ctx, http.MethodPost, "/admin/story-prompts", "", in, &out); err != nil {
		return nil, fmt.Errorf("failed to create prompt %q: %w", in.Name, err)
	}
	return &out, nil
}

func (c *adminClient) ListPrompts(ctx context.Context) ([]models.PromptSimple, error) {
	var out []models.PromptSimple
	if err := c.do(ctx, http.MethodGet, "/admin/story-prompts/all", "", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return out, nil
}

func (c *adminClient) DeletePrompt(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/story-prompts/"+escapeSegment(id), "/admin/story-prompts/{id}", nil, nil); err != nil {
		return fmt.Errorf("failed to delete prompt %s: %w", id, err)
	}
	return nil
}

func (c *adminClient) AssignPrompt(ctx context.Context, promptID, storyTypeID string) error {
	body := models.AssignPromptRequest{PromptID: promptID, StoryTypeID: storyTypeID}
	if err := c.do(ctx, http.MethodPost, "/admin/story-types/assign-prompt", "", body, nil); err != nil {
		return fmt.Errorf("failed to assign prompt %s to story type %s: %w", promptID, storyTypeID, err)
	}
	return nil
}

func (c *adminClient) RemovePrompt(ctx context.Context, storyTypeID, promptID string) error {
	path := "/admin/story-types/" + escapeSegment(storyTypeID) + "/prompts/" + escapeSegment(promptID)
	if err := c.do(ctx, http.MethodDelete, path, "/admin/story-types/{id}/prompts/{prompt_id}", nil, nil); err != nil {
		return fmt.Errorf("failed to remove prompt %s from story type %s: %w", promptID, storyTypeID, err)
	}
	return nil
}
