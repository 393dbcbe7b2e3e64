package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novel-client/internal/models"
)

// StoryAPI - мок client.StoryAPI.
type StoryAPI struct {
	mock.Mock
}

func (m *StoryAPI) Health(ctx context.Context) (*models.HealthResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*models.HealthResponse)
	return resp, args.Error(1)
}

func (m *StoryAPI) ListTemplates(ctx context.Context) ([]models.Template, error) {
	args := m.Called(ctx)
	templates, _ := args.Get(0).([]models.Template)
	return templates, args.Error(1)
}

func (m *StoryAPI) CreateSession(ctx context.Context, userID, templateID string, title *string) (*models.CreatedSession, error) {
	args := m.Called(ctx, userID, templateID, title)
	created, _ := args.Get(0).(*models.CreatedSession)
	return created, args.Error(1)
}

func (m *StoryAPI) ListSessions(ctx context.Context, userID string, includeCompleted bool) ([]models.SessionMetadata, error) {
	args := m.Called(ctx, userID, includeCompleted)
	sessions, _ := args.Get(0).([]models.SessionMetadata)
	return sessions, args.Error(1)
}

func (m *StoryAPI) GetSession(ctx context.Context, storyID string) (*models.SessionDetail, error) {
	args := m.Called(ctx, storyID)
	detail, _ := args.Get(0).(*models.SessionDetail)
	return detail, args.Error(1)
}

func (m *StoryAPI) GenerateTurn(ctx context.Context, req models.GenerateRequest) (*models.StoryResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.StoryResponse)
	return resp, args.Error(1)
}

func (m *StoryAPI) CompleteSession(ctx context.Context, storyID string) (*models.StatusResponse, error) {
	args := m.Called(ctx, storyID)
	resp, _ := args.Get(0).(*models.StatusResponse)
	return resp, args.Error(1)
}

func (m *StoryAPI) ContinueSession(ctx context.Context, storyID string) (*models.StatusResponse, error) {
	args := m.Called(ctx, storyID)
	resp, _ := args.Get(0).(*models.StatusResponse)
	return resp, args.Error(1)
}

func (m *StoryAPI) SummarizeSession(ctx context.Context, storyID string) (*models.SummarizeResponse, error) {
	args := m.Called(ctx, storyID)
	resp, _ := args.Get(0).(*models.SummarizeResponse)
	return resp, args.Error(1)
}
