package client

import (
	"context"

	"novel-client/internal/models"
)

// StoryAPI - игровые операции бэкенда историй.
type StoryAPI interface {
	Health(ctx context.Context) (*models.HealthResponse, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	CreateSession(ctx context.Context, userID, templateID string, title *string) (*models.CreatedSession, error)
	ListSessions(ctx context.Context, userID string, includeCompleted bool) ([]models.SessionMetadata, error)
	GetSession(ctx context.Context, storyID string) (*models.SessionDetail, error)
	// GenerateTurn генерирует следующий ход. Бэкенд отвечает 409, если номер хода не совпал.
	GenerateTurn(ctx context.Context, req models.GenerateRequest) (*models.StoryResponse, error)
	CompleteSession(ctx context.Context, storyID string) (*models.StatusResponse, error)
	// ContinueSession снимает отметку о завершении и возвращает актуальный номер хода.
	ContinueSession(ctx context.Context, storyID string) (*models.StatusResponse, error)
	SummarizeSession(ctx context.Context, storyID string) (*models.SummarizeResponse, error)
}
