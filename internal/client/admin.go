package client

import (
	"context"

	"novel-client/internal/models"
)

// AdminAPI - управление типами историй, шаблонами и промптами.
// Все вызовы требуют токен пользователя с ролью ROLE_ADMIN.
type AdminAPI interface {
	CreateStoryType(ctx context.Context, in models.StoryTypeInput) (*models.StoryTypeDetail, error)
	ListStoryTypes(ctx context.Context) ([]models.StoryTypeBasic, error)
	GetStoryType(ctx context.Context, id string) (*models.StoryTypeDetail, error)
	UpdateStoryType(ctx context.Context, id string, in models.StoryTypeInput) (*models.StoryTypeDetail, error)
	// DeleteStoryType: 409, если от типа зависят шаблоны.
	DeleteStoryType(ctx context.Context, id string) error

	CreateBaseStory(ctx context.Context, in models.BaseStoryInput) (*models.BaseStoryRef, error)
	GetBaseStory(ctx context.Context, id string) (*models.BaseStoryDetail, error)
	UpdateBaseStory(ctx context.Context, id string, in models.BaseStoryInput) (*models.BaseStoryRef, error)
	// DeleteBaseStory: 409, если по шаблону есть истории пользователей.
	DeleteBaseStory(ctx context.Context, id string) error
	SetBaseStoryActive(ctx context.Context, id string, active bool) (*models.ToggleResponse, error)

	CreatePrompt(ctx context.Context, in models.PromptInput) (*models.PromptSimple, error)
	ListPrompts(ctx context.Context) ([]models.PromptSimple, error)
	DeletePrompt(ctx context.Context, id string) error
	AssignPrompt(ctx context.Context, promptID, storyTypeID string) error
	RemovePrompt(ctx context.Context, storyTypeID, promptID string) error
}
