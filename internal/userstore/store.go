package userstore

import (
	"context"

	"novel-client/internal/models"
)

// Store хранит запись о вошедшем пользователе между запусками.
// Load возвращает models.ErrNoCurrentUser, если записи нет или её токен истёк.
type Store interface {
	Load(ctx context.Context) (*models.CurrentUser, error)
	Save(ctx context.Context, user *models.CurrentUser) error
	Clear(ctx context.Context) error
}
