package client

import (
	"context"

	"novel-client/internal/models"
)

// AuthAPI - выдача токена доступа по учетным данным.
type AuthAPI interface {
	Login(ctx context.Context, identifier, secret string) (*models.LoginResponse, error)
}
