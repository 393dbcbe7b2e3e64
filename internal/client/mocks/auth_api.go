package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novel-client/internal/models"
)

// AuthAPI - мок client.AuthAPI.
type AuthAPI struct {
	mock.Mock
}

func (m *AuthAPI) Login(ctx context.Context, identifier, secret string) (*models.LoginResponse, error) {
	args := m.Called(ctx, identifier, secret)
	resp, _ := args.Get(0).(*models.LoginResponse)
	return resp, args.Error(1)
}
