package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

type authClient struct {
	api    *APIClient
	logger *zap.Logger
}

// NewAuthClient создает AuthAPI поверх APIClient.
func NewAuthClient(api *APIClient, logger *zap.Logger) (AuthAPI, error) {
	if api == nil {
		return nil, fmt.Errorf("api client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authClient{api: api, logger: logger.Named("AuthClient")}, nil
}

// Login отправляет учетные данные в заголовке Authorization (Basic) и получает токен.
func (c *authClient) Login(ctx context.Context, identifier, secret string) (*models.LoginResponse, error) {
	log := c.logger.With(zap.String("username", identifier))
	req := Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Auth:   Credentials{Identifier: identifier, Secret: secret},
	}

	var resp models.LoginResponse
	if err := c.api.DoJSON(ctx, req, &resp); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			log.Info("Login rejected")
			return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
		}
		log.Error("Login request failed", zap.Error(err))
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		log.Error("Login response has no access token")
		return nil, fmt.Errorf("login failed: %w", ErrNoPayload)
	}

	log.Info("Login succeeded", zap.String("user_id", resp.User.ID), zap.Strings("roles", resp.User.Roles))
	return &resp, nil
}
