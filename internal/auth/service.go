package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

// Service проверяет учетные данные и выдает токены доступа.
type Service struct {
	repo   UserRepository
	issuer *TokenIssuer
	pepper string
	logger *zap.Logger
}

func NewService(repo UserRepository, issuer *TokenIssuer, pepper string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		issuer: issuer,
		pepper: pepper,
		logger: logger.Named("AuthService"),
	}
}

// Register создает пользователя с указанными ролями.
func (s *Service) Register(ctx context.Context, username, password string, roles []string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", models.ErrBadRequest)
	}
	hash, err := HashPassword(password, s.pepper)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	rec := &UserRecord{
		User:         models.User{Username: username, Roles: roles},
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, rec); err != nil {
		s.logger.Warn("Failed to register user", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	s.logger.Info("User registered", zap.String("username", username), zap.String("userID", rec.ID), zap.Strings("roles", roles))
	return &rec.User, nil
}

// Login проверяет пароль и выдает токен.
// Неизвестный пользователь и неверный пароль дают одну и ту же ошибку models.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	s.logger.Info("Login attempt", zap.String("username", username))
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, s.pepper) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username), zap.String("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.Issue(user.User)
	if err != nil {
		s.logger.Error("Failed to create token during login", zap.Error(err), zap.String("userID", user.ID))
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("User logged in successfully", zap.String("userID", user.ID))
	return &models.LoginResponse{AccessToken: token, ExpiresAt: expiresAt, User: user.User}, nil
}

// VerifyAccessToken проверяет токен доступа.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.issuer.Verify(tokenString)
	if err != nil {
		s.logger.Debug("Access token verification failed", zap.Error(err))
		return nil, err
	}
	return claims, nil
}
