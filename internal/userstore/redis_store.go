package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"novel-client/internal/models"
)

// RedisStore хранит запись под ключом novel-client:current-user:<profile>.
// TTL ключа совпадает с оставшимся временем жизни токена.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, profile string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("novel-client:current-user:%s", profile),
		now:    time.Now,
		logger: logger.Named("RedisUserStore"),
	}
}

func (s *RedisStore) Load(ctx context.Context) (*models.CurrentUser, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNoCurrentUser
		}
		s.logger.Error("Failed to get current user from redis", zap.String("key", s.key), zap.Error(err))
		return nil, fmt.Errorf("failed to get current user from redis: %w", err)
	}

	var user models.CurrentUser
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Warn("Stored current user is corrupted, discarding", zap.String("key", s.key), zap.Error(err))
		_ = s.client.Del(ctx, s.key).Err()
		return nil, models.ErrNoCurrentUser
	}
	if user.Expired(s.now()) {
		_ = s.client.Del(ctx, s.key).Err()
		return nil, models.ErrNoCurrentUser
	}
	return &user, nil
}

func (s *RedisStore) Save(ctx context.Context, user *models.CurrentUser) error {
	if user == nil {
		return errors.New("current user cannot be nil")
	}
	now := s.now()
	if user.SavedAt.IsZero() {
		user.SavedAt = now
	}

	var ttl time.Duration
	if !user.ExpiresAt.IsZero() {
		ttl = user.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return fmt.Errorf("refusing to store an already expired token: %w", models.ErrTokenExpired)
		}
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, ttl).Err(); err != nil {
		s.logger.Error("Failed to save current user to redis", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("failed to save current user to redis: %w", err)
	}
	s.logger.Debug("Current user saved", zap.String("key", s.key), zap.Duration("ttl", ttl))
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete current user from redis: %w", err)
	}
	return nil
}
