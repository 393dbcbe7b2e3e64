package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"novel-client/internal/models"
)

// UserRecord - пользователь вместе с хешем пароля.
type UserRecord struct {
	models.User
	PasswordHash string
}

// UserRepository - хранилище учетных записей.
type UserRepository interface {
	CreateUser(ctx context.Context, user *UserRecord) error
	GetUserByUsername(ctx context.Context, username string) (*UserRecord, error)
}

// MemoryRepository хранит пользователей в памяти процесса.
type MemoryRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*UserRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUsername: make(map[string]*UserRecord)}
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return fmt.Errorf("user %q already exists: %w", user.Username, models.ErrConflict)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := *user
	r.byUsername[user.Username] = &stored
	return nil
}

func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, models.ErrNotFound)
	}
	found := *user
	return &found, nil
}
