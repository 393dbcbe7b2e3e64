package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"novel-client/internal/models"
)

// FileStore хранит запись в JSON файле с правами 0600.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *zap.Logger
}

// DefaultPath - путь файла профиля в пользовательском каталоге конфигурации.
func DefaultPath(profile string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(dir, "novel-client", profile+".json"), nil
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, now: time.Now, logger: logger.Named("FileUserStore")}
}

func (s *FileStore) Load(_ context.Context) (*models.CurrentUser, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNoCurrentUser
		}
		return nil, fmt.Errorf("failed to read current user file: %w", err)
	}

	var user models.CurrentUser
	if err := json.Unmarshal(data, &user); err != nil {
		s.logger.Warn("Current user file is corrupted, discarding", zap.String("path", s.path), zap.Error(err))
		_ = os.Remove(s.path)
		return nil, models.ErrNoCurrentUser
	}
	if user.Expired(s.now()) {
		s.logger.Info("Stored access token expired, discarding", zap.String("user_id", user.UserID))
		_ = os.Remove(s.path)
		return nil, models.ErrNoCurrentUser
	}
	return &user, nil
}

func (s *FileStore) Save(_ context.Context, user *models.CurrentUser) error {
	if user == nil {
		return errors.New("current user cannot be nil")
	}
	if user.SavedAt.IsZero() {
		user.SavedAt = s.now()
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".current-user-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write current user: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace current user file: %w", err)
	}

	s.logger.Debug("Current user saved", zap.String("path", s.path), zap.String("user_id", user.UserID))
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove current user file: %w", err)
	}
	return nil
}
