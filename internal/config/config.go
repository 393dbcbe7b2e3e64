package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Бэкенды хранения текущего пользователя.
const (
	UserStoreFile  = "file"
	UserStoreRedis = "redis"
)

// PlayerConfig - настройки консольного клиента.
type PlayerConfig struct {
	APIBaseURL string        `envconfig:"NOVEL_API_URL" default:"http://localhost:8000/api"`
	Timeout    time.Duration `envconfig:"NOVEL_API_TIMEOUT" default:"90s"`
	Profile    string        `envconfig:"NOVEL_PROFILE" default:"default"`

	// Где хранится запись о вошедшем пользователе
	UserStore     string `envconfig:"NOVEL_USER_STORE" default:"file"`
	UserStorePath string `envconfig:"NOVEL_USER_STORE_PATH"`
	RedisAddr     string `envconfig:"NOVEL_REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"NOVEL_REDIS_DB" default:"0"`
	// Секретное поле без envconfig тега
	RedisPassword string `ignored:"true"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`
	LogFile     string `envconfig:"LOG_FILE" default:"stderr"`

	// Параметры генерации, уходят бэкенду как debugConfig
	StoryModel          string   `envconfig:"NOVEL_STORY_MODEL"`
	SummaryModel        string   `envconfig:"NOVEL_SUMMARY_MODEL"`
	Temperature         *float64 `envconfig:"NOVEL_TEMPERATURE"`
	SystemPrompt        string   `envconfig:"NOVEL_SYSTEM_PROMPT"`
	SummarySystemPrompt string   `envconfig:"NOVEL_SUMMARY_SYSTEM_PROMPT"`

	PushgatewayURL string `envconfig:"NOVEL_PUSHGATEWAY_URL"`
}

// LoadPlayer загружает настройки клиента из переменных окружения.
func LoadPlayer() (*PlayerConfig, error) {
	var cfg PlayerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load player config: %w", err)
	}

	cfg.UserStore = strings.ToLower(strings.TrimSpace(cfg.UserStore))
	switch cfg.UserStore {
	case UserStoreFile, UserStoreRedis:
	default:
		return nil, fmt.Errorf("unsupported NOVEL_USER_STORE %q (expected %q or %q)", cfg.UserStore, UserStoreFile, UserStoreRedis)
	}
	if cfg.Profile == "" {
		return nil, fmt.Errorf("NOVEL_PROFILE cannot be empty")
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 1) {
		return nil, fmt.Errorf("NOVEL_TEMPERATURE must be within [0, 1], got %v", *cfg.Temperature)
	}

	if cfg.UserStore == UserStoreRedis {
		// Пароль redis необязателен
		cfg.RedisPassword, _ = ReadSecret("redis_password", "NOVEL_REDIS_PASSWORD")
	}
	return &cfg, nil
}
