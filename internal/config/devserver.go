package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Виды рассказчиков devserver.
const (
	NarratorScripted = "scripted"
	NarratorOpenAI   = "openai"
	NarratorOllama   = "ollama"
)

// DevServerConfig - настройки сервера разработки.
type DevServerConfig struct {
	Port        string        `yaml:"port" env:"DEVSERVER_PORT" env-default:"8000"`
	BasePath    string        `yaml:"base_path" env:"DEVSERVER_BASE_PATH" env-default:"/api"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"1h"`
	// Запросов к /auth/login в минуту с одного IP, 0 - без ограничения
	LoginRateLimit uint           `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
	Log            LogConfig      `yaml:"log"`
	Narrator       NarratorConfig `yaml:"narrator"`
	Seed           SeedConfig     `yaml:"seed"`

	// Секреты: Docker secret файл или переменная окружения
	JWTSecret      string `yaml:"-" env:"-"`
	PasswordPepper string `yaml:"-" env:"-"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	Output   string `yaml:"output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type NarratorConfig struct {
	Kind          string        `yaml:"kind" env:"NARRATOR" env-default:"scripted"`
	Model         string        `yaml:"model" env:"NARRATOR_MODEL"`
	OpenAIBaseURL string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL"`
	OllamaHost    string        `yaml:"ollama_host" env:"OLLAMA_HOST" env-default:"http://localhost:11434"`
	Timeout       time.Duration `yaml:"timeout" env:"NARRATOR_TIMEOUT" env-default:"120s"`
	// Секретное поле
	OpenAIAPIKey string `yaml:"-" env:"-"`
}

// SeedConfig - начальные данные. Пустой пароль означает, что он будет сгенерирован и выведен в лог.
type SeedConfig struct {
	AdminUsername  string `yaml:"admin_username" env:"SEED_ADMIN_USERNAME" env-default:"admin"`
	AdminPassword  string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	PlayerUsername string `yaml:"player_username" env:"SEED_PLAYER_USERNAME" env-default:"player"`
	PlayerPassword string `yaml:"player_password" env:"SEED_PLAYER_PASSWORD"`
	SampleStory    bool   `yaml:"sample_story" env:"SEED_SAMPLE_STORY" env-default:"true"`
}

// LoadDevServer читает YAML файл (если path не пуст), затем переменные окружения, затем секреты.
func LoadDevServer(path string) (*DevServerConfig, error) {
	var cfg DevServerConfig
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read devserver config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load devserver config: %w", err)
	}

	var err error
	if cfg.JWTSecret, err = ReadSecret("jwt_secret", "JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.PasswordPepper, err = ReadSecret("password_pepper", "PASSWORD_PEPPER"); err != nil {
		return nil, err
	}

	switch cfg.Narrator.Kind {
	case NarratorScripted, NarratorOllama:
	case NarratorOpenAI:
		if cfg.Narrator.OpenAIAPIKey, err = ReadSecret("openai_api_key", "OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported narrator %q", cfg.Narrator.Kind)
	}
	return &cfg, nil
}
