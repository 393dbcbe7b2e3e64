package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlayer_Defaults(t *testing.T) {
	cfg, err := LoadPlayer()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, UserStoreFile, cfg.UserStore)
	assert.Nil(t, cfg.Temperature)
}

func TestLoadPlayer_Overrides(t *testing.T) {
	t.Setenv("NOVEL_API_URL", "https://tales.example.com/api")
	t.Setenv("NOVEL_USER_STORE", "Redis")
	t.Setenv("NOVEL_TEMPERATURE", "0.4")
	t.Setenv("NOVEL_REDIS_PASSWORD", "pw")

	cfg, err := LoadPlayer()
	require.NoError(t, err)
	assert.Equal(t, "https://tales.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, UserStoreRedis, cfg.UserStore)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, *cfg.Temperature, 1e-9)
	assert.Equal(t, "pw", cfg.RedisPassword)
}

func TestLoadPlayer_Invalid(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		t.Setenv("NOVEL_USER_STORE", "s3")
		_, err := LoadPlayer()
		assert.Error(t, err)
	})
	t.Run("temperature", func(t *testing.T) {
		t.Setenv("NOVEL_TEMPERATURE", "1.2")
		_, err := LoadPlayer()
		assert.Error(t, err)
	})
}

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	old := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = old })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte(" from-file \n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")

	v, err := ReadSecret("jwt_secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-file", v, "файл приоритетнее окружения")

	v, err = ReadSecret("password_pepper", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = ReadSecret("missing", "NOVEL_TEST_UNSET_SECRET")
	assert.Error(t, err)
}

func TestLoadDevServer(t *testing.T) {
	old := secretsDir
	secretsDir = t.TempDir()
	t.Cleanup(func() { secretsDir = old })

	t.Run("missing secrets", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadDevServer("")
		assert.Error(t, err)
	})

	t.Run("env only", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "jwt")
		t.Setenv("PASSWORD_PEPPER", "pepper")
		t.Setenv("DEVSERVER_PORT", "9001")

		cfg, err := LoadDevServer("")
		require.NoError(t, err)
		assert.Equal(t, "9001", cfg.Port)
		assert.Equal(t, "/api", cfg.BasePath)
		assert.Equal(t, NarratorScripted, cfg.Narrator.Kind)
		assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
		assert.True(t, cfg.Seed.SampleStory)
		assert.Equal(t, "jwt", cfg.JWTSecret)
	})

	t.Run("yaml file", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "jwt")
		t.Setenv("PASSWORD_PEPPER", "pepper")
		path := filepath.Join(t.TempDir(), "devserver.yml")
		yml := "port: \"8100\"\nnarrator:\n  kind: ollama\n  model: llama3\nseed:\n  admin_username: root\n"
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

		cfg, err := LoadDevServer(path)
		require.NoError(t, err)
		assert.Equal(t, "8100", cfg.Port)
		assert.Equal(t, NarratorOllama, cfg.Narrator.Kind)
		assert.Equal(t, "llama3", cfg.Narrator.Model)
		assert.Equal(t, "root", cfg.Seed.AdminUsername)
		assert.Equal(t, "http://localhost:11434", cfg.Narrator.OllamaHost)
	})

	t.Run("openai requires key", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "jwt")
		t.Setenv("PASSWORD_PEPPER", "pepper")
		t.Setenv("NARRATOR", "openai")
		t.Setenv("OPENAI_API_KEY", "")
		_, err := LoadDevServer("")
		assert.Error(t, err)
	})
}
