package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"novel-client/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesToRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "player.log")

	log, err := logger.New(logger.Config{Level: "debug", Encoding: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("turn generated")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"turn generated"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "player.log")

	log, err := logger.New(logger.Config{Level: "chatty", OutputPath: path})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}
