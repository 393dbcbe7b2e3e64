package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"novel-client/internal/auth"
	"novel-client/internal/client"
	"novel-client/internal/config"
	"novel-client/internal/console"
	"novel-client/internal/devserver"
	"novel-client/internal/models"
	"novel-client/internal/session"
)

func startDevserver(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := auth.NewTokenIssuer("player-test-secret", time.Hour)
	require.NoError(t, err)
	authSvc := auth.NewService(auth.NewMemoryRepository(), issuer, "", zap.NewNop())
	store := devserver.NewStore()
	stories := devserver.NewStoryService(store, devserver.NewScriptedNarrator(), zap.NewNop())
	require.NoError(t, devserver.Seed(context.Background(), config.SeedConfig{
		AdminUsername:  "admin",
		AdminPassword:  "admin-pass",
		PlayerUsername: "player",
		PlayerPassword: "player-pass",
		SampleStory:    true,
	}, store, authSvc, zap.NewNop()))

	srv := httptest.NewServer(devserver.NewRouter(devserver.RouterDeps{
		BasePath: "/api",
		Store:    store,
		Stories:  stories,
		Auth:     authSvc,
	}))
	t.Cleanup(func() {
		srv.Close()
		stories.Close()
	})
	return srv.URL + "/api"
}

func TestRunGame(t *testing.T) {
	ctx := context.Background()
	baseURL := startDevserver(t)
	api, err := client.NewAPIClient(baseURL, 5*time.Second, zap.NewNop(), client.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)
	stories, err := client.NewStoryClient(api, zap.NewNop())
	require.NoError(t, err)
	templates, err := stories.ListTemplates(ctx)
	require.NoError(t, err)

	ctrl, err := session.NewController(stories, "u-1", session.GenerationConfig{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx, templates[0].ID, nil))

	// выбор, неверный номер, завершение, "Start a new story"
	in := strings.NewReader("1\n9\n/complete\n2\n")
	var out bytes.Buffer
	exit, err := runGame(ctx, ctrl, console.New(in, &out, true), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, exitNewStory, exit)

	got := out.String()
	assert.Contains(t, got, "Chapter 1.")
	assert.Contains(t, got, "Chapter 2.")
	assert.Contains(t, got, "choice 9 is out of range")
	assert.Contains(t, got, "The story is complete.")
	assert.Contains(t, got, session.ChoiceStartNewStory)
	assert.Equal(t, session.Completed, ctrl.State())
}

func TestRunGame_InputClosedQuits(t *testing.T) {
	ctx := context.Background()
	baseURL := startDevserver(t)
	api, err := client.NewAPIClient(baseURL, 5*time.Second, zap.NewNop(), nil)
	require.NoError(t, err)
	stories, err := client.NewStoryClient(api, zap.NewNop())
	require.NoError(t, err)
	ctrl, err := session.NewController(stories, "u-1", session.GenerationConfig{}, zap.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	exit, err := runGame(ctx, ctrl, console.New(strings.NewReader("/retry\n"), &out, true), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, exitQuit, exit)
	assert.Contains(t, out.String(), "no active session")
}

func TestPickByIndexOrID(t *testing.T) {
	ids := []string{"a", "b"}

	id, err := pickByIndexOrID(ids, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	id, err = pickByIndexOrID(ids, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	_, err = pickByIndexOrID(ids, "3")
	assert.Error(t, err)
	_, err = pickByIndexOrID(ids, "zzz")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// cli запускает команду player с отдельным вводом и выводом.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T) *cli {
	baseURL := startDevserver(t)
	t.Setenv("NOVEL_API_URL", baseURL)
	t.Setenv("NOVEL_USER_STORE", "file")
	t.Setenv("NOVEL_USER_STORE_PATH", filepath.Join(t.TempDir(), "user.json"))
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "player.log"))
	return &cli{t: t}
}

func (c *cli) run(input string, args ...string) (string, error) {
	var out bytes.Buffer
	a := &app{in: strings.NewReader(input), out: &out}
	root := newRootCmd(a)
	root.SetArgs(append(args, "--no-color"))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_LoginAndPlay(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("", "stories")
	assert.ErrorIs(t, err, models.ErrNoCurrentUser)

	out, err := c.run("", "login", "-u", "player", "-p", "player-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as player")

	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "player")

	out, err = c.run("", "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "The Fox and the Lantern")

	out, err = c.run("1\n/quit\n", "play", "new", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Chapter 1.")
	assert.Contains(t, out, "Chapter 2.")

	out, err = c.run("", "stories")
	require.NoError(t, err)
	assert.Contains(t, out, "The Fox and the Lantern's Adventure")

	out, err = c.run("/quit\n", "play", "resume", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Chapter 2.")

	_, err = c.run("", "admin", "types", "list")
	assert.ErrorIs(t, err, models.ErrForbidden)

	out, err = c.run("", "logout")
	require.NoError(t, err)
	out, err = c.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCLI_AdminCommands(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "login", "-u", "admin", "-p", "admin-pass")
	require.NoError(t, err)

	out, err := c.run("", "admin", "types", "create",
		"--name", "Legend", "--extraction-prompt", "e", "--analysis-prompt", "d", "--summary-prompt", "s")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Legend"`)

	out, err = c.run("", "admin", "prompts", "create", "--name", "Intro", "--system-prompt", "Tell it", "--turn-end", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `"turn_end": 0`)

	// Отказ от подтверждения ничего не удаляет
	out, err = c.run("n\n", "admin", "types", "delete", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")

	_, err = c.run("", "admin", "types", "delete", "missing", "--yes")
	assert.ErrorIs(t, err, models.ErrNotFound)

	out, err = c.run("", "templates")
	require.NoError(t, err)
	require.Contains(t, out, "The Fox and the Lantern")
}
