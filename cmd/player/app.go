package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"novel-client/internal/client"
	"novel-client/internal/config"
	"novel-client/internal/console"
	"novel-client/internal/logger"
	"novel-client/internal/models"
	"novel-client/internal/session"
	"novel-client/internal/userstore"
)

const pushJobName = "novel_player"

// app - зависимости одной команды. Создаются в PersistentPreRunE, закрываются в PersistentPostRun.
type app struct {
	in  io.Reader
	out io.Writer

	// флаги
	apiURL    string
	noColor   bool
	assumeYes bool

	cfg      *config.PlayerConfig
	log      *zap.Logger
	console  *console.Console
	registry *prometheus.Registry
	api      *client.APIClient
	stories  client.StoryAPI
	users    userstore.Store
	redis    *redis.Client
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "player",
		Short:         "Console client for the interactive fiction backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Backend base URL (overrides NOVEL_API_URL)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVarP(&a.assumeYes, "yes", "y", false, "Do not ask for confirmation of destructive operations")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTemplatesCmd(a),
		newStoriesCmd(a),
		newSummarizeCmd(a),
		newPlayCmd(a),
		newAdminCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadPlayer()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = a.apiURL
	}
	a.cfg = cfg

	a.log, err = logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, OutputPath: cfg.LogFile})
	if err != nil {
		return err
	}
	a.console = console.New(a.in, a.out, a.noColor)

	a.registry = prometheus.NewRegistry()
	a.api, err = client.NewAPIClient(cfg.APIBaseURL, cfg.Timeout, a.log, client.NewMetrics(a.registry))
	if err != nil {
		return err
	}
	a.stories, err = client.NewStoryClient(a.api, a.log)
	if err != nil {
		return err
	}

	a.users, err = a.openUserStore(ctx)
	if err != nil {
		return err
	}
	a.log.Debug("Player initialized",
		zap.String("apiUrl", cfg.APIBaseURL),
		zap.String("profile", cfg.Profile),
		zap.String("userStore", cfg.UserStore),
	)
	return nil
}

func (a *app) openUserStore(ctx context.Context) (userstore.Store, error) {
	switch a.cfg.UserStore {
	case config.UserStoreRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.RedisAddr, err)
		}
		return userstore.NewRedisStore(a.redis, a.cfg.Profile, a.log), nil
	default:
		path := a.cfg.UserStorePath
		if path == "" {
			var err error
			if path, err = userstore.DefaultPath(a.cfg.Profile); err != nil {
				return nil, err
			}
		}
		return userstore.NewFileStore(path, a.log), nil
	}
}

func (a *app) close() {
	if a.cfg != nil && a.cfg.PushgatewayURL != "" && a.registry != nil {
		a.pushMetrics()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// pushMetrics отправляет метрики запросов этого запуска в Pushgateway.
func (a *app) pushMetrics() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	pusher := push.New(a.cfg.PushgatewayURL, pushJobName).
		Gatherer(a.registry).
		Grouping("instance", instanceID)
	if err := pusher.Push(); err != nil {
		a.log.Warn("Failed to push metrics to Pushgateway", zap.String("url", a.cfg.PushgatewayURL), zap.Error(err))
		return
	}
	a.log.Debug("Metrics pushed", zap.String("instance", instanceID))
}

// currentUser возвращает вошедшего пользователя.
func (a *app) currentUser(ctx context.Context) (*models.CurrentUser, error) {
	user, err := a.users.Load(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNoCurrentUser) {
			return nil, fmt.Errorf("%w: run `player login` first", err)
		}
		return nil, err
	}
	return user, nil
}

func (a *app) newController(userID string) (*session.Controller, error) {
	return session.NewController(a.stories, userID, session.GenerationConfig{
		StoryModel:          a.cfg.StoryModel,
		SummaryModel:        a.cfg.SummaryModel,
		Temperature:         a.cfg.Temperature,
		SystemPrompt:        a.cfg.SystemPrompt,
		SummarySystemPrompt: a.cfg.SummarySystemPrompt,
	}, a.log)
}
