package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"novel-client/internal/auth"
	"novel-client/internal/config"
	"novel-client/internal/devserver"
	"novel-client/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadDevServer(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.Output,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("basePath", cfg.BasePath),
		zap.String("narrator", cfg.Narrator.Kind),
	)

	// --- Dependency Injection ---
	narrator, err := devserver.NewNarrator(cfg.Narrator, log)
	if err != nil {
		zap.L().Fatal("Failed to create narrator", zap.Error(err))
	}
	store := devserver.NewStore()
	stories := devserver.NewStoryService(store, narrator, log)

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		zap.L().Fatal("Failed to create token issuer", zap.Error(err))
	}
	authSvc := auth.NewService(auth.NewMemoryRepository(), issuer, cfg.PasswordPepper, log)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = devserver.Seed(seedCtx, cfg.Seed, store, authSvc, log)
	seedCancel()
	if err != nil {
		zap.L().Fatal("Failed to seed data", zap.Error(err))
	}

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	router := devserver.NewRouter(devserver.RouterDeps{
		BasePath:       cfg.BasePath,
		CORSOrigins:    cfg.CORSOrigins,
		Store:          store,
		Stories:        stories,
		Auth:           authSvc,
		Logger:         log,
		LoginRateLimit: cfg.LoginRateLimit,
		Metrics:        true,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Генерация хода ждет рассказчика
		WriteTimeout: cfg.Narrator.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("addr", srv.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Waiting for background summaries...")
	stories.Close()
	zap.L().Info("Server exiting")
}
