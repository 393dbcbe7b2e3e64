package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"novel-client/internal/auth"
	"novel-client/internal/config"
	"novel-client/internal/middleware"
	"novel-client/internal/models"
)

// RouterDeps - зависимости HTTP роутера devserver.
type RouterDeps struct {
	BasePath    string
	CORSOrigins []string
	Store       *Store
	Stories     *StoryService
	Auth        *auth.Service
	Logger      *zap.Logger

	// LoginRateLimit - запросов к /auth/login в минуту с одного IP, 0 отключает ограничение
	LoginRateLimit uint
	// Metrics включает /metrics (go-gin-prometheus, глобальный реестр)
	Metrics bool
}

// NewRouter собирает gin.Engine: логирование, recovery, CORS, игровые, auth и админские маршруты.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(deps.CORSOrigins) == 0 || (len(deps.CORSOrigins) == 1 && deps.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	api := router.Group(normalizeBasePath(deps.BasePath))

	h := NewHandler(deps.Store, deps.Stories, logger)
	h.RegisterGameRoutes(api)

	var loginMiddlewares []gin.HandlerFunc
	if deps.LoginRateLimit > 0 {
		loginMiddlewares = append(loginMiddlewares, loginRateLimiter(deps.LoginRateLimit, logger))
	}
	auth.NewHandler(deps.Auth, logger).RegisterRoutes(api, loginMiddlewares...)

	admin := api.Group("/admin", middleware.BearerAuth(deps.Auth.VerifyAccessToken, logger, models.RoleAdmin))
	h.RegisterAdminRoutes(admin)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Not Found"})
	})

	if deps.Metrics {
		// Middleware подключается после регистрации маршрутов
		p := ginprometheus.NewPrometheus("devserver")
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if route := c.FullPath(); route != "" {
				return route
			}
			return "unmatched"
		}
		p.Use(router)
	}
	return router
}

// loginRateLimiter ограничивает попытки входа с одного IP.
func loginRateLimiter(limit uint, logger *zap.Logger) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Detail: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}

// NewNarrator создает рассказчика по конфигурации.
func NewNarrator(cfg config.NarratorConfig, logger *zap.Logger) (Narrator, error) {
	switch cfg.Kind {
	case config.NarratorScripted:
		return NewScriptedNarrator(), nil
	case config.NarratorOpenAI:
		return NewOpenAINarrator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, logger)
	case config.NarratorOllama:
		return NewOllamaNarrator(cfg.OllamaHost, cfg.Model, cfg.Timeout, logger)
	}
	return nil, fmt.Errorf("unsupported narrator %q", cfg.Kind)
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	return "/" + strings.Trim(p, "/")
}
