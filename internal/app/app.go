package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agamify/server/internal/module/auth"
	"github.com/agamify/server/internal/module/github"
	"github.com/agamify/server/internal/module/repo"
	"github.com/agamify/server/internal/module/user"
	"github.com/agamify/server/internal/shared/cache"
	"github.com/agamify/server/internal/shared/config"
	"github.com/agamify/server/internal/shared/database"
	"github.com/agamify/server/internal/shared/logger"
	"github.com/agamify/server/internal/shared/metrics"
	"github.com/agamify/server/internal/shared/middleware"
)

// App wires configuration, storage, and the HTTP modules together.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}

// New assembles the application from configuration.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("agamify"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&user.User{},
		&repo.Repository{},
		&repo.Branch{},
		&repo.Language{},
		&repo.RepoUser{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// Redis is optional: without it, OAuth state falls back to memory and
	// import rate limiting is disabled.
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, continuing without it", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	app.router = app.setupRouter()
	app.registerModules()

	return app, nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases database and cache connections.
func (a *App) Stop() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	corsConfig := cors.DefaultConfig()
	if len(a.config.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = a.config.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (a *App) registerModules() {
	users := user.NewRepository(a.db)

	githubClient := github.NewClient(&a.config.GitHub, a.metrics)
	guarded := github.NewBreakerClient(githubClient, github.DefaultBreakerConfig())

	var states auth.StateStore
	if a.redis != nil {
		states = auth.NewRedisStateStore(a.redis, a.config.Auth.StateTTL)
	} else {
		states = auth.NewMemoryStateStore(a.config.Auth.StateTTL)
	}

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret:            a.config.Auth.JWTSecret,
		AccessTokenExpiry: a.config.Auth.AccessTokenExpiry,
		Issuer:            "agamify",
	})
	provider := auth.NewGithubProvider(&auth.ProviderConfig{
		ClientID:     a.config.GitHub.ClientID,
		ClientSecret: a.config.GitHub.ClientSecret,
		RedirectURL:  a.config.GitHub.RedirectURL,
	})
	authService := auth.NewService(provider, states, users, jwtManager, a.logger)
	authHandler := auth.NewHandler(authService, a.logger)

	var limiter *repo.ImportLimiter
	if a.redis != nil {
		limiter = repo.NewImportLimiter(a.redis, a.config.Import.RateLimitPerHour)
	}

	store := repo.NewStore(a.db)
	policy := repo.NewOwnerOnlyPolicy(guarded)
	repoService := repo.NewService(store, users, guarded, policy, limiter, a.metrics, a.logger)
	repoHandler := repo.NewHandler(repoService, a.config.Import.Timeout, a.logger)

	api := a.router.Group("/api/v1")
	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(authHandler.AuthMiddleware())
	repoHandler.RegisterProtectedRoutes(protected)
}
