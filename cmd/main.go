package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/controller"
	"github.com/Jobt25/First-jobt-repo/internal/database"
	"github.com/Jobt25/First-jobt-repo/internal/jobs"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/llm/gemini"
	"github.com/Jobt25/First-jobt-repo/internal/lock"
	"github.com/Jobt25/First-jobt-repo/internal/logger"
	"github.com/Jobt25/First-jobt-repo/internal/metrics"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/quota"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/Jobt25/First-jobt-repo/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Interview Session Engine API
// @version 1.0
// @description Mock job interviews driven by a language model: sessions, follow-up questions, feedback and monthly quotas.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewRedisClient,
			NewGinEngine,
		),

		// Repositories Layer
		fx.Provide(
			repository.NewAccountRepository,
			repository.NewCategoryRepository,
			repository.NewSessionRepository,
			repository.NewFeedbackRepository,
			repository.NewUsageRepository,
		),

		// Infrastructure
		fx.Provide(
			NewQuotaGate,
			NewLocker,
			NewLLMProvider,
		),

		// Services Layer
		fx.Provide(
			service.NewQuestionGenerator,
			service.NewLLMRubric,
			service.NewFeedbackEngine,
			service.NewInterviewService,
			service.NewFeedbackService,
			service.NewAnalyticsService,
			func(svc service.InterviewService, cfg *config.Config) *jobs.IdleSweeper {
				return jobs.NewIdleSweeper(svc, cfg)
			},
		),

		// API Controllers Layer
		fx.Provide(
			controller.NewInterviewController,
			controller.NewFeedbackController,
			controller.NewAnalyticsController,
			controller.NewController,
		),

		fx.Invoke(ConfigureLogger),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(StartIdleSweeper),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func ConfigureLogger(cfg *config.Config) {
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
}

// NewRedisClient returns nil when no Redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config) (redis.UniversalClient, error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, using SQL quota gate and in-process locks")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func NewQuotaGate(cfg *config.Config, rdb redis.UniversalClient, usage repository.UsageRepository, accounts repository.AccountRepository) quota.Gate {
	limits := quota.NewPlanLimitResolver(accounts, cfg)
	if cfg.Quota.Backend == "redis" && rdb != nil {
		log.Info().Msg("Using Redis quota gate")
		return quota.NewRedisGate(rdb, limits, time.Now)
	}
	return quota.NewSQLGate(usage, limits, time.Now)
}

func NewLocker(cfg *config.Config, rdb redis.UniversalClient) lock.Locker {
	if rdb != nil {
		return lock.NewRedisLocker(rdb, cfg.Interview.SessionLockTTL())
	}
	return lock.NewMemoryLocker()
}

func NewLLMProvider(lc fx.Lifecycle, cfg *config.Config) (llm.Provider, error) {
	client, err := gemini.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", controller.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func StartIdleSweeper(lc fx.Lifecycle, sweeper *jobs.IdleSweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sweeper.Start()
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop(ctx)
			return nil
		},
	})
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Config, ctrl *controller.Controller) {
	ctrl.RegisterRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Interview API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
