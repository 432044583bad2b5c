package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz/internal/config"
	"github.com/noah-isme/gema-quiz/internal/database"
	"github.com/noah-isme/gema-quiz/internal/handler"
	"github.com/noah-isme/gema-quiz/internal/middleware"
	"github.com/noah-isme/gema-quiz/internal/repository"
	"github.com/noah-isme/gema-quiz/internal/router"
	"github.com/noah-isme/gema-quiz/internal/service"
	"github.com/noah-isme/gema-quiz/internal/views"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "production" {
		logger = logger.Level(zerolog.InfoLevel)
	}
	logger = logger.With().Str("service", cfg.AppName).Logger()

	ctx := context.Background()

	db, err := database.OpenIdentityStore(ctx, database.IdentityStoreOptions{
		Driver:         cfg.DatabaseDriver,
		URL:            cfg.DatabaseURL,
		Database:       cfg.DatabaseName,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		if db == nil {
			logger.Fatal().Err(err).Msg("failed to configure identity store")
		}
		logger.Error().Err(err).Msg("identity store unreachable, account routes will fail until it recovers")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Error().Err(err).Msg("failed to close identity store")
		}
	}()

	identities := repository.NewIdentityRepository(db, cfg.DatabaseCollection)
	if err := identities.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to migrate identity store")
	}

	results, redisClient, err := buildResultTransport(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure result transport")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var mailer service.Mailer = service.NewLogMailer(logger)
	if cfg.MailDriver == "smtp" {
		mailer = service.NewSMTPMailer(service.SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		}, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	source := repository.NewWorkbookSource(cfg.QuestionsPath)
	tokens := service.NewTokenService(cfg.SessionSecret, cfg.SessionTTL, config.ResetTokenTTL)

	quizService := service.NewQuizService(source, logger)
	authService := service.NewAuthService(identities, tokens, mailer, validate, cfg.BaseURL, logger)
	questionAdminService := service.NewQuestionAdminService(source, cfg.UploadMaxMB, logger)

	engine, err := views.NewEngine()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load views")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		Views:        engine,
		ErrorHandler: handler.ErrorHandler(logger),
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:    &logger,
		Sessions:  tokens,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		QuizHandler:  handler.NewQuizHandler(quizService, results, logger),
		AuthHandler:  handler.NewAuthHandler(authService, tokens, logger),
		AdminHandler: handler.NewAdminHandler(questionAdminService, logger),
		HealthProbes: healthProbes(db, redisClient, source),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func buildResultTransport(ctx context.Context, cfg config.Config) (service.ResultTransport, *redis.Client, error) {
	codec, err := service.NewQueryResultCodec()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ResultsStore != "redis" {
		return codec, nil, nil
	}

	client, err := database.ConnectRedis(ctx, cfg.RedisURL, cfg.DatabaseTimeout)
	if err != nil {
		return nil, nil, err
	}
	return service.NewRedisResultStore(client, codec, cfg.ResultsTTL), client, nil
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, source repository.QuestionSource) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"identity_store": func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		"questions": func(ctx context.Context) error {
			_, err := source.ListSets(ctx)
			return err
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
