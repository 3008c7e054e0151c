package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ailms/lms/backend/cache"
	"github.com/ailms/lms/backend/config"
	"github.com/ailms/lms/backend/controllers"
	"github.com/ailms/lms/backend/events"
	"github.com/ailms/lms/backend/middleware"
	"github.com/ailms/lms/backend/notify"
	"github.com/ailms/lms/backend/routes"
	"github.com/ailms/lms/backend/services"
	"github.com/ailms/lms/backend/storage"
	"github.com/ailms/lms/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("Error loading config")
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{Format: cfg.LogFormat, Level: zerolog.InfoLevel})
	logger.Info().Str("config", cfg.String()).Msg("starting")

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing database")
	}

	ctx := context.Background()
	store := newCacheStore(ctx, cfg, logger)
	publisher := newPublisher(cfg)

	var worker *notify.Worker
	if cfg.NotifierEnabled {
		worker = notify.NewWorker(redisOpt(cfg), db, logger)
		if err := worker.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Error starting notifier")
		}
	}

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing file store")
	}

	deps := &controllers.Deps{
		DB:          db,
		Cfg:         cfg,
		Cache:       cache.NewAccessor(store, cfg.CacheDefaultTTL),
		Events:      publisher,
		Files:       files,
		Recommender: services.NewHTTPRecommender(cfg.RecommenderURL),
		Quizzes:     services.NewHTTPQuizGenerator(cfg.QuizGeneratorURL),
		Logger:      logger,
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: middleware.ErrorHandler(logger),
		BodyLimit:    200 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, deps)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	// Start server
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}

	if worker != nil {
		worker.Shutdown()
	}
	if err := publisher.Close(); err != nil {
		logger.Error().Err(err).Msg("closing publisher")
	}
	if err := deps.Cache.Close(); err != nil {
		logger.Error().Err(err).Msg("closing cache")
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// newCacheStore uses Redis when an address is configured and an in-process cache otherwise.
func newCacheStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemoryStore()
	}
	store := cache.NewRedisStore(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err := store.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, reads will miss until it recovers")
	}
	return store
}

func newPublisher(cfg *config.Config) events.Publisher {
	if !cfg.BusEnabled || cfg.RedisAddr == "" {
		return events.NopPublisher{}
	}
	return events.NewAsynqPublisher(redisOpt(cfg))
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	switch cfg.FileStore {
	case "drive":
		d, err := storage.NewDrive(ctx, storage.DriveConfig{
			ClientID:     cfg.DriveClientID,
			ClientSecret: cfg.DriveClientSecret,
			RedirectURI:  cfg.DriveRedirectURI,
			RefreshToken: cfg.DriveRefreshToken,
			FolderID:     cfg.DriveFolderID,
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	case "s3":
		return storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	return storage.Disabled{}, nil
}
