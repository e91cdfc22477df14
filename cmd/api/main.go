package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examark/examark-api/internal/config"
	"github.com/examark/examark-api/internal/database"
	"github.com/examark/examark-api/internal/grading"
	"github.com/examark/examark-api/internal/handler"
	"github.com/examark/examark-api/internal/middleware"
	"github.com/examark/examark-api/internal/models"
	"github.com/examark/examark-api/internal/repository"
	"github.com/examark/examark-api/internal/router"
	"github.com/examark/examark-api/internal/service"
	"github.com/examark/examark-api/pkg/ai"
	cloud "github.com/examark/examark-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Question{}, &models.Student{}, &models.Submission{}, &models.UploadRecord{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, student stats will not be cached")
	}

	var events service.GradingEventPublisher
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		events = service.NewNATSEventPublisher(conn, "", logger)
	} else {
		logger.Warn().Msg("nats url not set, grading events will not be published")
	}

	var storage service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, uploaded sheets will not be archived")
	}

	generator, extractor, err := buildGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure ai provider: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	grader := grading.NewGrader(generator, grading.Config{
		MaxAttempts: cfg.GradingMaxAttempts,
		Logger:      logger,
	})

	questionService := service.NewQuestionService(questionRepo, validate, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	gradingService := service.NewGradingService(questionRepo, studentRepo, submissionRepo, grader, events, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, logger)
	extractionService := service.NewExtractionService(extractor, storage, uploadRepo, cfg.UploadMaxSizeMB, logger)
	statsService := service.NewStudentStatsService(studentRepo, submissionRepo, redisClient, cfg.StatsCacheTTL, logger)

	deps := router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(questionService, logger),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		ExtractHandler:    handler.NewExtractHandler(extractionService, logger),
		StudentHandler:    handler.NewStudentHandler(studentService, logger),
		StatsHandler:      handler.NewStatsHandler(statsService, logger),
	}
	if cfg.JWTSecret != "" {
		deps.JWTMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	} else {
		logger.Warn().Msg("jwt secret not set, api routes are unauthenticated")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGenerator(cfg config.Config, logger zerolog.Logger) (grading.Generator, ai.ImageTextExtractor, error) {
	switch cfg.AIProvider {
	case "openai":
		gen, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return gen, gen, nil
	default:
		gen, err := ai.NewGeminiGenerator(ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return gen, gen, nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
