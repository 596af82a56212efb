package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/config"
	"github.com/voicemint/api/internal/handler"
	"github.com/voicemint/api/internal/middleware"
	"github.com/voicemint/api/internal/service"
	"github.com/voicemint/api/internal/store"
	"github.com/voicemint/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Postgres pool
	pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to create Postgres pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Printf("Warning: Postgres not available: %v", err)
	}

	// Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Initialize validator
	validate := validator.New()

	// External clients
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	groqClient := client.NewGroqClient(&cfg.Groq)

	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 client: %v", err)
		}
		storageClient = r2Client
	} else {
		log.Fatal("R2 storage is required: set R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY")
	}

	// Store and services
	st := store.NewPostgresStore(pool)
	sampleLoader := service.NewSampleLoader(storageClient, cfg.Generation.SampleDownloadTimeout, cfg.Generation.MinViableSamples)
	generationService := service.NewGenerationService(st, elevenLabsClient, storageClient, sampleLoader, cfg.Generation)
	cleanupService := service.NewCleanupService(st, elevenLabsClient, cfg.Cleanup)
	projectService := service.NewProjectService(st, storageClient)
	scriptService := service.NewScriptService(groqClient)

	// Handlers
	generationHandler := handler.NewGenerationHandler(generationService, validate)
	projectHandler := handler.NewProjectHandler(projectService, validate)
	scriptHandler := handler.NewScriptHandler(scriptService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // recorded clips are small; leave headroom
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"elevenlabs": elevenLabsClient.IsConfigured(),
				"groq":       groqClient.IsConfigured(),
				"postgres":   pool.Ping(c.Context()) == nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), generationHandler.Generate)

	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/", projectHandler.List)
	projects.Get("/:projectId", projectHandler.Get)
	projects.Put("/:projectId/script", projectHandler.UpdateScript)
	projects.Post("/:projectId/samples", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), projectHandler.UploadSample)

	scripts := api.Group("/scripts", rateLimiter.ScriptsLimit(cfg.RateLimit.ScriptsPerMin))
	scripts.Post("/suggest", scriptHandler.Suggest)

	// Background worker + periodic sweep
	go startWorkerServer(cfg, redisOpt, cleanupService)
	go startScheduler(cfg, redisOpt)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, cleanupService *service.CleanupService) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			"cleanup": 1,
		},
		LogLevel: asynqLogLevel,
	})

	sweepWorker := worker.NewSweepWorker(cleanupService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeSweep, sweepWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func startScheduler(cfg *config.Config, redisOpt asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	_, err := scheduler.Register(cfg.Cleanup.Schedule, worker.NewSweepTask(), asynq.Queue("cleanup"))
	if err != nil {
		log.Printf("Failed to register sweep schedule: %v", err)
		return
	}

	if err := scheduler.Run(); err != nil {
		log.Printf("Asynq scheduler error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   message,
		"details": "",
	})
}
