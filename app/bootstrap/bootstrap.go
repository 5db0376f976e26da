package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/tamyadav31/BOT-GPT/app/controllers"
	"github.com/tamyadav31/BOT-GPT/app/router"
	"github.com/tamyadav31/BOT-GPT/internal/auth"
	"github.com/tamyadav31/BOT-GPT/internal/config"
	"github.com/tamyadav31/BOT-GPT/internal/database"
	"github.com/tamyadav31/BOT-GPT/internal/kafka"
	"github.com/tamyadav31/BOT-GPT/internal/llm"
	"github.com/tamyadav31/BOT-GPT/internal/logger"
	"github.com/tamyadav31/BOT-GPT/internal/rag"
	"github.com/tamyadav31/BOT-GPT/internal/services"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
	metrics      *database.MetricsCollector
	Index        *rag.Index
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	// Initialize database.
	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Initialize Redis (optional). Failure shouldn't block the app.
	if cfg.Redis.Enabled {
		if _, err := database.InitRedis(); err != nil {
			logger.Warn("Failed to initialize Redis", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return database.CloseRedis()
			})
		}
	}

	// Index blob storage and retrieval index.
	blobStore, err := rag.NewBlobStore(cfg.RAG.Storage)
	if err != nil {
		return nil, err
	}
	embedder := rag.NewOpenAIEmbedder(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.RAG.EmbeddingModel)
	index := rag.NewIndex(embedder, blobStore, rag.NewCache())
	app.Index = index

	// Completion client.
	llmClient := llm.NewClient(cfg.LLM)

	// Initialize Kafka (optional). Failure shouldn't block the app.
	if cfg.Kafka.Enabled {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				producer := kafka.GetProducer()
				if producer != nil {
					return producer.Close()
				}
				return nil
			})
		}
	}

	// Database connection metrics.
	if sqlDB, err := db.DB(); err == nil {
		app.metrics = database.NewMetricsCollector(sqlDB)
		app.metrics.Start()
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			app.metrics.Stop()
			return nil
		})
	}

	// Wire services and controllers.
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpiresIn)*time.Second)
	chunkStore := services.NewChunkStore(db)
	assembler := services.NewContextAssembler(db, index, chunkStore, cfg.RAG.TopK)

	userService := services.NewUserService(db)
	documentService := services.NewDocumentService(db, index, chunkStore,
		cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	conversationService := services.NewConversationService(db, assembler, llmClient, cfg.RAG.MaxHistory)

	var healthController *controllers.HealthController
	if sqlDB, err := db.DB(); err == nil {
		healthController = controllers.NewHealthController(database.NewHealthChecker(sqlDB))
	} else {
		healthController = controllers.NewHealthController(nil)
	}

	router.Init(router.Controllers{
		User:         controllers.NewUserController(userService),
		Auth:         controllers.NewAuthController(userService, jwtService),
		Document:     controllers.NewDocumentController(documentService),
		Conversation: controllers.NewConversationController(conversationService),
		Health:       healthController,
	}, jwtService)

	logger.Info("Application initialized",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env))
	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	logger.Sync()
}
