package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatforge/internal/config"
	"chatforge/internal/domain/services"
	"chatforge/internal/infrastructure/ai"
	"chatforge/internal/infrastructure/cache"
	"chatforge/internal/infrastructure/database"
	"chatforge/internal/interfaces/http/handlers"
	"chatforge/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if cfg.AI.OpenAIKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.NewPostgresConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	accountRepo := database.NewAccountRepository(db)
	agentRepo := cache.NewCachedAgentRepository(database.NewAgentRepository(db), redisClient, logger)
	convRepo := database.NewConversationRepository(db)
	usageRepo := database.NewUsageRepository(db)

	quotaService := services.NewQuotaService(accountRepo, logger)
	usageService := services.NewUsageService(usageRepo, quotaService, logger)
	completionClient := ai.NewOpenAIClient(cfg.AI.OpenAIKey, logger)

	conversationService := services.NewConversationService(
		accountRepo,
		agentRepo,
		convRepo,
		quotaService,
		usageService,
		completionClient,
		services.ConversationOptions{
			StrictLookup: cfg.Chat.StrictConversationLookup,
			ContextTurns: cfg.Chat.ContextTurns,
		},
		logger,
	)

	chatHandler := handlers.NewChatHandler(conversationService, usageService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Health(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "chat-service",
			"time":    time.Now(),
		})
	})

	chatHandler.Register(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("chat service listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("chat service stopped")
}
