package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	_ "compliance/api/swagger" // swagger docs
	"compliance/internal/archive"
	"compliance/internal/compliance"
	"compliance/internal/config"
	"compliance/internal/database"
	"compliance/internal/handler"
	"compliance/internal/middleware"
	"compliance/internal/repository"
	"compliance/internal/service"
	"compliance/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Vendor Compliance Review API
// @version         1.0
// @description     Tracks vendor compliance submissions through file-level review and computes compliance scores.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	if cfg.JWTSecret != "" {
		middleware.SetJWTSecret(cfg.JWTSecret)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		submissionRepo repository.SubmissionRepository
		auditRepo      repository.AuditRepository
		txManager      repository.TransactionManager
	)
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := repository.NewMemoryStore()
		submissionRepo, auditRepo, txManager = store, store, store
		log.Println("Using in-memory storage; data is lost on restart.")
	default:
		db, err := database.NewConnection(cfg.DSN())
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		log.Println("Connected to PostgreSQL successfully.")
		submissionRepo = repository.NewSubmissionRepository(db)
		auditRepo = repository.NewAuditRepository(db)
		txManager = repository.NewTransactionManager(db)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	// Finalized submissions are archived only when a table is configured.
	var archiver service.Archiver
	if cfg.ArchiveTable != "" {
		store, err := archive.NewDynamoStoreFromEnv(ctx, cfg.AWSRegion, cfg.ArchiveEndpoint, cfg.ArchiveTable)
		if err != nil {
			log.Fatalf("Archive store setup failed: %v", err)
		}
		archiver = store
		log.Printf("Archiving finalized submissions to DynamoDB table %s", cfg.ArchiveTable)
	}

	catalog := compliance.DefaultCatalog()

	// Set up dependencies (Repository -> Service -> Handler)
	reviewService := service.NewReviewService(submissionRepo, auditRepo, txManager, service.SystemClock{}, wsHub, service.ReviewPolicy{
		LockApproved: cfg.LockApprovedDocuments,
	})
	submissionService := service.NewSubmissionService(submissionRepo, auditRepo, txManager, catalog, cfg.ExcludedSet(), archiver, service.SystemClock{})
	auditService := service.NewAuditService(auditRepo)

	reviewHandler := handler.NewReviewHandler(reviewService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "status_feed_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	submissionHandler.RegisterRoutes(router.Group(""))
	reviewHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
