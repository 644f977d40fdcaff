package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/cache"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/handlers"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/handlers/ws"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/middleware"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/queue"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/repository"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/service"
	"github.com/Samurd/erp-elite24studio-next-sub000/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "ERP Elite Chat Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	userCache := cache.NewUserCache(redisCache)
	notifCache := cache.NewNotificationCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	fileRepo := repository.NewFileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	templateRepo := repository.NewTemplateRepository(db)

	// Initialize NATS JetStream (durable notification log)
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	notificationQueue, err := queue.NewJetStreamQueue(natsURL)
	if err != nil {
		log.Fatal("Failed to connect to NATS:", err)
	}
	defer notificationQueue.Close()

	// Initialize S3/MinIO storage (best-effort; attachments fall back to raw paths)
	var fileStore *storage.FileStore
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewFileStore(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		fileStore = st
		log.Printf("S3 storage initialized successfully (bucket=%s)", cfg.Bucket)
	}

	// Initialize SMTP mailer (best-effort; notifications skip email when absent)
	var mailer service.Mailer
	if emailService, err := service.NewEmailServiceFromEnv(); err != nil {
		log.Printf("WARNING: Email delivery not configured: %v", err)
	} else {
		mailer = emailService
	}

	// Hub and presence
	hub := ws.NewHub()
	presence := ws.NewPresence(
		func(userID string) {
			if err := userCache.SetUserOnline(userID); err != nil {
				log.Printf("Failed to mirror user %s online: %v", userID, err)
			}
			hub.BroadcastToAll("userOnline", map[string]interface{}{"userId": userID})
		},
		func(userID string) {
			if err := userCache.SetUserOffline(userID); err != nil {
				log.Printf("Failed to mirror user %s offline: %v", userID, err)
			}
			hub.BroadcastToAll("userOffline", map[string]interface{}{"userId": userID})
		},
	)

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, templateRepo, userRepo, notificationQueue, hub, mailer, notifCache)
	chatService := service.NewChatService(messageRepo, userRepo, fileRepo, membershipRepo, notificationService, fileStore)
	reactionService := service.NewReactionService(reactionRepo)

	// Bind durable consumers
	if err := notificationQueue.Consume(queue.SubjectImmediate, notificationService.HandleImmediate); err != nil {
		log.Fatal("Failed to bind immediate consumer:", err)
	}
	if err := notificationQueue.Consume(queue.SubjectProcess, notificationService.HandleProcess); err != nil {
		log.Fatal("Failed to bind process consumer:", err)
	}

	// Start the template scheduler
	scheduler := service.NewScheduler(notificationService, time.Minute)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub, presence, chatService, reactionService, userCache)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	presenceHandler := handlers.NewPresenceHandler(presence, userCache)

	// Routes
	api := app.Group("/api", middleware.OriginAllowed())
	protected := api.Group("/notifications", middleware.AuthRequired(), limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	protected.Post("/", notificationHandler.CreateNotification)
	protected.Post("/templates", notificationHandler.CreateTemplate)
	protected.Get("/templates", notificationHandler.GetTemplate)
	protected.Put("/templates", notificationHandler.UpdateTemplate)
	protected.Delete("/templates", notificationHandler.DeleteTemplate)
	protected.Post("/read-all", notificationHandler.MarkAllAsRead)
	protected.Get("/:userId", notificationHandler.ListNotifications)
	protected.Post("/:id/read", notificationHandler.MarkAsRead)

	users := api.Group("/users", middleware.AuthRequired())
	users.Get("/online", presenceHandler.GetOnlineUsers)
	users.Get("/:userId/online", presenceHandler.GetUserStatus)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "ERP Elite Chat Backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
