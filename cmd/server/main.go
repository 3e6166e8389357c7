package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/cache"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	backend, err := securestore.OpenBackend(ctx, cfg.StoreBackend, db, redisClient)
	if err != nil {
		log.Fatalf("Failed to set up secure store: %v", err)
	}
	sealer, err := securestore.NewSealer(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}
	store := securestore.NewStore(backend, sealer)

	registry := platform.NewRegistry(platform.DefaultConfigs(cfg.ClientIDs())...)
	localProxy := proxy.NewOAuth2Proxy(registry, cfg.ProxyCredentials())

	var tokenProxy proxy.TokenProxy = localProxy
	if cfg.TokenProxyURL != "" {
		tokenProxy = proxy.NewHTTPProxy(cfg.TokenProxyURL, cfg.ProxyServiceKey, nil)
		log.Printf("Using remote token proxy at %s", cfg.TokenProxyURL)
	}

	r2Client, err := service.NewR2Client(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to set up R2 client: %v", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postingHistoryRepo := repository.NewPostingHistoryRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	tokenService := service.NewTokenService(store, tokenProxy, registry)
	oauthService := service.NewOAuthService(registry, store, tokenProxy, cfg.OAuthRedirectURI)
	publisherService := service.NewPublisherService(tokenService, service.DefaultEndpoints())
	r2Service := service.NewR2Service(r2Client, cfg.R2.BucketName, cfg.R2.PublicURL)
	mediaService := service.NewMediaService(r2Service, mediaAssetRepo)
	settingsService := service.NewSettingsService(store)

	attempts := cache.NewRedisAttemptStore(redisClient, cache.AttemptTTL)
	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	platformHandler := handlers.NewPlatformHandler(oauthService, tokenService, attempts, *cfg)
	app.Get("/auth/:platform", platformHandler.AddSocialAccount)
	app.Get("/oauth/callback", platformHandler.CallbackHandler)

	// only serve the token proxy when this process holds the secrets
	if cfg.TokenProxyURL == "" && cfg.ProxyServiceKey != "" {
		proxyHandler := handlers.NewProxyHandler(localProxy)
		tokens := app.Group("/oauth/token", middleware.ServiceKey(cfg.ProxyServiceKey))
		tokens.Post("/exchange", proxyHandler.Exchange)
		tokens.Post("/refresh", proxyHandler.Refresh)
		tokens.Post("/revoke", proxyHandler.Revoke)
	}

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	// social accounts api routes
	api.Get("/accounts", platformHandler.ListSocialAccounts)
	api.Get("/accounts/:platform/status", platformHandler.AccountStatus)
	api.Post("/accounts/:platform/disconnect", platformHandler.DeleteSocialAccount)

	auth := handlers.NewAuthHandler(*cfg, oauthService)
	api.Post("/logout/secure-data", auth.Logout)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	post := handlers.NewPostHandler(publisherService, settingsService, postingHistoryRepo, client)
	api.Post("/posts/publish", post.PublishPost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Get("/posts/history", post.ListHistory)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.UploadMedia)
	api.Get("/media", media.ListMedia)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(store, tokenService)

	//queue
	queueW := queue.NewQueue(publisherService, postingHistoryRepo)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()
	defer c.Stop()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSchedulePost, queueW.HandleSchedulePostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
