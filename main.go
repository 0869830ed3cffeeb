package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-rewards-system/analytics"
	"task-rewards-system/auth"
	"task-rewards-system/config"
	"task-rewards-system/handlers"
	"task-rewards-system/services"
	"task-rewards-system/session"
	"task-rewards-system/store"
	"task-rewards-system/utils"
	"task-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfgPath := os.Getenv("POINTS_CONFIG")
	if cfgPath == "" {
		cfgPath = "points.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load points config:", err)
	}

	dataDir := os.Getenv("LOCAL_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	localStore, err := store.NewLocalStore(dataDir)
	if err != nil {
		log.Fatal("failed to initialize local store:", err)
	}

	// The remote backend is optional by design: without it the service runs
	// pinned to local-fallback mode.
	var remoteStore *store.RemoteStore
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("⚠️  DATABASE_URL not set, running in local-fallback mode")
	} else {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Printf("⚠️  failed to connect to remote store, running in local-fallback mode: %v", err)
		} else {
			remoteStore = store.NewRemoteStore(db)
			if err := remoteStore.Migrate(); err != nil {
				log.Fatal("failed to migrate remote store:", err)
			}
		}
	}

	var dataService *services.UserDataService
	if remoteStore != nil {
		dataService = services.NewUserDataService(remoteStore, localStore)
	} else {
		dataService = services.NewUserDataService(nil, localStore)
	}
	dataService.StartConnectivityProbe(1 * time.Minute)

	analyticsClient := analytics.NewClient(os.Getenv("ANALYTICS_URL"))
	if analyticsClient == nil {
		log.Println("⚠️  ANALYTICS_URL not set, analytics disabled")
	}

	manager := session.NewManager(dataService, analyticsClient)

	// Bearer-token fallback for requests that bypass the gateway.
	var authClient *auth.Client
	if authURL := os.Getenv("AUTH_SERVICE_URL"); authURL != "" {
		authClient = auth.NewClient(authURL, os.Getenv("AUTH_SERVICE_TOKEN"))
	} else {
		log.Println("⚠️  AUTH_SERVICE_URL not set, bearer-token fallback disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Export snapshots need object storage; both the endpoint and the backup
	// worker degrade to disabled when R2 is not configured.
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, user data export disabled: %v", err)
	} else if remoteStore != nil {
		backupWorker := workers.NewBackupWorker(remoteStore, 10*time.Minute)
		go backupWorker.Start(ctx)
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID, X-User-Email, X-User-Name",
	}))

	handlers.SetupTaskRoutes(app, manager, cfg, authClient)
	handlers.SetupUserRoutes(app, manager, cfg, authClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	if remoteStore != nil {
		log.Println("✅ Remote store connected, connectivity probe running")
	}
	log.Printf("✅ Local store at %s", dataDir)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
