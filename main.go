package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"revenue-share-system/handlers"
	"revenue-share-system/middleware"
	"revenue-share-system/models"
	"revenue-share-system/services"
	"revenue-share-system/utils"
	"revenue-share-system/workers"

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

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — payloads are JSON, exports stream out
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition, X-Request-ID, X-Archive-URL",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Agreement{},
		&models.Tier{},
		&models.Sale{},
		&models.LedgerEntry{},
		&models.RecipientMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	agreementService := services.NewAgreementService(db)
	tierService := services.NewTierService(db)
	ledgerService := services.NewLedgerService(db)
	analyticsService := services.NewAnalyticsService(db)

	// --- CONFIGURE external collaborators ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("LEDGER_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("LEDGER_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)
	// --- END CONFIG ---

	recipientSyncWorker := workers.NewRecipientSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", serviceToken)

	payoutSyncClient := workers.NewPayoutSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollPayouts(ctx, payoutSyncClient, 15*time.Second)

	go func() {
		log.Println("Starting Recipient Sync Worker...")
		recipientSyncWorker.Start(ctx)
	}()

	analyticsService.StartSnapshotScheduler()
	ledgerService.StartPayoutReconciler(24 * time.Hour)

	// ✅ Setup routes — enforced Gateway auth globally
	handlers.SetupAgreementRoutes(app, agreementService, tierService)
	handlers.SetupLedgerRoutes(app, ledgerService, authClient)
	handlers.SetupAnalyticsRoutes(app, analyticsService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Recipient Sync Worker running")
	log.Println("✅ Payout polling running (every 15s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
