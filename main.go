package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nft-campaign-system/clock"
	"nft-campaign-system/config"
	"nft-campaign-system/handlers"
	"nft-campaign-system/middleware"
	"nft-campaign-system/models"
	"nft-campaign-system/repository"
	"nft-campaign-system/services"
	"nft-campaign-system/utils"
	"nft-campaign-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Campaign{},
		&models.InventoryItem{},
		&models.Reservation{},
		&models.ReservationRecord{},
		&models.SyncLog{},
		&models.EligibilityEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Repositories
	campaignRepo := repository.NewCampaigns(db)
	inventoryRepo := repository.NewInventory(db)
	reservationRepo := repository.NewReservations(db)
	eligibilityRepo := repository.NewEligibility(db)
	syncLogRepo := repository.NewSyncLogs(db)

	// Image mirroring is optional: no R2 account means imports keep source URLs.
	var mirror services.ImageMirror
	if cfg.R2.AccountID != "" {
		r2, err := utils.NewR2Mirror(cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.SecretAccessKey, cfg.R2.Bucket, cfg.R2.PublicBaseURL)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		mirror = r2
	}

	clk := clock.NewSystem()
	authority := services.NewAuthorityHTTPClient(cfg.Authority.BaseURL, cfg.Authority.APIKey)

	store := services.NewInventoryStore(inventoryRepo, campaignRepo, clk)
	policy := services.NewPolicyService(campaignRepo, eligibilityRepo, reservationRepo, inventoryRepo)
	reservations := services.NewReservationService(store, reservationRepo, campaignRepo, policy, clk)
	reconcile := services.NewReconcileService(store, reservationRepo, campaignRepo, syncLogRepo, authority, clk)
	importer := services.NewImportService(store, inventoryRepo, campaignRepo, reservationRepo, authority, mirror)
	campaigns := services.NewCampaignService(campaignRepo, inventoryRepo, reservationRepo, store)

	// Background reconciliation against the minting authority
	if cfg.Worker.SyncEnabled {
		go workers.PollAuthority(ctx, reconcile, campaignRepo, inventoryRepo, cfg.Worker.SyncInterval)
	}

	sched := services.StartMaintenanceScheduler(reservations, store, campaignRepo)
	defer func() { _ = sched.Shutdown() }()

	// Prometheus metrics on a separate listener, outside gateway auth
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.Server.MetricsPort, mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	app := fiber.New()

	// Health probe registered before the auth stack so orchestrators can
	// reach it without the gateway token.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.Gateway.ServiceToken))
	app.Use(middleware.OperatorContextMiddleware())

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Operator-ID",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))

	handlers.SetupCampaignRoutes(app, handlers.NewCampaignHandler(campaigns, policy))
	handlers.SetupInventoryRoutes(app, handlers.NewInventoryHandler(store, importer, reconcile))
	handlers.SetupReservationRoutes(app, handlers.NewReservationHandler(reservations))

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Server.Port)
	log.Printf("✅ Metrics available on http://localhost:%s/metrics", cfg.Server.MetricsPort)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	if cfg.Worker.SyncEnabled {
		log.Printf("✅ Authority sync polling running (every %s)", cfg.Worker.SyncInterval)
	}

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
