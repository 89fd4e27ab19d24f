package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/endorsegen/backend/internal/config"
	"github.com/endorsegen/backend/internal/database"
	"github.com/endorsegen/backend/internal/database/migrations"
	"github.com/endorsegen/backend/internal/jobs"
	"github.com/endorsegen/backend/internal/queue"
	"github.com/endorsegen/backend/internal/routes"
	"github.com/endorsegen/backend/internal/services/giftbit"
	"github.com/endorsegen/backend/internal/services/ledger"
	"github.com/endorsegen/backend/internal/services/referral"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.LoadConfig()

	// Setup database connection
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to sync model schema: %v", err)
	}

	// Redis-backed queue and redemption status store
	redisClient, err := queue.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	jobQueue := queue.NewQueue(redisClient)
	statusStore := queue.NewRedemptionStatusStore(redisClient)

	// Services
	giftbitClient := giftbit.NewClient(giftbit.Config{
		APIKey:  cfg.Giftbit.APIKey,
		BaseURL: cfg.Giftbit.BaseURL,
	})
	ledgerSvc := ledger.NewService(db, cfg.Rewards, giftbitClient, statusStore)
	referralSvc := referral.NewService(db)

	// Background workers
	jobs.NewReferralClosedWonJob(referralSvc).Register(jobQueue)
	worker := queue.NewWorker(jobQueue, 2)
	worker.Start()
	defer worker.Stop()

	reconciliation := jobs.NewReconciliationJob(db)
	if err := reconciliation.Start(); err != nil {
		log.Fatalf("Failed to start reconciliation job: %v", err)
	}
	defer reconciliation.Stop()

	// Initialize router
	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(router, cfg, ledgerSvc, referralSvc, statusStore, jobQueue)

	fmt.Printf("EndorseGen rewards API running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
