package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/endorsegen/backend/internal/config"
	"github.com/endorsegen/backend/internal/handlers"
	"github.com/endorsegen/backend/internal/middleware"
	"github.com/endorsegen/backend/internal/queue"
	"github.com/endorsegen/backend/internal/services/referral"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	ledgerSvc handlers.LedgerService,
	referralSvc *referral.Service,
	statusStore handlers.StatusReader,
	jobQueue *queue.Queue,
) {
	rewardHandler := handlers.NewRewardHandler(ledgerSvc)
	pointsHandler := handlers.NewPointsHandler(ledgerSvc)
	redemptionHandler := handlers.NewRedemptionHandler(ledgerSvc, statusStore)
	referralHandler := handlers.NewReferralHandler(referralSvc)
	webhookHandler := handlers.NewWebhookHandler(jobQueue, cfg.Webhook.CRMSigningSecret)

	// 30 award requests per minute per IP
	awardLimiter := middleware.NewRateLimiter(30, 5)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rewardGroup := router.Group("/api/rewards")
	rewardGroup.Use(middleware.AuthMiddleware())
	{
		rewardGroup.POST("/award", awardLimiter.Middleware(), rewardHandler.Award)
		rewardGroup.GET("/events", pointsHandler.GetRewardEvents)
	}

	pointsGroup := router.Group("/api/points")
	pointsGroup.Use(middleware.AuthMiddleware())
	{
		pointsGroup.GET("/balance", pointsHandler.GetBalance)
		pointsGroup.GET("/transactions", pointsHandler.GetTransactions)
	}

	redemptionGroup := router.Group("/api/redemptions")
	redemptionGroup.Use(middleware.AuthMiddleware())
	{
		redemptionGroup.POST("", redemptionHandler.Redeem)
		redemptionGroup.GET("/:id/status", redemptionHandler.GetStatus)
	}

	referralGroup := router.Group("/api/referrals")
	referralGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		referralGroup.POST("", referralHandler.Create)
		referralGroup.GET("", referralHandler.List)
		referralGroup.POST("/:id/close-won", referralHandler.CloseWon)
	}

	// CRM webhooks authenticate by HMAC signature, not JWT
	router.POST("/api/webhooks/crm", webhookHandler.HandleCRM)
}
