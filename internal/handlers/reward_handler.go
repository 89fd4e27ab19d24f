package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/endorsegen/backend/internal/models"
	"github.com/endorsegen/backend/internal/services/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the slice of the ledger the HTTP layer depends on
type LedgerService interface {
	Award(ctx context.Context, userID uuid.UUID, req ledger.AwardRequest) (*ledger.AwardResult, error)
	Redeem(ctx context.Context, userID uuid.UUID, cardID string) (*ledger.RedemptionResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.PointTransaction, int64, error)
	GetRewardEvents(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.RewardEvent, int64, error)
}

// RewardHandler handles award requests
type RewardHandler struct {
	ledger LedgerService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(ledgerSvc LedgerService) *RewardHandler {
	return &RewardHandler{ledger: ledgerSvc}
}

// AwardInput is the request body for an award
type AwardInput struct {
	Action           string     `json:"action" binding:"required"`
	Channel          string     `json:"channel"`
	ProofURLs        []string   `json:"proof_urls"`
	TextContent      string     `json:"text_content"`
	ManualPoints     *int64     `json:"manual_points"`
	Source           string     `json:"source"`
	ReferralID       *uuid.UUID `json:"referral_id"`
	RecentIPActivity int        `json:"recent_ip_activity"`
}

// Award handles POST /api/rewards/award
func (h *RewardHandler) Award(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var input AwardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Manual overrides are an administrator flow only.
	if input.ManualPoints != nil || input.Source == string(models.SourceManual) {
		isAdmin, _ := c.Get("is_admin")
		if admin, ok := isAdmin.(bool); !ok || !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "manual point awards require admin access"})
			return
		}
	}

	result, err := h.ledger.Award(c.Request.Context(), userID, ledger.AwardRequest{
		Action:           models.RewardAction(input.Action),
		Channel:          input.Channel,
		ProofURLs:        input.ProofURLs,
		TextContent:      input.TextContent,
		ManualPoints:     input.ManualPoints,
		Source:           models.RewardSource(input.Source),
		ReferralID:       input.ReferralID,
		RecentIPActivity: input.RecentIPActivity,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownAction):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown reward action"})
		case errors.Is(err, ledger.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, ledger.ErrProofRequired), errors.Is(err, ledger.ErrChannelNotAllowed):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process award"})
		}
		return
	}

	if result.Rejection != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"reasons":     result.Rejection.Reasons,
			"fraud_flags": result.Rejection.FraudFlags,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"points":      result.Points,
		"usd_value":   result.USDValue,
		"new_balance": result.NewBalance,
		"sentiment":   result.Sentiment,
		"quality":     result.Quality,
		"capped":      result.Capped,
	})
}

// authenticatedUserID resolves the authenticated user's id from the context
// set by the auth middleware, writing the error response itself on failure.
func authenticatedUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
