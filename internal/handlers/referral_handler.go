package handlers

import (
	"errors"
	"net/http"

	"github.com/endorsegen/backend/internal/services/referral"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReferralHandler handles referral management requests
type ReferralHandler struct {
	referrals *referral.Service
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralSvc *referral.Service) *ReferralHandler {
	return &ReferralHandler{referrals: referralSvc}
}

// Create handles POST /api/referrals
func (h *ReferralHandler) Create(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var input struct {
		ReferredEmail      string `json:"referred_email" binding:"required,email"`
		BountyPointsTarget int64  `json:"bounty_points_target" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.referrals.CreateReferral(c.Request.Context(), userID, input.ReferredEmail, input.BountyPointsTarget)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create referral"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List handles GET /api/referrals
func (h *ReferralHandler) List(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	referrals, err := h.referrals.ListReferrals(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list referrals"})
		return
	}

	c.JSON(http.StatusOK, referrals)
}

// CloseWon handles POST /api/referrals/:id/close-won
func (h *ReferralHandler) CloseWon(c *gin.Context) {
	if _, ok := authenticatedUserID(c); !ok {
		return
	}

	referralID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referral ID"})
		return
	}

	var input struct {
		TargetBountyPoints *int64 `json:"target_bounty_points"`
	}
	// Body is optional; with no override the stored target is used.
	_ = c.ShouldBindJSON(&input)

	result, err := h.referrals.CloseWon(c.Request.Context(), referralID, input.TargetBountyPoints)
	if err != nil {
		if errors.Is(err, referral.ErrReferralNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "referral not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process close-won"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"top_up":        result.TopUp,
		"bounty_target": result.BountyTarget,
		"new_balance":   result.NewBalance,
	})
}
