package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/endorsegen/backend/internal/models"
	"github.com/endorsegen/backend/internal/services/giftbit"
	"github.com/endorsegen/backend/internal/services/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusReader reads mirrored redemption status for polling
type StatusReader interface {
	GetRedemptionStatus(ctx context.Context, redemptionID uuid.UUID) (models.RedemptionStatus, error)
}

// RedemptionHandler handles gift-card redemption requests
type RedemptionHandler struct {
	ledger LedgerService
	status StatusReader
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(ledgerSvc LedgerService, status StatusReader) *RedemptionHandler {
	return &RedemptionHandler{ledger: ledgerSvc, status: status}
}

// Redeem handles POST /api/redemptions
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var input struct {
		CardID string `json:"card_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ledger.Redeem(c.Request.Context(), userID, input.CardID)
	if err != nil {
		var vendorErr *giftbit.VendorError
		var partialErr *ledger.PartialFailureError

		switch {
		case errors.Is(err, ledger.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, ledger.ErrInsufficientPoints):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient points"})
		case errors.As(err, &partialErr):
			// The gift was issued but the deduction failed. This must be
			// visible and distinct so support can reconcile.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":         "partial_failure",
				"redemption_id": partialErr.RedemptionID,
				"message":       "your gift was issued but the points deduction failed; support has been notified for manual reconciliation",
			})
		case errors.As(err, &vendorErr):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":         "vendor_rejected",
				"vendor_status": vendorErr.StatusCode,
				"message":       vendorErr.Message,
				"retryable":     vendorErr.Retryable,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process redemption"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redemption_id":       result.RedemptionID,
		"new_total_points":    result.NewTotalPoints,
		"cost_points":         result.CostPoints,
		"vendor_confirmation": result.VendorConfirmation,
	})
}

// GetStatus handles GET /api/redemptions/:id/status
func (h *RedemptionHandler) GetStatus(c *gin.Context) {
	if _, ok := authenticatedUserID(c); !ok {
		return
	}

	redemptionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid redemption ID"})
		return
	}

	status, err := h.status.GetRedemptionStatus(c.Request.Context(), redemptionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get redemption status"})
		return
	}
	if status == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "redemption status not found or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redemption_id": redemptionID, "status": status})
}
