package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/endorsegen/backend/internal/services/ledger"
	"github.com/endorsegen/backend/internal/services/rewards"
	"github.com/gin-gonic/gin"
)

// PointsHandler serves balance and history reads
type PointsHandler struct {
	ledger LedgerService
}

// NewPointsHandler creates a new points handler
func NewPointsHandler(ledgerSvc LedgerService) *PointsHandler {
	return &PointsHandler{ledger: ledgerSvc}
}

// GetBalance handles GET /api/points/balance
func (h *PointsHandler) GetBalance(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_points": balance,
		"usd_value":    rewards.PointsToUSD(balance),
	})
}

// GetTransactions handles GET /api/points/transactions
func (h *PointsHandler) GetTransactions(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	page, pageSize := pagination(c)
	transactions, total, err := h.ledger.GetTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
	})
}

// GetRewardEvents handles GET /api/rewards/events
func (h *PointsHandler) GetRewardEvents(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	page, pageSize := pagination(c)
	events, total, err := h.ledger.GetRewardEvents(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get reward events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":    events,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
