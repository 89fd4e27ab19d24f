package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/endorsegen/backend/internal/jobs"
	"github.com/endorsegen/backend/internal/queue"
	"github.com/endorsegen/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles inbound CRM webhooks
type WebhookHandler struct {
	queue         *queue.Queue
	signingSecret string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(q *queue.Queue, signingSecret string) *WebhookHandler {
	return &WebhookHandler{queue: q, signingSecret: signingSecret}
}

// crmEvent is the payload the CRM sends when a referred lead changes stage
type crmEvent struct {
	Event              string    `json:"event"`
	ReferralID         uuid.UUID `json:"referral_id"`
	TargetBountyPoints *int64    `json:"target_bounty_points,omitempty"`
}

// HandleCRM handles POST /api/webhooks/crm. The body is HMAC-verified and
// the close-won work is queued rather than done inline, so a slow ledger
// never makes the CRM retry.
func (h *WebhookHandler) HandleCRM(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader("X-EndorseGen-Signature")
	if signature == "" || !utils.VerifyHMAC(string(body), signature, h.signingSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	var event crmEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	if event.Event != "closed_won" {
		// Other stage changes carry no bounty implications.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	jobID, err := h.queue.Enqueue(c.Request.Context(), jobs.ReferralClosedWonJobType, jobs.ReferralClosedWonPayload{
		ReferralID:         event.ReferralID,
		TargetBountyPoints: event.TargetBountyPoints,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue webhook"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job_id": jobID})
}
