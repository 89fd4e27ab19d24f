package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/endorsegen/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const webhookSecret = "test-signing-secret"

func setupWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(nil, webhookSecret)
	router.POST("/webhooks/crm", handler.HandleCRM)
	return router
}

func webhookRequest(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-EndorseGen-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook_MissingSignature(t *testing.T) {
	router := setupWebhookRouter()

	w := webhookRequest(router, `{"event":"closed_won"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_BadSignature(t *testing.T) {
	router := setupWebhookRouter()

	body := `{"event":"closed_won"}`
	w := webhookRequest(router, body, utils.SignHMAC(body, "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_TamperedBody(t *testing.T) {
	router := setupWebhookRouter()

	signature := utils.SignHMAC(`{"event":"closed_won"}`, webhookSecret)
	w := webhookRequest(router, `{"event":"closed_won","referral_id":"injected"}`, signature)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_IgnoresOtherStages(t *testing.T) {
	router := setupWebhookRouter()

	body := `{"event":"qualified"}`
	w := webhookRequest(router, body, utils.SignHMAC(body, webhookSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestWebhook_InvalidPayload(t *testing.T) {
	router := setupWebhookRouter()

	body := `{not json`
	w := webhookRequest(router, body, utils.SignHMAC(body, webhookSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
