package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/domain"
	"github.com/MostafaRabia/payin-task/internal/engine"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
)

// WebhookEngine is the C6 contract this handler drives.
type WebhookEngine interface {
	HandleWebhook(ctx context.Context, idempotencyKey, holdID, status string) (*engine.WebhookResult, error)
}

// WebhookHandler serves POST /payments/webhook.
type WebhookHandler struct {
	engine WebhookEngine
	logger *zaplogrus.Logger
}

// NewWebhookHandler builds a WebhookHandler.
func NewWebhookHandler(engine WebhookEngine, logger *zaplogrus.Logger) *WebhookHandler {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &WebhookHandler{engine: engine, logger: logger}
}

type webhookPayload struct {
	HoldID string `json:"hold_id"`
	Status string `json:"status"`
}

type webhookRequest struct {
	IdempotencyKey string         `json:"idempotency_key" binding:"required"`
	Data           webhookPayload `json:"data"`
}

// Handle handles POST /payments/webhook. The engine produces the entire
// response body and status (including the {"data": ...} envelope on success
// and the idempotent-replay and hold-not-found cases), so this handler writes
// it back verbatim without wrapping it again.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "invalid request body",
			"errors":  gin.H{"input": []string{err.Error()}},
		})
		return
	}

	switch domain.OrderStatus(req.Data.Status) {
	case domain.OrderPaid, domain.OrderFailed:
	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "invalid webhook status",
			"errors":  gin.H{"data.status": []string{"must be one of: paid, failed"}},
		})
		return
	}

	result, err := h.engine.HandleWebhook(c.Request.Context(), req.IdempotencyKey, req.Data.HoldID, req.Data.Status)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.Data(result.StatusCode, "application/json; charset=utf-8", result.Body)
}
