package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

// HoldEngine is the C4 contract this handler drives.
type HoldEngine interface {
	CreateHold(ctx context.Context, productID string, qty int64) (*domain.Hold, error)
}

// HoldHandler serves POST /holds.
type HoldHandler struct {
	engine HoldEngine
}

// NewHoldHandler builds a HoldHandler.
func NewHoldHandler(engine HoldEngine) *HoldHandler {
	return &HoldHandler{engine: engine}
}

type createHoldRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int64  `json:"qty"`
}

type holdResponse struct {
	HoldID    string `json:"hold_id"`
	ExpiresAt string `json:"expires_at"`
}

// Create handles POST /holds.
func (h *HoldHandler) Create(c *gin.Context) {
	var req createHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "invalid request body",
			"errors":  gin.H{"input": []string{err.Error()}},
		})
		return
	}

	hold, err := h.engine.CreateHold(c.Request.Context(), req.ProductID, req.Qty)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": holdResponse{
		HoldID:    hold.ID,
		ExpiresAt: hold.ExpiresAt.Format(timeFormat),
	}})
}
