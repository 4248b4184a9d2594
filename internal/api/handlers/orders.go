package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

// OrderEngine is the C5 contract this handler drives.
type OrderEngine interface {
	CreateOrder(ctx context.Context, holdID string) (*domain.Order, error)
}

// OrderHandler serves POST /orders.
type OrderHandler struct {
	engine OrderEngine
}

// NewOrderHandler builds an OrderHandler.
func NewOrderHandler(engine OrderEngine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

type createOrderRequest struct {
	HoldID string `json:"hold_id" binding:"required"`
}

type orderResponse struct {
	ID          string `json:"id"`
	HoldID      string `json:"hold_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		HoldID:      o.HoldID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.String(),
		CreatedAt:   o.CreatedAt.Format(timeFormat),
		UpdatedAt:   o.UpdatedAt.Format(timeFormat),
	}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "invalid request body",
			"errors":  gin.H{"input": []string{err.Error()}},
		})
		return
	}

	order, err := h.engine.CreateOrder(c.Request.Context(), req.HoldID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toOrderResponse(order)})
}
