package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// ProductReader is the read-only store dependency GET /products/{id} needs.
type ProductReader interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *store.Tx) error) error
}

// ProductHandler serves GET /products/{id}, populating the product cache
// (C3) on a miss and serving straight from it on a hit.
type ProductHandler struct {
	store  ProductReader
	cache  *cache.ProductCache
	logger *zaplogrus.Logger
}

// NewProductHandler builds a ProductHandler.
func NewProductHandler(s ProductReader, c *cache.ProductCache, logger *zaplogrus.Logger) *ProductHandler {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &ProductHandler{store: s, cache: c, logger: logger}
}

// ProductResponse is the JSON shape of a product (spec §6).
type ProductResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalStock int64  `json:"total_stock"`
	Price      string `json:"price"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		TotalStock: p.TotalStock,
		Price:      p.Price.String(),
		CreatedAt:  p.CreatedAt.Format(timeFormat),
		UpdatedAt:  p.UpdatedAt.Format(timeFormat),
	}
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")

	if h.cache != nil {
		if p, ok := h.cache.Get(c.Request.Context(), id); ok {
			c.JSON(http.StatusOK, gin.H{"data": toProductResponse(p)})
			return
		}
	}

	var product *domain.Product
	err := h.store.WithTx(c.Request.Context(), func(ctx context.Context, tx *store.Tx) error {
		p, err := tx.Product(ctx, id)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), product); err != nil {
			h.logger.WithError(err).Warn("products: cache set failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": toProductResponse(product)})
}
