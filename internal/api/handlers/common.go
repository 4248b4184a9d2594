// Package handlers implements the checkout HTTP surface (spec §6): thin gin
// handlers that translate requests into engine calls and engine errors into
// the response envelopes the API contract promises.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

const timeFormat = time.RFC3339

// respondStoreError maps a domain sentinel error to the HTTP status and body
// shape spec §6 prescribes, without leaking storage error text to the client.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": err.Error(),
			"errors":  gin.H{"input": []string{err.Error()}},
		})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"message": err.Error(),
			"errors":  gin.H{"input": []string{err.Error()}},
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
