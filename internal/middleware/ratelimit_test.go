package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHoldsTestRouter(t *testing.T, limiter *RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/holds", limiter.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"data": gin.H{"hold_id": "h1"}})
	})
	return router
}

func TestNewHoldsRateLimiterAllowsUnderBudget(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer func() { _ = client.Close() }()

	limiter := NewHoldsRateLimiter(client, 2, nil)
	router := newHoldsTestRouter(t, limiter)

	req := httptest.NewRequest(http.MethodPost, "/holds", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(RateLimitHeader))
}

func TestNewHoldsRateLimiterRejectsOverBudget(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer func() { _ = client.Close() }()

	limiter := NewHoldsRateLimiter(client, 1, nil)
	router := newHoldsTestRouter(t, limiter)

	first := httptest.NewRequest(http.MethodPost, "/holds", nil)
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusCreated, firstRec.Code)

	second := httptest.NewRequest(http.MethodPost, "/holds", nil)
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)

	assert.Equal(t, http.StatusTooManyRequests, secondRec.Code)
}

func TestNewHoldsRateLimiterFallsBackToLocalMapWithoutRedis(t *testing.T) {
	limiter := NewHoldsRateLimiter(nil, 1, nil)
	router := newHoldsTestRouter(t, limiter)

	first := httptest.NewRequest(http.MethodPost, "/holds", nil)
	first.RemoteAddr = "203.0.113.5:1234"
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)
	require.Equal(t, http.StatusCreated, firstRec.Code)

	second := httptest.NewRequest(http.MethodPost, "/holds", nil)
	second.RemoteAddr = "203.0.113.5:1234"
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)

	assert.Equal(t, http.StatusTooManyRequests, secondRec.Code)
}
