package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DatabaseHealthChecker checks store connectivity.
type DatabaseHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RedisHealthChecker checks Redis connectivity.
type RedisHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves /health, /ready, and /live.
type HealthHandler struct {
	db    DatabaseHealthChecker
	redis RedisHealthChecker
}

// HealthResponse is the /health response body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// NewHealthHandler builds a HealthHandler. redis may be nil when no cache,
// rate limiter, or outbox is configured (RATE_LIMIT/PRODUCT_CACHE disabled).
func NewHealthHandler(db DatabaseHealthChecker, redis RedisHealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// HealthCheck reports the status of every critical dependency. A 503 means
// the database — the only dependency the checkout core cannot run without —
// is unreachable.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	dbHealthy := h.checkDependency(ctx, services, "database", h.db)
	h.checkDependency(ctx, services, "redis", h.redis)

	status := "healthy"
	if !dbHealthy {
		status = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	if !dbHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	})
}

func (h *HealthHandler) checkDependency(ctx context.Context, services map[string]string, name string, checker interface {
	HealthCheck(ctx context.Context) error
}) bool {
	if checker == nil {
		services[name] = "not configured"
		return true
	}
	if err := checker.HealthCheck(ctx); err != nil {
		services[name] = "unhealthy: " + err.Error()
		return false
	}
	services[name] = "healthy"
	return true
}

// ReadinessCheck reports whether the service is ready to accept traffic.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)
	ready := h.checkDependency(ctx, services, "database", h.db)

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":    ready,
		"services": services,
	})
}

// LivenessCheck reports that the process is up, without touching any
// dependency.
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
