package handlers

import (
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/maintdesk/backend/internal/store"
)

type HealthHandler struct {
	store store.Store
	redis *redis.Client
}

func NewHealthHandler(st store.Store, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: st, redis: rdb}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz checks the store and redis. Redis is optional at runtime, so
// a missing client is simply not checked.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			checks["store"] = "unhealthy: " + err.Error()
		} else {
			checks["store"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
