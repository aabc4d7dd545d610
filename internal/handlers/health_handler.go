package handlers

import (
	"context"
	"net/http"
	"time"

	"invoicely-backend/internal/cache"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	DB *pgxpool.Pool
}

func NewHealthHandler(db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health reports liveness of the process and its backing services. Redis is
// optional, so a missing cache degrades the report without failing it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	overall := "ok"
	dbStatus := "up"
	if err := h.DB.Ping(ctx); err != nil {
		dbStatus = "down"
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	cacheStatus := "up"
	if c := cache.GetClient(); c == nil {
		cacheStatus = "disabled"
	} else if err := c.Ping(ctx).Err(); err != nil {
		cacheStatus = "down"
	}

	writeJSON(w, status, map[string]string{
		"status":   overall,
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
