package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gjmugshots/internal/queue"
	"github.com/your-org/gjmugshots/internal/storage"
)

// readyCheck probes one backing dependency of the records service.
type readyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// SystemHandler serves the liveness and readiness probes. Readiness
// covers everything a snapshot rebuild or file request can touch:
// the bookings table, the mugshot bucket, and the ingest stream.
type SystemHandler struct {
	checks []readyCheck
}

func NewSystemHandler(db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *SystemHandler {
	return &SystemHandler{checks: []readyCheck{
		{"postgres", db.Ping},
		{"minio", minio.Ping},
		{"nats", func(context.Context) error { return producer.Ping() }},
	}}
}

// Healthz only says the process is up; it must stay cheap enough for a
// tight probe interval.
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz runs every dependency check under one short deadline and
// reports 503 with the failing checks named when any is down.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true

	for _, check := range h.checks {
		if err := check.ping(ctx); err != nil {
			results[check.name] = err.Error()
			ready = false
		} else {
			results[check.name] = "ok"
		}
	}

	status := http.StatusOK
	verdict := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		verdict = "not ready"
	}

	c.JSON(status, gin.H{"status": verdict, "checks": results})
}
