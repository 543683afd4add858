package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/tuyamon/pkg/api/types"
	"github.com/urmzd/tuyamon/pkg/device"
)

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db      Pinger
	catalog *device.Catalog
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, catalog *device.Catalog) *HealthHandler {
	return &HealthHandler{db: db, catalog: catalog}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and its status database
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	database := "unavailable"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err == nil {
			database = "connected"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if database != "connected" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Database:  database,
		Devices:   h.catalog.Len(),
		Timestamp: time.Now(),
	})
}
