package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/tuyamon/pkg/api/types"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// StatusHandler serves saved status payloads.
type StatusHandler struct {
	catalog  *device.Catalog
	statuses db.StatusStore
	format   dps.Format
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(catalog *device.Catalog, statuses db.StatusStore, format dps.Format) *StatusHandler {
	return &StatusHandler{catalog: catalog, statuses: statuses, format: format}
}

// LatestStatus handles GET /devices/:name/status
// @Summary      Get latest status
// @Description  Returns the most recent saved payload, decoded with the current device mapping
// @Tags         status
// @Produce      json
// @Param        name  path      string  true  "Device name or ID"
// @Success      200   {object}  types.StatusResponse
// @Failure      404   {object}  types.ErrorResponse  "Device or status not found"
// @Failure      500   {object}  types.ErrorResponse  "Database error"
// @Router       /devices/{name}/status [get]
func (h *StatusHandler) LatestStatus(c *gin.Context) {
	r, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	rec, err := h.statuses.Latest(c.Request.Context(), r.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := types.StatusResponse{
		Device:    r.Name,
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Status:    rec.Status,
	}
	// A payload that no longer decodes is still returned, without a report.
	if payload, err := dps.ParsePayload(rec.Status); err == nil {
		if report, err := r.Decoder().Decode(payload); err == nil {
			resp.Report = report
			resp.Lines = h.format.Lines(report, r.Name, rec.Timestamp)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// History handles GET /devices/:name/history
// @Summary      List saved statuses
// @Description  Returns saved payloads newest first, optionally bounded by time
// @Tags         status
// @Produce      json
// @Param        name   path      string  true   "Device name or ID"
// @Param        since  query     string  false  "RFC 3339 lower bound (inclusive)"
// @Param        until  query     string  false  "RFC 3339 upper bound (exclusive)"
// @Param        limit  query     int     false  "Maximum number of records (default 100)"
// @Success      200    {object}  types.HistoryResponse
// @Failure      400    {object}  types.ErrorResponse  "Invalid query"
// @Failure      404    {object}  types.ErrorResponse  "Device not found"
// @Failure      500    {object}  types.ErrorResponse  "Database error"
// @Router       /devices/{name}/history [get]
func (h *StatusHandler) History(c *gin.Context) {
	r, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	q, err := parseHistoryQuery(c, r.Name)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	records, err := h.statuses.List(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	entries := make([]types.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, types.HistoryEntry{
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			Status:    rec.Status,
			Decoded:   rec.Decoded,
		})
	}

	c.JSON(http.StatusOK, types.HistoryResponse{
		Device:  r.Name,
		Records: entries,
		Count:   len(entries),
	})
}

func parseHistoryQuery(c *gin.Context, name string) (db.StatusQuery, error) {
	q := db.StatusQuery{DeviceName: name}
	var err error
	if s := c.Query("since"); s != "" {
		if q.Since, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("since: %w", err)
		}
	}
	if s := c.Query("until"); s != "" {
		if q.Until, err = time.Parse(time.RFC3339, s); err != nil {
			return q, fmt.Errorf("until: %w", err)
		}
	}
	if s := c.Query("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 1 {
			return q, fmt.Errorf("limit must be a positive integer")
		}
	}
	return q, nil
}
