package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/tuyamon/pkg/api/types"
	"github.com/urmzd/tuyamon/pkg/device"
)

// DevicesHandler serves the device catalog. Local keys are never returned.
type DevicesHandler struct {
	catalog *device.Catalog
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(catalog *device.Catalog) *DevicesHandler {
	return &DevicesHandler{catalog: catalog}
}

// ListDevices handles GET /devices
// @Summary      List all devices
// @Description  Returns every catalog device with its resolved data point mapping
// @Tags         devices
// @Produce      json
// @Success      200  {object}  types.ListDevicesResponse
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	records := h.catalog.List()
	result := make([]device.Summary, 0, len(records))
	for i := range records {
		result = append(result, records[i].Summarize())
	}

	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: result,
		Count:   len(result),
	})
}

// GetDevice handles GET /devices/:name
// @Summary      Get device details
// @Description  Returns a catalog device by name or ID
// @Tags         devices
// @Produce      json
// @Param        name  path      string  true  "Device name or ID"
// @Success      200   {object}  types.DeviceResponse
// @Failure      404   {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{name} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	r, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DeviceResponse{Device: r.Summarize()})
}
