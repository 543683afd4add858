package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/tuyamon/pkg/api/types"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// DecodeHandler decodes payloads posted by clients without saving them.
type DecodeHandler struct {
	catalog   *device.Catalog
	validator *schema.Validator
	format    dps.Format
}

// NewDecodeHandler creates a new decode handler
func NewDecodeHandler(catalog *device.Catalog, validator *schema.Validator, format dps.Format) *DecodeHandler {
	return &DecodeHandler{catalog: catalog, validator: validator, format: format}
}

// DecodeStatus handles POST /devices/:name/decode
// @Summary      Decode a status payload
// @Description  Decodes a raw status payload with the device mapping and renders its lines
// @Tags         decode
// @Accept       json
// @Produce      json
// @Param        name     path      string  true  "Device name or ID"
// @Param        payload  body      object  true  "Status payload as sent by the device"
// @Success      200      {object}  types.DecodeResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid payload"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Failure      422      {object}  types.ErrorResponse  "Payload has no data points"
// @Router       /devices/{name}/decode [post]
func (h *DecodeHandler) DecodeStatus(c *gin.Context) {
	r, err := h.catalog.Get(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "failed to read body")
		return
	}
	payload, err := dps.ParsePayload(body)
	if err != nil {
		badRequest(c, "body is not a JSON object")
		return
	}
	if h.validator != nil {
		if err := h.validator.ValidatePayload(payload); err != nil {
			abortWithError(c, fmt.Errorf("%w: %v", device.ErrValidation, err))
			return
		}
	}

	report, err := r.Decoder().Decode(payload)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.DecodeResponse{
		Device: r.Name,
		Report: report,
		Lines:  h.format.Lines(report, r.Name, time.Now()),
	})
}

// DecodePhase handles POST /phase/decode
// @Summary      Decode a phase record
// @Description  Decodes a base64 phase record into voltage, current and power
// @Tags         decode
// @Accept       json
// @Produce      json
// @Param        request  body      types.DecodePhaseRequest  true  "Phase record"
// @Success      200      {object}  types.PhaseResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      422      {object}  types.ErrorResponse  "Record could not be decoded"
// @Router       /phase/decode [post]
func (h *DecodeHandler) DecodePhase(c *gin.Context) {
	var req types.DecodePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "value is required")
		return
	}

	reading, err := dps.DecodePhase(req.Value)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := types.PhaseResponse{Reading: reading}
	amps := req.ContractedAmps
	if amps <= 0 {
		amps = h.format.ContractedAmps
	}
	if amps > 0 {
		load := reading.LoadPercent(amps)
		resp.LoadPercent = &load
	}
	c.JSON(http.StatusOK, resp)
}
