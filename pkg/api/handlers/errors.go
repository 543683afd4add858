package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/tuyamon/pkg/api/types"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// abortWithError maps package sentinel errors to HTTP responses.
func abortWithError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, device.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, db.ErrStatusNotFound):
		status, code = http.StatusNotFound, "no_status"
	case errors.Is(err, device.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, dps.ErrNoDPS):
		status, code = http.StatusUnprocessableEntity, "no_dps"
	case errors.Is(err, dps.ErrDecode), errors.Is(err, dps.ErrMalformedPacket):
		status, code = http.StatusUnprocessableEntity, "decode_error"
	case errors.Is(err, device.ErrTimeout):
		status, code = http.StatusGatewayTimeout, "timeout"
	}
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: code, Message: err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
