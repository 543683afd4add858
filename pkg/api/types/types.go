package types

import (
	"encoding/json"
	"time"

	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// --- Request DTOs ---

// DecodePhaseRequest is the request body for POST /phase/decode
type DecodePhaseRequest struct {
	Value          string  `json:"value" binding:"required"` // Base64 phase record
	ContractedAmps float64 `json:"contracted_amps"`          // Adds load_percent when positive
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Devices   int       `json:"devices"`
	Timestamp time.Time `json:"timestamp"`
}

// ListDevicesResponse is returned from GET /devices
type ListDevicesResponse struct {
	Devices []device.Summary `json:"devices"`
	Count   int              `json:"count"`
}

// DeviceResponse is returned from GET /devices/:name
type DeviceResponse struct {
	Device device.Summary `json:"device"`
}

// DecodeResponse is returned from POST /devices/:name/decode
type DecodeResponse struct {
	Device string      `json:"device"`
	Report *dps.Report `json:"report"`
	Lines  []string    `json:"lines"`
}

// StatusResponse is returned from GET /devices/:name/status
type StatusResponse struct {
	Device    string          `json:"device"`
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"` // When the payload was saved
	Status    json.RawMessage `json:"status"`
	Report    *dps.Report     `json:"report,omitempty"`
	Lines     []string        `json:"lines,omitempty"`
}

// HistoryEntry is one saved payload in a history listing
type HistoryEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Status    json.RawMessage `json:"status"`
	Decoded   json.RawMessage `json:"decoded,omitempty"`
}

// HistoryResponse is returned from GET /devices/:name/history
type HistoryResponse struct {
	Device  string         `json:"device"`
	Records []HistoryEntry `json:"records"`
	Count   int            `json:"count"`
}

// PhaseResponse is returned from POST /phase/decode
type PhaseResponse struct {
	Reading     dps.PhaseReading `json:"reading"`
	LoadPercent *float64         `json:"load_percent,omitempty"`
}
