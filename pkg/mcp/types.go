package mcp

import (
	"encoding/json"

	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Database  string `json:"database" jsonschema:"description=Status database reachability"`
	Devices   int    `json:"devices" jsonschema:"description=Number of catalog devices"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- Catalog Tools ---

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Devices []device.Summary `json:"devices" jsonschema:"description=Catalog devices"`
	Count   int              `json:"count" jsonschema:"description=Total number of devices"`
}

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device device.Summary `json:"device" jsonschema:"description=Device information"`
}

// --- Status Tools ---

// StatusOutput is the output for the get_latest_status and decode_status tools
type StatusOutput struct {
	Device    string          `json:"device"`
	Timestamp string          `json:"timestamp,omitempty" jsonschema:"description=When the payload was saved"`
	Status    json.RawMessage `json:"status,omitempty"`
	Report    *dps.Report     `json:"report,omitempty"`
	Lines     []string        `json:"lines" jsonschema:"description=Rendered code=value lines"`
}

// HistoryOutput is the output for the get_history tool
type HistoryOutput struct {
	Device  string          `json:"device"`
	Records []HistoryRecord `json:"records"`
	Count   int             `json:"count"`
}

// HistoryRecord is one saved status
type HistoryRecord struct {
	ID        int64           `json:"id"`
	Timestamp string          `json:"timestamp"`
	Status    json.RawMessage `json:"status"`
}

// --- Phase Tool ---

// DecodePhaseOutput is the output for the decode_phase tool
type DecodePhaseOutput struct {
	Reading     dps.PhaseReading `json:"reading"`
	LoadPercent *float64         `json:"load_percent,omitempty"`
}
