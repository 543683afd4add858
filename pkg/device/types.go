package device

import "github.com/urmzd/tuyamon/pkg/dps"

// Defaults applied to catalog records that omit them.
const (
	DefaultAddress = "Auto"
	DefaultVersion = "3.3"
)

// Record is one device entry of the catalog file produced by the vendor
// provisioning wizard (devices.json).
type Record struct {
	Name     string     `json:"name"`
	ID       string     `json:"id"`
	Key      string     `json:"key"`                // Local authentication secret
	IP       string     `json:"ip,omitempty"`       // "Auto" triggers a network scan in the client
	Version  string     `json:"version,omitempty"`  // Local protocol version
	Category string     `json:"category,omitempty"` // Vendor product category
	Product  string     `json:"product_name,omitempty"`
	Mapping  dps.Schema `json:"mapping,omitempty"` // Data point schema keyed by DPS index
}

// Address returns the configured IP or DefaultAddress.
func (r *Record) Address() string {
	if r.IP == "" {
		return DefaultAddress
	}
	return r.IP
}

// ProtocolVersion returns the configured version or DefaultVersion.
func (r *Record) ProtocolVersion() string {
	if r.Version == "" {
		return DefaultVersion
	}
	return r.Version
}

// Decoder returns a data point decoder bound to this device's mapping.
func (r *Record) Decoder() *dps.Decoder {
	return dps.NewDecoder(r.Mapping)
}

// Summary is a catalog record without its secret.
type Summary struct {
	Name       string      `json:"name"`
	ID         string      `json:"id"`
	Address    string      `json:"address"`
	Version    string      `json:"version"`
	Category   string      `json:"category,omitempty"`
	Product    string      `json:"product,omitempty"`
	DataPoints []DataPoint `json:"data_points"`
}

// DataPoint describes one mapping entry after schema resolution.
type DataPoint struct {
	Key   string `json:"key"`
	Code  string `json:"code"`
	Type  string `json:"type"`
	Unit  string `json:"unit,omitempty"`
	Scale *int   `json:"scale,omitempty"`
}

// Summarize resolves every mapping entry of r, in data point order.
func (r *Record) Summarize() Summary {
	keys := make([]string, 0, len(r.Mapping))
	for k := range r.Mapping {
		keys = append(keys, k)
	}
	dps.SortKeys(keys)

	points := make([]DataPoint, 0, len(keys))
	for _, k := range keys {
		res := r.Mapping.Resolve(k)
		dp := DataPoint{Key: k, Code: res.Code, Type: res.Type}
		if unit, ok := r.Mapping.Unit(k); ok {
			dp.Unit = unit
		}
		if scale, ok := r.Mapping.Scale(k); ok {
			dp.Scale = &scale
		}
		points = append(points, dp)
	}

	return Summary{
		Name:       r.Name,
		ID:         r.ID,
		Address:    r.Address(),
		Version:    r.ProtocolVersion(),
		Category:   r.Category,
		Product:    r.Product,
		DataPoints: points,
	}
}
