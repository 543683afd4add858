package dps

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalizer turns raw data point values into display values.
type Normalizer struct {
	// LegacyTenths divides keys "1" and "2" by 10 when the device has no
	// mapping at all. Older temperature/humidity sensors report that way.
	LegacyTenths bool
}

// Normalize applies the default Normalizer.
func Normalize(key any, raw any, schema Schema) any {
	return Normalizer{}.Normalize(key, raw, schema)
}

// Normalize returns raw unchanged when it is not numeric (booleans included).
// Numeric values become float64, divided by 10^scale when key has a scale.
func (n Normalizer) Normalize(key any, raw any, schema Schema) any {
	num, ok := toNumber(raw)
	if !ok {
		return raw
	}
	if scale, ok := schema.Scale(key); ok {
		return num / math.Pow10(scale)
	}
	if n.LegacyTenths && len(schema) == 0 {
		switch keyString(key) {
		case "1", "2":
			return num / 10
		}
	}
	return num
}

// toNumber interprets v as a decimal number. Booleans are never numeric.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, isFinite(x)
	case float32:
		return float64(x), isFinite(float64(x))
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && isFinite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

// isFinite rejects NaN and the infinities, which JSON cannot carry.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
