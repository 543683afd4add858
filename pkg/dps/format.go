package dps

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const timeLayout = time.DateTime

// Format controls how a Report is rendered as text.
type Format struct {
	// Location is used for the header and capture timestamps; nil means local time.
	Location *time.Location
	// ContractedAmps adds a load percentage line to phase readings when positive.
	ContractedAmps float64
}

// Lines renders a report as a header, an optional capture time, one line per
// point and the derived readings of decoded phase points.
func (f Format) Lines(r *Report, device string, now time.Time) []string {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}

	lines := []string{fmt.Sprintf("Device: %s at %s", device, now.In(loc).Format(timeLayout))}
	switch {
	case r.Timestamp != nil:
		lines = append(lines, "Timestamp: "+r.Timestamp.In(loc).Format(timeLayout))
	case r.TimestampRaw != nil:
		lines = append(lines, fmt.Sprintf("Timestamp: %v (not a unix time)", r.TimestampRaw))
	}

	for _, p := range r.Points {
		lines = append(lines, PointLine(p))
		if p.Phase != nil {
			lines = append(lines, f.phaseLines(*p.Phase)...)
		}
	}
	return lines
}

// PointLine renders "code=value", adding " unit" for non-Boolean points with a unit.
func PointLine(p Point) string {
	if p.IsBoolean() {
		return p.Code + "=" + FormatValue(p.Raw)
	}
	s := p.Code + "=" + FormatValue(p.Value)
	if p.Unit != "" {
		s += " " + p.Unit
	}
	return s
}

func (f Format) phaseLines(r PhaseReading) []string {
	lines := []string{
		" Voltage: " + formatFloat(r.Voltage) + " V",
		" Current: " + formatFloat(r.Current) + " A",
		" Power: " + formatFloat(r.Power) + " kW",
	}
	if f.ContractedAmps > 0 {
		lines = append(lines, " Load: "+strconv.FormatFloat(r.LoadPercent(f.ContractedAmps), 'f', 1, 64)+" %")
	}
	return lines
}

// FormatValue renders a display value. Booleans print as True/False.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case json.Number:
		return x.String()
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
