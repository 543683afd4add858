package dps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Payload is a status response as produced by a device client:
// {"dps": {"1": true, ...}, "t": 1700000000}, possibly with "Err"/"Error" markers.
type Payload map[string]any

// ParsePayload decodes a JSON status payload, keeping numbers as json.Number
// so large timestamps survive.
func ParsePayload(b []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// DPS returns the reported data points.
func (p Payload) DPS() (map[string]any, bool) {
	if p == nil {
		return nil, false
	}
	d, ok := p["dps"].(map[string]any)
	return d, ok
}

// HasError reports whether the client flagged the payload as an error response.
func (p Payload) HasError() bool {
	if p == nil {
		return false
	}
	_, err := p["Err"]
	_, errLong := p["Error"]
	return err || errLong
}

// Bounds of a "t" value that converts to int64 seconds and back to a valid time.
const (
	minUnix = -62135596800 // 0001-01-01
	maxUnix = 253402300799 // 9999-12-31
)

// Timestamp returns the capture time carried in "t".
func (p Payload) Timestamp() (time.Time, bool) {
	v, ok := p["t"]
	if !ok {
		return time.Time{}, false
	}
	f, ok := toNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < minUnix || f > maxUnix {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0), true
}

// Point is one resolved data point.
type Point struct {
	Key      string        `json:"key"`
	Code     string        `json:"code"`
	Type     string        `json:"type"`
	Raw      any           `json:"raw"`
	Value    any           `json:"value"`
	Unit     string        `json:"unit,omitempty"`
	Phase    *PhaseReading `json:"phase,omitempty"`
	PhaseErr string        `json:"phase_error,omitempty"`

	// Err is the phase decode failure, wrapping ErrDecode or ErrMalformedPacket.
	Err error `json:"-"`
}

// IsBoolean reports whether the point is declared Boolean.
func (p Point) IsBoolean() bool {
	return p.Type == TypeBoolean
}

// Report is the decoded form of one status payload.
type Report struct {
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	TimestampRaw any        `json:"timestamp_raw,omitempty"`
	Points       []Point    `json:"points"`
}

// PhaseErrors returns the points whose phase record failed to decode.
func (r *Report) PhaseErrors() []Point {
	var out []Point
	for _, p := range r.Points {
		if p.PhaseErr != "" {
			out = append(out, p)
		}
	}
	return out
}

// Decoder resolves, normalizes and orders the data points of a payload.
// The zero value is ready to use; a Decoder holds no mutable state.
type Decoder struct {
	Schema     Schema
	Normalizer Normalizer
	// PhaseCodes overrides the codes that trigger phase decoding.
	PhaseCodes []string
}

// NewDecoder returns a Decoder for the given device mapping.
func NewDecoder(schema Schema) *Decoder {
	return &Decoder{Schema: schema}
}

// Decode returns ErrNoDPS when the payload carries no data point mapping.
// Phase decode failures are recorded on the point and do not stop the pass.
func (d *Decoder) Decode(p Payload) (*Report, error) {
	points, ok := p.DPS()
	if !ok {
		return nil, ErrNoDPS
	}

	r := &Report{Points: make([]Point, 0, len(points))}
	if ts, ok := p.Timestamp(); ok {
		r.Timestamp = &ts
	} else if raw, ok := p["t"]; ok {
		r.TimestampRaw = raw
	}

	keys := make([]string, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	SortKeys(keys)

	for _, k := range keys {
		r.Points = append(r.Points, d.point(k, points[k]))
	}
	return r, nil
}

func (d *Decoder) point(key string, raw any) Point {
	res := d.Schema.Resolve(key)
	pt := Point{
		Key:   key,
		Code:  res.Code,
		Type:  res.Type,
		Raw:   raw,
		Value: d.Normalizer.Normalize(key, raw, d.Schema),
	}
	if unit, ok := d.Schema.Unit(key); ok && !pt.IsBoolean() {
		pt.Unit = unit
	}
	if pt.IsBoolean() {
		pt.Value = raw
	}

	if d.isPhase(pt.Code) {
		s, ok := raw.(string)
		if !ok {
			pt.Err = fmt.Errorf("%w: value is %T, not a string", ErrDecode, raw)
			pt.PhaseErr = pt.Err.Error()
			return pt
		}
		reading, err := DecodePhase(s)
		if err != nil {
			pt.Err = err
			pt.PhaseErr = err.Error()
			return pt
		}
		pt.Phase = &reading
	}
	return pt
}

func (d *Decoder) isPhase(code string) bool {
	if len(d.PhaseCodes) == 0 {
		return code == PhaseCode
	}
	for _, c := range d.PhaseCodes {
		if c == code {
			return true
		}
	}
	return false
}

// SortKeys orders data point keys: integer keys ascending first, then the
// remaining keys lexically.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(strings.TrimSpace(keys[i]))
		b, bErr := strconv.Atoi(strings.TrimSpace(keys[j]))
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
