package dps

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSortKeys(t *testing.T) {
	keys := []string{"10", "2", "abc", "1"}
	SortKeys(keys)
	want := []string{"1", "2", "10", "abc"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("SortKeys = %v, want %v", keys, want)
	}
}

func TestSortKeys_NonNumericLexical(t *testing.T) {
	keys := []string{"zeta", "101", "alpha", "20", "9"}
	SortKeys(keys)
	want := []string{"9", "20", "101", "alpha", "zeta"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("SortKeys = %v, want %v", keys, want)
	}
}

func TestDecoder_NoDPS(t *testing.T) {
	d := NewDecoder(nil)
	for _, p := range []Payload{nil, {}, {"Error": "Network Error: Device Unreachable", "Err": "905"}, {"dps": "x"}} {
		if _, err := d.Decode(p); !errors.Is(err, ErrNoDPS) {
			t.Errorf("Decode(%v) err = %v, want ErrNoDPS", p, err)
		}
	}
}

func TestDecoder_EndToEnd(t *testing.T) {
	schema := mustSchema(t, `{
		"1": {"code": "power", "type": "Boolean"},
		"6": {"code": "phase_a", "type": "Raw"}
	}`)
	phase := phaseValue(2301, 12400, 2870)
	payload := Payload{
		"dps": map[string]any{"6": phase, "1": true},
		"t":   float64(1700000000),
	}

	r, err := NewDecoder(schema).Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Timestamp == nil || r.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v", r.Timestamp)
	}
	if len(r.Points) != 2 {
		t.Fatalf("got %d points", len(r.Points))
	}
	if r.Points[0].Code != "power" || r.Points[0].Value != true {
		t.Errorf("first point = %+v", r.Points[0])
	}
	p := r.Points[1]
	if p.Code != "phase_a" || p.Value != phase {
		t.Errorf("second point = %+v", p)
	}
	if p.Phase == nil || *p.Phase != (PhaseReading{Voltage: 230.1, Current: 12.4, Power: 2.87}) {
		t.Errorf("phase = %+v", p.Phase)
	}

	lines := Format{Location: time.UTC}.Lines(r, "breaker", time.Unix(1700000100, 0))
	want := []string{
		"Device: breaker at 2023-11-14 22:15:00",
		"Timestamp: 2023-11-14 22:13:20",
		"power=True",
		"phase_a=" + phase,
		" Voltage: 230.1 V",
		" Current: 12.4 A",
		" Power: 2.87 kW",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("Lines =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestDecoder_PhaseFailureIsScopedToPoint(t *testing.T) {
	schema := mustSchema(t, `{
		"6": {"code": "phase_a", "type": "Raw"},
		"18": {"code": "cur_current", "type": "Integer", "values": {"unit": "mA"}}
	}`)
	payload := Payload{"dps": map[string]any{"6": "not-base64!!", "18": float64(120)}}

	r, err := NewDecoder(schema).Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(r.Points) != 2 {
		t.Fatalf("got %d points, want both", len(r.Points))
	}
	bad := r.Points[0]
	if bad.Phase != nil || !errors.Is(bad.Err, ErrDecode) || bad.PhaseErr == "" {
		t.Errorf("phase point = %+v", bad)
	}
	if got := r.PhaseErrors(); len(got) != 1 || got[0].Key != "6" {
		t.Errorf("PhaseErrors = %v", got)
	}
	if r.Points[1].Value != float64(120) || r.Points[1].Unit != "mA" {
		t.Errorf("current point = %+v", r.Points[1])
	}
}

func TestDecoder_NonStringPhaseValue(t *testing.T) {
	schema := mustSchema(t, `{"6": {"code": "phase_a"}}`)
	r, err := NewDecoder(schema).Decode(Payload{"dps": map[string]any{"6": float64(3)}})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(r.Points[0].Err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", r.Points[0].Err)
	}
}

func TestDecoder_CustomPhaseCodes(t *testing.T) {
	d := &Decoder{
		Schema:     mustSchema(t, `{"17": {"code": "phase_b"}}`),
		PhaseCodes: []string{"phase_b"},
	}
	r, err := d.Decode(Payload{"dps": map[string]any{"17": phaseValue(2290, 1000, 229)}})
	if err != nil {
		t.Fatal(err)
	}
	if r.Points[0].Phase == nil || r.Points[0].Phase.Voltage != 229 {
		t.Errorf("phase = %+v", r.Points[0].Phase)
	}
}

func TestDecoder_BooleanHasNoUnit(t *testing.T) {
	schema := mustSchema(t, `{"1": {"code": "switch", "type": "Boolean", "values": {"unit": "W", "scale": 1}}}`)
	r, err := NewDecoder(schema).Decode(Payload{"dps": map[string]any{"1": false}})
	if err != nil {
		t.Fatal(err)
	}
	if got := PointLine(r.Points[0]); got != "switch=False" {
		t.Errorf("line = %q", got)
	}
}

func TestDecoder_UnparseableTimestamp(t *testing.T) {
	r, err := NewDecoder(nil).Decode(Payload{"dps": map[string]any{}, "t": "yesterday"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Timestamp != nil || r.TimestampRaw != "yesterday" {
		t.Errorf("report = %+v", r)
	}
	lines := Format{}.Lines(r, "dev", time.Now())
	if len(lines) != 2 || !strings.Contains(lines[1], "yesterday") {
		t.Errorf("lines = %v", lines)
	}
}

func TestDecoder_OutOfRangeTimestamp(t *testing.T) {
	for _, ts := range []any{float64(1e300), float64(-1e300), json.Number("1e19")} {
		r, err := NewDecoder(nil).Decode(Payload{"dps": map[string]any{}, "t": ts})
		if err != nil {
			t.Fatal(err)
		}
		if r.Timestamp != nil || r.TimestampRaw != ts {
			t.Errorf("t=%v: timestamp = %v, raw = %v", ts, r.Timestamp, r.TimestampRaw)
		}
	}
}

func TestReport_NonFiniteValuesStillMarshal(t *testing.T) {
	payload, err := ParsePayload([]byte(`{"dps": {"3": "NaN", "4": "Infinity", "5": 12}}`))
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewDecoder(nil).Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if r.Points[0].Value != "NaN" || r.Points[1].Value != "Infinity" {
		t.Errorf("values = %#v, %#v", r.Points[0].Value, r.Points[1].Value)
	}
	if _, err := json.Marshal(r); err != nil {
		t.Errorf("marshal: %v", err)
	}
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload([]byte(`{"dps": {"1": true, "20": 2305}, "t": 1700000000}`))
	if err != nil {
		t.Fatal(err)
	}
	dps, ok := p.DPS()
	if !ok || dps["20"] != json.Number("2305") {
		t.Errorf("dps = %v", dps)
	}
	if ts, ok := p.Timestamp(); !ok || ts.Unix() != 1700000000 {
		t.Errorf("timestamp = %v, %v", ts, ok)
	}
	if p.HasError() {
		t.Error("HasError = true")
	}

	if _, err := ParsePayload([]byte(`{`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestPayload_HasError(t *testing.T) {
	if !(Payload{"Err": "901"}).HasError() {
		t.Error("Err marker not detected")
	}
	if !(Payload{"Error": "timeout"}).HasError() {
		t.Error("Error marker not detected")
	}
}

func TestReport_MarshalJSON(t *testing.T) {
	schema := mustSchema(t, `{"20": {"code": "cur_voltage", "values": {"scale": 1, "unit": "V"}}}`)
	r, err := NewDecoder(schema).Decode(Payload{"dps": map[string]any{"20": float64(2305)}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"value":230.5`) || !strings.Contains(string(b), `"unit":"V"`) {
		t.Errorf("json = %s", b)
	}
}
