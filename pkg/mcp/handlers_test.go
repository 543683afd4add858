package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close() })

	catalog, err := device.ParseCatalog([]byte(`[{"name": "Automatico", "id": "bf01", "key": "k",
		"mapping": {"20": {"code": "cur_voltage", "values": {"unit": "V", "scale": 1}}}}]`))
	if err != nil {
		t.Fatal(err)
	}

	s := NewServer(Deps{
		Catalog:   catalog,
		Statuses:  database.Statuses(),
		DB:        database,
		Validator: schema.NewValidator(),
		Format:    dps.Format{Location: time.UTC},
	})
	return s, database
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text
}

func TestGetHealth(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleGetHealth(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	var out GetHealthOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "healthy" || out.Devices != 1 {
		t.Errorf("out = %+v", out)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleGetDevice(context.Background(), call(map[string]any{"name": "Garaje"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}

	res, _ = s.handleGetDevice(context.Background(), call(map[string]any{}))
	if !res.IsError || !strings.Contains(resultText(t, res), "missing") {
		t.Errorf("missing name result = %+v", res)
	}
}

func TestDecodeStatus(t *testing.T) {
	s, _ := newTestServer(t)

	for _, payload := range []any{
		map[string]any{"dps": map[string]any{"20": float64(2305)}},
		`{"dps": {"20": 2305}}`,
	} {
		res, err := s.handleDecodeStatus(context.Background(), call(map[string]any{
			"name":    "bf01",
			"payload": payload,
		}))
		if err != nil {
			t.Fatal(err)
		}
		var out StatusOutput
		if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
			t.Fatal(err)
		}
		if len(out.Lines) != 2 || out.Lines[1] != "cur_voltage=230.5 V" {
			t.Errorf("lines = %q", out.Lines)
		}
	}

	res, _ := s.handleDecodeStatus(context.Background(), call(map[string]any{
		"name":    "bf01",
		"payload": map[string]any{"Err": "905"},
	}))
	if !res.IsError {
		t.Error("payload without dps should fail validation")
	}
}

func TestLatestStatusAndHistory(t *testing.T) {
	s, database := newTestServer(t)
	ctx := context.Background()

	res, _ := s.handleGetLatestStatus(ctx, call(map[string]any{"name": "Automatico"}))
	if !res.IsError {
		t.Error("expected error with no saved status")
	}

	err := database.Statuses().Insert(ctx, &db.StatusRecord{
		DeviceName: "Automatico",
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:     json.RawMessage(`{"dps": {"20": 2301}}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, _ = s.handleGetLatestStatus(ctx, call(map[string]any{"name": "Automatico"}))
	var out StatusOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{"Device: Automatico at 2024-03-01 12:00:00", "cur_voltage=230.1 V"}
	if strings.Join(out.Lines, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q", out.Lines)
	}

	res, _ = s.handleGetHistory(ctx, call(map[string]any{"name": "Automatico", "limit": float64(5)}))
	var hist HistoryOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &hist); err != nil {
		t.Fatal(err)
	}
	if hist.Count != 1 {
		t.Errorf("history = %+v", hist)
	}
}

func TestDecodePhase(t *testing.T) {
	s, _ := newTestServer(t)

	res, _ := s.handleDecodePhase(context.Background(), call(map[string]any{
		"value":           "CP0AMHAACzY=",
		"contracted_amps": float64(40),
	}))
	var out DecodePhaseOutput
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Reading.Voltage != 230.1 || out.Reading.Current != 12.4 || out.Reading.Power != 2.87 {
		t.Errorf("reading = %+v", out.Reading)
	}
	if out.LoadPercent == nil {
		t.Error("load percent missing")
	}

	res, _ = s.handleDecodePhase(context.Background(), call(map[string]any{"value": "!!"}))
	if !res.IsError {
		t.Error("expected error for invalid base64")
	}
}
