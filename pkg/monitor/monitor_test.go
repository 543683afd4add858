package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/device"
	"github.com/urmzd/tuyamon/pkg/device/schema"
	"github.com/urmzd/tuyamon/pkg/dps"
)

// fakeClient serves queued status answers and records heartbeats.
type fakeClient struct {
	mu         sync.Mutex
	statuses   []dps.Payload
	statusErr  error
	heartbeats int
	updates    chan dps.Payload
}

func newFakeClient(statuses ...dps.Payload) *fakeClient {
	return &fakeClient{statuses: statuses, updates: make(chan dps.Payload, 4)}
}

func (c *fakeClient) Status(ctx context.Context) (dps.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	if len(c.statuses) == 0 {
		return nil, device.ErrTimeout
	}
	p := c.statuses[0]
	c.statuses = c.statuses[1:]
	return p, nil
}

func (c *fakeClient) Heartbeat(ctx context.Context) (dps.Payload, error) {
	c.mu.Lock()
	c.heartbeats++
	c.mu.Unlock()
	return nil, nil
}

func (c *fakeClient) Receive(ctx context.Context) (dps.Payload, error) {
	select {
	case p := <-c.updates:
		return p, nil
	case <-ctx.Done():
		return nil, nil
	}
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Close()            {}

type saved struct {
	device  string
	payload dps.Payload
	report  *dps.Report
}

type fakeSink struct {
	mu    sync.Mutex
	saves []saved
	ch    chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{ch: make(chan struct{}, 16)}
}

func (s *fakeSink) Save(_ context.Context, device string, _ time.Time, payload dps.Payload, report *dps.Report) error {
	s.mu.Lock()
	s.saves = append(s.saves, saved{device, payload, report})
	s.mu.Unlock()
	s.ch <- struct{}{}
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func testRecord(t *testing.T) *device.Record {
	t.Helper()
	var mapping dps.Schema
	err := json.Unmarshal([]byte(`{
		"1": {"code": "switch", "type": "Boolean"},
		"20": {"code": "cur_voltage", "type": "Integer", "values": {"unit": "V", "scale": 1}}
	}`), &mapping)
	if err != nil {
		t.Fatal(err)
	}
	return &device.Record{Name: "Automatico", ID: "bf01", Mapping: mapping}
}

func waitSave(t *testing.T, s *fakeSink) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a saved status")
	}
}

func TestHandle_DecodesAndSaves(t *testing.T) {
	sink := newFakeSink()
	m := New(testRecord(t), newFakeClient(), sink, Options{Format: dps.Format{Location: time.UTC}})

	err := m.Handle(context.Background(), dps.Payload{"dps": map[string]any{"20": float64(2305), "1": true}})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sink.count() != 1 {
		t.Fatalf("saves = %d", sink.count())
	}
	r := sink.saves[0].report
	if len(r.Points) != 2 || r.Points[1].Value != 230.5 || r.Points[1].Unit != "V" {
		t.Errorf("report = %+v", r.Points)
	}
}

func TestHandle_ErrorMarkersNotSaved(t *testing.T) {
	sink := newFakeSink()
	m := New(testRecord(t), newFakeClient(), sink, Options{})

	err := m.Handle(context.Background(), dps.Payload{"Error": "Network Error: Device Unreachable", "Err": "905"})
	if !errors.Is(err, ErrDeviceReported) {
		t.Errorf("err = %v, want ErrDeviceReported", err)
	}
	if sink.count() != 0 {
		t.Error("error payload was saved")
	}
}

func TestHandle_NoDPS(t *testing.T) {
	m := New(testRecord(t), newFakeClient(), newFakeSink(), Options{})
	if err := m.Handle(context.Background(), dps.Payload{"t": 1}); !errors.Is(err, dps.ErrNoDPS) {
		t.Errorf("err = %v, want ErrNoDPS", err)
	}
}

func TestHandle_Validation(t *testing.T) {
	sink := newFakeSink()
	m := New(testRecord(t), newFakeClient(), sink, Options{Validator: schema.NewValidator()})

	err := m.Handle(context.Background(), dps.Payload{"dps": map[string]any{"1": []any{1, 2}}})
	if !errors.Is(err, device.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if sink.count() != 0 {
		t.Error("invalid payload was saved")
	}
}

func TestRun_InitialStatusThenUpdates(t *testing.T) {
	client := newFakeClient(dps.Payload{"dps": map[string]any{"1": true}})
	sink := newFakeSink()
	m := New(testRecord(t), client, sink, Options{
		StatusInterval: time.Hour,
		Keepalive:      20 * time.Millisecond,
		ErrorBackoff:   time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitSave(t, sink)
	client.updates <- dps.Payload{"dps": map[string]any{"20": float64(2301)}}
	waitSave(t, sink)

	// let at least one keep-alive fire
	time.Sleep(60 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sink.count() != 2 {
		t.Errorf("saves = %d, want 2", sink.count())
	}
	client.mu.Lock()
	hb := client.heartbeats
	client.mu.Unlock()
	if hb == 0 {
		t.Error("no heartbeat sent")
	}
}

func TestRun_StatusErrorsBackOff(t *testing.T) {
	client := newFakeClient()
	client.statusErr = device.ErrNotConnected
	m := New(testRecord(t), client, newFakeSink(), Options{
		StatusInterval: time.Millisecond,
		Keepalive:      time.Hour,
		ErrorBackoff:   time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestStoreSink(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = database.Close() }()

	m := New(testRecord(t), newFakeClient(), StoreSink{Store: database.Statuses()}, Options{})
	if err := m.Handle(ctx, dps.Payload{"dps": map[string]any{"20": float64(2305)}}); err != nil {
		t.Fatal(err)
	}

	rec, err := database.Statuses().Latest(ctx, "Automatico")
	if err != nil {
		t.Fatal(err)
	}
	var report dps.Report
	if err := json.Unmarshal(rec.Decoded, &report); err != nil {
		t.Fatalf("decoded_json: %v", err)
	}
	if len(report.Points) != 1 || report.Points[0].Code != "cur_voltage" {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_NullClientSavesNothing(t *testing.T) {
	sink := newFakeSink()
	m := New(testRecord(t), device.NewNullClient(), sink, Options{
		StatusInterval: 5 * time.Millisecond,
		Keepalive:      5 * time.Millisecond,
		ErrorBackoff:   time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if sink.count() != 0 {
		t.Errorf("saves = %d", sink.count())
	}
}
