package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStatuses_InsertAndLatest(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	store := database.Statuses()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, payload := range []string{
		`{"dps": {"1": true}}`,
		`{"dps": {"1": false}}`,
	} {
		r := &StatusRecord{
			DeviceName: "Automatico",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Status:     json.RawMessage(payload),
		}
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if r.ID == 0 {
			t.Error("ID not assigned")
		}
	}

	latest, err := store.Latest(ctx, "Automatico")
	if err != nil {
		t.Fatal(err)
	}
	if string(latest.Status) != `{"dps": {"1": false}}` {
		t.Errorf("latest status = %s", latest.Status)
	}
	if !latest.Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("latest ts = %v", latest.Timestamp)
	}
	if latest.Decoded != nil {
		t.Errorf("decoded = %s, want none", latest.Decoded)
	}
}

func TestStatuses_LatestNotFound(t *testing.T) {
	database := openTestDB(t)
	_, err := database.Statuses().Latest(context.Background(), "Garaje")
	if !errors.Is(err, ErrStatusNotFound) {
		t.Errorf("err = %v, want ErrStatusNotFound", err)
	}
}

func TestStatuses_InsertRejectsInvalidJSON(t *testing.T) {
	database := openTestDB(t)
	err := database.Statuses().Insert(context.Background(), &StatusRecord{
		DeviceName: "Automatico",
		Status:     json.RawMessage(`{"dps":`),
	})
	if err == nil {
		t.Error("expected error for truncated payload")
	}
}

func TestStatuses_ListWindow(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	store := database.Statuses()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Insert(ctx, &StatusRecord{
			DeviceName: "Automatico",
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Status:     json.RawMessage(`{"dps": {}}`),
			Decoded:    json.RawMessage(`{"points": []}`),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Insert(ctx, &StatusRecord{DeviceName: "Otro", Timestamp: base, Status: json.RawMessage(`{}`)}); err != nil {
		t.Fatal(err)
	}

	all, err := store.List(ctx, StatusQuery{DeviceName: "Automatico"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d records", len(all))
	}
	if !all[0].Timestamp.After(all[4].Timestamp) {
		t.Error("records not newest first")
	}
	if string(all[0].Decoded) != `{"points": []}` {
		t.Errorf("decoded = %s", all[0].Decoded)
	}

	window, err := store.List(ctx, StatusQuery{
		DeviceName: "Automatico",
		Since:      base.Add(time.Hour),
		Until:      base.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 2 {
		t.Errorf("window has %d records, want 2", len(window))
	}

	limited, err := store.List(ctx, StatusQuery{DeviceName: "Automatico", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited has %d records", len(limited))
	}

	n, err := store.Prune(ctx, "Automatico", base.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
}
