package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrStatusNotFound = errors.New("status not found")

// StatusRecord is one saved device status payload.
type StatusRecord struct {
	ID         int64           `json:"id"`
	DeviceName string          `json:"device_name"`
	Timestamp  time.Time       `json:"ts"`
	Status     json.RawMessage `json:"status"`            // Payload as received
	Decoded    json.RawMessage `json:"decoded,omitempty"` // Decoded report, empty when not decoded
}

// StatusQuery filters a history listing.
type StatusQuery struct {
	DeviceName string
	Since      time.Time // zero means unbounded
	Until      time.Time // zero means unbounded
	Limit      int       // <= 0 means DefaultHistoryLimit
}

const DefaultHistoryLimit = 100

// StatusStore persists device status payloads. Rows are never updated.
type StatusStore interface {
	Insert(ctx context.Context, r *StatusRecord) error
	Latest(ctx context.Context, deviceName string) (*StatusRecord, error)
	List(ctx context.Context, q StatusQuery) ([]*StatusRecord, error)
	Prune(ctx context.Context, deviceName string, before time.Time) (int64, error)
}

// Statuses returns a StatusStore for this database.
func (db *DB) Statuses() StatusStore {
	return &statusStore{db: db}
}

type statusStore struct {
	db *DB
}

// Timestamps are stored as UTC text so that lexical order matches time order.
const tsLayout = "2006-01-02 15:04:05.000"

func (s *statusStore) Insert(ctx context.Context, r *StatusRecord) error {
	if r.DeviceName == "" {
		return fmt.Errorf("failed to save status: empty device name")
	}
	if !json.Valid(r.Status) {
		return fmt.Errorf("failed to save status for %s: payload is not valid JSON", r.DeviceName)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO device_status (device_name, ts, status_json, decoded_json)
		VALUES (?, ?, ?, ?)
	`, r.DeviceName, r.Timestamp.UTC().Format(tsLayout), string(r.Status), string(r.Decoded))
	if err != nil {
		return fmt.Errorf("failed to save status for %s: %w", r.DeviceName, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

const statusColumns = `id, device_name, ts, status_json, decoded_json`

func scanStatus(row rowScanner) (*StatusRecord, error) {
	r := &StatusRecord{}
	var ts, status, decoded string
	err := row.Scan(&r.ID, &r.DeviceName, &ts, &status, &decoded)
	if err == sql.ErrNoRows {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Timestamp, err = time.ParseInLocation(tsLayout, ts, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("status %d: bad timestamp %q: %w", r.ID, ts, err)
	}
	r.Status = json.RawMessage(status)
	if decoded != "" {
		r.Decoded = json.RawMessage(decoded)
	}
	return r, nil
}

func (s *statusStore) Latest(ctx context.Context, deviceName string) (*StatusRecord, error) {
	return scanStatus(s.db.QueryRowContext(ctx, `
		SELECT `+statusColumns+` FROM device_status
		WHERE device_name = ? ORDER BY ts DESC, id DESC LIMIT 1
	`, deviceName))
}

// List returns matching records, newest first.
func (s *statusStore) List(ctx context.Context, q StatusQuery) ([]*StatusRecord, error) {
	query := `SELECT ` + statusColumns + ` FROM device_status WHERE device_name = ?`
	args := []any{q.DeviceName}
	if !q.Since.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Since.UTC().Format(tsLayout))
	}
	if !q.Until.IsZero() {
		query += ` AND ts < ?`
		args = append(args, q.Until.UTC().Format(tsLayout))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []*StatusRecord{}
	for rows.Next() {
		r, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes a device's records older than before and returns how many went.
func (s *statusStore) Prune(ctx context.Context, deviceName string, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM device_status WHERE device_name = ? AND ts < ?`,
		deviceName, before.UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune status history: %w", err)
	}
	return result.RowsAffected()
}
