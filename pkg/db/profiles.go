package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named set of runtime settings. Exactly one profile is active.
type Profile struct {
	ID             int64
	Name           string
	Timezone       string
	APIHost        string
	APIPort        int
	StatusInterval time.Duration // 0 disables periodic status requests
	Keepalive      time.Duration
	ErrorBackoff   time.Duration
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultProfile returns the settings written on first run.
func DefaultProfile(timezone string) *Profile {
	return &Profile{
		Name:           "default",
		Timezone:       timezone,
		APIHost:        "0.0.0.0",
		APIPort:        8080,
		StatusInterval: 30 * time.Second,
		Keepalive:      12 * time.Second,
		ErrorBackoff:   5 * time.Second,
		IsActive:       true,
	}
}

// ProfileStore provides profile CRUD operations.
type ProfileStore interface {
	Get(ctx context.Context, id int64) (*Profile, error)
	GetByName(ctx context.Context, name string) (*Profile, error)
	GetActive(ctx context.Context) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	SetActive(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Profiles returns a ProfileStore for this database.
func (db *DB) Profiles() ProfileStore {
	return &profileStore{db: db}
}

type profileStore struct {
	db *DB
}

const profileColumns = `id, name, timezone, api_host, api_port, status_interval_s,
	keepalive_s, error_backoff_s, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var status, keepalive, backoff int64
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Timezone, &p.APIHost, &p.APIPort,
		&status, &keepalive, &backoff, &p.IsActive, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p.StatusInterval = time.Duration(status) * time.Second
	p.Keepalive = time.Duration(keepalive) * time.Second
	p.ErrorBackoff = time.Duration(backoff) * time.Second
	p.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	p.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return p, nil
}

func (s *profileStore) Get(ctx context.Context, id int64) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

func (s *profileStore) GetByName(ctx context.Context, name string) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name))
}

func (s *profileStore) GetActive(ctx context.Context) (*Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE is_active = 1 LIMIT 1`))
}

func (s *profileStore) List(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *profileStore) Create(ctx context.Context, p *Profile) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (name, timezone, api_host, api_port,
			status_interval_s, keepalive_s, error_backoff_s, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Timezone, p.APIHost, p.APIPort, seconds(p.StatusInterval),
		seconds(p.Keepalive), seconds(p.ErrorBackoff), p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *profileStore) Update(ctx context.Context, p *Profile) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET name = ?, timezone = ?, api_host = ?, api_port = ?,
			status_interval_s = ?, keepalive_s = ?, error_backoff_s = ?,
			is_active = ?, updated_at = datetime('now')
		WHERE id = ?
	`, p.Name, p.Timezone, p.APIHost, p.APIPort, seconds(p.StatusInterval),
		seconds(p.Keepalive), seconds(p.ErrorBackoff), p.IsActive, p.ID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrProfileNotFound)
}

func (s *profileStore) SetActive(ctx context.Context, id int64) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE profiles SET is_active = 0`); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `UPDATE profiles SET is_active = 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(result, ErrProfileNotFound)
	})
}

func (s *profileStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrProfileNotFound)
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
