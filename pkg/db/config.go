package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Config is the runtime configuration loaded from the active profile.
type Config struct {
	Profile *Profile
}

// APIAddress returns the API server listen address.
func (c *Config) APIAddress() string {
	if c.Profile == nil || c.Profile.APIHost == "" || c.Profile.APIPort == 0 {
		return "0.0.0.0:8080"
	}
	return net.JoinHostPort(c.Profile.APIHost, strconv.Itoa(c.Profile.APIPort))
}

// Timezone returns the profile timezone.
func (c *Config) Timezone() string {
	if c.Profile == nil || c.Profile.Timezone == "" {
		return "UTC"
	}
	return c.Profile.Timezone
}

// Location resolves Timezone, falling back to UTC for unknown zone names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone())
	if err != nil {
		return time.UTC
	}
	return loc
}

// Intervals returns the status, keep-alive and error backoff periods.
func (c *Config) Intervals() (status, keepalive, backoff time.Duration) {
	if c.Profile == nil {
		d := DefaultProfile("UTC")
		return d.StatusInterval, d.Keepalive, d.ErrorBackoff
	}
	return c.Profile.StatusInterval, c.Profile.Keepalive, c.Profile.ErrorBackoff
}

// ActiveConfig loads the configuration of the active profile.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	return &Config{Profile: profile}, nil
}
