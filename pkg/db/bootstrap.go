package db

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Bootstrap creates the default profile on first run, using the detected
// system timezone.
func (db *DB) Bootstrap(ctx context.Context) error {
	needs, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if !needs {
		return nil
	}

	if err := db.Profiles().Create(ctx, DefaultProfile(detectTimezone())); err != nil {
		return fmt.Errorf("failed to create default profile: %w", err)
	}
	return nil
}

// detectTimezone returns the IANA name of the system timezone, honouring TZ.
func detectTimezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}

	var candidates []func() string
	switch runtime.GOOS {
	case "darwin":
		candidates = []func() string{
			func() string {
				out, _ := exec.Command("systemsetup", "-gettimezone").Output()
				if _, zone, ok := strings.Cut(string(out), ": "); ok {
					return zone
				}
				return ""
			},
			zoneFromLocaltime,
		}
	case "linux":
		candidates = []func() string{
			func() string {
				out, _ := exec.Command("timedatectl", "show", "--property=Timezone", "--value").Output()
				return string(out)
			},
			func() string {
				data, _ := os.ReadFile("/etc/timezone")
				return string(data)
			},
			zoneFromLocaltime,
		}
	}

	for _, detect := range candidates {
		if zone := strings.TrimSpace(detect()); zone != "" {
			return zone
		}
	}
	return "UTC"
}

// zoneFromLocaltime reads the zone name from the /etc/localtime symlink target.
func zoneFromLocaltime() string {
	link, err := os.Readlink("/etc/localtime")
	if err != nil {
		return ""
	}
	if _, zone, ok := strings.Cut(link, "zoneinfo/"); ok {
		return zone
	}
	return ""
}

// NeedsBootstrap returns true if the database needs initial setup.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
