package monitor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/urmzd/tuyamon/pkg/db"
	"github.com/urmzd/tuyamon/pkg/dps"
	"github.com/urmzd/tuyamon/pkg/mqttclient"
)

// PasswordEnv overrides mqtt.password from the config file.
const PasswordEnv = "TUYAMON_MQTT_PASSWORD"

// Config is the monitor daemon YAML file.
type Config struct {
	Device           string   `yaml:"device"`       // Catalog name or ID to poll
	DevicesFile      string   `yaml:"devices_file"` // Defaults to devices.json
	Database         string   `yaml:"database"`     // Empty selects the default location
	ContractedAmps   float64  `yaml:"contracted_amps"`
	LegacyTenths     bool     `yaml:"legacy_tenths"`
	PhaseCodes       []string `yaml:"phase_codes"`
	ValidatePayloads bool     `yaml:"validate"` // Check payloads against the status JSON schema

	// Zero values defer to the active profile.
	StatusInterval     time.Duration `yaml:"status_interval"`
	Keepalive          time.Duration `yaml:"keepalive"`
	ErrorBackoff       time.Duration `yaml:"error_backoff"`
	DisableStatusTimer bool          `yaml:"disable_status_timer"`

	MQTT mqttclient.Config `yaml:"mqtt"`
}

// LoadConfig reads and validates a monitor config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML monitor config and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	if cfg.DevicesFile == "" {
		cfg.DevicesFile = "devices.json"
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.MQTT.Password = pw
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is not specified")
	}
	if c.ContractedAmps < 0 {
		return fmt.Errorf("contracted_amps must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"status_interval": c.StatusInterval,
		"keepalive":       c.Keepalive,
		"error_backoff":   c.ErrorBackoff,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Options merges the file settings over the active profile.
func (c *Config) Options(profile *db.Config) Options {
	status, keepalive, backoff := profile.Intervals()
	if c.StatusInterval > 0 {
		status = c.StatusInterval
	}
	if c.DisableStatusTimer {
		status = 0
	}
	if c.Keepalive > 0 {
		keepalive = c.Keepalive
	}
	if c.ErrorBackoff > 0 {
		backoff = c.ErrorBackoff
	}

	return Options{
		StatusInterval: status,
		Keepalive:      keepalive,
		ErrorBackoff:   backoff,
		LegacyTenths:   c.LegacyTenths,
		PhaseCodes:     c.PhaseCodes,
		Format: dps.Format{
			Location:       profile.Location(),
			ContractedAmps: c.ContractedAmps,
		},
	}
}
