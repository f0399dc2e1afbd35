package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

const (
	MaxSyncAttempts      = 3
	MaxHeartbeatAttempts = 2
)

type Config struct {
	DeviceID       string `yaml:"device_id"`
	CoordinatorURL string `yaml:"coordinator_url"`
	ListenAddr     string `yaml:"listen_addr"`
	Timezone       string `yaml:"timezone"`

	SyncInterval      time.Duration `yaml:"sync_interval"`
	ApplyInterval     time.Duration `yaml:"apply_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	SnapshotMaxAge    time.Duration `yaml:"snapshot_max_age"`

	// Used until the first snapshot tells otherwise.
	ReversedControl bool   `yaml:"reversed_control"`
	FallbackHours   []bool `yaml:"fallback_hours"`

	location *time.Location
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8081"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = time.Minute
	}
	if c.ApplyInterval == 0 {
		c.ApplyInterval = time.Minute
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = time.Minute
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.SnapshotMaxAge == 0 {
		c.SnapshotMaxAge = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if c.CoordinatorURL == "" {
		return fmt.Errorf("coordinator_url is required")
	}
	if len(c.FallbackHours) != 0 && len(c.FallbackHours) != models.HoursPerDay {
		return fmt.Errorf("fallback_hours must have %d entries", models.HoursPerDay)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location is the zone fallback hours are read in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
