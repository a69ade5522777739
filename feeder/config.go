package feeder

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultScanInterval = 2 * time.Minute
	DefaultMapName      = "feeder-file-semaphore"
	DefaultMetaAddr     = "127.0.0.1:6379/1"
)

// Config carries everything one feeder node needs. It is built from
// defaults, then an optional YAML file, then environment variables, then the
// command line, each layer overriding the previous.
type Config struct {
	SourceDirs   []string
	ScanInterval time.Duration
	MapName      string

	MetaAddr       string
	StoreRetries   int
	StoreOpTimeout time.Duration

	NetcoolURL     string
	NetcoolTimeout time.Duration
	StaleThreshold time.Duration
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		ScanInterval:   DefaultScanInterval,
		MapName:        DefaultMapName,
		MetaAddr:       DefaultMetaAddr,
		StoreRetries:   3,
		StoreOpTimeout: 5 * time.Second,
		NetcoolTimeout: 10 * time.Second,
		StaleThreshold: 24 * time.Hour,
	}
}

// fileConfig is the YAML file schema. Durations are spelled with explicit
// units so the file reads the same as the environment variables.
type fileConfig struct {
	SourceDirs          []string `yaml:"source_dirs"`
	ScanIntervalMinutes int      `yaml:"scan_interval_minutes"`
	MapName             string   `yaml:"map_name"`
	MetaAddr            string   `yaml:"meta_addr"`
	StoreRetries        int      `yaml:"store_retries"`
	StoreOpTimeoutSecs  int      `yaml:"store_op_timeout_seconds"`
	NetcoolURL          string   `yaml:"netcool_url"`
	NetcoolTimeoutSecs  int      `yaml:"netcool_timeout_seconds"`
	StaleThresholdHours int      `yaml:"stale_threshold_hours"`
}

// LoadFile overlays values from a YAML config file. Keys absent from the
// file leave the current configuration untouched.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if len(fc.SourceDirs) > 0 {
		c.SourceDirs = fc.SourceDirs
	}
	if fc.ScanIntervalMinutes > 0 {
		c.ScanInterval = time.Duration(fc.ScanIntervalMinutes) * time.Minute
	}
	if fc.MapName != "" {
		c.MapName = fc.MapName
	}
	if fc.MetaAddr != "" {
		c.MetaAddr = fc.MetaAddr
	}
	if fc.StoreRetries > 0 {
		c.StoreRetries = fc.StoreRetries
	}
	if fc.StoreOpTimeoutSecs > 0 {
		c.StoreOpTimeout = time.Duration(fc.StoreOpTimeoutSecs) * time.Second
	}
	if fc.NetcoolURL != "" {
		c.NetcoolURL = fc.NetcoolURL
	}
	if fc.NetcoolTimeoutSecs > 0 {
		c.NetcoolTimeout = time.Duration(fc.NetcoolTimeoutSecs) * time.Second
	}
	if fc.StaleThresholdHours > 0 {
		c.StaleThreshold = time.Duration(fc.StaleThresholdHours) * time.Hour
	}
	return nil
}

// Validate checks the configuration before the service starts.
func (c *Config) Validate() error {
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("at least one source directory must be configured")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be greater than 0, got %s", c.ScanInterval)
	}
	if strings.TrimSpace(c.MapName) == "" {
		return fmt.Errorf("semaphore map name must be configured")
	}
	return nil
}

var dirSeparators = regexp.MustCompile(`[;,]`)

// SplitSourceDirs parses an ordered, delimiter-separated list of directory
// paths. Both ',' and ';' are accepted; empty segments are dropped.
func SplitSourceDirs(s string) []string {
	var dirs []string
	for _, part := range dirSeparators.Split(s, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			dirs = append(dirs, part)
		}
	}
	return dirs
}
