// Package config loads the scan parameter file. The schema uses pointer
// fields so partial configs are safe: anything omitted from the JSON falls
// back to the Get* defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/seqscan/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file. Its values
// mirror the fallbacks hard-coded in the Get* accessors; the file is only
// read when it is passed to Load.
const DefaultConfigPath = "config/seqscan.defaults.json"

// Config is the root configuration for a scan run. All fields are
// optional in the JSON file.
type Config struct {
	// Clustering params
	Eps       *float64 `json:"eps,omitempty"`
	MinPoints *int     `json:"min_points,omitempty"`
	Delta     *float64 `json:"delta,omitempty"`     // in TimeUnit
	TimeUnit  *string  `json:"time_unit,omitempty"` // unit of Delta and reported durations

	// Coordinate interpretation
	IsCartesian  *bool   `json:"is_cartesian,omitempty"`
	DistanceUnit *string `json:"distance_unit,omitempty"`

	// CSV layout
	TagColumn       *string `json:"tag_column,omitempty"`
	XColumn         *string `json:"x_column,omitempty"`
	YColumn         *string `json:"y_column,omitempty"`
	TimeColumn      *string `json:"time_column,omitempty"`
	TimestampLayout *string `json:"timestamp_layout,omitempty"` // Go reference layout

	// Runner params
	Workers *int `json:"workers,omitempty"`
}

// Empty returns a Config with all fields unset. Use Load to read actual
// values from a file.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and stay under the size cap; omitted fields keep their
// defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Eps != nil && *c.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %f", *c.Eps)
	}
	if c.MinPoints != nil && *c.MinPoints < 1 {
		return fmt.Errorf("min_points must be >= 1, got %d", *c.MinPoints)
	}
	if c.Delta != nil && *c.Delta <= 0 {
		return fmt.Errorf("delta must be positive, got %f", *c.Delta)
	}
	if c.TimeUnit != nil && !units.IsValidTimeUnit(*c.TimeUnit) {
		return fmt.Errorf("invalid time_unit %q", *c.TimeUnit)
	}
	if c.DistanceUnit != nil && !units.IsValidDistanceUnit(*c.DistanceUnit) {
		return fmt.Errorf("invalid distance_unit %q", *c.DistanceUnit)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", *c.Workers)
	}
	if c.TimestampLayout != nil && *c.TimestampLayout == "" {
		return fmt.Errorf("timestamp_layout must not be empty")
	}
	return nil
}

// GetEps returns the neighborhood radius.
func (c *Config) GetEps() float64 {
	if c.Eps != nil {
		return *c.Eps
	}
	return 100
}

// GetMinPoints returns the minimum neighborhood size for a dense point.
func (c *Config) GetMinPoints() int {
	if c.MinPoints != nil {
		return *c.MinPoints
	}
	return 3
}

// GetDelta returns the presence threshold as a duration, converting from
// the configured time unit.
func (c *Config) GetDelta() (time.Duration, error) {
	value := 3600.0
	if c.Delta != nil {
		value = *c.Delta
	}
	seconds, err := units.ToSeconds(value, c.GetTimeUnit())
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// GetTimeUnit returns the unit of delta and reported durations.
func (c *Config) GetTimeUnit() string {
	if c.TimeUnit != nil {
		return *c.TimeUnit
	}
	return units.Seconds
}

// GetIsCartesian reports the coordinate interpretation.
func (c *Config) GetIsCartesian() bool {
	if c.IsCartesian != nil {
		return *c.IsCartesian
	}
	return false
}

// GetDistanceUnit returns the display unit of distances.
func (c *Config) GetDistanceUnit() string {
	if c.DistanceUnit != nil {
		return *c.DistanceUnit
	}
	return units.Meters
}

// GetTagColumn returns the CSV column holding the trajectory tag.
func (c *Config) GetTagColumn() string {
	if c.TagColumn != nil {
		return *c.TagColumn
	}
	return "tag_id"
}

// GetXColumn returns the CSV column holding x (or latitude).
func (c *Config) GetXColumn() string {
	if c.XColumn != nil {
		return *c.XColumn
	}
	return "x"
}

// GetYColumn returns the CSV column holding y (or longitude).
func (c *Config) GetYColumn() string {
	if c.YColumn != nil {
		return *c.YColumn
	}
	return "y"
}

// GetTimeColumn returns the CSV column holding the timestamp.
func (c *Config) GetTimeColumn() string {
	if c.TimeColumn != nil {
		return *c.TimeColumn
	}
	return "timestamp"
}

// GetTimestampLayout returns the Go reference layout of timestamps.
func (c *Config) GetTimestampLayout() string {
	if c.TimestampLayout != nil {
		return *c.TimestampLayout
	}
	return "2006-01-02 15:04:05"
}

// GetWorkers returns the trajectory worker pool size.
func (c *Config) GetWorkers() int {
	if c.Workers != nil {
		return *c.Workers
	}
	return 1
}
