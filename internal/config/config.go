package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/seatsense/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/seatsense.defaults.json"

// Config represents the startup configuration for the seat finder pipeline.
// All values are read-only after initialization; components receive a shared
// *Config but none of them owns or mutates it. Fields are pointers so a
// partial JSON file retains defaults for anything it omits.
type Config struct {
	// Sensor geometry and wire format
	GridRows          *int    `json:"grid_rows,omitempty"`
	GridCols          *int    `json:"grid_cols,omitempty"`
	WordSize          *int    `json:"word_size,omitempty"`
	ChecksumAlgorithm *string `json:"checksum_algorithm,omitempty"` // "sum16" or "xor16"

	// Raw word → engineering unit transform
	TempScale  *float64 `json:"temp_scale,omitempty"`
	TempOffset *float64 `json:"temp_offset,omitempty"`

	// Detection thresholds
	OccupiedTempDelta *float64 `json:"occupied_temp_delta,omitempty"`
	MinOccupiedPixels *int     `json:"min_occupied_pixels,omitempty"`
	HysteresisFrames  *int     `json:"hysteresis_frames,omitempty"`
	LossThreshold     *int     `json:"loss_threshold,omitempty"`

	// Feedback shaping
	MinIntensity    *float64 `json:"min_intensity,omitempty"`
	RepulseInterval *string  `json:"repulse_interval,omitempty"` // duration string like "500ms"

	// Transport
	SerialPort  *string `json:"serial_port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "1s"

	// Display
	DisplayUnits *string `json:"display_units,omitempty"`
	SnapshotDir  *string `json:"snapshot_dir,omitempty"`
}

// EmptyConfig returns a Config with all fields set to nil.
// Use LoadConfig to load actual values from a file.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file is validated to ensure
// it has a .json extension and is under the max file size. Fields omitted
// from the JSON file retain their default values, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides overlays deployment knobs from the process environment
// (optionally seeded from a .env file). Only transport and output settings
// are overridable; detection thresholds always come from the config file.
func (c *Config) ApplyEnvOverrides() {
	// Ignore the error if no .env file exists - system environment still applies
	_ = godotenv.Load()

	if v := os.Getenv("SEATSENSE_SERIAL_PORT"); v != "" {
		c.SerialPort = &v
	}
	if v := os.Getenv("SEATSENSE_BAUD_RATE"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil && baud > 0 {
			c.BaudRate = &baud
		}
	}
	if v := os.Getenv("SEATSENSE_SNAPSHOT_DIR"); v != "" {
		c.SnapshotDir = &v
	}
}

// Validate checks that the configuration values are valid. Configuration
// errors fail fast at startup, before the acquisition loop begins.
func (c *Config) Validate() error {
	if c.GridRows != nil && *c.GridRows < 1 {
		return fmt.Errorf("grid_rows must be positive, got %d", *c.GridRows)
	}
	if c.GridCols != nil && *c.GridCols < 1 {
		return fmt.Errorf("grid_cols must be positive, got %d", *c.GridCols)
	}
	if c.WordSize != nil && *c.WordSize != 2 {
		return fmt.Errorf("word_size must be 2 (16-bit sensor words), got %d", *c.WordSize)
	}
	if c.ChecksumAlgorithm != nil {
		switch *c.ChecksumAlgorithm {
		case "sum16", "xor16":
		default:
			return fmt.Errorf("unknown checksum_algorithm %q (valid: sum16, xor16)", *c.ChecksumAlgorithm)
		}
	}
	if c.TempScale != nil && *c.TempScale == 0 {
		return fmt.Errorf("temp_scale must be non-zero")
	}
	if c.OccupiedTempDelta != nil && *c.OccupiedTempDelta <= 0 {
		return fmt.Errorf("occupied_temp_delta must be positive, got %f", *c.OccupiedTempDelta)
	}
	if c.MinOccupiedPixels != nil && *c.MinOccupiedPixels < 1 {
		return fmt.Errorf("min_occupied_pixels must be at least 1, got %d", *c.MinOccupiedPixels)
	}
	if c.HysteresisFrames != nil && *c.HysteresisFrames < 1 {
		return fmt.Errorf("hysteresis_frames must be at least 1, got %d", *c.HysteresisFrames)
	}
	if c.LossThreshold != nil && *c.LossThreshold < 1 {
		return fmt.Errorf("loss_threshold must be at least 1, got %d", *c.LossThreshold)
	}
	if c.MinIntensity != nil && (*c.MinIntensity < 0 || *c.MinIntensity > 1) {
		return fmt.Errorf("min_intensity must be between 0 and 1, got %f", *c.MinIntensity)
	}
	if c.RepulseInterval != nil && *c.RepulseInterval != "" {
		if _, err := time.ParseDuration(*c.RepulseInterval); err != nil {
			return fmt.Errorf("invalid repulse_interval '%s': %w", *c.RepulseInterval, err)
		}
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.DisplayUnits != nil && !units.IsValid(*c.DisplayUnits) {
		return fmt.Errorf("invalid display_units %q (valid: %s)", *c.DisplayUnits, units.GetValidUnitsString())
	}
	return nil
}

// GetGridRows returns the grid_rows value or the MLX90640 default.
func (c *Config) GetGridRows() int {
	if c.GridRows == nil {
		return 24
	}
	return *c.GridRows
}

// GetGridCols returns the grid_cols value or the MLX90640 default.
func (c *Config) GetGridCols() int {
	if c.GridCols == nil {
		return 32
	}
	return *c.GridCols
}

// GetWordSize returns the word_size value or the default.
func (c *Config) GetWordSize() int {
	if c.WordSize == nil {
		return 2
	}
	return *c.WordSize
}

// GetChecksumAlgorithm returns the checksum_algorithm value or the default.
func (c *Config) GetChecksumAlgorithm() string {
	if c.ChecksumAlgorithm == nil {
		return "sum16"
	}
	return *c.ChecksumAlgorithm
}

// GetTempScale returns the temp_scale value or the default (centi-°C words).
func (c *Config) GetTempScale() float64 {
	if c.TempScale == nil {
		return 0.01
	}
	return *c.TempScale
}

// GetTempOffset returns the temp_offset value or the default.
func (c *Config) GetTempOffset() float64 {
	if c.TempOffset == nil {
		return 0
	}
	return *c.TempOffset
}

// GetOccupiedTempDelta returns the occupied_temp_delta value or the default.
func (c *Config) GetOccupiedTempDelta() float64 {
	if c.OccupiedTempDelta == nil {
		return 5.0
	}
	return *c.OccupiedTempDelta
}

// GetMinOccupiedPixels returns the min_occupied_pixels value or the default.
func (c *Config) GetMinOccupiedPixels() int {
	if c.MinOccupiedPixels == nil {
		return 4
	}
	return *c.MinOccupiedPixels
}

// GetHysteresisFrames returns the hysteresis_frames value or the default.
func (c *Config) GetHysteresisFrames() int {
	if c.HysteresisFrames == nil {
		return 2
	}
	return *c.HysteresisFrames
}

// GetLossThreshold returns the loss_threshold value or the default.
func (c *Config) GetLossThreshold() int {
	if c.LossThreshold == nil {
		return 3
	}
	return *c.LossThreshold
}

// GetMinIntensity returns the min_intensity value or the default.
func (c *Config) GetMinIntensity() float64 {
	if c.MinIntensity == nil {
		return 0.2
	}
	return *c.MinIntensity
}

// GetRepulseInterval parses and returns the RepulseInterval as a time.Duration.
func (c *Config) GetRepulseInterval() time.Duration {
	if c.RepulseInterval == nil || *c.RepulseInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.RepulseInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetSerialPort returns the serial_port value or the default.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *Config) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetReadTimeout parses and returns the ReadTimeout as a time.Duration.
func (c *Config) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return time.Second // default, matches the sensor's UART timeout
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetDisplayUnits returns the display_units value or the default.
func (c *Config) GetDisplayUnits() string {
	if c.DisplayUnits == nil {
		return units.Celsius
	}
	return *c.DisplayUnits
}

// GetSnapshotDir returns the snapshot_dir value, or empty when snapshots are disabled.
func (c *Config) GetSnapshotDir() string {
	if c.SnapshotDir == nil {
		return ""
	}
	return *c.SnapshotDir
}
