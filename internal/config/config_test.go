package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seatsense.json")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyConfig()

	if got := cfg.GetGridRows(); got != 24 {
		t.Errorf("GetGridRows() = %d, want 24", got)
	}
	if got := cfg.GetGridCols(); got != 32 {
		t.Errorf("GetGridCols() = %d, want 32", got)
	}
	if got := cfg.GetWordSize(); got != 2 {
		t.Errorf("GetWordSize() = %d, want 2", got)
	}
	if got := cfg.GetChecksumAlgorithm(); got != "sum16" {
		t.Errorf("GetChecksumAlgorithm() = %q, want sum16", got)
	}
	if got := cfg.GetTempScale(); got != 0.01 {
		t.Errorf("GetTempScale() = %v, want 0.01", got)
	}
	if got := cfg.GetOccupiedTempDelta(); got != 5.0 {
		t.Errorf("GetOccupiedTempDelta() = %v, want 5.0", got)
	}
	if got := cfg.GetMinOccupiedPixels(); got != 4 {
		t.Errorf("GetMinOccupiedPixels() = %d, want 4", got)
	}
	if got := cfg.GetHysteresisFrames(); got != 2 {
		t.Errorf("GetHysteresisFrames() = %d, want 2", got)
	}
	if got := cfg.GetLossThreshold(); got != 3 {
		t.Errorf("GetLossThreshold() = %d, want 3", got)
	}
	if got := cfg.GetReadTimeout(); got != time.Second {
		t.Errorf("GetReadTimeout() = %v, want 1s", got)
	}
	if got := cfg.GetRepulseInterval(); got != 500*time.Millisecond {
		t.Errorf("GetRepulseInterval() = %v, want 500ms", got)
	}
}

func TestLoadConfigPartial(t *testing.T) {
	path := writeConfigFile(t, `{
		"occupied_temp_delta": 6.5,
		"min_occupied_pixels": 10,
		"read_timeout": "250ms"
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if got := cfg.GetOccupiedTempDelta(); got != 6.5 {
		t.Errorf("GetOccupiedTempDelta() = %v, want 6.5", got)
	}
	if got := cfg.GetMinOccupiedPixels(); got != 10 {
		t.Errorf("GetMinOccupiedPixels() = %d, want 10", got)
	}
	if got := cfg.GetReadTimeout(); got != 250*time.Millisecond {
		t.Errorf("GetReadTimeout() = %v, want 250ms", got)
	}
	// Omitted fields keep defaults
	if got := cfg.GetGridRows(); got != 24 {
		t.Errorf("GetGridRows() = %d, want default 24", got)
	}
}

func TestLoadConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadConfig("seatsense.yaml"); err == nil {
		t.Error("expected error for non-.json extension, got nil")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"zero grid rows", `{"grid_rows": 0}`},
		{"negative grid cols", `{"grid_cols": -1}`},
		{"bad word size", `{"word_size": 4}`},
		{"unknown checksum", `{"checksum_algorithm": "crc32"}`},
		{"zero temp scale", `{"temp_scale": 0}`},
		{"zero temp delta", `{"occupied_temp_delta": 0}`},
		{"negative temp delta", `{"occupied_temp_delta": -3}`},
		{"zero min pixels", `{"min_occupied_pixels": 0}`},
		{"zero hysteresis", `{"hysteresis_frames": 0}`},
		{"zero loss threshold", `{"loss_threshold": 0}`},
		{"intensity above one", `{"min_intensity": 1.5}`},
		{"bad repulse interval", `{"repulse_interval": "half a second"}`},
		{"bad read timeout", `{"read_timeout": "soon"}`},
		{"zero baud", `{"baud_rate": 0}`},
		{"bad display units", `{"display_units": "rankine"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.contents)
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("expected validation error for %s, got nil", tt.contents)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SEATSENSE_SERIAL_PORT", "/dev/ttyAMA3")
	t.Setenv("SEATSENSE_BAUD_RATE", "230400")
	t.Setenv("SEATSENSE_SNAPSHOT_DIR", "/var/lib/seatsense/snapshots")

	cfg := EmptyConfig()
	cfg.ApplyEnvOverrides()

	if got := cfg.GetSerialPort(); got != "/dev/ttyAMA3" {
		t.Errorf("GetSerialPort() = %q, want /dev/ttyAMA3", got)
	}
	if got := cfg.GetBaudRate(); got != 230400 {
		t.Errorf("GetBaudRate() = %d, want 230400", got)
	}
	if got := cfg.GetSnapshotDir(); got != "/var/lib/seatsense/snapshots" {
		t.Errorf("GetSnapshotDir() = %q, want /var/lib/seatsense/snapshots", got)
	}
}

func TestApplyEnvOverridesIgnoresBadBaud(t *testing.T) {
	t.Setenv("SEATSENSE_BAUD_RATE", "fast")

	cfg := EmptyConfig()
	cfg.ApplyEnvOverrides()

	if got := cfg.GetBaudRate(); got != 115200 {
		t.Errorf("GetBaudRate() = %d, want default 115200", got)
	}
}
