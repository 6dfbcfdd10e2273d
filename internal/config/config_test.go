package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
kernel:
  max_call_depth: 12
  cost_unit_limit: 5000000
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kernel.MaxCallDepth != 12 || cfg.Kernel.CostUnitLimit != 5_000_000 {
		t.Fatalf("unexpected kernel config: %+v", cfg.Kernel)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging.level debug, got %s", cfg.Logging.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, `
kernel:
  max_call_depth: 12
  cost_unit_limit: 5000000
`)
	t.Setenv("RADIXKERNEL_MAX_CALL_DEPTH", "20")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kernel.MaxCallDepth != 20 {
		t.Fatalf("expected env override to win, got %d", cfg.Kernel.MaxCallDepth)
	}
}

func TestValidateRejectsZeroMaxCallDepth(t *testing.T) {
	path := writeConfig(t, `
kernel:
  max_call_depth: 0
  cost_unit_limit: 5000000
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero max_call_depth")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}
