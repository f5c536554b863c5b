package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a2lsync.yaml")
	if err := os.WriteFile(path, []byte("strict: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "normal" {
		t.Errorf("log_level = %q, want normal", cfg.LogLevel)
	}
	if cfg.TargetGroup != "Default" {
		t.Errorf("target_group = %q, want Default", cfg.TargetGroup)
	}
	if !cfg.Strict {
		t.Error("strict should be true")
	}
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a2lsync.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for bad log_level")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.TargetGroup != "Default" || cfg.LogLevel != "normal" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
