package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, savePath, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if savePath != "" {
		t.Fatalf("savePath=%q want empty", savePath)
	}
	if cfg.GPS.Source != "nmea" || cfg.Web.Listen != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_LegacyOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gpstacho.yaml")
	if err := os.WriteFile(path, []byte("log:\n  interval: 2s\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	legacy := filepath.Join(dir, "logger.cfg")
	if err := os.WriteFile(legacy, []byte("logIntvl=0.5\nlogAutoStart=1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, savePath, err := loadConfig(path, legacy)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if savePath != path {
		t.Fatalf("savePath=%q", savePath)
	}
	if cfg.Log.Interval != 500*time.Millisecond || !cfg.Log.AutoStart {
		t.Fatalf("log=%+v", cfg.Log)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpstacho.yaml")
	if err := os.WriteFile(path, []byte("gps:\n  source: radio\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := loadConfig(path, ""); err == nil {
		t.Fatalf("expected error")
	}
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Fatalf("expected error for missing legacy file")
	}
}
