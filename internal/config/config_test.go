package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.PlacementStrategy != "first-fit" {
		t.Errorf("expected first-fit default, got %q", cfg.Scheduler.PlacementStrategy)
	}
	if cfg.Scheduler.SchedulingQuantum != 60 {
		t.Errorf("expected quantum 60, got %d", cfg.Scheduler.SchedulingQuantum)
	}
	if cfg.Server.Enabled {
		t.Error("expected observation server disabled by default")
	}
	if cfg.Sim.Seed != 1 {
		t.Errorf("expected seed 1, got %d", cfg.Sim.Seed)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
scheduler:
  placement_strategy: memory-balanced
  scheduling_quantum: 120
sim:
  seed: 99
  host_count: 2
server:
  enabled: true
  port: 9090
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.PlacementStrategy != "memory-balanced" {
		t.Errorf("expected memory-balanced, got %q", cfg.Scheduler.PlacementStrategy)
	}
	if cfg.Scheduler.SchedulingQuantum != 120 {
		t.Errorf("expected quantum 120, got %d", cfg.Scheduler.SchedulingQuantum)
	}
	if cfg.Sim.Seed != 99 || cfg.Sim.HostCount != 2 {
		t.Errorf("unexpected sim config %+v", cfg.Sim)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.Address() != "127.0.0.1:9090" {
		t.Errorf("unexpected address %s", cfg.Server.Address())
	}
}

func TestLoad_InvalidScheduler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
scheduler:
  scheduling_quantum: -5
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected negative quantum to fail validation")
	}
}
