package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRun_NoDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homebus.yaml")
	if err := os.WriteFile(path, []byte("home:\n  id: test-home\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HOMEBUS_CONFIG", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "no simulated devices") {
		t.Fatalf("run() error = %v, want no simulated devices", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HOMEBUS_CONFIG", "/nonexistent/homebus.yaml")

	if err := run(context.Background()); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestGetSeed(t *testing.T) {
	t.Setenv("HOMESIM_SEED", "1234")
	if got := getSeed(); got != 1234 {
		t.Errorf("getSeed() = %d, want 1234", got)
	}

	t.Setenv("HOMESIM_SEED", "not-a-number")
	if got := getSeed(); got == 0 {
		t.Error("getSeed() = 0, want clock-based seed")
	}
}
