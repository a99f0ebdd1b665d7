package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	src := `
cell_edge: 32
stream_range: 2
lock_timeout: 250ms
terrain:
  seed: 7
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CellEdge != 32 {
		t.Errorf("CellEdge = %d, want 32", cfg.CellEdge)
	}
	if cfg.StreamRange != 2 {
		t.Errorf("StreamRange = %d, want 2", cfg.StreamRange)
	}
	if cfg.LockTimeout != 250*time.Millisecond {
		t.Errorf("LockTimeout = %v, want 250ms", cfg.LockTimeout)
	}
	if cfg.Terrain.Seed != 7 {
		t.Errorf("Terrain.Seed = %d, want 7", cfg.Terrain.Seed)
	}
	// untouched fields keep defaults
	if cfg.Terrain.Octaves != Default().Terrain.Octaves {
		t.Errorf("Terrain.Octaves = %d, want default %d", cfg.Terrain.Octaves, Default().Terrain.Octaves)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("backend: metal\ncell_edge: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"backend", "cell_edge"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateCapacityHoldsOneFrame(t *testing.T) {
	cfg := Default()
	cfg.StreamRange = 4
	cfg.StoreCapacity = RequestedChunks(4) - 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected capacity error")
	}
}

func TestSetStreamRangeClamps(t *testing.T) {
	old := GetStreamRange()
	defer SetStreamRange(old)

	SetStreamRange(0)
	if r := GetStreamRange(); r != minStreamRange {
		t.Errorf("got %d, want %d", r, minStreamRange)
	}
	SetStreamRange(1000)
	if r := GetStreamRange(); r != maxStreamRange {
		t.Errorf("got %d, want %d", r, maxStreamRange)
	}
	SetStreamRange(6)
	if r := GetStreamRange(); r != 6 {
		t.Errorf("got %d, want 6", r)
	}
}

func TestSetFPSLimit(t *testing.T) {
	old := GetFPSLimit()
	defer SetFPSLimit(old)

	SetFPSLimit(-5)
	if got := GetFPSLimit(); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	SetFPSLimit(144)
	if got := GetFPSLimit(); got != 144 {
		t.Errorf("got %d, want 144", got)
	}
}
