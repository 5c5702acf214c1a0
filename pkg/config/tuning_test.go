package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/anamorph/pkg/kernel/sdfx"
	"github.com/chazu/anamorph/pkg/reduce"
	"github.com/chazu/anamorph/pkg/split"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.Clearance == nil || *cfg.Clearance != reduce.DefaultClearance {
		t.Errorf("Expected Clearance %v, got %v", reduce.DefaultClearance, cfg.Clearance)
	}
	if cfg.ImageSize == nil || *cfg.ImageSize != 800 {
		t.Errorf("Expected ImageSize 800, got %v", cfg.ImageSize)
	}
	if cfg.Partitioner == nil || *cfg.Partitioner != "gonum" {
		t.Errorf("Expected Partitioner gonum, got %v", cfg.Partitioner)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	// An empty config answers with the same defaults.
	empty := EmptyTuningConfig()
	if empty.GetClearance() != cfg.GetClearance() ||
		empty.GetImageSize() != cfg.GetImageSize() ||
		empty.GetDifferenceThreshold() != cfg.GetDifferenceThreshold() ||
		empty.GetMaxCandidates() != cfg.GetMaxCandidates() ||
		empty.GetPartitioner() != cfg.GetPartitioner() ||
		empty.GetMeshCells() != cfg.GetMeshCells() {
		t.Errorf("empty config getters differ from defaults")
	}
	if empty.GetMeshCells() != sdfx.DefaultMeshCells {
		t.Errorf("GetMeshCells() = %d, want %d", empty.GetMeshCells(), sdfx.DefaultMeshCells)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "clearance": 0.5,
  "image_size": 400,
  "difference_threshold": 0.002,
  "max_candidates": 25,
  "partitioner": "unionfind",
  "mesh_cells": 120
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetClearance() != 0.5 {
		t.Errorf("GetClearance() = %v, want 0.5", cfg.GetClearance())
	}
	if cfg.GetImageSize() != 400 {
		t.Errorf("GetImageSize() = %d, want 400", cfg.GetImageSize())
	}
	if cfg.GetDifferenceThreshold() != 0.002 {
		t.Errorf("GetDifferenceThreshold() = %v, want 0.002", cfg.GetDifferenceThreshold())
	}
	if cfg.GetMaxCandidates() != 25 {
		t.Errorf("GetMaxCandidates() = %d, want 25", cfg.GetMaxCandidates())
	}
	if cfg.GetPartitioner() != "unionfind" {
		t.Errorf("GetPartitioner() = %q, want unionfind", cfg.GetPartitioner())
	}
	if cfg.GetMeshCells() != 120 {
		t.Errorf("GetMeshCells() = %d, want 120", cfg.GetMeshCells())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"clearance": 0.25}`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetClearance() != 0.25 {
		t.Errorf("GetClearance() = %v, want 0.25", cfg.GetClearance())
	}
	if cfg.ImageSize != nil {
		t.Errorf("ImageSize should stay unset, got %v", *cfg.ImageSize)
	}
	if cfg.GetImageSize() != reduce.DefaultImageSize {
		t.Errorf("GetImageSize() = %d, want default", cfg.GetImageSize())
	}
}

func TestLoadTuningConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"wrong extension", "tuning.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"clearance": }`, "parse"},
		{"negative clearance", "neg.json", `{"clearance": -1}`, "clearance"},
		{"zero image size", "size.json", `{"image_size": 0}`, "image_size"},
		{"threshold above one", "thr.json", `{"difference_threshold": 2}`, "difference_threshold"},
		{"negative max candidates", "max.json", `{"max_candidates": -3}`, "max_candidates"},
		{"zero mesh cells", "cells.json", `{"mesh_cells": 0}`, "mesh_cells"},
		{"unknown partitioner", "part.json", `{"partitioner": "magic"}`, "partitioner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadTuningConfigUnknownPartitionerIsCapabilityError(t *testing.T) {
	_, err := LoadTuningConfig(writeConfig(t, "part.json", `{"partitioner": "magic"}`))
	if !errors.Is(err, split.ErrCapabilityMissing) {
		t.Errorf("error = %v, want wrapping ErrCapabilityMissing", err)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	body := `{"clearance": 0.1` + strings.Repeat(" ", maxFileSize) + `}`
	_, err := LoadTuningConfig(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("error = %v, want too large", err)
	}
}

func TestReduceOptions(t *testing.T) {
	cfg := EmptyTuningConfig()
	cfg.Clearance = ptrFloat64(0.3)
	cfg.MaxCandidates = ptrInt(7)

	opts := cfg.ReduceOptions()
	want := reduce.DefaultOptions()
	want.Clearance = 0.3
	want.MaxCandidates = 7
	if opts.Clearance != want.Clearance || opts.ImageSize != want.ImageSize ||
		opts.DifferenceThreshold != want.DifferenceThreshold ||
		opts.MaxCandidates != want.MaxCandidates || opts.Partitioner != want.Partitioner {
		t.Errorf("ReduceOptions() = %+v, want %+v", opts, want)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("options should validate: %v", err)
	}
}
