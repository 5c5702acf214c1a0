// Package config loads reducer tuning from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/anamorph/pkg/kernel/sdfx"
	"github.com/chazu/anamorph/pkg/reduce"
	"github.com/chazu/anamorph/pkg/split"
)

// maxFileSize bounds the tuning files we are willing to read.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// TuningConfig holds reducer and mesher tuning. Every field is optional;
// the Get* methods supply defaults for anything left unset, so partial
// files are safe.
type TuningConfig struct {
	// Reducer params
	Clearance           *float64 `json:"clearance,omitempty"`
	ImageSize           *int     `json:"image_size,omitempty"`
	DifferenceThreshold *float64 `json:"difference_threshold,omitempty"`
	MaxCandidates       *int     `json:"max_candidates,omitempty"` // 0 means unlimited
	Partitioner         *string  `json:"partitioner,omitempty"`    // "gonum" or "unionfind"

	// Mesher params
	MeshCells *int `json:"mesh_cells,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Clearance:           ptrFloat64(reduce.DefaultClearance),
		ImageSize:           ptrInt(reduce.DefaultImageSize),
		DifferenceThreshold: ptrFloat64(reduce.DefaultDifferenceThreshold),
		MaxCandidates:       ptrInt(0),
		Partitioner:         ptrString(split.DefaultPartitioner),
		MeshCells:           ptrInt(sdfx.DefaultMeshCells),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be at most 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *TuningConfig) Validate() error {
	if c.Clearance != nil && *c.Clearance < 0 {
		return fmt.Errorf("clearance must not be negative, got %f", *c.Clearance)
	}
	if c.ImageSize != nil && *c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive, got %d", *c.ImageSize)
	}
	if c.DifferenceThreshold != nil {
		if *c.DifferenceThreshold < 0 || *c.DifferenceThreshold > 1 {
			return fmt.Errorf("difference_threshold must be between 0 and 1, got %f", *c.DifferenceThreshold)
		}
	}
	if c.MaxCandidates != nil && *c.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates must not be negative, got %d", *c.MaxCandidates)
	}
	if c.Partitioner != nil && *c.Partitioner != "" {
		if _, err := split.Lookup(*c.Partitioner); err != nil {
			return fmt.Errorf("partitioner: %w", err)
		}
	}
	if c.MeshCells != nil && *c.MeshCells <= 0 {
		return fmt.Errorf("mesh_cells must be positive, got %d", *c.MeshCells)
	}
	return nil
}

// GetClearance returns the clearance value or the default.
func (c *TuningConfig) GetClearance() float64 {
	if c.Clearance == nil {
		return reduce.DefaultClearance
	}
	return *c.Clearance
}

// GetImageSize returns the image_size value or the default.
func (c *TuningConfig) GetImageSize() int {
	if c.ImageSize == nil {
		return reduce.DefaultImageSize
	}
	return *c.ImageSize
}

// GetDifferenceThreshold returns the difference_threshold value or the default.
func (c *TuningConfig) GetDifferenceThreshold() float64 {
	if c.DifferenceThreshold == nil {
		return reduce.DefaultDifferenceThreshold
	}
	return *c.DifferenceThreshold
}

// GetMaxCandidates returns the max_candidates value, 0 when unset.
func (c *TuningConfig) GetMaxCandidates() int {
	if c.MaxCandidates == nil {
		return 0
	}
	return *c.MaxCandidates
}

// GetPartitioner returns the partitioner name or the default.
func (c *TuningConfig) GetPartitioner() string {
	if c.Partitioner == nil || *c.Partitioner == "" {
		return split.DefaultPartitioner
	}
	return *c.Partitioner
}

// GetMeshCells returns the mesh_cells value or the default.
func (c *TuningConfig) GetMeshCells() int {
	if c.MeshCells == nil {
		return sdfx.DefaultMeshCells
	}
	return *c.MeshCells
}

// ReduceOptions returns reducer options built from the config.
func (c *TuningConfig) ReduceOptions() reduce.Options {
	opts := reduce.DefaultOptions()
	opts.Clearance = c.GetClearance()
	opts.ImageSize = c.GetImageSize()
	opts.DifferenceThreshold = c.GetDifferenceThreshold()
	opts.MaxCandidates = c.GetMaxCandidates()
	opts.Partitioner = c.GetPartitioner()
	return opts
}
