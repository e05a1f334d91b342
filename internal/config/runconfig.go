// Package config loads inversion run configurations from JSON files.
// Tunables are pointer-valued so that omitted fields fall back to
// defaults and partial configs stay safe.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/gravharvest/internal/gravity"
)

// Defaults applied when the JSON omits a tunable. Threshold and
// tolerance follow the values used in practice for single-component
// surveys; regularization and the shape test default to off.
const (
	DefaultProperty  = "density"
	DefaultPower     = 3.0
	DefaultThreshold = 1e-4
	DefaultTolerance = 1e-3
)

// ErrInvalid indicates a config that parses but cannot drive a run.
var ErrInvalid = errors.New("config: invalid run configuration")

// MeshConfig describes the model mesh.
type MeshConfig struct {
	// Extent is x1, x2, y1, y2, z1, z2 in SI units (z down).
	Extent [6]float64 `json:"extent"`
	// Shape is nz, ny, nx (slowest to fastest varying).
	Shape [3]int `json:"shape"`
}

// SeedConfig places one seed by spatial location.
type SeedConfig struct {
	Location [3]float64         `json:"location"` // x, y, z
	Props    map[string]float64 `json:"props"`
}

// DataConfig names one observed survey file and its field component.
type DataConfig struct {
	Component string `json:"component"` // gz, gxx, ...
	Path      string `json:"path"`
}

// RunConfig is the root of a run configuration file.
type RunConfig struct {
	Mesh  MeshConfig   `json:"mesh"`
	Seeds []SeedConfig `json:"seeds"`
	Data  []DataConfig `json:"data"`

	Property             *string  `json:"property,omitempty"`
	RegularizationWeight *float64 `json:"regularization_weight,omitempty"`
	RegularizationPower  *float64 `json:"regularization_power,omitempty"`
	JuryThreshold        *float64 `json:"jury_threshold,omitempty"`
	JuryTolerance        *float64 `json:"jury_tolerance,omitempty"`
	CompactnessFactor    *float64 `json:"compactness_factor,omitempty"`
	MaxIterations        *int     `json:"max_iterations,omitempty"`
	StallWindow          *int     `json:"stall_window,omitempty"`
	StallEpsilon         *float64 `json:"stall_epsilon,omitempty"`
	Workers              *int     `json:"workers,omitempty"`
}

// Load reads and validates a run configuration. The file must have a
// .json extension and stay under 1MB.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: config file must have .json extension, got %q", ErrInvalid, ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", cleanPath, err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalid, info.Size(), maxFileSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", cleanPath, err)
	}
	var cfg RunConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", cleanPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", cleanPath, err)
	}
	return &cfg, nil
}

// Validate checks the structural requirements a run cannot start
// without. Engine-level parameter checks (negative weights and the
// like) are left to the components that own them.
func (c *RunConfig) Validate() error {
	e := c.Mesh.Extent
	if e[0] >= e[1] || e[2] >= e[3] || e[4] >= e[5] {
		return fmt.Errorf("%w: mesh extent must satisfy x1<x2, y1<y2, z1<z2", ErrInvalid)
	}
	for _, n := range c.Mesh.Shape {
		if n < 1 {
			return fmt.Errorf("%w: mesh shape must be positive, got %v", ErrInvalid, c.Mesh.Shape)
		}
	}
	if len(c.Seeds) == 0 {
		return fmt.Errorf("%w: at least one seed is required", ErrInvalid)
	}
	for i, s := range c.Seeds {
		if len(s.Props) == 0 {
			return fmt.Errorf("%w: seed %d has no property values", ErrInvalid, i)
		}
	}
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: at least one data file is required", ErrInvalid)
	}
	for i, d := range c.Data {
		if !gravity.Valid(d.Component) {
			return fmt.Errorf("%w: data %d: unknown field component %q", ErrInvalid, i, d.Component)
		}
		if d.Path == "" {
			return fmt.Errorf("%w: data %d: missing file path", ErrInvalid, i)
		}
	}
	return nil
}

// The getters below apply defaults for omitted tunables.

func (c *RunConfig) PropertyName() string {
	if c.Property != nil {
		return *c.Property
	}
	return DefaultProperty
}

func (c *RunConfig) Weight() float64 {
	if c.RegularizationWeight != nil {
		return *c.RegularizationWeight
	}
	return 0
}

func (c *RunConfig) Power() float64 {
	if c.RegularizationPower != nil {
		return *c.RegularizationPower
	}
	return DefaultPower
}

func (c *RunConfig) Threshold() float64 {
	if c.JuryThreshold != nil {
		return *c.JuryThreshold
	}
	return DefaultThreshold
}

func (c *RunConfig) Tolerance() float64 {
	if c.JuryTolerance != nil {
		return *c.JuryTolerance
	}
	return DefaultTolerance
}

// Compactness returns the shape-jury factor, or 0 when the shape test
// is disabled.
func (c *RunConfig) Compactness() float64 {
	if c.CompactnessFactor != nil {
		return *c.CompactnessFactor
	}
	return 0
}

func (c *RunConfig) Iterations() int {
	if c.MaxIterations != nil {
		return *c.MaxIterations
	}
	return 0
}

func (c *RunConfig) Stall() (window int, epsilon float64) {
	if c.StallWindow != nil {
		window = *c.StallWindow
	}
	if c.StallEpsilon != nil {
		epsilon = *c.StallEpsilon
	}
	return window, epsilon
}

func (c *RunConfig) WorkerCount() int {
	if c.Workers != nil {
		return *c.Workers
	}
	return 0
}
