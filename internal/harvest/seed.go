package harvest

import (
	"fmt"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

// SeedSpec describes where a seed goes and which property values it
// carries. A seed is placed either at an explicit cell index or at a
// spatial location resolved to the containing cell.
type SeedSpec struct {
	X, Y, Z float64
	Cell    int
	ByCell  bool
	Props   map[string]float64
}

// SeedAt places a seed at the cell containing the point (x, y, z).
func SeedAt(x, y, z float64, props map[string]float64) SeedSpec {
	return SeedSpec{X: x, Y: y, Z: z, Props: props}
}

// SeedAtCell places a seed at an explicit linear cell index.
func SeedAtCell(cell int, props map[string]float64) SeedSpec {
	return SeedSpec{Cell: cell, ByCell: true, Props: props}
}

// Seed anchors one growing anomaly. Its cell and property values are
// fixed at sowing; the chain records every cell accepted into the
// anomaly, in acceptance order, always starting with the seed cell.
// Chains of different seeds never share a cell.
type Seed struct {
	cell  int
	props map[string]float64

	chain    []int
	frontier map[int]struct{}
}

// Cell returns the anchor cell index.
func (s *Seed) Cell() int { return s.cell }

// Props returns a copy of the seed's property assignment.
func (s *Seed) Props() map[string]float64 {
	out := make(map[string]float64, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

// Chain returns a copy of the cells accepted into this seed's anomaly,
// in acceptance order.
func (s *Seed) Chain() []int {
	out := make([]int, len(s.chain))
	copy(out, s.chain)
	return out
}

// Sow resolves seed specifications against the mesh, assigns each
// seed's property values to its cell, and returns the seeds in input
// order. It fails if a location falls outside the mesh (wrapping
// mesh.ErrOutOfBounds), if two seeds resolve to the same cell, or if a
// seed carries no properties.
func Sow(m *mesh.PrismMesh, specs []SeedSpec) ([]*Seed, error) {
	if len(specs) == 0 {
		return nil, ErrNoSeeds
	}
	seeds := make([]*Seed, 0, len(specs))
	used := make(map[int]int, len(specs))
	for i, spec := range specs {
		if len(spec.Props) == 0 {
			return nil, fmt.Errorf("%w: seed %d has no property values", ErrBadParams, i)
		}
		cell := spec.Cell
		if spec.ByCell {
			if cell < 0 || cell >= m.Size() {
				return nil, fmt.Errorf("seed %d: cell %d: %w", i, cell, mesh.ErrOutOfBounds)
			}
		} else {
			var err error
			cell, err = m.Locate(spec.X, spec.Y, spec.Z)
			if err != nil {
				return nil, fmt.Errorf("seed %d: %w", i, err)
			}
		}
		if prev, ok := used[cell]; ok {
			return nil, fmt.Errorf("%w: seeds %d and %d both resolve to cell %d", ErrDuplicateSeed, prev, i, cell)
		}
		used[cell] = i

		props := make(map[string]float64, len(spec.Props))
		for name, v := range spec.Props {
			props[name] = v
			m.SetProp(name, cell, v)
		}
		seeds = append(seeds, &Seed{
			cell:     cell,
			props:    props,
			chain:    []int{cell},
			frontier: make(map[int]struct{}),
		})
	}
	return seeds, nil
}
