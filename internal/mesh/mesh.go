// Package mesh implements a regular 3D mesh of right rectangular prism
// cells used as the model space for potential-field inversions.
//
// Cells are addressed by a single linear index in row-major order with x
// varying fastest, then y, then z:
//
//	index = ix + nx*iy + nx*ny*iz
//
// The coordinate convention is x -> north, y -> east, z -> down, so layer
// iz=0 is the shallowest layer. Cell bounds are fixed at construction;
// only named property values are mutable.
package mesh

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for mesh operations.
var (
	// ErrBadExtent indicates a degenerate or inverted spatial extent.
	ErrBadExtent = errors.New("mesh: extent must satisfy x1<x2, y1<y2, z1<z2")
	// ErrBadShape indicates non-positive cell counts.
	ErrBadShape = errors.New("mesh: shape must have at least one cell per dimension")
	// ErrOutOfBounds indicates a point or index outside the mesh.
	ErrOutOfBounds = errors.New("mesh: out of bounds")
)

// Cell holds the immutable spatial bounds of one prism cell.
type Cell struct {
	X1, X2 float64
	Y1, Y2 float64
	Z1, Z2 float64
}

// Center returns the centroid of the cell.
func (c Cell) Center() (x, y, z float64) {
	return 0.5 * (c.X1 + c.X2), 0.5 * (c.Y1 + c.Y2), 0.5 * (c.Z1 + c.Z2)
}

// Diagonal returns the length of the cell body diagonal.
func (c Cell) Diagonal() float64 {
	dx := c.X2 - c.X1
	dy := c.Y2 - c.Y1
	dz := c.Z2 - c.Z1
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Contains reports whether the point (x, y, z) lies inside the cell.
// Points on the lower-index faces belong to the cell; points on the
// upper faces belong to the next cell over, so cells tile the extent
// without overlap.
func (c Cell) Contains(x, y, z float64) bool {
	return x >= c.X1 && x < c.X2 && y >= c.Y1 && y < c.Y2 && z >= c.Z1 && z < c.Z2
}

// propArray stores one named property across all cells. A cell's value
// is meaningful only where set is true; unset cells are excluded from
// forward-model summation.
type propArray struct {
	values []float64
	set    []bool
}

// PrismMesh is a regular grid of prism cells over a rectangular extent.
// Bounds are immutable after construction. Property values are assigned
// per cell and per property name, and start unset.
type PrismMesh struct {
	X1, X2 float64
	Y1, Y2 float64
	Z1, Z2 float64
	NX, NY, NZ int

	dx, dy, dz float64
	props      map[string]*propArray
}

// New builds a mesh over the extent (x1,x2,y1,y2,z1,z2) divided into
// nz layers, ny rows, and nx columns. The (nz, ny, nx) argument order
// mirrors the slowest-to-fastest varying dimensions.
func New(x1, x2, y1, y2, z1, z2 float64, nz, ny, nx int) (*PrismMesh, error) {
	if x1 >= x2 || y1 >= y2 || z1 >= z2 {
		return nil, fmt.Errorf("%w: got (%g,%g,%g,%g,%g,%g)", ErrBadExtent, x1, x2, y1, y2, z1, z2)
	}
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("%w: got (%d,%d,%d)", ErrBadShape, nz, ny, nx)
	}
	return &PrismMesh{
		X1: x1, X2: x2,
		Y1: y1, Y2: y2,
		Z1: z1, Z2: z2,
		NX: nx, NY: ny, NZ: nz,
		dx:    (x2 - x1) / float64(nx),
		dy:    (y2 - y1) / float64(ny),
		dz:    (z2 - z1) / float64(nz),
		props: make(map[string]*propArray),
	}, nil
}

// Size returns the total number of cells.
func (m *PrismMesh) Size() int { return m.NX * m.NY * m.NZ }

// CellSize returns the cell dimensions along x, y, and z.
func (m *PrismMesh) CellSize() (dx, dy, dz float64) { return m.dx, m.dy, m.dz }

// Index converts grid coordinates to a linear cell index.
func (m *PrismMesh) Index(ix, iy, iz int) int {
	return ix + m.NX*iy + m.NX*m.NY*iz
}

// Coords converts a linear cell index back to grid coordinates.
func (m *PrismMesh) Coords(i int) (ix, iy, iz int) {
	ix = i % m.NX
	iy = (i / m.NX) % m.NY
	iz = i / (m.NX * m.NY)
	return ix, iy, iz
}

// InBounds reports whether the grid coordinates address a cell.
func (m *PrismMesh) InBounds(ix, iy, iz int) bool {
	return ix >= 0 && ix < m.NX && iy >= 0 && iy < m.NY && iz >= 0 && iz < m.NZ
}

// Cell returns the spatial bounds of cell i. Bounds are derived from
// the extent and shape, never stored, so they cannot drift.
func (m *PrismMesh) Cell(i int) Cell {
	ix, iy, iz := m.Coords(i)
	return Cell{
		X1: m.X1 + float64(ix)*m.dx, X2: m.X1 + float64(ix+1)*m.dx,
		Y1: m.Y1 + float64(iy)*m.dy, Y2: m.Y1 + float64(iy+1)*m.dy,
		Z1: m.Z1 + float64(iz)*m.dz, Z2: m.Z1 + float64(iz+1)*m.dz,
	}
}

// Locate returns the index of the cell containing the point (x, y, z),
// or ErrOutOfBounds if no cell contains it. Points on the far faces of
// the extent are treated as inside the last cell so that the nominal
// corner (x2, y2, z2) is addressable. Non-finite coordinates are out of
// bounds; the check is phrased so NaN fails it.
func (m *PrismMesh) Locate(x, y, z float64) (int, error) {
	if !(x >= m.X1 && x <= m.X2 && y >= m.Y1 && y <= m.Y2 && z >= m.Z1 && z <= m.Z2) {
		return 0, fmt.Errorf("%w: point (%g, %g, %g)", ErrOutOfBounds, x, y, z)
	}
	clamp := func(i, n int) int {
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
	ix := clamp(int((x-m.X1)/m.dx), m.NX)
	iy := clamp(int((y-m.Y1)/m.dy), m.NY)
	iz := clamp(int((z-m.Z1)/m.dz), m.NZ)
	return m.Index(ix, iy, iz), nil
}

// neighborOffsets are the six face-sharing directions.
var neighborOffsets = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Neighbors appends the face-sharing neighbors of cell i to dst and
// returns the extended slice. Interior cells have six neighbors; faces,
// edges, and corners have fewer.
func (m *PrismMesh) Neighbors(i int, dst []int) []int {
	ix, iy, iz := m.Coords(i)
	for _, d := range neighborOffsets {
		jx, jy, jz := ix+d[0], iy+d[1], iz+d[2]
		if m.InBounds(jx, jy, jz) {
			dst = append(dst, m.Index(jx, jy, jz))
		}
	}
	return dst
}

// SetProp assigns the named property of cell i. Allocating the backing
// array on first use keeps unused property names free.
func (m *PrismMesh) SetProp(name string, i int, value float64) {
	pa := m.props[name]
	if pa == nil {
		pa = &propArray{
			values: make([]float64, m.Size()),
			set:    make([]bool, m.Size()),
		}
		m.props[name] = pa
	}
	pa.values[i] = value
	pa.set[i] = true
}

// Prop returns the named property of cell i and whether it has been
// assigned.
func (m *PrismMesh) Prop(name string, i int) (float64, bool) {
	pa := m.props[name]
	if pa == nil || !pa.set[i] {
		return 0, false
	}
	return pa.values[i], true
}

// PropMap returns all assigned values of the named property keyed by
// cell index. The map is a copy; mutating it does not affect the mesh.
func (m *PrismMesh) PropMap(name string) map[int]float64 {
	out := make(map[int]float64)
	pa := m.props[name]
	if pa == nil {
		return out
	}
	for i, ok := range pa.set {
		if ok {
			out[i] = pa.values[i]
		}
	}
	return out
}

// PropNames returns the property names that have at least one assigned
// cell, in unspecified order.
func (m *PrismMesh) PropNames() []string {
	names := make([]string, 0, len(m.props))
	for name := range m.props {
		names = append(names, name)
	}
	return names
}
