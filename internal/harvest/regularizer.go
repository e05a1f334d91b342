package harvest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

// Regularizer computes a non-negative penalty that grows with the
// geometric dispersion of a chain around its seed. Implementations are
// read-only: they keep no mutable history beyond what the call passes
// in, so the same call always yields the same penalty.
type Regularizer interface {
	// Penalty scores the chain with candidate appended. Pass a negative
	// candidate to score the chain as-is.
	Penalty(seedCell int, chain []int, candidate int) float64
}

// Concentration penalizes chains whose cells spread away from the seed.
// The penalty is the weighted mean of per-cell seed distances raised to
// a power:
//
//	penalty = weight * mean((|center_i - center_seed| / diag)^power)
//
// where diag is the cell body diagonal, so distances are measured in
// cell units and the weight keeps a comparable scale across mesh
// resolutions. A larger power punishes far-flung cells more sharply.
type Concentration struct {
	m      *mesh.PrismMesh
	weight float64
	power  float64
	scale  float64
}

// NewConcentration builds the default compactness regularizer. weight
// must be non-negative and power positive.
func NewConcentration(m *mesh.PrismMesh, weight, power float64) (*Concentration, error) {
	if weight < 0 || math.IsNaN(weight) {
		return nil, fmt.Errorf("%w: regularization weight %g must be non-negative", ErrBadParams, weight)
	}
	if power <= 0 || math.IsNaN(power) {
		return nil, fmt.Errorf("%w: regularization power %g must be positive", ErrBadParams, power)
	}
	return &Concentration{
		m:      m,
		weight: weight,
		power:  power,
		scale:  m.Cell(0).Diagonal(),
	}, nil
}

// Penalty implements Regularizer.
func (r *Concentration) Penalty(seedCell int, chain []int, candidate int) float64 {
	if r.weight == 0 {
		return 0
	}
	sx, sy, sz := r.m.Cell(seedCell).Center()
	samples := make([]float64, 0, len(chain)+1)
	score := func(i int) float64 {
		cx, cy, cz := r.m.Cell(i).Center()
		dx, dy, dz := cx-sx, cy-sy, cz-sz
		d := math.Sqrt(dx*dx+dy*dy+dz*dz) / r.scale
		return math.Pow(d, r.power)
	}
	for _, i := range chain {
		samples = append(samples, score(i))
	}
	if candidate >= 0 {
		samples = append(samples, score(candidate))
	}
	if len(samples) == 0 {
		return 0
	}
	return r.weight * stat.Mean(samples, nil)
}
