package harvest

import (
	"fmt"
	"math"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

// Candidate is one frontier cell scored for acceptance: the data
// misfit, regularization penalty, and combined goal that committing it
// would produce.
type Candidate struct {
	Seed int // Index of the owning seed
	Cell int // Mesh cell index

	Misfit  float64 // Combined normalized misfit with the candidate added
	Penalty float64 // Combined regularization penalty with the candidate added
	Goal    float64 // Misfit + Penalty
}

// Context is the committed state a jury deliberates against. Chain and
// SeedCell describe the candidate's seed; juries must treat Chain as
// read-only.
type Context struct {
	Goal     float64 // Goal of the committed model (last trace entry)
	Misfit   float64 // Data misfit of the committed model
	BestGoal float64 // Lowest finite candidate goal this iteration; +Inf if none

	SeedCell int
	Chain    []int
}

// Jury decides whether a candidate may be committed. Deliberation is
// pure: juries read the proposed state and mutate nothing. Multiple
// juries compose via Panel with AND semantics.
type Jury interface {
	Accept(c Candidate, ctx *Context) bool
}

// ThresholdJury is the standard acceptance policy. It demands that the
// candidate improve the combined goal by more than a relative tolerance
// AND improve the data misfit by more than a relative threshold. The
// second test guards against candidates that help the goal through
// regularization alone while fitting the data no better.
type ThresholdJury struct {
	Threshold float64 // Required relative misfit improvement
	Tolerance float64 // Required relative goal improvement
}

// NewThresholdJury validates the two relative factors. Values of 1 or
// more can never be satisfied (a candidate cannot remove more than all
// of the current misfit); that is permitted and yields immediate
// convergence, which is occasionally useful as a dry-run setting.
func NewThresholdJury(threshold, tolerance float64) (*ThresholdJury, error) {
	if threshold < 0 || tolerance < 0 || math.IsNaN(threshold) || math.IsNaN(tolerance) {
		return nil, fmt.Errorf("%w: jury threshold %g and tolerance %g must be non-negative",
			ErrBadParams, threshold, tolerance)
	}
	return &ThresholdJury{Threshold: threshold, Tolerance: tolerance}, nil
}

// Accept implements Jury.
func (j *ThresholdJury) Accept(c Candidate, ctx *Context) bool {
	if ctx.Goal-c.Goal <= j.Tolerance*math.Abs(ctx.Goal) {
		return false
	}
	if ctx.Misfit-c.Misfit <= j.Threshold*ctx.Misfit {
		return false
	}
	return true
}

// ShapeJury adds a geometric compactness test independent of the goal
// value: a candidate is rejected if adding it would stretch the chain's
// axis-aligned bounding box beyond the configured aspect ratio
// (longest span over shortest span).
type ShapeJury struct {
	m       *mesh.PrismMesh
	compact float64
}

// NewShapeJury builds a shape jury. compact is the maximum allowed
// bounding-box aspect ratio and must be at least 1 (a ratio below 1 is
// geometrically impossible and would reject everything).
func NewShapeJury(m *mesh.PrismMesh, compact float64) (*ShapeJury, error) {
	if compact < 1 || math.IsNaN(compact) {
		return nil, fmt.Errorf("%w: compactness factor %g must be at least 1", ErrBadParams, compact)
	}
	return &ShapeJury{m: m, compact: compact}, nil
}

// Accept implements Jury.
func (j *ShapeJury) Accept(c Candidate, ctx *Context) bool {
	minI, minJ, minK := j.m.Coords(c.Cell)
	maxI, maxJ, maxK := minI, minJ, minK
	for _, cell := range ctx.Chain {
		ix, iy, iz := j.m.Coords(cell)
		minI, maxI = min(minI, ix), max(maxI, ix)
		minJ, maxJ = min(minJ, iy), max(maxJ, iy)
		minK, maxK = min(minK, iz), max(maxK, iz)
	}
	dx, dy, dz := j.m.CellSize()
	spans := [3]float64{
		float64(maxI-minI+1) * dx,
		float64(maxJ-minJ+1) * dy,
		float64(maxK-minK+1) * dz,
	}
	lo, hi := spans[0], spans[0]
	for _, s := range spans[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	return hi/lo <= j.compact
}

// Panel composes juries with AND semantics: a candidate must convince
// every member. An empty panel accepts everything, which grows until
// the frontier is exhausted.
type Panel []Jury

// Accept implements Jury.
func (p Panel) Accept(c Candidate, ctx *Context) bool {
	for _, j := range p {
		if !j.Accept(c, ctx) {
			return false
		}
	}
	return true
}
