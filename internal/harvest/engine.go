// Package harvest implements seeded growth inversion of potential-field
// data: anomalies grow one cell at a time outward from fixed seed cells
// in a prism mesh, each growth step chosen greedily from a pooled,
// ranked frontier and gated by a composable acceptance policy.
//
// The discipline is greedy and monotone on purpose. Cells are added,
// never removed, during a run; exactly one cell is committed per
// iteration; and every commit must lower the combined goal function
// (data misfit plus regularization penalty). That trades optimality for
// a deterministic, auditable goal trace — an exhaustive search over
// cell subsets is infeasible at realistic mesh sizes.
package harvest

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

// State tracks the engine through its lifecycle. Converged, Exhausted,
// Stalled, and Cancelled are terminal.
type State int

const (
	// StateInitialized means the engine is configured but has not run.
	StateInitialized State = iota
	// StateIterating means the growth loop is in progress.
	StateIterating
	// StateConverged means no frontier candidate passed the jury.
	StateConverged
	// StateExhausted means every frontier emptied or the iteration
	// budget ran out before the jury started rejecting.
	StateExhausted
	// StateStalled means goal improvement stayed below the configured
	// epsilon for the configured number of consecutive iterations.
	StateStalled
	// StateCancelled means the external stop signal fired; the partial
	// estimate and trace remain valid.
	StateCancelled
)

var stateNames = map[State]string{
	StateInitialized: "initialized",
	StateIterating:   "iterating",
	StateConverged:   "converged",
	StateExhausted:   "exhausted",
	StateStalled:     "stalled",
	StateCancelled:   "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s != StateInitialized && s != StateIterating
}

// Config carries the engine tunables. The zero value is usable:
// unlimited-by-budget growth (bounded by mesh size), no stall
// detection, serial candidate evaluation.
type Config struct {
	// MaxIterations caps growth steps; 0 means one step per mesh cell,
	// the natural upper bound.
	MaxIterations int
	// StallWindow is the number of consecutive iterations with goal
	// improvement below StallEpsilon before the run stalls; 0 disables
	// stall detection.
	StallWindow  int
	StallEpsilon float64
	// Workers bounds parallel candidate evaluation; values below 2 mean
	// serial. Results are merged deterministically, so the worker count
	// never changes the outcome.
	Workers int
}

func (c Config) validate() error {
	if c.MaxIterations < 0 || c.StallWindow < 0 || c.Workers < 0 {
		return fmt.Errorf("%w: iteration, stall, and worker counts must be non-negative", ErrBadParams)
	}
	if c.StallEpsilon < 0 || math.IsNaN(c.StallEpsilon) {
		return fmt.Errorf("%w: stall epsilon %g must be non-negative", ErrBadParams, c.StallEpsilon)
	}
	if c.StallWindow > 0 && c.StallEpsilon == 0 {
		return fmt.Errorf("%w: stall detection needs a positive epsilon", ErrBadParams)
	}
	return nil
}

// Result is what a run hands back: the terminal state, the goal trace
// (entry 0 is the seed-only goal, then one entry per accepted step),
// the estimate read off the mesh, and each seed's chain. A terminal
// state other than Converged is a convergence warning, not an error;
// the caller decides whether a partial result is acceptable.
type Result struct {
	State      State
	Iterations int
	Goals      []float64
	// Estimate maps property name to assigned cell values.
	Estimate map[string]map[int]float64
	// Chains holds each seed's accepted cells in acceptance order.
	Chains [][]int
}

// Converged reports whether the run ended because the jury rejected
// every remaining candidate.
func (r *Result) Converged() bool { return r.State == StateConverged }

// Engine orchestrates the growth loop. It exclusively owns mesh
// property mutation during a run; every other component sees read-only
// state.
type Engine struct {
	m       *mesh.PrismMesh
	seeds   []*Seed
	modules []DataModule
	reg     Regularizer
	jury    Jury
	cfg     Config

	state        State
	taken        []bool
	penalties    []float64
	penaltyTotal float64
	misfit       float64
	goals        []float64
	iterations   int
	scratch      []int
}

// New validates the configuration and prepares the engine: seed effects
// are committed to every data module, frontiers are built from the seed
// cells' neighbors, and the seed-only goal becomes the first trace
// entry. All fatal errors happen here; Run itself cannot fail.
//
// reg may be nil for an unregularized inversion (zero penalty).
func New(m *mesh.PrismMesh, seeds []*Seed, modules []DataModule, reg Regularizer, jury Jury, cfg Config) (*Engine, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	if len(modules) == 0 {
		return nil, ErrNoModules
	}
	if jury == nil {
		return nil, fmt.Errorf("%w: a jury is required", ErrBadParams)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		m:         m,
		seeds:     seeds,
		modules:   modules,
		reg:       reg,
		jury:      jury,
		cfg:       cfg,
		state:     StateInitialized,
		taken:     make([]bool, m.Size()),
		penalties: make([]float64, len(seeds)),
	}

	for i, s := range seeds {
		if s.cell < 0 || s.cell >= m.Size() {
			return nil, fmt.Errorf("seed %d: cell %d: %w", i, s.cell, mesh.ErrOutOfBounds)
		}
		if e.taken[s.cell] {
			return nil, fmt.Errorf("%w: cell %d", ErrDuplicateSeed, s.cell)
		}
		e.taken[s.cell] = true
	}

	for _, s := range seeds {
		geom := m.Cell(s.cell)
		for _, mod := range modules {
			mod.Commit(geom, s.props)
		}
	}
	for i, s := range seeds {
		e.scratch = m.Neighbors(s.cell, e.scratch[:0])
		for _, nb := range e.scratch {
			if !e.taken[nb] {
				s.frontier[nb] = struct{}{}
			}
		}
		if reg != nil {
			e.penalties[i] = reg.Penalty(s.cell, s.chain, -1)
			e.penaltyTotal += e.penalties[i]
		}
	}

	e.misfit = e.moduleMisfit()
	e.goals = append(e.goals, e.misfit+e.penaltyTotal)
	return e, nil
}

// Run executes the growth loop until a terminal state. ctx cancellation
// is checked once per iteration and terminates cleanly with the partial
// result; Run never returns an error after successful initialization
// except when called twice.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.state != StateInitialized {
		return nil, ErrAlreadyRun
	}
	e.state = StateIterating

	maxIter := e.cfg.MaxIterations
	if maxIter == 0 {
		maxIter = e.m.Size()
	}

	stall := 0
	for e.state == StateIterating {
		select {
		case <-ctx.Done():
			e.state = StateCancelled
			continue
		default:
		}
		if e.iterations >= maxIter {
			e.state = StateExhausted
			continue
		}

		cands := e.evaluate()
		if len(cands) == 0 {
			e.state = StateExhausted
			continue
		}

		chosen, ok := e.deliberate(cands)
		if !ok {
			e.state = StateConverged
			continue
		}

		prevGoal := e.goals[len(e.goals)-1]
		e.commit(chosen)
		e.iterations++

		if e.cfg.StallWindow > 0 {
			if prevGoal-chosen.Goal < e.cfg.StallEpsilon {
				stall++
			} else {
				stall = 0
			}
			if stall >= e.cfg.StallWindow {
				e.state = StateStalled
			}
		}
	}
	return e.result(), nil
}

// evaluate scores every frontier cell of every seed and returns the
// pool ranked by goal, ascending, with ties broken by cell then seed
// index so that ranking is independent of evaluation order and worker
// count.
func (e *Engine) evaluate() []Candidate {
	var cands []Candidate
	for si, s := range e.seeds {
		cells := make([]int, 0, len(s.frontier))
		for cell := range s.frontier {
			cells = append(cells, cell)
		}
		sort.Ints(cells)
		for _, cell := range cells {
			cands = append(cands, Candidate{Seed: si, Cell: cell})
		}
	}
	if len(cands) == 0 {
		return nil
	}

	if e.cfg.Workers < 2 || len(cands) == 1 {
		for i := range cands {
			e.score(&cands[i])
		}
	} else {
		workers := e.cfg.Workers
		if workers > len(cands) {
			workers = len(cands)
		}
		var wg sync.WaitGroup
		chunk := (len(cands) + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := lo + chunk
			if hi > len(cands) {
				hi = len(cands)
			}
			if lo >= hi {
				break
			}
			wg.Add(1)
			go func(block []Candidate) {
				defer wg.Done()
				for i := range block {
					e.score(&block[i])
				}
			}(cands[lo:hi])
		}
		wg.Wait()
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Goal != b.Goal {
			return a.Goal < b.Goal
		}
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		return a.Seed < b.Seed
	})
	return cands
}

// score fills in the misfit, penalty, and goal a commit would produce.
// It only reads committed state, so scoring is safe to run in parallel
// across candidates.
func (e *Engine) score(c *Candidate) {
	s := e.seeds[c.Seed]
	geom := e.m.Cell(c.Cell)
	var misfit float64
	for _, mod := range e.modules {
		misfit += mod.TrialMisfit(geom, s.props)
	}
	penalty := e.penaltyTotal
	if e.reg != nil {
		penalty = penalty - e.penalties[c.Seed] + e.reg.Penalty(s.cell, s.chain, c.Cell)
	}
	c.Misfit = misfit
	c.Penalty = penalty
	c.Goal = misfit + penalty
}

// deliberate walks the ranked pool and returns the first candidate the
// jury accepts. Numerically degenerate candidates are logged and
// skipped, never fatal.
func (e *Engine) deliberate(cands []Candidate) (Candidate, bool) {
	jctx := &Context{
		Goal:     e.goals[len(e.goals)-1],
		Misfit:   e.misfit,
		BestGoal: math.Inf(1),
	}
	// The leading slot can hold a degenerate goal (NaN sorts
	// unpredictably), so the best goal is the first finite one.
	for _, c := range cands {
		if !math.IsNaN(c.Goal) && !math.IsInf(c.Goal, 0) {
			jctx.BestGoal = c.Goal
			break
		}
	}
	for _, c := range cands {
		if math.IsNaN(c.Goal) || math.IsInf(c.Goal, 0) {
			log.Printf("harvest: skipping degenerate candidate cell %d of seed %d (goal %v)", c.Cell, c.Seed, c.Goal)
			continue
		}
		s := e.seeds[c.Seed]
		jctx.SeedCell = s.cell
		jctx.Chain = s.chain
		if e.jury.Accept(c, jctx) {
			return c, true
		}
	}
	return Candidate{}, false
}

// commit applies one accepted growth step: assigns the property values,
// folds the effect into every module, claims the cell, repairs all
// frontiers, and appends to the goal trace.
func (e *Engine) commit(c Candidate) {
	s := e.seeds[c.Seed]
	geom := e.m.Cell(c.Cell)
	for name, v := range s.props {
		e.m.SetProp(name, c.Cell, v)
	}
	for _, mod := range e.modules {
		mod.Commit(geom, s.props)
	}

	s.chain = append(s.chain, c.Cell)
	e.taken[c.Cell] = true
	for _, other := range e.seeds {
		delete(other.frontier, c.Cell)
	}
	e.scratch = e.m.Neighbors(c.Cell, e.scratch[:0])
	for _, nb := range e.scratch {
		if !e.taken[nb] {
			s.frontier[nb] = struct{}{}
		}
	}

	if e.reg != nil {
		e.penaltyTotal -= e.penalties[c.Seed]
		e.penalties[c.Seed] = e.reg.Penalty(s.cell, s.chain, -1)
		e.penaltyTotal += e.penalties[c.Seed]
	}
	e.misfit = c.Misfit
	e.goals = append(e.goals, c.Goal)
}

func (e *Engine) moduleMisfit() float64 {
	var sum float64
	for _, mod := range e.modules {
		sum += mod.Misfit()
	}
	return sum
}

func (e *Engine) result() *Result {
	res := &Result{
		State:      e.state,
		Iterations: e.iterations,
		Goals:      make([]float64, len(e.goals)),
		Estimate:   make(map[string]map[int]float64),
		Chains:     make([][]int, len(e.seeds)),
	}
	copy(res.Goals, e.goals)
	for _, name := range e.m.PropNames() {
		res.Estimate[name] = e.m.PropMap(name)
	}
	for i, s := range e.seeds {
		res.Chains[i] = s.Chain()
	}
	return res
}
