package harvest

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/gravharvest/internal/dataset"
	"github.com/banshee-data/gravharvest/internal/gravity"
	"github.com/banshee-data/gravharvest/internal/mesh"
)

// DataModule scores candidate cells against one observed dataset. A
// module keeps the predicted values for the currently committed model
// and exposes the normalized L2 misfit against its observations:
//
//	misfit = sum(((observed - predicted) / stddev)^2) / N
//
// TrialMisfit must not mutate the module and must be safe for
// concurrent use: candidate evaluation runs in parallel workers that
// all read the same committed state. Commit is only ever called by the
// engine's single coordinator.
//
// The incremental TrialMisfit/Commit contract relies on linear
// superposition of cell effects. A non-linear forward model cannot
// implement it and would need full recomputation per candidate.
type DataModule interface {
	// Name identifies the module in logs and results.
	Name() string
	// Misfit returns the normalized misfit of the committed model.
	Misfit() float64
	// TrialMisfit returns the misfit that committing the cell with the
	// given property values would produce.
	TrialMisfit(c mesh.Cell, props map[string]float64) float64
	// Commit folds the cell's effect into the predicted values.
	Commit(c mesh.Cell, props map[string]float64)
	// Predict recomputes predicted values from scratch for the given
	// active cells, reading property values from the mesh. It is pure:
	// repeated calls on the same state yield identical output.
	Predict(m *mesh.PrismMesh, active []int) ([]float64, error)
}

// FieldModule is a DataModule for one gravity or gradient-tensor
// component observed over one survey. It responds to a single property
// name (the density); candidates without that property contribute no
// effect.
type FieldModule struct {
	component string
	prop      string
	survey    *dataset.Survey
	eval      gravity.PointFunc
	predicted []float64
}

// NewFieldModule builds a module for the named field component (gz,
// gxx, ...) over the given survey. prop names the mesh property that
// drives the forward model, normally "density". The survey is
// referenced, never copied, and must not change afterwards.
func NewFieldModule(component, prop string, survey *dataset.Survey) (*FieldModule, error) {
	eval, err := gravity.Evaluator(component)
	if err != nil {
		return nil, err
	}
	if prop == "" {
		return nil, fmt.Errorf("%w: field module needs a property name", ErrBadParams)
	}
	if survey == nil || survey.Len() == 0 {
		return nil, fmt.Errorf("%w: field module %s needs a non-empty survey", ErrBadParams, component)
	}
	return &FieldModule{
		component: component,
		prop:      prop,
		survey:    survey,
		eval:      eval,
		predicted: make([]float64, survey.Len()),
	}, nil
}

// Name returns the field component this module observes.
func (fm *FieldModule) Name() string { return fm.component }

// Predicted returns a copy of the predicted values for the committed
// model.
func (fm *FieldModule) Predicted() []float64 {
	out := make([]float64, len(fm.predicted))
	copy(out, fm.predicted)
	return out
}

// Misfit returns the normalized misfit of the committed model.
func (fm *FieldModule) Misfit() float64 {
	var sum float64
	for i, p := range fm.predicted {
		r := (fm.survey.Data[i] - p) / fm.survey.StdDev[i]
		sum += r * r
	}
	return sum / float64(fm.survey.Len())
}

// TrialMisfit evaluates the candidate's effect point by point on top of
// the committed predicted values, without touching module state.
func (fm *FieldModule) TrialMisfit(c mesh.Cell, props map[string]float64) float64 {
	density, ok := props[fm.prop]
	if !ok {
		return fm.Misfit()
	}
	var sum float64
	for i := range fm.predicted {
		eff := fm.eval(fm.survey.X[i], fm.survey.Y[i], fm.survey.Z[i], c, density)
		r := (fm.survey.Data[i] - (fm.predicted[i] + eff)) / fm.survey.StdDev[i]
		sum += r * r
	}
	return sum / float64(fm.survey.Len())
}

// Commit adds the cell's effect to the committed predicted values.
func (fm *FieldModule) Commit(c mesh.Cell, props map[string]float64) {
	density, ok := props[fm.prop]
	if !ok {
		return
	}
	eff := make([]float64, len(fm.predicted))
	for i := range eff {
		eff[i] = fm.eval(fm.survey.X[i], fm.survey.Y[i], fm.survey.Z[i], c, density)
	}
	floats.Add(fm.predicted, eff)
}

// Predict recomputes the forward model of the active cells from mesh
// state. Cells without the module's property are skipped.
func (fm *FieldModule) Predict(m *mesh.PrismMesh, active []int) ([]float64, error) {
	out := make([]float64, fm.survey.Len())
	for _, i := range active {
		density, ok := m.Prop(fm.prop, i)
		if !ok {
			continue
		}
		if err := gravity.Effect(fm.component, fm.survey.X, fm.survey.Y, fm.survey.Z, m.Cell(i), density, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
