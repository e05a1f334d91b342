package harvest

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/gravharvest/internal/dataset"
	"github.com/banshee-data/gravharvest/internal/gravity"
	"github.com/banshee-data/gravharvest/internal/gridder"
	"github.com/banshee-data/gravharvest/internal/mesh"
)

// syntheticSurvey computes noise-free observations of one field
// component generated by source cells with the given density, on an
// nx-by-ny grid just above the surface.
func syntheticSurvey(t *testing.T, component string, x1, x2, y1, y2 float64, nx, ny int, sources []mesh.Cell, density, stddev float64) *dataset.Survey {
	t.Helper()
	xp, yp, zp, err := gridder.Regular(x1, x2, y1, y2, nx, ny, -1)
	if err != nil {
		t.Fatalf("gridder.Regular: %v", err)
	}
	data := make([]float64, len(xp))
	for _, src := range sources {
		if err := gravity.Effect(component, xp, yp, zp, src, density, data); err != nil {
			t.Fatalf("gravity.Effect: %v", err)
		}
	}
	s, err := dataset.NewUniform(xp, yp, zp, data, stddev)
	if err != nil {
		t.Fatalf("dataset.NewUniform: %v", err)
	}
	return s
}

func TestNewFieldModule_Validation(t *testing.T) {
	survey := syntheticSurvey(t, "gz", 0, 4000, 0, 4000, 4, 4,
		[]mesh.Cell{{X1: 1000, X2: 2000, Y1: 1000, Y2: 2000, Z1: 500, Z2: 1000}}, 800, 0.1)

	if _, err := NewFieldModule("gq", "density", survey); !errors.Is(err, gravity.ErrUnknownComponent) {
		t.Errorf("bad component: expected ErrUnknownComponent, got %v", err)
	}
	if _, err := NewFieldModule("gz", "", survey); !errors.Is(err, ErrBadParams) {
		t.Errorf("empty prop: expected ErrBadParams, got %v", err)
	}
	if _, err := NewFieldModule("gz", "density", nil); !errors.Is(err, ErrBadParams) {
		t.Errorf("nil survey: expected ErrBadParams, got %v", err)
	}
}

func TestFieldModule_PredictIsIdempotent(t *testing.T) {
	m := newTestMesh(t)
	src := m.Cell(m.Index(1, 1, 0))
	survey := syntheticSurvey(t, "gz", 0, 4000, 0, 4000, 6, 6, []mesh.Cell{src}, 800, 0.1)

	fm, err := NewFieldModule("gz", "density", survey)
	if err != nil {
		t.Fatalf("NewFieldModule: %v", err)
	}

	active := []int{m.Index(1, 1, 0), m.Index(2, 1, 0)}
	for _, i := range active {
		m.SetProp("density", i, 800)
	}
	first, err := fm.Predict(m, active)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	second, err := fm.Predict(m, active)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Predict drifted between identical calls (-first +second):\n%s", diff)
	}
}

func TestFieldModule_TrialMatchesCommit(t *testing.T) {
	m := newTestMesh(t)
	src := m.Cell(m.Index(1, 1, 0))
	survey := syntheticSurvey(t, "gz", 0, 4000, 0, 4000, 6, 6, []mesh.Cell{src}, 800, 0.1)

	fm, err := NewFieldModule("gz", "density", survey)
	if err != nil {
		t.Fatalf("NewFieldModule: %v", err)
	}

	props := map[string]float64{"density": 800}
	cell := m.Cell(m.Index(2, 1, 0))

	trial := fm.TrialMisfit(cell, props)
	before := fm.Misfit()
	fm.Commit(cell, props)
	after := fm.Misfit()

	if math.Abs(trial-after) > 1e-9*math.Max(1, after) {
		t.Errorf("trial misfit %g does not match committed misfit %g", trial, after)
	}
	if before == after {
		t.Error("commit had no effect on the misfit")
	}
}

func TestFieldModule_TrueSourceLowersMisfit(t *testing.T) {
	m := newTestMesh(t)
	srcIdx := m.Index(1, 1, 0)
	src := m.Cell(srcIdx)
	survey := syntheticSurvey(t, "gz", 0, 4000, 0, 4000, 6, 6, []mesh.Cell{src}, 800, 0.1)

	fm, err := NewFieldModule("gz", "density", survey)
	if err != nil {
		t.Fatalf("NewFieldModule: %v", err)
	}

	props := map[string]float64{"density": 800}
	initial := fm.Misfit()
	trial := fm.TrialMisfit(src, props)
	if trial >= initial {
		t.Errorf("committing the true source should lower the misfit: %g -> %g", initial, trial)
	}
	fm.Commit(src, props)
	if fit := fm.Misfit(); fit > 1e-18 {
		t.Errorf("exact model should fit exactly, misfit %g", fit)
	}
}

func TestFieldModule_IgnoresUnrelatedProps(t *testing.T) {
	m := newTestMesh(t)
	src := m.Cell(m.Index(1, 1, 0))
	survey := syntheticSurvey(t, "gz", 0, 4000, 0, 4000, 4, 4, []mesh.Cell{src}, 800, 0.1)

	fm, err := NewFieldModule("gz", "density", survey)
	if err != nil {
		t.Fatalf("NewFieldModule: %v", err)
	}
	props := map[string]float64{"magnetization": 2}
	if got, want := fm.TrialMisfit(src, props), fm.Misfit(); got != want {
		t.Errorf("unrelated property changed the trial misfit: %g vs %g", got, want)
	}
	fm.Commit(src, props)
	pred := fm.Predicted()
	for i, v := range pred {
		if v != 0 {
			t.Fatalf("unrelated property committed an effect at point %d: %g", i, v)
		}
	}
}
