package harvest

import (
	"errors"
	"testing"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

func newTestMesh(t *testing.T) *mesh.PrismMesh {
	t.Helper()
	m, err := mesh.New(0, 4000, 0, 4000, 0, 2000, 2, 4, 4)
	if err != nil {
		t.Fatalf("mesh.New: %v", err)
	}
	return m
}

func TestSow_ByLocation(t *testing.T) {
	m := newTestMesh(t)
	seeds, err := Sow(m, []SeedSpec{
		SeedAt(500, 500, 500, map[string]float64{"density": 800}),
	})
	if err != nil {
		t.Fatalf("Sow: %v", err)
	}
	if len(seeds) != 1 {
		t.Fatalf("expected 1 seed, got %d", len(seeds))
	}
	s := seeds[0]
	if !m.Cell(s.Cell()).Contains(500, 500, 500) {
		t.Errorf("seed cell %d does not contain the seed location", s.Cell())
	}
	if chain := s.Chain(); len(chain) != 1 || chain[0] != s.Cell() {
		t.Errorf("chain should start as the seed cell alone, got %v", chain)
	}
	if v, ok := m.Prop("density", s.Cell()); !ok || v != 800 {
		t.Errorf("seed property not assigned to mesh: %g, %v", v, ok)
	}
}

func TestSow_ByCell(t *testing.T) {
	m := newTestMesh(t)
	seeds, err := Sow(m, []SeedSpec{
		SeedAtCell(7, map[string]float64{"density": -300}),
	})
	if err != nil {
		t.Fatalf("Sow: %v", err)
	}
	if seeds[0].Cell() != 7 {
		t.Errorf("expected cell 7, got %d", seeds[0].Cell())
	}
}

func TestSow_Errors(t *testing.T) {
	m := newTestMesh(t)
	props := map[string]float64{"density": 800}

	if _, err := Sow(m, nil); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("no specs: expected ErrNoSeeds, got %v", err)
	}
	if _, err := Sow(m, []SeedSpec{SeedAt(-10, 0, 0, props)}); !errors.Is(err, mesh.ErrOutOfBounds) {
		t.Errorf("outside location: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := Sow(m, []SeedSpec{SeedAtCell(m.Size(), props)}); !errors.Is(err, mesh.ErrOutOfBounds) {
		t.Errorf("bad index: expected ErrOutOfBounds, got %v", err)
	}
	if _, err := Sow(m, []SeedSpec{SeedAtCell(3, props), SeedAt(3500, 0.0, 0.0, props)}); !errors.Is(err, ErrDuplicateSeed) {
		t.Errorf("same cell twice: expected ErrDuplicateSeed, got %v", err)
	}
	if _, err := Sow(m, []SeedSpec{SeedAtCell(3, nil)}); !errors.Is(err, ErrBadParams) {
		t.Errorf("no props: expected ErrBadParams, got %v", err)
	}
}

func TestSow_PropsAreCopied(t *testing.T) {
	m := newTestMesh(t)
	props := map[string]float64{"density": 800}
	seeds, err := Sow(m, []SeedSpec{SeedAtCell(0, props)})
	if err != nil {
		t.Fatalf("Sow: %v", err)
	}
	props["density"] = -1 // caller mutation must not leak in
	if got := seeds[0].Props()["density"]; got != 800 {
		t.Errorf("seed props aliased caller map: got %g", got)
	}
}
