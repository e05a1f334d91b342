package harvest

import (
	"errors"
	"testing"
)

func TestNewConcentration_Validation(t *testing.T) {
	m := newTestMesh(t)
	if _, err := NewConcentration(m, -1, 3); !errors.Is(err, ErrBadParams) {
		t.Errorf("negative weight: expected ErrBadParams, got %v", err)
	}
	if _, err := NewConcentration(m, 1, 0); !errors.Is(err, ErrBadParams) {
		t.Errorf("zero power: expected ErrBadParams, got %v", err)
	}
}

func TestConcentration_SeedOnlyIsFree(t *testing.T) {
	m := newTestMesh(t)
	reg, err := NewConcentration(m, 10, 3)
	if err != nil {
		t.Fatalf("NewConcentration: %v", err)
	}
	seed := m.Index(1, 1, 0)
	if p := reg.Penalty(seed, []int{seed}, -1); p != 0 {
		t.Errorf("seed-only chain should have zero penalty, got %g", p)
	}
}

func TestConcentration_GrowsWithDispersion(t *testing.T) {
	m := newTestMesh(t)
	reg, err := NewConcentration(m, 10, 3)
	if err != nil {
		t.Fatalf("NewConcentration: %v", err)
	}
	seed := m.Index(0, 0, 0)
	chain := []int{seed}

	near := reg.Penalty(seed, chain, m.Index(1, 0, 0))
	far := reg.Penalty(seed, chain, m.Index(3, 3, 1))
	if near <= 0 {
		t.Errorf("adding a neighbor should cost something, got %g", near)
	}
	if far <= near {
		t.Errorf("distant candidate should cost more: near=%g far=%g", near, far)
	}
}

func TestConcentration_WeightScalesLinearly(t *testing.T) {
	m := newTestMesh(t)
	light, err := NewConcentration(m, 1, 2)
	if err != nil {
		t.Fatalf("NewConcentration: %v", err)
	}
	heavy, err := NewConcentration(m, 5, 2)
	if err != nil {
		t.Fatalf("NewConcentration: %v", err)
	}
	zero, err := NewConcentration(m, 0, 2)
	if err != nil {
		t.Fatalf("NewConcentration: %v", err)
	}

	seed := m.Index(0, 0, 0)
	chain := []int{seed, m.Index(1, 0, 0)}
	cand := m.Index(2, 0, 0)

	pl := light.Penalty(seed, chain, cand)
	ph := heavy.Penalty(seed, chain, cand)
	if ph != 5*pl {
		t.Errorf("weight should scale the penalty linearly: %g vs %g", pl, ph)
	}
	if p := zero.Penalty(seed, chain, cand); p != 0 {
		t.Errorf("zero weight should zero the penalty, got %g", p)
	}
}
