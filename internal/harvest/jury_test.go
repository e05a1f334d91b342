package harvest

import (
	"errors"
	"testing"
)

func TestNewThresholdJury_Validation(t *testing.T) {
	if _, err := NewThresholdJury(-0.1, 0); !errors.Is(err, ErrBadParams) {
		t.Errorf("negative threshold: expected ErrBadParams, got %v", err)
	}
	if _, err := NewThresholdJury(0, -1); !errors.Is(err, ErrBadParams) {
		t.Errorf("negative tolerance: expected ErrBadParams, got %v", err)
	}
}

func TestThresholdJury(t *testing.T) {
	jury, err := NewThresholdJury(0.001, 0.01)
	if err != nil {
		t.Fatalf("NewThresholdJury: %v", err)
	}
	ctx := &Context{Goal: 100, Misfit: 90}

	cases := []struct {
		name   string
		cand   Candidate
		accept bool
	}{
		{"clear improvement", Candidate{Goal: 80, Misfit: 70}, true},
		{"goal gain below tolerance", Candidate{Goal: 99.5, Misfit: 70}, false},
		{"goal worsens", Candidate{Goal: 120, Misfit: 70}, false},
		{"regularization-only gain", Candidate{Goal: 80, Misfit: 90}, false},
		{"misfit gain below threshold", Candidate{Goal: 80, Misfit: 89.95}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := jury.Accept(tc.cand, ctx); got != tc.accept {
				t.Errorf("Accept = %v, want %v", got, tc.accept)
			}
		})
	}
}

func TestShapeJury(t *testing.T) {
	m := newTestMesh(t)
	jury, err := NewShapeJury(m, 2)
	if err != nil {
		t.Fatalf("NewShapeJury: %v", err)
	}
	if _, err := NewShapeJury(m, 0.5); !errors.Is(err, ErrBadParams) {
		t.Errorf("sub-unit compactness: expected ErrBadParams, got %v", err)
	}

	seed := m.Index(0, 0, 0)
	// Growing along x: cells (0..2, 0, 0). The mesh has 1000 m cells in
	// x and y, 1000 m in z, so a 3x1x1 chain has aspect ratio 3.
	ctx := &Context{SeedCell: seed, Chain: []int{seed, m.Index(1, 0, 0)}}

	stretch := Candidate{Cell: m.Index(2, 0, 0)}
	if jury.Accept(stretch, ctx) {
		t.Error("candidate stretching aspect to 3 should be rejected at compactness 2")
	}
	sideways := Candidate{Cell: m.Index(0, 1, 0)}
	if !jury.Accept(sideways, ctx) {
		t.Error("candidate keeping aspect at 2 should be accepted")
	}
}

type acceptAll struct{}
type rejectAll struct{}

func (acceptAll) Accept(Candidate, *Context) bool { return true }
func (rejectAll) Accept(Candidate, *Context) bool { return false }

func TestPanel_ANDSemantics(t *testing.T) {
	ctx := &Context{}
	if !(Panel{}).Accept(Candidate{}, ctx) {
		t.Error("empty panel should accept")
	}
	if !(Panel{acceptAll{}, acceptAll{}}).Accept(Candidate{}, ctx) {
		t.Error("unanimous panel should accept")
	}
	if (Panel{acceptAll{}, rejectAll{}}).Accept(Candidate{}, ctx) {
		t.Error("one dissenting jury must reject")
	}
}
