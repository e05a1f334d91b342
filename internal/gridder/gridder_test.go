package gridder

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestRegular(t *testing.T) {
	xp, yp, zp, err := Regular(0, 100, 0, 200, 4, 5, -1.5)
	if err != nil {
		t.Fatalf("Regular: %v", err)
	}
	if len(xp) != 20 || len(yp) != 20 || len(zp) != 20 {
		t.Fatalf("expected 20 points, got %d/%d/%d", len(xp), len(yp), len(zp))
	}
	// x varies fastest.
	if xp[0] != 12.5 || xp[1] != 37.5 || yp[0] != yp[1] {
		t.Errorf("ordering wrong: xp[0]=%g xp[1]=%g yp[0]=%g yp[1]=%g", xp[0], xp[1], yp[0], yp[1])
	}
	for i := range zp {
		if zp[i] != -1.5 {
			t.Fatalf("zp[%d] = %g", i, zp[i])
		}
	}
	// Points stay strictly inside the area.
	for i := range xp {
		if xp[i] <= 0 || xp[i] >= 100 || yp[i] <= 0 || yp[i] >= 200 {
			t.Fatalf("point %d (%g, %g) outside the area", i, xp[i], yp[i])
		}
	}
}

func TestRegular_BadInput(t *testing.T) {
	if _, _, _, err := Regular(0, 100, 0, 200, 0, 5, 0); !errors.Is(err, ErrBadGrid) {
		t.Errorf("expected ErrBadGrid, got %v", err)
	}
	if _, _, _, err := Regular(100, 0, 0, 200, 4, 5, 0); !errors.Is(err, ErrBadGrid) {
		t.Errorf("expected ErrBadGrid, got %v", err)
	}
}

func TestContaminate(t *testing.T) {
	clean := make([]float64, 20000)
	for i := range clean {
		clean[i] = 10
	}

	noisy := Contaminate(clean, 0.5, 42)
	if len(noisy) != len(clean) {
		t.Fatalf("length changed: %d", len(noisy))
	}
	for _, v := range clean {
		if v != 10 {
			t.Fatal("input slice was modified")
		}
	}

	residual := make([]float64, len(noisy))
	for i := range noisy {
		residual[i] = noisy[i] - clean[i]
	}
	if sd := stat.StdDev(residual, nil); math.Abs(sd-0.5) > 0.02 {
		t.Errorf("noise stddev = %g, want about 0.5", sd)
	}
	if mean := stat.Mean(residual, nil); math.Abs(mean) > 0.02 {
		t.Errorf("noise mean = %g, want about 0", mean)
	}

	// Same seed reproduces, different seed does not.
	again := Contaminate(clean, 0.5, 42)
	other := Contaminate(clean, 0.5, 43)
	same, diff := true, false
	for i := range noisy {
		if noisy[i] != again[i] {
			same = false
		}
		if noisy[i] != other[i] {
			diff = true
		}
	}
	if !same {
		t.Error("same seed should reproduce identical noise")
	}
	if !diff {
		t.Error("different seeds should differ")
	}
}
