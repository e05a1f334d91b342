// Package gridder generates observation-point layouts for synthetic
// surveys and contaminates clean data with pseudo-random Gaussian noise.
package gridder

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrBadGrid indicates a degenerate grid request.
var ErrBadGrid = errors.New("gridder: grid must have positive dimensions and a valid area")

// Regular returns the coordinates of an nx-by-ny grid of observation
// points over the area (x1,x2,y1,y2) at constant height z. Points are
// laid out with x varying fastest, matching the mesh cell ordering.
// Grid spacing places points at cell centers so survey edges do not sit
// exactly on the area boundary.
func Regular(x1, x2, y1, y2 float64, nx, ny int, z float64) (xp, yp, zp []float64, err error) {
	if nx < 1 || ny < 1 || x1 >= x2 || y1 >= y2 {
		return nil, nil, nil, fmt.Errorf("%w: (%g,%g,%g,%g) %dx%d", ErrBadGrid, x1, x2, y1, y2, nx, ny)
	}
	dx := (x2 - x1) / float64(nx)
	dy := (y2 - y1) / float64(ny)
	n := nx * ny
	xp = make([]float64, 0, n)
	yp = make([]float64, 0, n)
	zp = make([]float64, 0, n)
	for j := 0; j < ny; j++ {
		y := y1 + (float64(j)+0.5)*dy
		for i := 0; i < nx; i++ {
			xp = append(xp, x1+(float64(i)+0.5)*dx)
			yp = append(yp, y)
			zp = append(zp, z)
		}
	}
	return xp, yp, zp, nil
}

// Contaminate returns a copy of data with zero-mean Gaussian noise of
// the given standard deviation added. The seed makes contamination
// reproducible; the input is never modified.
func Contaminate(data []float64, stddev float64, seed int64) []float64 {
	out := make([]float64, len(data))
	rng := rand.New(rand.NewSource(seed))
	for i, v := range data {
		out[i] = v + rng.NormFloat64()*stddev
	}
	return out
}
