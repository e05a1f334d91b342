// Package gravity implements the closed-form potential-field effects of
// right rectangular prisms (Nagy-style corner-difference formulas).
//
// Coordinate convention: x -> north, y -> east, z -> down. All inputs
// are in SI units. Acceleration components and the potential come out
// in mGal; gradient-tensor components come out in Eötvös.
//
// Each field is the signed sum of a kernel evaluated at the eight prism
// corners after translating the computation point to the origin. The
// kernels are pure functions, so the effect of one prism at one point
// is cheap to evaluate on its own; whole-survey evaluation just loops.
package gravity

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/gravharvest/internal/mesh"
)

// Physical and unit constants.
const (
	// G is the gravitational constant in SI units (m^3 kg^-1 s^-2).
	G = 6.673e-11
	// SI2MGal converts acceleration from SI (m/s^2) to mGal.
	SI2MGal = 1e5
	// SI2Eotvos converts gradients from SI (1/s^2) to Eötvös.
	SI2Eotvos = 1e9
)

// ErrUnknownComponent indicates an unsupported field component name.
var ErrUnknownComponent = errors.New("gravity: unknown field component")

// kernelFunc evaluates one corner term. x, y, z are corner coordinates
// relative to the computation point and r is their Euclidean norm.
type kernelFunc func(x, y, z, r float64) float64

type component struct {
	kernel kernelFunc
	unit   float64
}

// components maps field names to their corner kernels and output units.
// Names match the conventional component labels (gz, gxx, ...).
var components = map[string]component{
	"pot": {unit: SI2MGal, kernel: func(x, y, z, r float64) float64 {
		return -x*y*math.Log(z+r) - y*z*math.Log(x+r) - x*z*math.Log(y+r) +
			0.5*x*x*math.Atan2(z*y, x*r) +
			0.5*y*y*math.Atan2(z*x, y*r) +
			0.5*z*z*math.Atan2(x*y, z*r)
	}},
	"gx": {unit: SI2MGal, kernel: func(x, y, z, r float64) float64 {
		return y*math.Log(z+r) + z*math.Log(y+r) - x*math.Atan2(z*y, x*r)
	}},
	"gy": {unit: SI2MGal, kernel: func(x, y, z, r float64) float64 {
		return z*math.Log(x+r) + x*math.Log(z+r) - y*math.Atan2(x*z, y*r)
	}},
	"gz": {unit: SI2MGal, kernel: func(x, y, z, r float64) float64 {
		return x*math.Log(y+r) + y*math.Log(x+r) - z*math.Atan2(x*y, z*r)
	}},
	"gxx": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return -math.Atan2(z*y, x*r)
	}},
	"gxy": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return math.Log(z + r)
	}},
	"gxz": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return math.Log(y + r)
	}},
	"gyy": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return -math.Atan2(z*x, y*r)
	}},
	"gyz": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return math.Log(x + r)
	}},
	"gzz": {unit: SI2Eotvos, kernel: func(x, y, z, r float64) float64 {
		return -math.Atan2(x*y, z*r)
	}},
}

// Components returns the supported field component names.
func Components() []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	return names
}

// Valid reports whether name is a supported field component.
func Valid(name string) bool {
	_, ok := components[name]
	return ok
}

// cornerSum evaluates the signed eight-corner sum of a kernel for one
// prism and one computation point.
func cornerSum(k kernelFunc, xp, yp, zp float64, c mesh.Cell) float64 {
	x := [2]float64{c.X1 - xp, c.X2 - xp}
	y := [2]float64{c.Y1 - yp, c.Y2 - yp}
	z := [2]float64{c.Z1 - zp, c.Z2 - zp}
	var sum float64
	for k3 := 0; k3 < 2; k3++ {
		for k2 := 0; k2 < 2; k2++ {
			for k1 := 0; k1 < 2; k1++ {
				r := math.Sqrt(x[k1]*x[k1] + y[k2]*y[k2] + z[k3]*z[k3])
				term := k(x[k1], y[k2], z[k3], r)
				if (k1+k2+k3)%2 == 0 {
					sum += term
				} else {
					sum -= term
				}
			}
		}
	}
	return sum
}

// PointFunc evaluates the effect of one prism with the given density at
// a single computation point.
type PointFunc func(xp, yp, zp float64, c mesh.Cell, density float64) float64

// Evaluator returns a PointFunc for the named component. Resolving the
// component once up front keeps per-point evaluation free of map
// lookups, which matters inside candidate-ranking loops.
func Evaluator(name string) (PointFunc, error) {
	comp, ok := components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	scale := G * comp.unit
	kernel := comp.kernel
	return func(xp, yp, zp float64, c mesh.Cell, density float64) float64 {
		return scale * density * cornerSum(kernel, xp, yp, zp, c)
	}, nil
}

// Effect accumulates the named field of one prism into out, evaluated
// at every observation point. out must have the same length as the
// coordinate arrays.
func Effect(name string, xp, yp, zp []float64, c mesh.Cell, density float64, out []float64) error {
	if len(xp) != len(yp) || len(xp) != len(zp) || len(xp) != len(out) {
		return fmt.Errorf("gravity: coordinate and output arrays must have the same length (%d, %d, %d, %d)",
			len(xp), len(yp), len(zp), len(out))
	}
	eval, err := Evaluator(name)
	if err != nil {
		return err
	}
	for i := range xp {
		out[i] += eval(xp[i], yp[i], zp[i], c, density)
	}
	return nil
}
