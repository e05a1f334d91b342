// Command gen-prism-data generates synthetic survey data for a single
// rectangular prism body, for exercising the inversion end to end.
package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	"github.com/banshee-data/gravharvest/internal/dataset"
	"github.com/banshee-data/gravharvest/internal/gravity"
	"github.com/banshee-data/gravharvest/internal/gridder"
	"github.com/banshee-data/gravharvest/internal/mesh"
)

var (
	outDir     = flag.String("o", ".", "output directory")
	components = flag.String("components", "gz", "comma-separated field components")
	density    = flag.Float64("density", 800, "prism density contrast (kg/m3)")
	stddev     = flag.Float64("noise", 0.1, "noise standard deviation in field units")
	noiseSeed  = flag.Int64("seed", 42, "noise generator seed")
	nx         = flag.Int("nx", 20, "grid points in x")
	ny         = flag.Int("ny", 20, "grid points in y")
	height     = flag.Float64("height", -150, "observation height (z, positive down)")

	x1 = flag.Float64("x1", 4000, "prism west bound")
	x2 = flag.Float64("x2", 6000, "prism east bound")
	y1 = flag.Float64("y1", 2000, "prism south bound")
	y2 = flag.Float64("y2", 8000, "prism north bound")
	z1 = flag.Float64("z1", 2000, "prism top")
	z2 = flag.Float64("z2", 4000, "prism bottom")

	gx1 = flag.Float64("gx1", 0, "grid west bound")
	gx2 = flag.Float64("gx2", 10000, "grid east bound")
	gy1 = flag.Float64("gy1", 0, "grid south bound")
	gy2 = flag.Float64("gy2", 10000, "grid north bound")
)

func main() {
	flag.Parse()

	body := mesh.Cell{X1: *x1, X2: *x2, Y1: *y1, Y2: *y2, Z1: *z1, Z2: *z2}
	xp, yp, zp, err := gridder.Regular(*gx1, *gx2, *gy1, *gy2, *nx, *ny, *height)
	if err != nil {
		log.Fatalf("Failed to build grid: %v", err)
	}

	for _, component := range strings.Split(*components, ",") {
		component = strings.TrimSpace(component)
		data := make([]float64, len(xp))
		if err := gravity.Effect(component, xp, yp, zp, body, *density, data); err != nil {
			log.Fatalf("Failed to compute %s: %v", component, err)
		}
		noisy := gridder.Contaminate(data, *stddev, *noiseSeed)

		survey, err := dataset.NewUniform(xp, yp, zp, noisy, *stddev)
		if err != nil {
			log.Fatalf("Failed to build %s survey: %v", component, err)
		}
		path := filepath.Join(*outDir, component+".csv")
		if err := survey.Save(path); err != nil {
			log.Fatalf("Failed to save %s: %v", component, err)
		}
		log.Printf("✓ Created: %s (%d observations)", path, survey.Len())
	}
}
