// Command harvest runs a seeded growth inversion from a JSON run
// configuration and prints the outcome. With -db the result is also
// recorded in a SQLite run database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/gravharvest/internal/config"
	"github.com/banshee-data/gravharvest/internal/dataset"
	"github.com/banshee-data/gravharvest/internal/harvest"
	"github.com/banshee-data/gravharvest/internal/harvestdb"
	"github.com/banshee-data/gravharvest/internal/mesh"
)

var (
	configPath = flag.String("config", "", "Path to run configuration (.json)")
	dbPath     = flag.String("db", "", "Record the result in this SQLite database (optional)")
	label      = flag.String("label", "", "Label for the stored run")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		log.Fatal("-config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to set up inversion: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting inversion: %d seeds, %d data modules, %d cells",
		len(cfg.Seeds), len(cfg.Data), meshSize(cfg))
	res, err := eng.Run(ctx)
	if err != nil {
		log.Fatalf("Inversion failed: %v", err)
	}

	log.Printf("Finished: state=%s iterations=%d", res.State, res.Iterations)
	if len(res.Goals) > 0 {
		log.Printf("Goal: initial=%.6g final=%.6g", res.Goals[0], res.Goals[len(res.Goals)-1])
	}
	for prop, cells := range res.Estimate {
		log.Printf("Estimate: %d cells carry %s", len(cells), prop)
	}

	if *dbPath != "" {
		store, err := harvestdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open run database: %v", err)
		}
		defer store.Close()
		id, err := store.SaveRun(*label, res)
		if err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved run %s to %s", id, *dbPath)
	}
}

func meshSize(cfg *config.RunConfig) int {
	return cfg.Mesh.Shape[0] * cfg.Mesh.Shape[1] * cfg.Mesh.Shape[2]
}

// buildEngine assembles the mesh, seeds, data modules, regularizer and
// jury described by cfg.
func buildEngine(cfg *config.RunConfig) (*harvest.Engine, error) {
	e := cfg.Mesh.Extent
	m, err := mesh.New(e[0], e[1], e[2], e[3], e[4], e[5],
		cfg.Mesh.Shape[0], cfg.Mesh.Shape[1], cfg.Mesh.Shape[2])
	if err != nil {
		return nil, err
	}

	specs := make([]harvest.SeedSpec, 0, len(cfg.Seeds))
	for _, s := range cfg.Seeds {
		specs = append(specs, harvest.SeedAt(s.Location[0], s.Location[1], s.Location[2], s.Props))
	}
	seeds, err := harvest.Sow(m, specs)
	if err != nil {
		return nil, err
	}

	modules := make([]harvest.DataModule, 0, len(cfg.Data))
	for _, d := range cfg.Data {
		survey, err := dataset.Load(d.Path)
		if err != nil {
			return nil, err
		}
		fm, err := harvest.NewFieldModule(d.Component, cfg.PropertyName(), survey)
		if err != nil {
			return nil, err
		}
		log.Printf("Loaded %s survey: %d observations from %s", d.Component, survey.Len(), d.Path)
		modules = append(modules, fm)
	}

	var reg harvest.Regularizer
	if cfg.Weight() > 0 {
		reg, err = harvest.NewConcentration(m, cfg.Weight(), cfg.Power())
		if err != nil {
			return nil, err
		}
	}

	threshold, err := harvest.NewThresholdJury(cfg.Threshold(), cfg.Tolerance())
	if err != nil {
		return nil, err
	}
	panel := harvest.Panel{threshold}
	if cfg.Compactness() > 0 {
		shape, err := harvest.NewShapeJury(m, cfg.Compactness())
		if err != nil {
			return nil, err
		}
		panel = append(panel, shape)
	}

	window, epsilon := cfg.Stall()
	return harvest.New(m, seeds, modules, reg, panel, harvest.Config{
		MaxIterations: cfg.Iterations(),
		StallWindow:   window,
		StallEpsilon:  epsilon,
		Workers:       cfg.WorkerCount(),
	})
}
