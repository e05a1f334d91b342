// Package harvestdb persists completed inversion runs to SQLite: the
// terminal state, the goal-function trace, and the estimate. It stores
// results only — meshes and surveys are always rebuilt from their own
// sources, never from this database.
package harvestdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gravharvest/internal/harvest"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound indicates an unknown run id.
var ErrRunNotFound = errors.New("harvestdb: run not found")

// Store is a handle to the run database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run database at path and applies any
// pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("harvestdb: open %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("harvestdb: enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("harvestdb: load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("harvestdb: create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("harvestdb: create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("harvestdb: migration up failed: %w", err)
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	Label      string
	State      string
	Iterations int
	FinalGoal  float64
	CreatedAt  time.Time
}

// SaveRun records a completed run under a fresh id and returns it. The
// run row, goal trace, and estimate are written in one transaction.
func (s *Store) SaveRun(label string, res *harvest.Result) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("harvestdb: begin: %w", err)
	}
	defer tx.Rollback()

	finalGoal := 0.0
	if len(res.Goals) > 0 {
		finalGoal = res.Goals[len(res.Goals)-1]
	}
	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, label, state, iterations, final_goal) VALUES (?, ?, ?, ?, ?)`,
		id, label, res.State.String(), res.Iterations, finalGoal,
	); err != nil {
		return "", fmt.Errorf("harvestdb: insert run: %w", err)
	}

	goalStmt, err := tx.Prepare(`INSERT INTO run_goals (run_id, step, goal) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("harvestdb: prepare goals: %w", err)
	}
	defer goalStmt.Close()
	for step, goal := range res.Goals {
		if _, err := goalStmt.Exec(id, step, goal); err != nil {
			return "", fmt.Errorf("harvestdb: insert goal %d: %w", step, err)
		}
	}

	estStmt, err := tx.Prepare(`INSERT INTO run_estimates (run_id, property, cell, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("harvestdb: prepare estimates: %w", err)
	}
	defer estStmt.Close()
	for property, cells := range res.Estimate {
		for cell, value := range cells {
			if _, err := estStmt.Exec(id, property, cell, value); err != nil {
				return "", fmt.Errorf("harvestdb: insert estimate (%s, %d): %w", property, cell, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("harvestdb: commit: %w", err)
	}
	return id, nil
}

// Runs lists all stored runs, newest first.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT run_id, label, state, iterations, final_goal, created_at
		 FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("harvestdb: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Label, &r.State, &r.Iterations, &r.FinalGoal, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("harvestdb: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Trace returns the goal trace of a run in step order.
func (s *Store) Trace(runID string) ([]float64, error) {
	if err := s.exists(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT goal FROM run_goals WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("harvestdb: query trace: %w", err)
	}
	defer rows.Close()

	var goals []float64
	for rows.Next() {
		var g float64
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("harvestdb: scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Estimate returns a run's estimate keyed by property name and cell
// index.
func (s *Store) Estimate(runID string) (map[string]map[int]float64, error) {
	if err := s.exists(runID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT property, cell, value FROM run_estimates WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("harvestdb: query estimate: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[int]float64)
	for rows.Next() {
		var property string
		var cell int
		var value float64
		if err := rows.Scan(&property, &cell, &value); err != nil {
			return nil, fmt.Errorf("harvestdb: scan estimate: %w", err)
		}
		if out[property] == nil {
			out[property] = make(map[int]float64)
		}
		out[property][cell] = value
	}
	return out, rows.Err()
}

func (s *Store) exists(runID string) error {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM runs WHERE run_id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return fmt.Errorf("harvestdb: lookup run: %w", err)
	}
	return nil
}
