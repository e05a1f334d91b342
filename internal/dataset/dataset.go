// Package dataset holds observed potential-field surveys: observation
// coordinates, measured values, and per-observation standard
// deviations. Surveys are immutable once constructed and are the fixed
// inputs of the inversion's data modules.
//
// The on-disk format is CSV with a header row and five columns:
// x, y, z, value, stddev (SI coordinates, field units per component).
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Sentinel errors for survey validation and parsing.
var (
	// ErrEmpty indicates a survey with no observations.
	ErrEmpty = errors.New("dataset: survey has no observations")
	// ErrLengthMismatch indicates column arrays of differing lengths.
	ErrLengthMismatch = errors.New("dataset: coordinate, value, and stddev arrays must have the same length")
	// ErrBadStdDev indicates a non-positive standard deviation.
	ErrBadStdDev = errors.New("dataset: standard deviations must be positive")
)

// Survey is one set of observations of a single field component.
type Survey struct {
	X, Y, Z []float64 // Observation coordinates (x north, y east, z down)
	Data    []float64 // Observed values
	StdDev  []float64 // Per-observation standard deviation
}

// New validates the column arrays and wraps them in a Survey. The
// arrays are referenced, not copied; callers must not mutate them
// afterwards.
func New(x, y, z, data, stddev []float64) (*Survey, error) {
	s := &Survey{X: x, Y: y, Z: z, Data: data, StdDev: stddev}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewUniform builds a Survey where every observation shares the same
// standard deviation.
func NewUniform(x, y, z, data []float64, stddev float64) (*Survey, error) {
	sd := make([]float64, len(data))
	for i := range sd {
		sd[i] = stddev
	}
	return New(x, y, z, data, sd)
}

// Len returns the number of observations.
func (s *Survey) Len() int { return len(s.Data) }

func (s *Survey) validate() error {
	n := len(s.Data)
	if n == 0 {
		return ErrEmpty
	}
	if len(s.X) != n || len(s.Y) != n || len(s.Z) != n || len(s.StdDev) != n {
		return fmt.Errorf("%w: x=%d y=%d z=%d data=%d stddev=%d",
			ErrLengthMismatch, len(s.X), len(s.Y), len(s.Z), n, len(s.StdDev))
	}
	for i, sd := range s.StdDev {
		if sd <= 0 {
			return fmt.Errorf("%w: observation %d has stddev %g", ErrBadStdDev, i, sd)
		}
	}
	return nil
}

var csvHeader = []string{"x", "y", "z", "value", "stddev"}

// Load reads a survey from a CSV file written by Save (or any file with
// the same header and column layout).
func Load(path string) (*Survey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset: %s: %w", path, ErrEmpty)
	}

	n := len(records) - 1 // first row is the header
	s := &Survey{
		X:      make([]float64, n),
		Y:      make([]float64, n),
		Z:      make([]float64, n),
		Data:   make([]float64, n),
		StdDev: make([]float64, n),
	}
	cols := []*[]float64{&s.X, &s.Y, &s.Z, &s.Data, &s.StdDev}
	for i, rec := range records[1:] {
		for j, col := range cols {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: %s row %d column %s: %w", path, i+2, csvHeader[j], err)
			}
			(*col)[i] = v
		}
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return s, nil
}

// Save writes the survey as CSV.
func (s *Survey) Save(path string) error {
	if err := s.validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	rec := make([]string, len(csvHeader))
	for i := 0; i < s.Len(); i++ {
		for j, v := range []float64{s.X[i], s.Y[i], s.Z[i], s.Data[i], s.StdDev[i]} {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("dataset: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("dataset: flush %s: %w", path, err)
	}
	return nil
}
