// Package dag builds dependency graphs over vertex-processing steps from
// canonical schedules.
package dag

import (
	"errors"
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/matrix"
	"github.com/chicogong/pattern-planner/pkg/schedule"
)

var (
	// ErrNoSchedules is returned when Build is called without schedules
	ErrNoSchedules = errors.New("no schedules to build from")

	// ErrSizeMismatch is returned when schedules differ in vertex count
	ErrSizeMismatch = errors.New("schedules differ in size")
)

// DAG is a dependency matrix plus the schedules that contributed to it.
// Cell (i, j) > 0 means step i must run before step j; the value carries
// the dependency type (matrix.Edge or matrix.Marked).
type DAG struct {
	m         *matrix.Matrix
	schedules []*schedule.Schedule
}

// Build unions the forward cells (i < j) of every schedule into one
// dependency matrix. Later schedules overwrite non-zero cells written by
// earlier ones.
func Build(schedules ...*schedule.Schedule) (*DAG, error) {
	if len(schedules) == 0 {
		return nil, ErrNoSchedules
	}

	n := schedules[0].Size()
	m, err := matrix.New(n)
	if err != nil {
		return nil, err
	}

	for idx, s := range schedules {
		if s.Size() != n {
			return nil, fmt.Errorf("%w: schedule %d has %d vertices, want %d", ErrSizeMismatch, idx, s.Size(), n)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if v := s.At(i, j); v != matrix.None {
					m.Set(i, j, v)
				}
			}
		}
	}

	return &DAG{m: m, schedules: append([]*schedule.Schedule(nil), schedules...)}, nil
}

// FromMatrix wraps an existing dependency matrix. The matrix is copied.
func FromMatrix(m *matrix.Matrix) (*DAG, error) {
	if m == nil {
		return nil, matrix.ErrInvalidSize
	}
	d := &DAG{m: m.Clone()}
	if m.Size() >= 2 {
		s, err := schedule.New(m)
		if err != nil {
			return nil, err
		}
		d.schedules = []*schedule.Schedule{s}
	}
	return d, nil
}

// Size returns the number of processing steps
func (d *DAG) Size() int {
	return d.m.Size()
}

// At returns the dependency value from step i to step j
func (d *DAG) At(i, j int) int {
	return d.m.At(i, j)
}

// Matrix returns a copy of the dependency matrix
func (d *DAG) Matrix() *matrix.Matrix {
	return d.m.Clone()
}

// Rows returns the dependency matrix as rows
func (d *DAG) Rows() [][]int {
	return d.m.Rows()
}

// Schedules returns the contributing schedules in order
func (d *DAG) Schedules() []*schedule.Schedule {
	return append([]*schedule.Schedule(nil), d.schedules...)
}

// Copy returns a DAG with its own matrix and the same schedules
func (d *DAG) Copy() *DAG {
	return &DAG{m: d.m.Clone(), schedules: d.Schedules()}
}
