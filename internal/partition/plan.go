package partition

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var (
	// ErrUnknownStrategy is returned for a Strategy outside the closed set.
	ErrUnknownStrategy = errors.New("partition: unknown strategy")

	// ErrInvalidWorkers is returned when the worker count is below one.
	ErrInvalidWorkers = errors.New("partition: worker count must be >= 1")

	// ErrInvalidSize is returned for a negative matrix size.
	ErrInvalidSize = errors.New("partition: size must be >= 0")

	// ErrOverlap is reported by Validate when a cell is assigned twice.
	ErrOverlap = errors.New("partition: cell assigned to more than one worker")

	// ErrGap is reported by Validate when a cell is assigned to nobody.
	ErrGap = errors.New("partition: cell not assigned")
)

// Cell is one (row, col) position of the output matrix.
type Cell struct {
	Row int
	Col int
}

// Span is the half-open index range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of indices in the span.
func (s Span) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Assignment is the set of cells one worker computes.
//
// It is a compact description rather than a materialized list: a stride
// walk for the cyclic strategies and a rectangle for Block. Use Each to
// enumerate it without allocating.
type Assignment struct {
	Rows     Span     // Block only: assigned row range
	Cols     Span     // Block only: assigned column range
	Worker   int      // worker index in [0, workers)
	Strategy Strategy // strategy that produced this assignment
	size     int      // N
	workers  int      // W
}

// Each calls fn for every cell of the assignment, in ascending row-major
// order.
func (a Assignment) Each(fn func(row, col int)) {
	n := a.size
	switch a.Strategy {
	case CyclicElement:
		for e := a.Worker; e < n*n; e += a.workers {
			fn(e/n, e%n)
		}
	case CyclicRow:
		for r := a.Worker; r < n; r += a.workers {
			for c := 0; c < n; c++ {
				fn(r, c)
			}
		}
	case Block:
		for r := a.Rows.Start; r < a.Rows.End; r++ {
			for c := a.Cols.Start; c < a.Cols.End; c++ {
				fn(r, c)
			}
		}
	}
}

// Len returns the number of cells without enumerating them.
func (a Assignment) Len() int {
	switch a.Strategy {
	case CyclicElement:
		return strided(a.size*a.size, a.Worker, a.workers)
	case CyclicRow:
		return strided(a.size, a.Worker, a.workers) * a.size
	case Block:
		return a.Rows.Len() * a.Cols.Len()
	}
	return 0
}

// Cells materializes the assignment. Intended for tests and diagnostics;
// workers use Each.
func (a Assignment) Cells() []Cell {
	cells := make([]Cell, 0, a.Len())
	a.Each(func(row, col int) {
		cells = append(cells, Cell{Row: row, Col: col})
	})
	return cells
}

// strided counts indices i in [0, total) with i ≡ offset (mod step).
func strided(total, offset, step int) int {
	if offset >= total {
		return 0
	}
	return (total - offset + step - 1) / step
}

// WorkPlan maps each worker index to its assignment for one request.
type WorkPlan struct {
	Assignments []Assignment
	Strategy    Strategy
	Size        int
}

// Workers returns the number of assignments in the plan.
func (p WorkPlan) Workers() int { return len(p.Assignments) }

// Validate checks the plan's load-bearing invariant: every cell of the
// N×N grid is assigned to exactly one worker.
func (p WorkPlan) Validate() error {
	n := p.Size
	owner := make([]int, n*n)
	for k := range owner {
		owner[k] = -1
	}
	var overlaps []Cell
	for _, a := range p.Assignments {
		a.Each(func(row, col int) {
			k := row*n + col
			if owner[k] >= 0 {
				overlaps = append(overlaps, Cell{Row: row, Col: col})
				return
			}
			owner[k] = a.Worker
		})
	}
	if len(overlaps) > 0 {
		slices.SortFunc(overlaps, compareCells)
		overlaps = slices.Compact(overlaps)
		return fmt.Errorf("%d cells, first (%d,%d): %w", len(overlaps), overlaps[0].Row, overlaps[0].Col, ErrOverlap)
	}
	if k := slices.Index(owner, -1); k >= 0 {
		return fmt.Errorf("cell (%d,%d): %w", k/n, k%n, ErrGap)
	}
	return nil
}

func compareCells(a, b Cell) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}

// Planner computes work plans for a fixed worker count. The Block grid is
// derived once, when the Planner is built, and reused for every plan.
type Planner struct {
	grid    Grid
	workers int
}

// NewPlanner returns a Planner for the given worker count.
func NewPlanner(workers int) (*Planner, error) {
	if workers < 1 {
		return nil, fmt.Errorf("new planner with %d workers: %w", workers, ErrInvalidWorkers)
	}
	return &Planner{workers: workers, grid: Factor(workers)}, nil
}

// Workers returns the worker count the Planner was built for.
func (p *Planner) Workers() int { return p.workers }

// Grid returns the Block factorization.
func (p *Planner) Grid() Grid { return p.grid }

// Plan splits an N×N output matrix between the Planner's workers.
//
// Parameters:
//   - size: Matrix size N, at least 0
//   - strategy: How cells are dealt to workers
//
// Returns:
//   - A plan with exactly Workers() assignments, some of which may be
//     empty, covering every cell exactly once
//   - An error for a negative size or an unknown strategy
//
// Example:
//
//	p, _ := partition.NewPlanner(4)
//	plan, err := p.Plan(3, partition.CyclicRow)
//	// worker 0 gets row 0, worker 1 row 1, worker 2 row 2, worker 3 nothing
func (p *Planner) Plan(size int, strategy Strategy) (WorkPlan, error) {
	if size < 0 {
		return WorkPlan{}, fmt.Errorf("plan size %d: %w", size, ErrInvalidSize)
	}
	if !strategy.Valid() {
		return WorkPlan{}, fmt.Errorf("plan %s: %w", strategy, ErrUnknownStrategy)
	}

	plan := WorkPlan{
		Size:        size,
		Strategy:    strategy,
		Assignments: make([]Assignment, p.workers),
	}
	for w := range plan.Assignments {
		a := Assignment{
			Worker:   w,
			Strategy: strategy,
			size:     size,
			workers:  p.workers,
		}
		if strategy == Block {
			a.Rows, a.Cols = p.grid.block(size, w)
		}
		plan.Assignments[w] = a
	}
	return plan, nil
}

// Plan is a convenience for one-off planning; it derives the grid on every
// call. Long-lived callers should hold a Planner.
func Plan(size, workers int, strategy Strategy) (WorkPlan, error) {
	p, err := NewPlanner(workers)
	if err != nil {
		return WorkPlan{}, err
	}
	return p.Plan(size, strategy)
}
