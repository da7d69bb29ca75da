// Package compute runs the workers of one request: each worker fills its own
// cells of the shared output matrix, and Run joins them all before returning.
//
// There is no locking on the output matrix. Run relies on the work plan
// assigning every cell to exactly one worker (see partition.WorkPlan.Validate).
package compute

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/matrixd/internal/matrix"
	"github.com/dreamware/matrixd/internal/partition"
)

// ErrWorkerFailed is returned by Run when a worker terminates abnormally.
var ErrWorkerFailed = errors.New("compute: worker failed")

// Options tunes how Run schedules workers.
type Options struct {
	// Limit caps the number of worker goroutines running at once.
	// Zero or negative runs every worker of the plan concurrently.
	Limit int
}

// Worker computes the cells of one assignment.
//
// A and B are only read. C is written at the assignment's cells and nowhere
// else. A Worker does not block once started.
type Worker struct {
	A, B       *matrix.Matrix
	C          *matrix.Matrix
	Assignment partition.Assignment
}

// Run computes C[i][j] = Σ_k A[i][k]*B[k][j] for every assigned (i, j).
// The accumulator is float64 (see matrix.Dot); nothing is rounded.
func (w Worker) Run() {
	w.Assignment.Each(func(i, j int) {
		w.C.Set(i, j, matrix.Dot(w.A, w.B, i, j))
	})
}

// safeRun runs the worker, converting a panic into ErrWorkerFailed.
func (w Worker) safeRun() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: %v: %w", w.Assignment.Worker, r, ErrWorkerFailed)
		}
	}()
	w.Run()
	return nil
}

// Run spawns one goroutine per assignment of plan, waits for all of them,
// and returns the first worker failure, if any.
//
// c must be freshly allocated (or otherwise owned by the caller) and sized
// like a and b; when Run returns nil every cell of c holds its product value.
// A failed worker does not stop the others; Run still waits for all of them
// so no goroutine outlives the call.
//
// Parameters:
//   - a, b: Input matrices, only read
//   - c: Output matrix, written at every cell of plan
//   - plan: One assignment per worker, sized like a, b and c
//   - opts: Scheduling options
//
// Returns:
//   - matrix.ErrSizeMismatch if a, b, c and plan disagree on N
//   - An error wrapping ErrWorkerFailed for the first worker that panicked
func Run(a, b, c *matrix.Matrix, plan partition.WorkPlan, opts Options) error {
	n := plan.Size
	if a.Size() != n || b.Size() != n || c.Size() != n {
		return fmt.Errorf("run %d×%d plan on %d/%d/%d matrices: %w",
			n, n, a.Size(), b.Size(), c.Size(), matrix.ErrSizeMismatch)
	}

	var g errgroup.Group
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}
	for _, assignment := range plan.Assignments {
		w := Worker{A: a, B: b, C: c, Assignment: assignment}
		g.Go(w.safeRun)
	}
	return g.Wait()
}

// Multiply plans and runs a full product in one call. It allocates C.
func Multiply(a, b *matrix.Matrix, planner *partition.Planner, strategy partition.Strategy, opts Options) (*matrix.Matrix, error) {
	plan, err := planner.Plan(a.Size(), strategy)
	if err != nil {
		return nil, err
	}
	c, err := matrix.New(a.Size())
	if err != nil {
		return nil, err
	}
	if err := Run(a, b, c, plan, opts); err != nil {
		return nil, err
	}
	return c, nil
}
