// Package partition decides which worker computes which cell of a request's
// output matrix.
//
// # Why it matters
//
// Workers write their results straight into one shared output matrix with no
// locks and no atomics. The only thing keeping that safe is the invariant
// checked by WorkPlan.Validate: every cell of the N×N grid belongs to exactly
// one worker. Planning is therefore a pure function and is tested for
// disjointness and coverage across sizes, worker counts and strategies.
//
// # Strategies
//
//	CyclicElement  cell e = row*N + col goes to worker e mod W
//	CyclicRow      row r (all columns) goes to worker r mod W
//	Block          worker w owns rectangle (w / Q, w mod Q) of an R×Q grid
//
// For Block, (R, Q) is Factor(W): the most square factor pair of W, with
// R ≤ Q. Blocks are N/R by N/Q; the last block row and column stretch to N
// to absorb the division remainder.
//
// # Usage
//
//	planner, _ := partition.NewPlanner(8)         // grid fixed here: 2×4
//	plan, _ := planner.Plan(100, partition.Block) // 8 assignments
//	plan.Assignments[3].Each(func(row, col int) { /* ... */ })
//
// Edge cases: N = 0 gives W empty assignments; W > N*N under CyclicElement
// leaves some assignments empty. Empty assignments are valid.
package partition
