// Package matrix provides the square float64 matrices that matrixd multiplies,
// the generators that produce request inputs, and the reference products used
// to check concurrent results.
//
// # Storage
//
// A Matrix is N×N, row-major, backed by one flat slice:
//
//	offset(i, j) = i*N + j
//
// There is no internal locking. Concurrent writers are safe as long as no two
// of them touch the same cell; the partition package is what guarantees that
// for a request's output matrix.
//
// # Generation
//
// Request inputs come from a Generator. RandomGenerator draws uniform values
// in [0, 10) from a seeded PCG source and is safe to share between
// connections:
//
//	gen := matrix.NewRandomGenerator(42)
//	a := gen.Generate(3)
//
// Identity(n) is provided for tests: A×I == A for every strategy.
//
// # Products
//
// Dot is the single kernel every product cell is computed with: a float64
// accumulator summed left to right over k. Multiply is the sequential
// reference built on it; results computed by workers are bit-identical to it.
//
// ReferenceProduct and Verify go through gonum instead, giving an independent
// check that tolerates summation-order differences:
//
//	if err := matrix.Verify(a, b, c, matrix.DefaultTolerance); err != nil {
//	    // c is not a×b
//	}
package matrix
