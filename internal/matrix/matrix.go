package matrix

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNegativeSize is returned when a matrix is requested with a negative size.
var ErrNegativeSize = errors.New("matrix: negative size")

// ErrSizeMismatch is returned when two matrices that must share a size don't.
var ErrSizeMismatch = errors.New("matrix: size mismatch")

// Matrix is a square N×N matrix of float64 values stored row-major in a
// single flat slice (offset = row*N + col).
//
// A Matrix has no internal locking. Distinct cells are distinct memory
// locations, so goroutines may write disjoint cells of the same Matrix
// concurrently; the caller owns the guarantee that no two writers share a
// cell and that readers wait for all writers to finish.
//
// The zero-size matrix (N = 0) is valid and has no cells.
type Matrix struct {
	data []float64 // row-major storage, len == n*n
	n    int       // number of rows (== number of columns)
}

// New allocates a zeroed n×n matrix.
//
// Returns ErrNegativeSize for n < 0.
func New(n int) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("new %d: %w", n, ErrNegativeSize)
	}
	return &Matrix{n: n, data: make([]float64, n*n)}, nil
}

// FromRows builds a matrix from a slice of equal-length rows.
// The rows are copied; the input may be modified afterwards.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), n, ErrSizeMismatch)
		}
		copy(m.data[i*n:(i+1)*n], row)
	}
	return m, nil
}

// FromData wraps a row-major slice of n*n values without copying it.
func FromData(n int, data []float64) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("from data %d: %w", n, ErrNegativeSize)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("%d values for size %d: %w", len(data), n, ErrSizeMismatch)
	}
	return &Matrix{n: n, data: data}, nil
}

// Size returns N.
func (m *Matrix) Size() int { return m.n }

// At returns the value at (i, j). Out-of-range indices panic, like slices.
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Set writes v at (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.n+j] = v }

// Row returns row i as a sub-slice of the backing storage (no copy).
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.n : (i+1)*m.n] }

// Data exposes the row-major backing slice (no copy).
func (m *Matrix) Data() []float64 { return m.data }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{n: m.n, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// Equal reports whether a and b have the same size and bit-identical values.
func Equal(a, b *Matrix) bool {
	return ApproxEqual(a, b, 0)
}

// ApproxEqual reports whether a and b have the same size and every pair of
// cells differs by at most tol, absolutely or relative to the larger
// magnitude.
func ApproxEqual(a, b *Matrix, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.n != b.n {
		return false
	}
	for k, av := range a.data {
		bv := b.data[k]
		if av == bv {
			continue
		}
		diff := math.Abs(av - bv)
		if diff <= tol {
			continue
		}
		if diff <= tol*math.Max(math.Abs(av), math.Abs(bv)) {
			continue
		}
		return false
	}
	return true
}

// String renders the matrix one row per line, wrapped in brackets:
//
//	[ 1 0
//	0 1 ]
//
// A nil matrix renders as "Matrix is null" to match the client printer.
func (m *Matrix) String() string {
	if m == nil {
		return "Matrix is null"
	}
	var sb strings.Builder
	sb.WriteString("[ ")
	for i := 0; i < m.n; i++ {
		for _, v := range m.Row(i) {
			fmt.Fprintf(&sb, "%g ", v)
		}
		if i+1 < m.n {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
