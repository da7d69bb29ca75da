package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrProductMismatch is returned by Verify when a result differs from the
// independently computed product.
var ErrProductMismatch = errors.New("matrix: product mismatch")

// DefaultTolerance is the comparison tolerance used when checking a computed
// product against gonum. The two differ only in summation order.
const DefaultTolerance = 1e-9

// Dot returns Σ_k A[i][k]*B[k][j], accumulated left to right in float64.
//
// Every path that computes a product cell goes through Dot, so results are
// bit-identical regardless of which worker (or which strategy) computed them.
func Dot(a, b *Matrix, i, j int) float64 {
	n := a.n
	row := a.data[i*n : (i+1)*n]
	var sum float64
	for k, av := range row {
		sum += av * b.data[k*n+j]
	}
	return sum
}

// Multiply computes a×b sequentially. It is the reference the concurrent
// workers are measured against.
func Multiply(a, b *Matrix) (*Matrix, error) {
	if a.n != b.n {
		return nil, fmt.Errorf("multiply %d×%d by %d×%d: %w", a.n, a.n, b.n, b.n, ErrSizeMismatch)
	}
	c := &Matrix{n: a.n, data: make([]float64, len(a.data))}
	for i := 0; i < a.n; i++ {
		for j := 0; j < a.n; j++ {
			c.data[i*a.n+j] = Dot(a, b, i, j)
		}
	}
	return c, nil
}

// Dense converts m to a gonum dense matrix sharing m's storage.
// Returns nil for the empty matrix, which gonum cannot represent.
func (m *Matrix) Dense() *mat.Dense {
	if m.n == 0 {
		return nil
	}
	return mat.NewDense(m.n, m.n, m.data)
}

// ReferenceProduct computes a×b with gonum, independently of Dot.
func ReferenceProduct(a, b *Matrix) (*Matrix, error) {
	if a.n != b.n {
		return nil, fmt.Errorf("reference product %d by %d: %w", a.n, b.n, ErrSizeMismatch)
	}
	if a.n == 0 {
		return &Matrix{}, nil
	}
	var c mat.Dense
	c.Mul(a.Dense(), b.Dense())
	return FromData(a.n, c.RawMatrix().Data)
}

// Verify recomputes a×b with gonum and checks c against it within tol.
func Verify(a, b, c *Matrix, tol float64) error {
	if c == nil || c.n != a.n {
		return fmt.Errorf("verify: result has wrong size: %w", ErrSizeMismatch)
	}
	if a.n == 0 {
		return nil
	}
	want, err := ReferenceProduct(a, b)
	if err != nil {
		return err
	}
	if !mat.EqualApprox(want.Dense(), c.Dense(), tol) {
		return fmt.Errorf("verify %d×%d: %w", a.n, a.n, ErrProductMismatch)
	}
	return nil
}
