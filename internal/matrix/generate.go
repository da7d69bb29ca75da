package matrix

import (
	"time"

	"golang.org/x/exp/rand"
)

// DefaultScale is the exclusive upper bound of generated values.
const DefaultScale = 10.0

// Generator produces the input matrices of a request.
// Implementations must be safe for concurrent use; the server shares one
// Generator between all connections.
type Generator interface {
	Generate(size int) *Matrix
}

// RandomGenerator fills matrices with values drawn uniformly from [0, Scale).
//
// The underlying PCG source is wrapped in a LockedSource so one generator
// can serve every connection. With a fixed seed the sequence of generated
// matrices is reproducible as long as calls are not interleaved.
type RandomGenerator struct {
	rng   *rand.Rand
	Scale float64
}

// NewRandomGenerator returns a generator seeded with seed.
// A zero seed picks one from the clock.
func NewRandomGenerator(seed uint64) *RandomGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := &rand.LockedSource{}
	src.Seed(seed)
	return &RandomGenerator{rng: rand.New(src), Scale: DefaultScale}
}

// Generate returns a new size×size matrix of uniform values.
// Negative sizes are treated as zero.
func (g *RandomGenerator) Generate(size int) *Matrix {
	if size < 0 {
		size = 0
	}
	m := &Matrix{n: size, data: make([]float64, size*size)}
	for k := range m.data {
		m.data[k] = g.Scale * g.rng.Float64()
	}
	return m
}

// Identity returns the size×size identity matrix.
func Identity(size int) *Matrix {
	if size < 0 {
		size = 0
	}
	m := &Matrix{n: size, data: make([]float64, size*size)}
	for i := 0; i < size; i++ {
		m.data[i*size+i] = 1
	}
	return m
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(size int) *Matrix

// Generate calls f(size).
func (f GeneratorFunc) Generate(size int) *Matrix { return f(size) }
