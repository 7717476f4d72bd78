package matrix

import (
	"math/rand"
	"time"
)

// Source supplies uniformly distributed values in [0, 1).
// *rand.Rand satisfies it; tests substitute fixed sequences.
type Source interface {
	Float64() float64
}

// NewSource returns a pseudo-random source. A zero seed seeds from the clock,
// so every run draws different embeddings.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate creates a rows x cols matrix whose cells are drawn independently and
// uniformly from [-0.5, 0.5) and rounded to two decimal places. The values stand
// in for untrained embeddings; they are not learned.
func Generate(src Source, rows, cols int) Matrix {
	m := New(rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = Round2(src.Float64() - 0.5)
		}
	}
	return m
}

// Sequence is a Source that replays a fixed list of values in order, wrapping
// around at the end. It makes randomized operations deterministic in tests.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence over values.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: append([]float64(nil), values...)}
}

// Float64 returns the next value in the sequence, or 0 if it is empty.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws returns how many values have been consumed.
func (s *Sequence) Draws() int {
	return s.next
}
