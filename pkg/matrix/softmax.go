package matrix

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax applies softmax independently to every row of m.
//
// For each row:
//
//	softmax(x)_j = exp(x_j) / Σ_k exp(x_k)
//
// The row maximum is subtracted before exponentiating for numerical stability,
// which leaves the result unchanged. Each probability is rounded to two
// decimal places, so a row sums to 1 only within rounding tolerance.
func Softmax(m Matrix) Matrix {
	result := make(Matrix, len(m))
	for i, row := range m {
		result[i] = softmaxRow(row)
	}
	return result
}

func softmaxRow(row []float64) []float64 {
	out := make([]float64, len(row))
	if len(row) == 0 {
		return out
	}

	maxVal := floats.Max(row)
	for j, v := range row {
		out[j] = math.Exp(v - maxVal)
	}

	sum := floats.Sum(out)
	for j := range out {
		out[j] = Round2(out[j] / sum)
	}
	return out
}

// RowSums returns the sum of every row.
func RowSums(m Matrix) []float64 {
	sums := make([]float64, len(m))
	for i, row := range m {
		sums[i] = floats.Sum(row)
	}
	return sums
}
