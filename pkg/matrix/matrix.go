// Package matrix provides the dense-matrix algebra behind the attention walkthrough.
//
// Matrices are row slices. Every operation returns a new value and every
// produced cell is rounded to two decimal places.
package matrix

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	aerrors "attnviz/pkg/errors"
)

// Matrix is an ordered sequence of rows. Matrices produced by this package are
// rectangular and must be treated as immutable by callers.
type Matrix [][]float64

// New creates a rows x cols matrix initialized to zeros.
// Non-positive dimensions yield an empty matrix.
func New(rows, cols int) Matrix {
	if rows <= 0 || cols <= 0 {
		return Matrix{}
	}
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// FromRows creates a matrix from row data, copying it.
// Returns an error if the rows are not all the same length.
func FromRows(rows [][]float64) (Matrix, error) {
	m := Matrix(rows).Clone()
	if !m.IsRectangular() {
		return nil, fmt.Errorf("rows have unequal lengths")
	}
	return m, nil
}

// Rows returns the number of rows.
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the length of the first row, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Shape returns (rows, cols).
func (m Matrix) Shape() (int, int) {
	return m.Rows(), m.Cols()
}

// IsEmpty reports whether the matrix has no rows or an empty first row.
func (m Matrix) IsEmpty() bool {
	return len(m) == 0 || len(m[0]) == 0
}

// IsRectangular reports whether all rows have the same length.
func (m Matrix) IsRectangular() bool {
	for _, row := range m {
		if len(row) != m.Cols() {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Row returns a copy of row i, or nil when i is out of range.
func (m Matrix) Row(i int) []float64 {
	if i < 0 || i >= len(m) {
		return nil
	}
	return append([]float64(nil), m[i]...)
}

// Equals checks if two matrices have the same shape and approximately equal values.
func (m Matrix) Equals(other Matrix, tolerance float64) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(other[i]) {
			return false
		}
		for j := range m[i] {
			if math.Abs(m[i][j]-other[i][j]) > tolerance {
				return false
			}
		}
	}
	return true
}

// ShapeString returns a string representation of the shape, e.g. "4x512".
func (m Matrix) ShapeString() string {
	return fmt.Sprintf("%dx%d", m.Rows(), m.Cols())
}

// String returns a compact representation showing at most 3 rows and 6 columns.
func (m Matrix) String() string {
	var sb strings.Builder
	sb.WriteString("Matrix[")
	sb.WriteString(m.ShapeString())
	sb.WriteString("]: [")
	for i := 0; i < len(m) && i < 3; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < len(m[i]) && j < 6; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatValue(m[i][j]))
		}
		if len(m[i]) > 6 {
			sb.WriteString(", ...")
		}
		sb.WriteString("]")
	}
	if len(m) > 3 {
		sb.WriteString(", ...")
	}
	sb.WriteString("]")
	return sb.String()
}

// Round2 rounds the exact binary value of x to two decimal places. Only true
// ties round away from zero, so -0.985 (stored as -0.98499999...) gives -0.98.
// Negative zero is normalized to zero.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}

	a := math.Abs(x)
	y := a * 100
	n := math.Floor(y)
	frac := y - n

	// a*100 carries rounding error; near .5 decide on the exact value.
	if math.Abs(frac-0.5) <= 1e-9*math.Max(1, y) {
		n = roundExact(a)
	} else if frac > 0.5 {
		n++
	}

	r := n / 100
	if r == 0 {
		return 0
	}
	return math.Copysign(r, x)
}

// roundExact returns round(a*100) computed on the exact rational value of a,
// with ties rounded up. a must be finite and non-negative.
func roundExact(a float64) float64 {
	v := new(big.Rat).SetFloat64(a)
	v.Mul(v, big.NewRat(100, 1))

	q, rem := new(big.Int).QuoRem(v.Num(), v.Denom(), new(big.Int))
	if rem.Lsh(rem, 1).Cmp(v.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	f, _ := new(big.Float).SetInt(q).Float64()
	return f
}

// FormatValue renders a cell with the shortest representation that round-trips,
// so 0.5 prints as "0.5" and -0.12 as "-0.12".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Transpose returns the transpose of m.
// Returns an empty matrix if m is empty or its first row is empty.
func Transpose(m Matrix) Matrix {
	if m.IsEmpty() {
		return Matrix{}
	}

	rows, cols := m.Shape()
	result := New(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols && j < len(m[i]); j++ {
			result[j][i] = m[i][j]
		}
	}
	return result
}

// Multiply computes a · b, rounding each cell to two decimal places.
//
// It requires a.Cols() == b.Rows() and rectangular, non-empty operands. On a
// mismatch it returns an empty matrix together with a DIMENSION_MISMATCH error
// for diagnostic logging; it never panics.
func Multiply(a, b Matrix) (Matrix, error) {
	aRows, aCols := a.Shape()
	bRows, bCols := b.Shape()

	if a.IsEmpty() || b.IsEmpty() || aCols != bRows || !a.IsRectangular() || !b.IsRectangular() {
		return Matrix{}, aerrors.DimensionMismatch(aRows, aCols, bRows, bCols)
	}

	var product mat.Dense
	product.Mul(toDense(a), toDense(b))

	result := New(aRows, bCols)
	for i := 0; i < aRows; i++ {
		for j := 0; j < bCols; j++ {
			result[i][j] = Round2(product.At(i, j))
		}
	}
	return result, nil
}

// Scale multiplies all elements by factor, rounding each to two decimal places.
func Scale(m Matrix, factor float64) Matrix {
	result := make(Matrix, len(m))
	for i, row := range m {
		result[i] = make([]float64, len(row))
		for j, v := range row {
			result[i][j] = Round2(v * factor)
		}
	}
	return result
}

// toDense copies a non-empty rectangular matrix into a gonum dense matrix.
func toDense(m Matrix) *mat.Dense {
	rows, cols := m.Shape()
	data := make([]float64, 0, rows*cols)
	for _, row := range m {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
