package matrix

// ApplyDropoutMask zeroes each cell independently with probability rate.
//
// Surviving cells are kept unchanged. There is no 1/(1-rate) rescaling, so
// masked rows no longer sum to 1.
//
// Parameters:
//   - src: random source, one draw per cell
//   - m: input matrix (typically the attention scores)
//   - rate: drop probability in [0, 1)
//
// With rate <= 0 a copy is returned and no values are drawn from src.
func ApplyDropoutMask(src Source, m Matrix, rate float64) Matrix {
	if rate <= 0 {
		return m.Clone()
	}

	result := make(Matrix, len(m))
	for i, row := range m {
		result[i] = make([]float64, len(row))
		for j, v := range row {
			if src.Float64() < rate {
				continue
			}
			result[i][j] = v
		}
	}
	return result
}
