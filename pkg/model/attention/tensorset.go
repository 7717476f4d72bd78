package attention

import (
	"strings"

	"attnviz/pkg/matrix"
)

// TensorSet holds every intermediate and final matrix of one attention pass.
//
// Shapes for n tokens and model dimension d:
//   - Q, K, V, Output: (n, d)
//   - QKt, ScaledQKt, AttentionScores: (n, n)
//
// A TensorSet is produced whole by Pipeline.Compute and never updated in place.
type TensorSet struct {
	Q               matrix.Matrix `json:"q"`
	K               matrix.Matrix `json:"k"`
	V               matrix.Matrix `json:"v"`
	QKt             matrix.Matrix `json:"qkt"`
	ScaledQKt       matrix.Matrix `json:"scaledQkt"`
	AttentionScores matrix.Matrix `json:"attentionScores"`
	Output          matrix.Matrix `json:"output"`
}

// Empty returns the tensor set for an empty token sequence: every matrix empty.
// This is a normal state, not an error.
func Empty() TensorSet {
	return TensorSet{
		Q:               matrix.Matrix{},
		K:               matrix.Matrix{},
		V:               matrix.Matrix{},
		QKt:             matrix.Matrix{},
		ScaledQKt:       matrix.Matrix{},
		AttentionScores: matrix.Matrix{},
		Output:          matrix.Matrix{},
	}
}

// IsEmpty reports whether every matrix in the set is empty.
func (ts TensorSet) IsEmpty() bool {
	for _, nm := range ts.Named() {
		if !nm.Matrix.IsEmpty() {
			return false
		}
	}
	return true
}

// NamedMatrix pairs a matrix with its display name and lookup key.
type NamedMatrix struct {
	Key    string
	Name   string
	Matrix matrix.Matrix
}

// Named returns the matrices in pipeline order with their display names.
func (ts TensorSet) Named() []NamedMatrix {
	return []NamedMatrix{
		{Key: "q", Name: "Q", Matrix: ts.Q},
		{Key: "k", Name: "K", Matrix: ts.K},
		{Key: "v", Name: "V", Matrix: ts.V},
		{Key: "qkt", Name: "QK^T", Matrix: ts.QKt},
		{Key: "scaled", Name: "Scaled QK^T", Matrix: ts.ScaledQKt},
		{Key: "scores", Name: "Attention Scores", Matrix: ts.AttentionScores},
		{Key: "output", Name: "Output", Matrix: ts.Output},
	}
}

// Lookup finds a matrix by key ("q", "k", "v", "qkt", "scaled", "scores",
// "output") or display name, case-insensitively.
func (ts TensorSet) Lookup(name string) (NamedMatrix, bool) {
	name = strings.TrimSpace(name)
	for _, nm := range ts.Named() {
		if strings.EqualFold(nm.Key, name) || strings.EqualFold(nm.Name, name) {
			return nm, true
		}
	}
	return NamedMatrix{}, false
}

// TokenView is the slice of a TensorSet that belongs to one token.
type TokenView struct {
	Index  int       `json:"index"`
	Query  []float64 `json:"query"`
	Key    []float64 `json:"key"`
	Value  []float64 `json:"value"`
	Scores []float64 `json:"scores"`
	Output []float64 `json:"output"`
}

// Token returns the per-token rows for index i. It reports false when any of
// the rows is missing, which happens only for an out-of-range index.
func (ts TensorSet) Token(i int) (TokenView, bool) {
	view := TokenView{
		Index:  i,
		Query:  ts.Q.Row(i),
		Key:    ts.K.Row(i),
		Value:  ts.V.Row(i),
		Scores: ts.AttentionScores.Row(i),
		Output: ts.Output.Row(i),
	}
	if view.Query == nil || view.Key == nil || view.Value == nil || view.Scores == nil || view.Output == nil {
		return TokenView{}, false
	}
	return view, true
}
