// Package render turns controller snapshots into formula strings, SVG
// figures and terminal text.
package render

import (
	"fmt"
	"strings"

	"attnviz/pkg/matrix"
	"attnviz/pkg/model"
	"attnviz/pkg/model/attention"
)

// DefaultPreviewColumns is how many columns a matrix preview shows.
const DefaultPreviewColumns = 4

// LaTeX special characters outside math mode.
var latexSpecialChars = map[rune]string{
	'\\': `\textbackslash{}`,
	'{':  `\{`,
	'}':  `\}`,
	'$':  `\$`,
	'&':  `\&`,
	'#':  `\#`,
	'%':  `\%`,
	'_':  `\_`,
	'^':  `\textasciicircum{}`,
	'~':  `\textasciitilde{}`,
}

// Escape makes s safe for use inside \text{...}. Newlines become spaces.
func Escape(s string) string {
	if s == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for _, r := range s {
		if r == '\n' {
			sb.WriteRune(' ')
			continue
		}
		if escaped, ok := latexSpecialChars[r]; ok {
			sb.WriteString(escaped)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// symbols are the math-mode names of the tensor set entries, by lookup key.
var symbols = map[string]string{
	"q":      "Q",
	"k":      "K",
	"v":      "V",
	"qkt":    "QK^T",
	"scaled": `\frac{QK^T}{\sqrt{d_k}}`,
	"scores": `\text{Attention Scores}`,
	"output": `\text{Output}`,
}

// Symbol returns the math-mode symbol for a tensor set key, falling back to
// an escaped \text{} of name.
func Symbol(key, name string) string {
	if s, ok := symbols[key]; ok {
		return s
	}
	return `\text{` + Escape(name) + `}`
}

// LaTeX renders formula strings for an opaque math typesetter.
type LaTeX struct {
	// PreviewColumns limits how many columns of each row are shown.
	PreviewColumns int
}

// NewLaTeX creates a renderer; cols <= 0 uses DefaultPreviewColumns.
func NewLaTeX(cols int) *LaTeX {
	if cols <= 0 {
		cols = DefaultPreviewColumns
	}
	return &LaTeX{PreviewColumns: cols}
}

// Matrix renders m as a bmatrix preview named symbol. Rows wider than the
// preview end in \cdots. An empty matrix renders as plain text.
func (l *LaTeX) Matrix(symbol string, m matrix.Matrix) string {
	if m.IsEmpty() {
		return fmt.Sprintf("Matrix %s is empty", symbol)
	}

	rows := make([]string, len(m))
	for i, row := range m {
		cells, more := previewCells(row, l.PreviewColumns)
		if more {
			cells = append(cells, `\cdots`)
		}
		rows[i] = strings.Join(cells, " & ")
	}
	return fmt.Sprintf(`%s = \begin{bmatrix} %s \end{bmatrix}`, symbol, strings.Join(rows, ` \\ `))
}

// Named renders nm using its symbol.
func (l *LaTeX) Named(nm attention.NamedMatrix) string {
	return l.Matrix(Symbol(nm.Key, nm.Name), nm.Matrix)
}

// Tensors renders every matrix of ts in pipeline order.
func (l *LaTeX) Tensors(ts attention.TensorSet) []string {
	named := ts.Named()
	out := make([]string, len(named))
	for i, nm := range named {
		out[i] = l.Named(nm)
	}
	return out
}

// TokenDetail renders the per-token formulas for token: previews of its q,
// k, v and output vectors and its full score row.
func (l *LaTeX) TokenDetail(token string, view attention.TokenView) []string {
	return []string{
		`\text{Calculations for ` + Escape(token) + `}`,
		"q = " + l.vector(view.Query, true),
		"k = " + l.vector(view.Key, true),
		"v = " + l.vector(view.Value, true),
		`\text{scores} = ` + l.vector(view.Scores, false),
		`\text{output} = ` + l.vector(view.Output, true),
	}
}

// Steps renders the formula for each pipeline stage under hp.
func (l *LaTeX) Steps(hp model.Hyperparameters) []string {
	return []string{
		`QK^T = Q \cdot K^T`,
		fmt.Sprintf(`\text{Scaled} = \frac{QK^T}{\sqrt{d_k}}, \quad d_k = \frac{%d}{%d} = %s`,
			hp.ModelDimension, hp.NumHeads, matrix.FormatValue(matrix.Round2(hp.HeadDimension()))),
		`\text{Attention} = \text{softmax}\left(\frac{QK^T}{\sqrt{d_k}}\right)`,
		fmt.Sprintf(`\text{Scores} = \text{dropout}(\text{Attention}, p = %s)`, matrix.FormatValue(hp.DropoutRate)),
		`\text{Output} = \text{Scores} \cdot V`,
	}
}

// vector renders [a, b, c, d, \ldots]. With preview false the whole row is shown.
func (l *LaTeX) vector(v []float64, preview bool) string {
	limit := len(v)
	if preview {
		limit = l.PreviewColumns
	}
	cells, more := previewCells(v, limit)
	if more {
		cells = append(cells, `\ldots`)
	}
	return "[" + strings.Join(cells, ", ") + "]"
}

// previewCells formats at most n leading values and reports whether any
// were left out.
func previewCells(row []float64, n int) ([]string, bool) {
	if n <= 0 || n > len(row) {
		n = len(row)
	}
	cells := make([]string, n, n+1)
	for i := 0; i < n; i++ {
		cells[i] = matrix.FormatValue(row[i])
	}
	return cells, n < len(row)
}
