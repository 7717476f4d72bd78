package render

import (
	"fmt"
	"math"
	"strings"

	"attnviz/pkg/highlight"
	"attnviz/pkg/matrix"
	"attnviz/pkg/model"
	"attnviz/pkg/model/attention"
)

// DefaultPreviewRows is how many rows a terminal matrix preview shows.
const DefaultPreviewRows = 8

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorDim   = "\033[90m"
)

// Text renders snapshots for a terminal.
type Text struct {
	PreviewColumns int
	PreviewRows    int
	UseColor       bool
}

// NewText creates a terminal renderer; cols <= 0 uses DefaultPreviewColumns.
func NewText(cols int, useColor bool) *Text {
	if cols <= 0 {
		cols = DefaultPreviewColumns
	}
	return &Text{PreviewColumns: cols, PreviewRows: DefaultPreviewRows, UseColor: useColor}
}

func (t *Text) paint(color, s string) string {
	if !t.UseColor {
		return s
	}
	return color + s + colorReset
}

// Matrix renders a header with the shape followed by a row preview.
func (t *Text) Matrix(name string, m matrix.Matrix) string {
	var sb strings.Builder
	if m.IsEmpty() {
		sb.WriteString(t.paint(colorBold, name))
		sb.WriteString(t.paint(colorDim, " (empty)"))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(t.paint(colorBold, name))
	sb.WriteString(t.paint(colorDim, " ("+m.ShapeString()+")"))
	sb.WriteString("\n")

	rows := len(m)
	if t.PreviewRows > 0 && rows > t.PreviewRows {
		rows = t.PreviewRows
	}
	for i := 0; i < rows; i++ {
		cells, more := previewCells(m[i], t.PreviewColumns)
		sb.WriteString("  [")
		for _, c := range cells {
			sb.WriteString(fmt.Sprintf(" %6s", c))
		}
		if more {
			sb.WriteString("  ...")
		}
		sb.WriteString(" ]\n")
	}
	if rows < len(m) {
		sb.WriteString(t.paint(colorDim, fmt.Sprintf("  ... %d more rows", len(m)-rows)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Tensors renders every matrix of ts in pipeline order.
func (t *Text) Tensors(ts attention.TensorSet) string {
	var sb strings.Builder
	for i, nm := range ts.Named() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Matrix(nm.Name, nm.Matrix))
	}
	return sb.String()
}

// Tokens renders the token strip with indices. The selected token is
// wrapped in asterisks.
func (t *Text) Tokens(tokens []string, sel highlight.Selection) string {
	if len(tokens) == 0 {
		return t.paint(colorDim, "(no tokens)") + "\n"
	}

	selected, hasSel := sel.Index()
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		label := fmt.Sprintf("[%d] %s", i, tok)
		if hasSel && i == selected {
			label = t.paint(colorCyan+colorBold, fmt.Sprintf("[%d] *%s*", i, tok))
		}
		parts[i] = label
	}
	return strings.Join(parts, "  ") + "\n"
}

// Edges renders one line per edge with a bar proportional to its weight,
// followed by the strongest target.
func (t *Text) Edges(tokens []string, edges []highlight.Edge) string {
	if len(edges) == 0 {
		return t.paint(colorDim, "(no selection)") + "\n"
	}

	width := 0
	for _, e := range edges {
		if n := len(tokenAt(tokens, e.Target)); n > width {
			width = n
		}
	}

	var sb strings.Builder
	for _, e := range edges {
		bar := strings.Repeat("█", int(math.Round(math.Max(0, StrokeWidth(e.Weight)))))
		sb.WriteString(fmt.Sprintf("  %s -> %-*s %5s %s\n",
			tokenAt(tokens, e.Source), width, tokenAt(tokens, e.Target),
			matrix.FormatValue(e.Weight), t.paint(colorCyan, bar)))
	}
	if best, ok := highlight.Strongest(edges); ok {
		sb.WriteString(t.paint(colorDim, fmt.Sprintf("  strongest: %s (%s)\n",
			tokenAt(tokens, best.Target), matrix.FormatValue(best.Weight))))
	}
	return sb.String()
}

// TokenDetail renders the vectors and score row of one token.
func (t *Text) TokenDetail(token string, view attention.TokenView) string {
	var sb strings.Builder
	sb.WriteString(t.paint(colorBold, fmt.Sprintf("Calculations for %q", token)))
	sb.WriteString("\n")
	line := func(label string, v []float64, preview bool) {
		limit := len(v)
		if preview {
			limit = t.PreviewColumns
		}
		cells, more := previewCells(v, limit)
		if more {
			cells = append(cells, "...")
		}
		sb.WriteString(fmt.Sprintf("  %-7s [%s]\n", label, strings.Join(cells, ", ")))
	}
	line("query", view.Query, true)
	line("key", view.Key, true)
	line("value", view.Value, true)
	line("scores", view.Scores, false)
	line("output", view.Output, true)
	return sb.String()
}

// Hyperparameters renders the current settings with their control ranges.
func (t *Text) Hyperparameters(hp model.Hyperparameters) string {
	var sb strings.Builder
	for _, f := range model.Fields() {
		v, _ := hp.Get(f)
		r, _ := model.RangeFor(f)
		sb.WriteString(fmt.Sprintf("  %-20s %-6s %s\n", f.Label(), matrix.FormatValue(v),
			t.paint(colorDim, fmt.Sprintf("[%s..%s step %s]",
				matrix.FormatValue(r.Min), matrix.FormatValue(r.Max), matrix.FormatValue(r.Step)))))
	}
	sb.WriteString(t.paint(colorDim, fmt.Sprintf("  head dimension %s, scale 1/sqrt(d_k) = %s\n",
		matrix.FormatValue(matrix.Round2(hp.HeadDimension())), matrix.FormatValue(matrix.Round2(hp.ScaleFactor())))))
	return sb.String()
}

func tokenAt(tokens []string, i int) string {
	if i < 0 || i >= len(tokens) {
		return fmt.Sprintf("#%d", i)
	}
	return tokens[i]
}
