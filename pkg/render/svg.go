package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"attnviz/pkg/highlight"
)

const (
	svgVersion   = "1.1"
	svgNamespace = "http://www.w3.org/2000/svg"
)

// StrokeScale converts an edge weight to the width of its halo stroke.
const StrokeScale = 20

// Point is a position in SVG user units.
type Point struct {
	X, Y float64
}

// ArcPath returns a quadratic Bézier path from start to end that bows
// upward in proportion to the horizontal distance it spans.
func ArcPath(start, end Point) string {
	mx := (start.X + end.X) / 2
	my := math.Min(start.Y, end.Y) - math.Abs(end.X-start.X)*0.2
	return fmt.Sprintf("M %s,%s Q %s,%s %s,%s",
		coord(start.X), coord(start.Y), coord(mx), coord(my), coord(end.X), coord(end.Y))
}

// StrokeWidth returns the halo width for an edge of the given weight.
func StrokeWidth(weight float64) float64 {
	return weight * StrokeScale
}

func coord(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Layout places token boxes on a single row.
type Layout struct {
	Padding     float64 // margin around the figure
	Gap         float64 // horizontal space between boxes
	CharWidth   float64 // approximate glyph advance
	BoxPadding  float64 // horizontal padding inside a box
	MinBoxWidth float64
	BoxHeight   float64
	FontSize    float64
	FontFamily  string
}

// DefaultLayout returns a layout sized for short sentences.
func DefaultLayout() Layout {
	return Layout{
		Padding:     20,
		Gap:         16,
		CharWidth:   9,
		BoxPadding:  12,
		MinBoxWidth: 40,
		BoxHeight:   32,
		FontSize:    15,
		FontFamily:  "Arial, sans-serif",
	}
}

// Box is the rectangle of one token.
type Box struct {
	X, Y, Width, Height float64
}

// Anchor is the top centre of the box, where arcs attach.
func (b Box) Anchor() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y}
}

// Boxes lays out tokens left to right. The row sits low enough that the
// highest possible arc stays inside the figure.
func (l Layout) Boxes(tokens []string) []Box {
	boxes := make([]Box, len(tokens))
	x := l.Padding
	for i, tok := range tokens {
		w := float64(utf8.RuneCountInString(tok))*l.CharWidth + 2*l.BoxPadding
		if w < l.MinBoxWidth {
			w = l.MinBoxWidth
		}
		boxes[i] = Box{X: x, Width: w, Height: l.BoxHeight}
		x += w + l.Gap
	}

	if len(boxes) > 0 {
		span := boxes[len(boxes)-1].Anchor().X - boxes[0].Anchor().X
		// A quadratic arc peaks halfway to its control point.
		top := l.Padding + span*0.1
		for i := range boxes {
			boxes[i].Y = top
		}
	}
	return boxes
}

// Size returns the figure dimensions for boxes.
func (l Layout) Size(boxes []Box) (width, height float64) {
	if len(boxes) == 0 {
		return 2 * l.Padding, 2*l.Padding + l.BoxHeight
	}
	last := boxes[len(boxes)-1]
	return last.X + last.Width + l.Padding, last.Y + last.Height + l.Padding
}

// SVG writes a standalone figure: one box per token, the selected token
// highlighted, and a pair of arcs per edge (a thin guide and a halo whose
// width follows the weight).
func SVG(w io.Writer, tokens []string, sel highlight.Selection, edges []highlight.Edge, layout Layout) error {
	boxes := layout.Boxes(tokens)
	width, height := layout.Size(boxes)
	selected, hasSel := sel.Index()

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	sb.WriteString(fmt.Sprintf("<svg version=\"%s\" xmlns=\"%s\" width=\"%s\" height=\"%s\" viewBox=\"0 0 %s %s\">\n",
		svgVersion, svgNamespace, coord(width), coord(height), coord(width), coord(height)))
	sb.WriteString("  <defs>\n    <style type=\"text/css\">\n")
	sb.WriteString(fmt.Sprintf("      .token { font-family: %s; font-size: %spx; fill: #111827; }\n",
		layout.FontFamily, coord(layout.FontSize)))
	sb.WriteString("    </style>\n  </defs>\n")
	sb.WriteString(fmt.Sprintf("  <rect width=\"%s\" height=\"%s\" fill=\"#ffffff\"/>\n", coord(width), coord(height)))

	sb.WriteString("  <g class=\"arcs\" fill=\"none\">\n")
	for _, e := range edges {
		if e.Source < 0 || e.Source >= len(boxes) || e.Target < 0 || e.Target >= len(boxes) {
			continue
		}
		d := ArcPath(boxes[e.Source].Anchor(), boxes[e.Target].Anchor())
		sb.WriteString(fmt.Sprintf("    <path d=\"%s\" stroke=\"black\" stroke-width=\"2\"/>\n", d))
		sb.WriteString(fmt.Sprintf("    <path d=\"%s\" stroke=\"rgba(0, 0, 0, 0.2)\" stroke-width=\"%s\" data-weight=\"%s\"/>\n",
			d, coord(StrokeWidth(e.Weight)), strconv.FormatFloat(e.Weight, 'f', -1, 64)))
	}
	sb.WriteString("  </g>\n")

	sb.WriteString("  <g class=\"tokens\">\n")
	for i, b := range boxes {
		fill, stroke := "#f3f4f6", "#9ca3af"
		if hasSel && i == selected {
			fill, stroke = "#bfdbfe", "#2563eb"
		}
		sb.WriteString(fmt.Sprintf("    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" rx=\"6\" fill=\"%s\" stroke=\"%s\"/>\n",
			coord(b.X), coord(b.Y), coord(b.Width), coord(b.Height), fill, stroke))
		sb.WriteString(fmt.Sprintf("    <text x=\"%s\" y=\"%s\" class=\"token\" text-anchor=\"middle\" dominant-baseline=\"middle\">%s</text>\n",
			coord(b.X+b.Width/2), coord(b.Y+b.Height/2), escapeXML(tokens[i])))
	}
	sb.WriteString("  </g>\n")
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// escapeXML escapes special characters for XML/SVG content.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
