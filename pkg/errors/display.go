package errors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[90m"
)

// Formatter renders errors for people, with optional color.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool

	// Indent is the prefix for context and suggestion lines.
	Indent string
}

// DefaultFormatter returns a Formatter that colors output when w is a terminal.
func DefaultFormatter(w io.Writer) *Formatter {
	return &Formatter{
		UseColor: IsTTY(w),
		Indent:   "  ",
	}
}

// IsTTY returns true if w is an *os.File attached to a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Format renders err. AttnErrors get their context and suggestions on
// separate indented lines; any other error is rendered as "Error: <msg>".
func (f *Formatter) Format(err error) string {
	if err == nil {
		return ""
	}

	ae, ok := AsAttnError(err)
	if !ok {
		return f.paint(colorRed, "Error: ") + err.Error()
	}

	var sb strings.Builder
	sb.WriteString(f.paint(colorRed, "Error ["+ae.Code+"]: "))
	sb.WriteString(ae.Message)
	if ae.Cause != nil {
		sb.WriteString("\n")
		sb.WriteString(f.Indent)
		sb.WriteString(f.paint(colorDim, fmt.Sprintf("cause: %v", ae.Cause)))
	}
	if ctx := ae.ContextString(); ctx != "" {
		sb.WriteString("\n")
		sb.WriteString(f.Indent)
		sb.WriteString(f.paint(colorYellow, ctx))
	}
	for _, s := range ae.Suggestions {
		sb.WriteString("\n")
		sb.WriteString(f.Indent)
		sb.WriteString(f.paint(colorCyan, "→ "+s))
	}
	return sb.String()
}

func (f *Formatter) paint(color, s string) string {
	if !f.UseColor {
		return s
	}
	return color + s + colorReset
}
