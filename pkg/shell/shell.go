// Package shell provides the interactive REPL for exploring attention.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"attnviz/pkg/controller"
	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/matrix"
	"attnviz/pkg/model"
	"attnviz/pkg/render"
)

var errQuit = errors.New("quit")

// IsQuit reports whether err is the sentinel returned by /quit.
func IsQuit(err error) bool {
	return errors.Is(err, errQuit)
}

// Config holds shell configuration.
type Config struct {
	HistoryFile    string
	UseColor       bool
	PreviewColumns int

	// Out receives all shell output. Defaults to os.Stdout.
	Out io.Writer
}

// Shell is the interactive command-line interface over one controller.
type Shell struct {
	ctrl      *controller.Controller
	cfg       Config
	out       io.Writer
	text      *render.Text
	latex     *render.LaTeX
	formatter *aerrors.Formatter
}

// New creates a shell. Nothing is read from the terminal until Run.
func New(ctrl *controller.Controller, cfg Config) *Shell {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Shell{
		ctrl:      ctrl,
		cfg:       cfg,
		out:       out,
		text:      render.NewText(cfg.PreviewColumns, cfg.UseColor),
		latex:     render.NewLaTeX(cfg.PreviewColumns),
		formatter: &aerrors.Formatter{UseColor: cfg.UseColor, Indent: "  "},
	}
}

func (s *Shell) prompt() string {
	if s.cfg.UseColor {
		return "\033[32mattnviz>\033[0m "
	}
	return "attnviz> "
}

// Run reads lines until /quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    newCompleter(),
		Stdout:          s.out,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	fmt.Fprintln(s.out, "Type a sentence to tokenize it and recompute attention.")
	fmt.Fprintln(s.out, "Commands: /text, /set, /select, /clear, /show, /token, /edges, /latex, /svg, /params, /help, /quit")
	fmt.Fprintln(s.out)
	s.printOverview()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := s.Execute(line); err != nil {
			if IsQuit(err) {
				return nil
			}
			fmt.Fprintln(s.out, s.formatter.Format(err))
		}
	}
}

// Execute runs one input line. Lines starting with "/" are commands; any
// other non-blank line replaces the input text.
func (s *Shell) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return s.handleCommand(line)
	}

	s.ctrl.SetInputText(line)
	s.printOverview()
	return nil
}

func (s *Shell) handleCommand(line string) error {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit

	case "/help", "/h":
		s.printHelp()

	case "/text":
		// With no argument the input becomes empty.
		s.ctrl.SetInputText(strings.Join(args, " "))
		s.printOverview()

	case "/set":
		return s.handleSet(args)

	case "/select":
		return s.handleSelect(args)

	case "/clear":
		s.ctrl.ClearSelection()
		fmt.Fprintln(s.out, "Selection cleared.")

	case "/recompute":
		s.ctrl.Recompute()
		s.printOverview()

	case "/show":
		return s.handleShow(args)

	case "/token":
		s.printToken()

	case "/edges":
		snap := s.ctrl.Snapshot()
		fmt.Fprint(s.out, s.text.Edges(snap.Tokens, snap.Edges()))

	case "/latex":
		return s.handleLaTeX(args)

	case "/svg":
		return s.handleSVG(args)

	case "/params":
		fmt.Fprint(s.out, s.text.Hyperparameters(s.ctrl.Snapshot().Hyperparameters))

	case "/state":
		snap := s.ctrl.Snapshot()
		fmt.Fprintf(s.out, "revision %d (%s), %d tokens, selection %s\n",
			snap.Revision, snap.ID, snap.TokenCount(), snap.Selection)

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (try /help)\n", cmd)
	}
	return nil
}

// handleSet clamps the value to the field's control range before handing
// it to the controller.
func (s *Shell) handleSet(args []string) error {
	const usage = "/set <modelDimension|numHeads|dropoutRate|maxSeqLength> <value>"
	if len(args) != 2 {
		return aerrors.CommandInvalid("/set", usage)
	}

	field, err := model.ParseField(args[0])
	if err != nil {
		return err
	}
	raw, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return aerrors.CommandInvalid("/set", usage).WithCause(err)
	}

	rng, _ := model.RangeFor(field)
	value := rng.Clamp(raw)
	if _, err := s.ctrl.SetHyperparameter(field, value); err != nil {
		return err
	}

	if value != raw {
		fmt.Fprintf(s.out, "%s set to %s (clamped from %s)\n", field.Label(), matrix.FormatValue(value), args[1])
	} else {
		fmt.Fprintf(s.out, "%s set to %s\n", field.Label(), matrix.FormatValue(value))
	}
	s.printOverview()
	return nil
}

func (s *Shell) handleSelect(args []string) error {
	const usage = "/select <token index>"
	if len(args) != 1 {
		return aerrors.CommandInvalid("/select", usage)
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return aerrors.CommandInvalid("/select", usage).WithCause(err)
	}

	snap, err := s.ctrl.SelectToken(idx)
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, s.text.Tokens(snap.Tokens, snap.Selection))
	fmt.Fprint(s.out, s.text.Edges(snap.Tokens, snap.Edges()))
	return nil
}

func (s *Shell) handleShow(args []string) error {
	snap := s.ctrl.Snapshot()
	if len(args) == 0 {
		fmt.Fprint(s.out, s.text.Matrix("Attention Scores", snap.Tensors.AttentionScores))
		return nil
	}
	if args[0] == "all" {
		fmt.Fprint(s.out, s.text.Tensors(snap.Tensors))
		return nil
	}

	nm, ok := snap.Tensors.Lookup(strings.Join(args, " "))
	if !ok {
		return aerrors.CommandInvalid("/show", "/show [q|k|v|qkt|scaled|scores|output|all]")
	}
	fmt.Fprint(s.out, s.text.Matrix(nm.Name, nm.Matrix))
	return nil
}

func (s *Shell) printToken() {
	snap := s.ctrl.Snapshot()
	view, ok := snap.SelectedToken()
	if !ok {
		fmt.Fprintln(s.out, "No token selected. Use /select <index>.")
		return
	}
	fmt.Fprint(s.out, s.text.TokenDetail(snap.Tokens[view.Index], view))
}

// handleLaTeX prints formulas for a matrix, the pipeline steps or the
// selected token.
func (s *Shell) handleLaTeX(args []string) error {
	const usage = "/latex <q|k|v|qkt|scaled|scores|output|steps|token>"
	if len(args) == 0 {
		return aerrors.CommandInvalid("/latex", usage)
	}

	snap := s.ctrl.Snapshot()
	switch args[0] {
	case "steps":
		for _, l := range s.latex.Steps(snap.Hyperparameters) {
			fmt.Fprintln(s.out, l)
		}
		return nil
	case "token":
		view, ok := snap.SelectedToken()
		if !ok {
			fmt.Fprintln(s.out, "No token selected. Use /select <index>.")
			return nil
		}
		for _, l := range s.latex.TokenDetail(snap.Tokens[view.Index], view) {
			fmt.Fprintln(s.out, l)
		}
		return nil
	}

	nm, ok := snap.Tensors.Lookup(strings.Join(args, " "))
	if !ok {
		return aerrors.CommandInvalid("/latex", usage)
	}
	fmt.Fprintln(s.out, s.latex.Named(nm))
	return nil
}

func (s *Shell) handleSVG(args []string) error {
	if len(args) != 1 {
		return aerrors.CommandInvalid("/svg", "/svg <file>")
	}
	path := args[0]

	snap := s.ctrl.Snapshot()
	f, err := os.Create(path)
	if err != nil {
		return aerrors.Wrap(err, aerrors.ErrExportWriteFailed, aerrors.CategoryIO, "failed to create figure").
			WithContext("path", path)
	}
	if err := render.SVG(f, snap.Tokens, snap.Selection, snap.Edges(), render.DefaultLayout()); err != nil {
		f.Close()
		return aerrors.Wrap(err, aerrors.ErrExportWriteFailed, aerrors.CategoryIO, "failed to write figure").
			WithContext("path", path)
	}
	if err := f.Close(); err != nil {
		return aerrors.Wrap(err, aerrors.ErrExportWriteFailed, aerrors.CategoryIO, "failed to write figure").
			WithContext("path", path)
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}

// printOverview shows the tokens and score matrix of the current snapshot.
func (s *Shell) printOverview() {
	snap := s.ctrl.Snapshot()
	fmt.Fprint(s.out, s.text.Tokens(snap.Tokens, snap.Selection))
	if snap.TokenCount() > 0 {
		fmt.Fprint(s.out, s.text.Matrix("Attention Scores", snap.Tensors.AttentionScores))
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  <text>                 - Replace the input text and recompute")
	fmt.Fprintln(s.out, "  /text [text]           - Replace the input text; no argument clears it")
	fmt.Fprintln(s.out, "  /set <param> <value>   - Set a hyperparameter (clamped to its range)")
	fmt.Fprintln(s.out, "  /params                - Show hyperparameters")
	fmt.Fprintln(s.out, "  /select <index>        - Select a token and show its attention edges")
	fmt.Fprintln(s.out, "  /clear                 - Clear the selection")
	fmt.Fprintln(s.out, "  /token                 - Show the selected token's vectors")
	fmt.Fprintln(s.out, "  /edges                 - Show attention edges of the selection")
	fmt.Fprintln(s.out, "  /show [name|all]       - Show a matrix (default: scores)")
	fmt.Fprintln(s.out, "  /latex <name|steps|token> - Print LaTeX formulas")
	fmt.Fprintln(s.out, "  /svg <file>            - Write the attention arcs as SVG")
	fmt.Fprintln(s.out, "  /recompute             - Resample Q, K, V and dropout")
	fmt.Fprintln(s.out, "  /state                 - Show the snapshot revision")
	fmt.Fprintln(s.out, "  /quit                  - Exit")
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Matrices: q, k, v, qkt, scaled, scores, output")
	fmt.Fprintln(s.out, "Tip: Use Tab to autocomplete /commands and parameter names")
}
