package shell

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"attnviz/pkg/controller"
	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/matrix"
)

func newTestShell(t *testing.T) (*Shell, *controller.Controller, *bytes.Buffer) {
	t.Helper()
	ctrl, err := controller.New(controller.Options{
		Text:   controller.DefaultText,
		Source: matrix.NewSource(1),
		Logger: log.New(&bytes.Buffer{}, "", 0),
	})
	if err != nil {
		t.Fatalf("controller.New failed: %v", err)
	}
	var out bytes.Buffer
	return New(ctrl, Config{PreviewColumns: 4, Out: &out}), ctrl, &out
}

func TestExecute_PlainTextSetsInput(t *testing.T) {
	sh, ctrl, out := newTestShell(t)

	if err := sh.Execute("  hello attention world "); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.InputText != "hello attention world" || len(snap.Tokens) != 3 {
		t.Errorf("unexpected snapshot: %q %v", snap.InputText, snap.Tokens)
	}
	if !strings.Contains(out.String(), "[2] world") {
		t.Errorf("Expected token strip in output, got %q", out.String())
	}
}

func TestExecute_BlankLineIsNoop(t *testing.T) {
	sh, ctrl, out := newTestShell(t)
	rev := ctrl.Snapshot().Revision

	if err := sh.Execute("   "); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if ctrl.Snapshot().Revision != rev || out.Len() != 0 {
		t.Error("Expected blank input to change nothing")
	}
}

func TestExecute_TextCommand(t *testing.T) {
	sh, ctrl, out := newTestShell(t)

	if err := sh.Execute("/text one  two"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if snap := ctrl.Snapshot(); snap.InputText != "one two" || snap.TokenCount() != 2 {
		t.Errorf("unexpected snapshot: %q %v", snap.InputText, snap.Tokens)
	}

	out.Reset()
	if err := sh.Execute("/text"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.InputText != "" || snap.TokenCount() != 0 || !snap.Tensors.IsEmpty() {
		t.Errorf("Expected empty state, got %q %v", snap.InputText, snap.Tokens)
	}
	if !strings.Contains(out.String(), "(no tokens)") {
		t.Errorf("Expected empty token strip, got %q", out.String())
	}

	out.Reset()
	_ = sh.Execute("/state")
	if !strings.Contains(out.String(), "0 tokens") {
		t.Errorf("Expected token count in /state, got %q", out.String())
	}
}

func TestExecute_Set(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCode string
		check    func(t *testing.T, ctrl *controller.Controller, out string)
	}{
		{
			name: "in range",
			line: "/set heads 2",
			check: func(t *testing.T, ctrl *controller.Controller, out string) {
				if ctrl.Snapshot().Hyperparameters.NumHeads != 2 {
					t.Errorf("Expected 2 heads, got %v", ctrl.Snapshot().Hyperparameters.NumHeads)
				}
				if strings.Contains(out, "clamped") {
					t.Errorf("Did not expect clamping: %q", out)
				}
			},
		},
		{
			name: "clamped",
			line: "/set model_dimension 100",
			check: func(t *testing.T, ctrl *controller.Controller, out string) {
				if ctrl.Snapshot().Hyperparameters.ModelDimension != 128 {
					t.Errorf("Expected 128, got %v", ctrl.Snapshot().Hyperparameters.ModelDimension)
				}
				if !strings.Contains(out, "clamped from 100") {
					t.Errorf("Expected clamp notice, got %q", out)
				}
			},
		},
		{
			name: "dropout above range",
			line: "/set dropout 0.9",
			check: func(t *testing.T, ctrl *controller.Controller, out string) {
				if ctrl.Snapshot().Hyperparameters.DropoutRate != 0.5 {
					t.Errorf("Expected 0.5, got %v", ctrl.Snapshot().Hyperparameters.DropoutRate)
				}
			},
		},
		{name: "unknown field", line: "/set temperature 1", wantCode: aerrors.ErrUnknownHyperparameter},
		{name: "missing value", line: "/set heads", wantCode: aerrors.ErrCommandInvalid},
		{name: "not a number", line: "/set heads many", wantCode: aerrors.ErrCommandInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, ctrl, out := newTestShell(t)
			err := sh.Execute(tt.line)
			if tt.wantCode != "" {
				if !aerrors.IsCode(err, tt.wantCode) {
					t.Fatalf("Expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			tt.check(t, ctrl, out.String())
		})
	}
}

func TestExecute_SelectAndClear(t *testing.T) {
	sh, ctrl, out := newTestShell(t)

	if err := sh.Execute("/select 1"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if idx, ok := ctrl.Snapshot().Selection.Index(); !ok || idx != 1 {
		t.Errorf("Expected selection 1, got %v", ctrl.Snapshot().Selection)
	}
	if !strings.Contains(out.String(), "*quick*") || !strings.Contains(out.String(), "quick -> The") {
		t.Errorf("Expected highlighted token and edges, got %q", out.String())
	}

	out.Reset()
	if err := sh.Execute("/token"); err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if !strings.Contains(out.String(), "query") {
		t.Errorf("Expected token detail, got %q", out.String())
	}

	if err := sh.Execute("/clear"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !ctrl.Snapshot().Selection.IsNone() {
		t.Error("Expected selection to be cleared")
	}

	out.Reset()
	_ = sh.Execute("/token")
	if !strings.Contains(out.String(), "No token selected") {
		t.Errorf("Expected no-selection notice, got %q", out.String())
	}
}

func TestExecute_SelectErrors(t *testing.T) {
	sh, _, _ := newTestShell(t)

	if err := sh.Execute("/select 9"); !aerrors.IsCode(err, aerrors.ErrInvalidSelection) {
		t.Errorf("Expected INVALID_SELECTION, got %v", err)
	}
	if err := sh.Execute("/select x"); !aerrors.IsCode(err, aerrors.ErrCommandInvalid) {
		t.Errorf("Expected COMMAND_INVALID, got %v", err)
	}
	if err := sh.Execute("/select"); !aerrors.IsCode(err, aerrors.ErrCommandInvalid) {
		t.Errorf("Expected COMMAND_INVALID, got %v", err)
	}
}

func TestExecute_Show(t *testing.T) {
	sh, _, out := newTestShell(t)

	if err := sh.Execute("/show"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), "Attention Scores (4x4)") {
		t.Errorf("Expected scores by default, got %q", out.String())
	}

	out.Reset()
	if err := sh.Execute("/show q"); err != nil {
		t.Fatalf("show q failed: %v", err)
	}
	if !strings.Contains(out.String(), "Q (4x512)") {
		t.Errorf("Expected Q header, got %q", out.String())
	}

	out.Reset()
	if err := sh.Execute("/show all"); err != nil {
		t.Fatalf("show all failed: %v", err)
	}
	for _, name := range []string{"Q (", "K (", "V (", "Output ("} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("Expected %q in /show all output", name)
		}
	}

	if err := sh.Execute("/show logits"); !aerrors.IsCode(err, aerrors.ErrCommandInvalid) {
		t.Errorf("Expected COMMAND_INVALID, got %v", err)
	}
}

func TestExecute_LaTeX(t *testing.T) {
	sh, _, out := newTestShell(t)

	if err := sh.Execute("/latex steps"); err != nil {
		t.Fatalf("latex steps failed: %v", err)
	}
	if !strings.Contains(out.String(), `d_k = \frac{512}{8} = 64`) {
		t.Errorf("Expected head dimension formula, got %q", out.String())
	}

	out.Reset()
	if err := sh.Execute("/latex q"); err != nil {
		t.Fatalf("latex q failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), `Q = \begin{bmatrix}`) {
		t.Errorf("Expected bmatrix, got %q", out.String())
	}

	if err := sh.Execute("/latex"); !aerrors.IsCode(err, aerrors.ErrCommandInvalid) {
		t.Errorf("Expected COMMAND_INVALID, got %v", err)
	}
}

func TestExecute_SVG(t *testing.T) {
	sh, _, out := newTestShell(t)
	_ = sh.Execute("/select 0")

	path := filepath.Join(t.TempDir(), "arcs.svg")
	if err := sh.Execute("/svg " + path); err != nil {
		t.Fatalf("svg failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(data), "<svg") || strings.Count(string(data), "<path") != 6 {
		t.Errorf("unexpected svg: %s", data)
	}
	if !strings.Contains(out.String(), "Wrote") {
		t.Errorf("Expected confirmation, got %q", out.String())
	}

	bad := filepath.Join(t.TempDir(), "missing", "arcs.svg")
	if err := sh.Execute("/svg " + bad); !aerrors.IsCode(err, aerrors.ErrExportWriteFailed) {
		t.Errorf("Expected EXPORT_WRITE_FAILED, got %v", err)
	}
}

func TestExecute_Misc(t *testing.T) {
	sh, ctrl, out := newTestShell(t)

	rev := ctrl.Snapshot().Revision
	if err := sh.Execute("/recompute"); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if ctrl.Snapshot().Revision != rev+1 {
		t.Error("Expected recompute to publish a new revision")
	}

	out.Reset()
	_ = sh.Execute("/params")
	if !strings.Contains(out.String(), "scale 1/sqrt(d_k)") {
		t.Errorf("Expected params output, got %q", out.String())
	}

	out.Reset()
	_ = sh.Execute("/frobnicate")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("Expected unknown command notice, got %q", out.String())
	}

	out.Reset()
	_ = sh.Execute("/help")
	if !strings.Contains(out.String(), "/select") {
		t.Errorf("Expected help text, got %q", out.String())
	}

	for _, q := range []string{"/quit", "/exit", "/q"} {
		if err := sh.Execute(q); !IsQuit(err) {
			t.Errorf("%s: expected quit, got %v", q, err)
		}
	}
}

func TestCompleter(t *testing.T) {
	c := newCompleter()

	candidates, offset := c.Do([]rune("/se"), 3)
	if offset != 3 || len(candidates) != 2 {
		t.Fatalf("Expected /set and /select, got %q (offset %d)", candidates, offset)
	}

	candidates, _ = c.Do([]rune("/set num"), 8)
	if len(candidates) != 1 || !strings.HasPrefix(string(candidates[0]), "Heads") {
		t.Errorf("Expected numHeads completion, got %q", candidates)
	}
}
