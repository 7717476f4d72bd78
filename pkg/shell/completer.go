package shell

import (
	"github.com/chzyer/readline"

	"attnviz/pkg/model"
)

var matrixNames = []string{"q", "k", "v", "qkt", "scaled", "scores", "output"}

func items(names ...string) []readline.PrefixCompleterInterface {
	out := make([]readline.PrefixCompleterInterface, len(names))
	for i, n := range names {
		out[i] = readline.PcItem(n)
	}
	return out
}

// newCompleter completes /commands, hyperparameter names and matrix names.
func newCompleter() *readline.PrefixCompleter {
	fields := make([]string, 0, len(model.Fields()))
	for _, f := range model.Fields() {
		fields = append(fields, string(f))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("/text"),
		readline.PcItem("/set", items(fields...)...),
		readline.PcItem("/select"),
		readline.PcItem("/clear"),
		readline.PcItem("/show", items(append(matrixNames, "all")...)...),
		readline.PcItem("/token"),
		readline.PcItem("/edges"),
		readline.PcItem("/latex", items(append(matrixNames, "steps", "token")...)...),
		readline.PcItem("/svg"),
		readline.PcItem("/params"),
		readline.PcItem("/recompute"),
		readline.PcItem("/state"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
}
