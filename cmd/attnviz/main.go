// attnviz - an interactive walkthrough of scaled dot-product self-attention.
//
// Input text is split into tokens, random Q, K and V matrices are sampled,
// and every intermediate of softmax(QK^T / sqrt(d_k))V is shown. Selecting a
// token draws its attention edges to every other token.
//
// Surfaces:
//   - Shell: readline REPL on the terminal
//   - API: JSON over HTTP plus a websocket snapshot stream
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/term"

	"attnviz/pkg/api"
	"attnviz/pkg/config"
	"attnviz/pkg/controller"
	aerrors "attnviz/pkg/errors"
	"attnviz/pkg/matrix"
	"attnviz/pkg/shell"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "", "Config file path (default: ./attnviz.yaml)")
	initConfig := flag.Bool("init", false, "Write a default config file and exit")
	text := flag.String("text", "", "Initial input text (overrides config)")
	serve := flag.Bool("serve", false, "Start the HTTP/websocket API")
	addr := flag.String("addr", "", "API listen address host:port (overrides config)")
	noShell := flag.Bool("no-shell", false, "Do not start the interactive shell")
	seed := flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("attnviz %s\n", version)
		os.Exit(0)
	}

	errf := aerrors.DefaultFormatter(os.Stderr)
	fail := func(err error) {
		fmt.Fprintln(os.Stderr, errf.Format(err))
		os.Exit(1)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	if *initConfig {
		created, err := config.InitConfig(cfgPath)
		if err != nil {
			fail(err)
		}
		if created {
			fmt.Printf("Config initialized at: %s\n", cfgPath)
		} else {
			fmt.Printf("Config already exists at: %s\n", cfgPath)
		}
		os.Exit(0)
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		fail(err)
	}

	// Flags given explicitly win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "text":
			cfg.Text = *text
		case "serve":
			cfg.Server.Enabled = *serve
		case "seed":
			cfg.Seed = *seed
		}
	})
	if *addr != "" {
		host, port, err := splitAddr(*addr)
		if err != nil {
			fail(err)
		}
		cfg.Server.Host, cfg.Server.Port = host, port
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	ctrl, err := controller.New(controller.Options{
		Text:            cfg.Text,
		Hyperparameters: cfg.Hyperparameters,
		Source:          matrix.NewSource(cfg.Seed),
		Logger:          logger,
	})
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	var server *api.Server
	if cfg.Server.Enabled {
		opts := api.DefaultOptions()
		opts.Host = cfg.Server.Host
		opts.Port = cfg.Server.Port
		opts.CORSOrigins = cfg.Server.CORSOrigins
		opts.PreviewColumns = cfg.Render.PreviewColumns
		opts.Logger = logger

		server = api.NewServer(ctrl, opts)
		if err := server.Start(); err != nil {
			fail(aerrors.Wrap(err, aerrors.ErrConfigInvalid, aerrors.CategoryConfig, "cannot start API server").
				WithContext("addr", cfg.Server.Address()).
				WithSuggestion("Pick another port with -addr or server.port"))
		}
		fmt.Printf("API listening on http://%s\n", server.ListenAddr())
	}

	interactive := !*noShell && term.IsTerminal(int(os.Stdin.Fd()))
	switch {
	case interactive:
		sh := shell.New(ctrl, shell.Config{
			HistoryFile:    historyPath(cfg.Shell.HistoryFile),
			UseColor:       cfg.Shell.UseColor(aerrors.IsTTY(os.Stdout)),
			PreviewColumns: cfg.Render.PreviewColumns,
		})
		if err := sh.Run(ctx); err != nil && err != context.Canceled {
			fmt.Fprintf(os.Stderr, "Shell error: %v\n", err)
		}
	case server != nil:
		<-ctx.Done()
	default:
		fmt.Fprintln(os.Stderr, "Nothing to do: stdin is not a terminal and the API is disabled (use -serve).")
		os.Exit(1)
	}

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: server shutdown: %v\n", err)
		}
	}

	fmt.Println("Goodbye!")
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, aerrors.Wrap(err, aerrors.ErrConfigInvalid, aerrors.CategoryConfig, "invalid listen address").
			WithContext("addr", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, aerrors.Wrap(err, aerrors.ErrConfigInvalid, aerrors.CategoryConfig, "invalid listen port").
			WithContext("addr", addr)
	}
	return host, port, nil
}

// historyPath expands a leading ~ in the configured history file.
func historyPath(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
