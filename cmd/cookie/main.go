// Command cookie is a terminal client for the Cookie backend.
//
// Usage:
//
//	cookie [-api URL] [-session PATH] [-v] <command> [flags]
//
// Run "cookie help" for the command list. Settings come from the environment
// (COOKIE_API_URL, COOKIE_SESSION_PATH, COOKIE_HTTP_TIMEOUT, LOG_LEVEL) or a
// .env file; flags win.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/config"
	"github.com/mmynk/cookie/internal/screens"
	"github.com/mmynk/cookie/internal/session"
	"github.com/mmynk/cookie/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	global := flag.NewFlagSet("cookie", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.StringVar(&cfg.APIURL, "api", cfg.APIURL, "backend base URL")
	global.StringVar(&cfg.SessionPath, "session", cfg.SessionPath, "session file")
	verbose := global.Bool("v", false, "log requests")
	global.Usage = func() { usage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 || rest[0] == "help" {
		usage(stdout)
		return 0
	}
	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		usage(stderr)
		return 2
	}

	a, err := newApp(cfg, cmd.route, *verbose, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errFailed):
		default:
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// app is what a command runs against.
type app struct {
	env      *screens.Env
	nav      *screens.History
	sessions *session.FileStore
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(cfg config.Client, route string, verbose bool, stdout, stderr io.Writer) (*app, error) {
	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		level = logging.LevelFromEnv()
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(logging.Options{Writer: stderr, Level: &level})

	store, err := session.OpenFile(cfg.SessionPath)
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(cfg.APIURL, store,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	nav := screens.NewHistory(route)
	return &app{
		env:      screens.NewEnv(client, nav, logger),
		nav:      nav,
		sessions: store,
		stdout:   stdout,
		stderr:   stderr,
	}, nil
}

func (a *app) close() {
	if err := a.sessions.Close(); err != nil {
		a.env.Logger.Warn("Failed to close session file", "error", err)
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("cookie "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cookie [-api URL] [-session PATH] [-v] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-24s %s\n", c.name, c.summary)
	}
}
