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

	"github.com/erazemk/blagajna/internal/config"
)

// levelRouter is a slog.Handler that routes DEBUG/INFO/WARN to the log
// handler and ERROR+ to the terminal handler.
type levelRouter struct {
	level    slog.Level
	log      slog.Handler
	terminal slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.terminal.Handle(ctx, r)
	}
	return lr.log.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		level:    lr.level,
		log:      lr.log.WithAttrs(attrs),
		terminal: lr.terminal.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		level:    lr.level,
		log:      lr.log.WithGroup(name),
		terminal: lr.terminal.WithGroup(name),
	}
}

// setupLogger configures structured logging. stdout is left to command
// output. Without a log file every level goes to stderr. With logPath set,
// DEBUG/INFO/WARN go only to that file and ERROR goes to both stderr and the
// file. Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string, level slog.Level, stderr io.Writer) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: level}

	cleanup := func() {}
	logW, termW := stderr, stderr

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		logW = f
		termW = io.MultiWriter(stderr, f)
	}

	logger := slog.New(&levelRouter{
		level:    level,
		log:      slog.NewTextHandler(logW, opts),
		terminal: slog.NewTextHandler(termW, opts),
	})
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

const usage = `Usage: blagajna [flags] <command> [args]

Commands:
  login <username>                     log in (password read from stdin)
  logout                               end the session
  whoami                               show the logged-in user
  customers [list|add|edit|delete]     manage customers
  items [list|add|edit|delete]         manage items
  stock <item-id> <delta>              add or remove stock
  stock history                        list stock updates
  low-stock                            list items below the threshold
  threshold [n]                        show or set the low-stock threshold (admin to set)
  sales [list|show|new|edit|delete]    manage sales
  users [list|add|edit|delete]         manage users (admin)
  stats                                show the dashboard
  account <customer-id>                show a customer's account statement
  pay <customer-id> <amount>           register a payment
  export <file.xlsx>                   export the dashboard as a spreadsheet
  chart products|debtors <file.png>    draw a report chart
  watch                                poll low stock and alert on changes

Flags:
  -a, -api <url>          backend URL (default: http://localhost:8000)
  -s, -state <path>       local storage database
  -t, -timeout <dur>      request timeout (default: 15s)
  -n, -page-size <n>      records per page (default: 10)
  -i, -interval <dur>     polling interval, 5s to 30s (default: 30s)
  -l, -log <path>         log file; only errors then reach stderr (default: stderr)
  -v, -verbose            log every request
  -h, -help               show this help and exit

Settings are also read from BLAGAJNA_* environment variables and .env.
Run "blagajna <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("blagajna", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)

	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "")
	fs.BoolVar(&verbose, "v", false, "")

	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger, closeLog, err := setupLogger(cfg.LogPath, level, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := lookupCommand(name)
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", name)
		fs.Usage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, stdin, stdout, stderr)
	if err != nil {
		logger.Error("failed to start", "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, cmd, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
	return 0
}
