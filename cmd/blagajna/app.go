package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/api"
	"github.com/erazemk/blagajna/internal/config"
	"github.com/erazemk/blagajna/internal/db"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/resource"
	"github.com/erazemk/blagajna/internal/sale"
	"github.com/erazemk/blagajna/internal/session"
	"github.com/erazemk/blagajna/internal/store"
	"github.com/erazemk/blagajna/internal/view"
)

var (
	errUsage       = errors.New("usage")
	errNotLoggedIn = errors.New("not logged in, run: blagajna login <username>")
	errForbidden   = errors.New("this command needs an administrator")
)

// app holds everything a command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	db     *sql.DB
	sess   *session.Store
	client *api.Client
	views  *view.Templates
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, in io.Reader, out, errOut io.Writer) (*app, error) {
	database, err := db.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	views, err := view.LoadTemplates()
	if err != nil {
		database.Close()
		return nil, err
	}

	sess := session.New(&store.SessionStorage{DB: database}, logger)
	client, err := api.New(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithTokenSource(sess),
		api.WithLogger(logger),
		api.WithUnauthorizedHandler(func() {
			logger.Warn("session expired, logged out")
		}),
	)
	if err != nil {
		database.Close()
		return nil, err
	}
	sess.SetAuthenticator(client)

	if err := sess.Restore(ctx); err != nil {
		logger.Warn("restoring session", "error", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		db:     database,
		sess:   sess,
		client: client,
		views:  views,
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing local storage", "error", err)
	}
}

// command is one CLI command. auth and admin gate it on the session.
type command struct {
	name  string
	auth  bool
	admin bool
	run   func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "login", run: cmdLogin},
		{name: "logout", run: cmdLogout},
		{name: "whoami", run: cmdWhoAmI},
		{name: "customers", auth: true, run: cmdCustomers},
		{name: "items", auth: true, run: cmdItems},
		{name: "stock", auth: true, run: cmdStock},
		{name: "low-stock", auth: true, run: cmdLowStock},
		{name: "threshold", auth: true, run: cmdThreshold},
		{name: "sales", auth: true, run: cmdSales},
		{name: "users", auth: true, admin: true, run: cmdUsers},
		{name: "stats", auth: true, run: cmdStats},
		{name: "account", auth: true, run: cmdAccount},
		{name: "pay", auth: true, run: cmdPay},
		{name: "export", auth: true, run: cmdExport},
		{name: "chart", auth: true, run: cmdChart},
		{name: "watch", auth: true, run: cmdWatch},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *app) dispatch(ctx context.Context, c command, args []string) error {
	if c.auth && !a.sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	if c.admin && !a.sess.IsAdmin() {
		return errForbidden
	}
	return c.run(ctx, a, args)
}

func (a *app) render(name string, p view.Page) error {
	return a.views.Render(a.out, name, p)
}

// confirm asks a yes/no question on the terminal. Anything but "y" or "yes"
// declines.
func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// confirmer returns a Confirmer that skips the question when yes is set.
func (a *app) confirmer(yes bool) resource.Confirmer {
	return resource.ConfirmFunc(func(prompt string) bool {
		return yes || a.confirm(prompt)
	})
}

func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// listConfig applies the configured paging and timing to a list config.
func listConfig[T, In any](a *app, cfg resource.Config[T, In]) resource.Config[T, In] {
	cfg.PageSize = a.cfg.PageSize
	cfg.Debounce = a.cfg.Debounce
	cfg.Highlight = a.cfg.Highlight
	cfg.Logger = a.logger
	return cfg
}

func newFlagSet(a *app, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() { fmt.Fprint(a.out, usage) }
	return fs
}

func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid id", s)}
	}
	return id, nil
}

func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &model.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid amount", s)}
	}
	return d, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a date (YYYY-MM-DD)", s)}
	}
	return t, nil
}

// describe turns an error into the message shown to the user. Network and
// server failures get a generic message; the details go to the log.
func describe(err error) string {
	var (
		valErr   *model.ValidationError
		stockErr *sale.StockError
		apiErr   *api.Error
	)
	switch {
	case errors.Is(err, errUsage), errors.Is(err, errNotLoggedIn), errors.Is(err, errForbidden):
		return err.Error()
	case errors.Is(err, resource.ErrCancelled):
		return "cancelled"
	case errors.Is(err, api.ErrUnauthorized):
		return "session expired, please log in again"
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &stockErr):
		return stockErr.Error()
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		return "incorrect username or password"
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		return "not allowed"
	case errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, context.DeadlineExceeded):
		slog.Error("request timed out", "error", err)
		return "the server took too long to respond"
	}
	slog.Error("command failed", "error", err)
	return "something went wrong talking to the server, try again later"
}
