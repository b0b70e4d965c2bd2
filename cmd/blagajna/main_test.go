package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/blagajna/internal/backendtest"
	"github.com/erazemk/blagajna/internal/config"
	"github.com/erazemk/blagajna/internal/model"
)

func setup(t *testing.T) *backendtest.Server {
	t.Helper()
	srv := backendtest.New(t)
	t.Setenv(config.EnvAPIURL, srv.URL)
	t.Setenv(config.EnvState, filepath.Join(t.TempDir(), "state.sqlite3"))
	t.Setenv(config.EnvDebounce, "10ms")
	return srv
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, out, errOut := runCLI(t, "", args...)
	if code != 0 {
		t.Fatalf("%v exited %d\nstdout:\n%s\nstderr:\n%s", args, code, out, errOut)
	}
	return out
}

func TestLoginWhoAmILogout(t *testing.T) {
	setup(t)

	out := mustRun(t, "login", "-p", "admin-pass", "admin")
	if !strings.Contains(out, "Logged in.") || !strings.Contains(out, "admin") {
		t.Errorf("login output:\n%s", out)
	}

	// A new process restores the session from local storage.
	out = mustRun(t, "whoami")
	if !strings.Contains(out, "Role:") || !strings.Contains(out, "admin") {
		t.Errorf("whoami output:\n%s", out)
	}

	mustRun(t, "logout")
	out = mustRun(t, "whoami")
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("whoami after logout:\n%s", out)
	}
}

func TestLoginPasswordFromStdin(t *testing.T) {
	setup(t)
	code, out, errOut := runCLI(t, "clerk-pass\n", "login", "clerk")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "clerk") {
		t.Errorf("output:\n%s", out)
	}
}

func TestBadCredentials(t *testing.T) {
	setup(t)
	code, _, errOut := runCLI(t, "", "login", "-p", "wrong", "admin")
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(errOut, "incorrect username or password") {
		t.Errorf("stderr:\n%s", errOut)
	}
}

func TestCommandsNeedSession(t *testing.T) {
	srv := setup(t)
	code, _, errOut := runCLI(t, "", "customers")
	if code != 1 || !strings.Contains(errOut, "not logged in") {
		t.Errorf("exit %d, stderr:\n%s", code, errOut)
	}
	if n := srv.Count(http.MethodGet, "/customers/"); n != 0 {
		t.Errorf("GET /customers/ sent %d times without a session", n)
	}
}

func TestUsersNeedAdmin(t *testing.T) {
	setup(t)
	mustRun(t, "login", "-p", "clerk-pass", "clerk")
	code, _, errOut := runCLI(t, "", "users")
	if code != 1 || !strings.Contains(errOut, "administrator") {
		t.Errorf("exit %d, stderr:\n%s", code, errOut)
	}
}

func TestExpiredSessionLogsOut(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "admin-pass", "admin")
	srv.RevokeTokens()

	code, _, errOut := runCLI(t, "", "customers")
	if code != 1 || !strings.Contains(errOut, "session expired") {
		t.Errorf("exit %d, stderr:\n%s", code, errOut)
	}
	out := mustRun(t, "whoami")
	if !strings.Contains(out, "Not logged in.") {
		t.Errorf("session survived a 401:\n%s", out)
	}
}

func TestCustomersAddListDelete(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "admin-pass", "admin")

	out := mustRun(t, "customers", "add", "-name", "Ana Novak", "-email", "ana@example.com")
	if !strings.Contains(out, "Created #") {
		t.Errorf("add output:\n%s", out)
	}
	var marked bool
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "*") && strings.Contains(line, "Ana Novak") {
			marked = true
		}
	}
	if !marked {
		t.Errorf("new customer not highlighted:\n%s", out)
	}

	// Duplicate emails are rejected before any request.
	posts := srv.Count(http.MethodPost, "/customers/")
	code, _, errOut := runCLI(t, "", "customers", "add", "-name", "Other", "-email", "ana@example.com")
	if code != 1 || !strings.Contains(errOut, "email") {
		t.Errorf("duplicate email: exit %d, stderr:\n%s", code, errOut)
	}
	if got := srv.Count(http.MethodPost, "/customers/"); got != posts {
		t.Errorf("POST /customers/ count = %d, want %d", got, posts)
	}

	out = mustRun(t, "customers", "list", "-q", "novak")
	if !strings.Contains(out, "Ana Novak") || !strings.Contains(out, "Search: novak") {
		t.Errorf("search output:\n%s", out)
	}

	c := srv.SeedCustomer(model.CustomerInput{Name: "Bor"})
	path := fmt.Sprintf("/customers/%d", c.ID)
	code, _, errOut = runCLI(t, "n\n", "customers", "delete", fmt.Sprint(c.ID))
	if code != 1 || !strings.Contains(errOut, "cancelled") {
		t.Errorf("declined delete: exit %d, stderr:\n%s", code, errOut)
	}
	if n := srv.Count(http.MethodDelete, path); n != 0 {
		t.Errorf("declined delete sent %d requests", n)
	}

	out = mustRun(t, "customers", "delete", "-y", fmt.Sprint(c.ID))
	if !strings.Contains(out, "Deleted #") || strings.Contains(out, "Bor") {
		t.Errorf("delete output:\n%s", out)
	}
}

func TestSaleNewClampsAndUpdatesStock(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "clerk-pass", "clerk")
	c := srv.SeedCustomer(model.CustomerInput{Name: "Ana"})
	it := srv.SeedItem(model.ItemInput{Name: "Kava", Price: decimal.RequireFromString("5.07"), Stock: 10})

	out := mustRun(t, "sales", "new", "-c", fmt.Sprint(c.ID), fmt.Sprintf("%d:4", it.ID))
	if !strings.Contains(out, "Total: 20.28") || !strings.Contains(out, "$20.28") {
		t.Errorf("sale output:\n%s", out)
	}
	if got, _ := srv.Item(it.ID); got.Stock != 6 {
		t.Errorf("stock = %d, want 6", got.Stock)
	}

	code, out, errOut := runCLI(t, "", "sales", "new", "-c", fmt.Sprint(c.ID), fmt.Sprintf("%d:20", it.ID))
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(errOut, "warning: only 6 of Kava available") {
		t.Errorf("missing clamp warning:\n%s", errOut)
	}
	if got, _ := srv.Item(it.ID); got.Stock != 0 {
		t.Errorf("stock = %d, want 0", got.Stock)
	}
	if !strings.Contains(out, "Sale #") {
		t.Errorf("output:\n%s", out)
	}
}

func TestStockAndLowStock(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "admin-pass", "admin")
	it := srv.SeedItem(model.ItemInput{Name: "Mleko", Price: decimal.NewFromInt(1), Stock: 10})

	out := mustRun(t, "stock", fmt.Sprint(it.ID), "-3")
	if !strings.Contains(out, "changed by -3") {
		t.Errorf("stock output:\n%s", out)
	}
	// The history list is reloaded and shown with the new update.
	if !strings.Contains(out, "== Stock updates ==") || !strings.Contains(out, "-3") {
		t.Errorf("stock history missing:\n%s", out)
	}
	if n := srv.Count(http.MethodGet, "/stock-updates/"); n != 1 {
		t.Errorf("GET /stock-updates/ sent %d times, want 1", n)
	}
	if got, _ := srv.Item(it.ID); got.Stock != 7 {
		t.Errorf("stock = %d, want 7", got.Stock)
	}

	mustRun(t, "threshold", "8")
	if srv.Threshold() != 8 {
		t.Errorf("threshold = %d, want 8", srv.Threshold())
	}
	out = mustRun(t, "low-stock")
	if !strings.Contains(out, "Mleko") {
		t.Errorf("low-stock output:\n%s", out)
	}

	code, _, errOut := runCLI(t, "", "threshold", "0")
	if code != 1 || !strings.Contains(errOut, "threshold") {
		t.Errorf("threshold 0: exit %d, stderr:\n%s", code, errOut)
	}
}

func TestPayAndAccount(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "admin-pass", "admin")
	c := srv.SeedCustomer(model.CustomerInput{Name: "Ana"})
	it := srv.SeedItem(model.ItemInput{Name: "Kava", Price: decimal.NewFromInt(10), Stock: 10})
	mustRun(t, "sales", "new", "-c", fmt.Sprint(c.ID), fmt.Sprintf("%d:3", it.ID))

	out := mustRun(t, "pay", fmt.Sprint(c.ID), "12.50", "-d", "cash")
	if !strings.Contains(out, "Payment #") || !strings.Contains(out, "$17.50") {
		t.Errorf("pay output:\n%s", out)
	}

	code, _, errOut := runCLI(t, "", "pay", fmt.Sprint(c.ID), "-5")
	if code != 1 || !strings.Contains(errOut, "amount") {
		t.Errorf("negative payment: exit %d, stderr:\n%s", code, errOut)
	}
}

func TestExportAndChart(t *testing.T) {
	srv := setup(t)
	mustRun(t, "login", "-p", "admin-pass", "admin")
	c := srv.SeedCustomer(model.CustomerInput{Name: "Ana"})
	it := srv.SeedItem(model.ItemInput{Name: "Kava", Price: decimal.NewFromInt(2), Stock: 10})
	mustRun(t, "sales", "new", "-c", fmt.Sprint(c.ID), fmt.Sprintf("%d:2", it.ID))

	dir := t.TempDir()
	mustRun(t, "export", filepath.Join(dir, "report.xlsx"))
	mustRun(t, "chart", "products", filepath.Join(dir, "products.png"))

	out := mustRun(t, "stats")
	if !strings.Contains(out, "Kava") || !strings.Contains(out, "$4.00") {
		t.Errorf("stats output:\n%s", out)
	}
}

func TestSetupLoggerRouting(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	t.Run("no file", func(t *testing.T) {
		var stderr bytes.Buffer
		logger, closeLog, err := setupLogger("", slog.LevelInfo, &stderr)
		if err != nil {
			t.Fatal(err)
		}
		defer closeLog()
		logger.Debug("hidden")
		logger.Warn("slow backend")
		logger.Error("request failed")
		out := stderr.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "slow backend") || !strings.Contains(out, "request failed") {
			t.Errorf("stderr:\n%s", out)
		}
	})

	t.Run("with file", func(t *testing.T) {
		var stderr bytes.Buffer
		path := filepath.Join(t.TempDir(), "blagajna.log")
		logger, closeLog, err := setupLogger(path, slog.LevelInfo, &stderr)
		if err != nil {
			t.Fatal(err)
		}
		logger.Warn("slow backend")
		logger.Error("request failed")
		closeLog()

		if out := stderr.String(); strings.Contains(out, "slow backend") || !strings.Contains(out, "request failed") {
			t.Errorf("stderr should only carry errors:\n%s", out)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if file := string(data); !strings.Contains(file, "slow backend") || !strings.Contains(file, "request failed") {
			t.Errorf("log file:\n%s", file)
		}
	})
}

func TestUnknownCommand(t *testing.T) {
	setup(t)
	code, out, errOut := runCLI(t, "", "frobnicate")
	if code != 1 || !strings.Contains(errOut, "unknown command") || !strings.Contains(out, "Usage:") {
		t.Errorf("exit %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
}
