package inventory

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/erazemk/blagajna/internal/api"
	"github.com/erazemk/blagajna/internal/backendtest"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/resource"
	"github.com/shopspring/decimal"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }
func (s staticToken) Expire() bool  { return false }

func setup(t *testing.T) (*backendtest.Server, *Service) {
	t.Helper()
	srv := backendtest.New(t)
	c, err := api.New(srv.URL, api.WithTokenSource(staticToken(srv.Token("admin"))))
	if err != nil {
		t.Fatal(err)
	}
	items := resource.New(resource.ItemConfig(c.Items()))
	history := resource.New(resource.StockUpdateConfig(c.StockUpdates()))
	t.Cleanup(items.Close)
	t.Cleanup(history.Close)
	return srv, &Service{API: c, Items: items, History: history}
}

func TestSubmitStockUpdate(t *testing.T) {
	srv, svc := setup(t)
	widget := srv.SeedItem(model.ItemInput{Name: "Widget", Price: decimal.RequireFromString("9.99"), Stock: 10})
	ctx := context.Background()

	u, err := svc.SubmitStockUpdate(ctx, widget.ID, -3)
	if err != nil {
		t.Fatal(err)
	}
	if u.Quantity != -3 || u.ItemID != widget.ID {
		t.Errorf("unexpected update %+v", u)
	}

	items := svc.Items.Snapshot().Records
	if len(items) != 1 || items[0].Stock != 7 {
		t.Errorf("item list after update = %+v", items)
	}
	history := svc.History.Snapshot().Records
	if len(history) != 1 || history[0].Quantity != -3 || history[0].ItemID != widget.ID {
		t.Errorf("history after update = %+v", history)
	}
	if got, _ := srv.Item(widget.ID); got.Stock != 7 {
		t.Errorf("backend stock = %d, want 7", got.Stock)
	}
}

func TestSubmitStockUpdateZeroDelta(t *testing.T) {
	srv, svc := setup(t)
	widget := srv.SeedItem(model.ItemInput{Name: "Widget", Stock: 10})

	_, err := svc.SubmitStockUpdate(context.Background(), widget.ID, 0)
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(srv.Requests()) != 0 {
		t.Errorf("zero delta reached the backend: %v", srv.Requests())
	}
}

func TestSubmitStockUpdateBelowZero(t *testing.T) {
	srv, svc := setup(t)
	widget := srv.SeedItem(model.ItemInput{Name: "Widget", Stock: 2})

	_, err := svc.SubmitStockUpdate(context.Background(), widget.ID, -5)
	if api.StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if n := srv.Count(http.MethodGet, "/items/"); n != 0 {
		t.Error("failed update should not re-fetch")
	}
}

func TestLowStockMatchesBackend(t *testing.T) {
	srv, svc := setup(t)
	for i, stock := range []int{0, 2, 3, 5, 10} {
		srv.SeedItem(model.ItemInput{Name: string(rune('A' + i)), Stock: stock})
	}
	ctx := context.Background()
	if err := svc.Items.Load(ctx); err != nil {
		t.Fatal(err)
	}
	all := svc.Items.Snapshot().Records

	for _, threshold := range []int{1, 3, 6, 11} {
		if err := svc.SetThreshold(ctx, threshold); err != nil {
			t.Fatal(err)
		}
		got, err := svc.FetchLowStock(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := LowStock(all, threshold)
		if len(got) != len(want) {
			t.Fatalf("threshold %d: backend %d items, oracle %d", threshold, len(got), len(want))
		}
		for i := range got {
			if got[i].ID != want[i].ID {
				t.Errorf("threshold %d: item %d = %d, want %d", threshold, i, got[i].ID, want[i].ID)
			}
			if got[i].Stock >= threshold {
				t.Errorf("threshold %d: item with stock %d reported low", threshold, got[i].Stock)
			}
		}
	}
}

func TestCreatedItemJoinsLowStockOnlyBelowThreshold(t *testing.T) {
	for _, threshold := range []int{5, 10, 11} {
		_, svc := setup(t)
		ctx := context.Background()
		if err := svc.SetThreshold(ctx, threshold); err != nil {
			t.Fatal(err)
		}
		created, err := svc.Items.Create(ctx, model.ItemInput{Name: "Widget", Price: decimal.RequireFromString("9.99"), Stock: 10})
		if err != nil {
			t.Fatal(err)
		}

		low, _ := svc.FetchLowStock(ctx)
		joined := len(low) == 1 && low[0].ID == created.ID
		if want := 10 < threshold; joined != want {
			t.Errorf("threshold %d: in low-stock = %v, want %v", threshold, joined, want)
		}
	}
}

func TestFetchLowStockDegrades(t *testing.T) {
	srv, svc := setup(t)
	srv.SeedItem(model.ItemInput{Name: "Widget", Stock: 0})
	srv.Fail(http.MethodGet, "/items/low-stock", http.StatusInternalServerError)

	items, err := svc.FetchLowStock(context.Background())
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil list, got %v", items)
	}
}

func TestSetThresholdRejectsZero(t *testing.T) {
	srv, svc := setup(t)
	if err := svc.SetThreshold(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
	if srv.Threshold() != model.DefaultLowStockThreshold {
		t.Error("threshold changed")
	}
}
