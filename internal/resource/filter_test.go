package resource

import (
	"testing"
	"time"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

func TestSaleQuery(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	sale := model.Sale{
		ID:          42,
		TotalAmount: decimal.RequireFromString("125.50"),
		CreatedAt:   day(10).Add(15 * time.Hour),
		Customer:    &model.Customer{Name: "Ana Novak"},
	}

	tests := []struct {
		name  string
		query SaleQuery
		want  bool
	}{
		{"empty", SaleQuery{}, true},
		{"id", SaleQuery{Text: "42"}, true},
		{"id prefix is not a match", SaleQuery{Text: "4"}, false},
		{"customer", SaleQuery{Text: "novak"}, true},
		{"amount", SaleQuery{Text: "125.5"}, true},
		{"no match", SaleQuery{Text: "zzz"}, false},
		{"within range", SaleQuery{From: day(9), To: day(10)}, true},
		{"before range", SaleQuery{From: day(11)}, false},
		{"after range", SaleQuery{To: day(9)}, false},
		{"range and text", SaleQuery{Text: "ana", From: day(1), To: day(31)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Match(sale); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterAndSort(t *testing.T) {
	items := []model.Item{
		{ID: 1, Name: "Nut", Stock: 5},
		{ID: 2, Name: "Bolt", Stock: 1},
		{ID: 3, Name: "Screw", Stock: 9},
	}

	low := Filter(items, func(it model.Item) bool { return it.Stock < 6 })
	if len(low) != 2 || low[0].ID != 1 || low[1].ID != 2 {
		t.Errorf("Filter = %+v", low)
	}

	byName := SortBy(items, func(it model.Item) string { return it.Name }, false)
	if byName[0].Name != "Bolt" || byName[2].Name != "Screw" {
		t.Errorf("SortBy name = %+v", byName)
	}
	byStock := SortBy(items, func(it model.Item) int { return it.Stock }, true)
	if byStock[0].ID != 3 || byStock[2].ID != 2 {
		t.Errorf("SortBy stock desc = %+v", byStock)
	}
	if items[0].ID != 1 {
		t.Error("SortBy modified its input")
	}
}
