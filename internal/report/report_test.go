package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/erazemk/blagajna/internal/api"
	"github.com/erazemk/blagajna/internal/backendtest"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "$0.00"},
		{"12.5", "$12.50"},
		{"999.99", "$999.99"},
		{"1000", "$1.0K"},
		{"3400", "$3.4K"},
		{"999999", "$1000.0K"},
		{"1200000", "$1.2M"},
		{"-45.1", "-$45.10"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(dec(tt.in)); got != tt.want {
			t.Errorf("FormatCurrency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(
		[]model.Customer{{ID: 1}, {ID: 2}},
		[]model.Item{{ID: 1}, {ID: 2}, {ID: 3}},
		[]model.Sale{{TotalAmount: dec("10.10")}, {TotalAmount: dec("0.20")}},
	)
	if s.TotalCustomers != 2 || s.TotalItems != 3 || s.TotalSales != 2 || !s.TotalRevenue.Equal(dec("10.30")) {
		t.Errorf("unexpected summary %+v", s)
	}
}

type staticToken string

func (s staticToken) Token() string { return string(s) }
func (s staticToken) Expire() bool  { return false }

func loadDashboard(t *testing.T) *Dashboard {
	t.Helper()
	srv := backendtest.New(t)
	c, err := api.New(srv.URL, api.WithTokenSource(staticToken(srv.Token("admin"))))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ana := srv.SeedCustomer(model.CustomerInput{Name: "Ana", Email: "ana@example.com"})
	srv.SeedCustomer(model.CustomerInput{Name: "Bor"})
	widget := srv.SeedItem(model.ItemInput{Name: "Widget", Price: dec("9.99"), Stock: 10})
	srv.SeedItem(model.ItemInput{Name: "Gadget", Price: dec("25"), Stock: 1})
	if _, err := c.Sales().Create(ctx, model.SaleInput{
		CustomerID: ana.ID,
		Items:      []model.SaleLineInput{{ItemID: widget.ID, Quantity: 2, UnitPrice: dec("9.99")}},
	}); err != nil {
		t.Fatal(err)
	}

	svc := &Service{Stats: c, Customers: c.Customers(), Items: c.Items(), Sales: c.Sales()}
	d, err := svc.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestLoad(t *testing.T) {
	d := loadDashboard(t)

	if d.Summary.TotalCustomers != 2 || d.Summary.TotalItems != 2 || d.Summary.TotalSales != 1 {
		t.Errorf("unexpected summary %+v", d.Summary)
	}
	if !d.Summary.TotalRevenue.Equal(dec("19.98")) || !d.Monthly.TotalIncome.Equal(dec("19.98")) {
		t.Errorf("revenue %s, monthly income %s", d.Summary.TotalRevenue, d.Monthly.TotalIncome)
	}
	if len(d.TopProducts) != 1 || d.TopProducts[0].Name != "Widget" || d.TopProducts[0].TotalQuantity != 2 {
		t.Errorf("unexpected top products %+v", d.TopProducts)
	}
	if len(d.TopDebtors) != 1 || d.TopDebtors[0].Name != "Ana" {
		t.Errorf("unexpected top debtors %+v", d.TopDebtors)
	}
}

func TestWriteXLSX(t *testing.T) {
	d := loadDashboard(t)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, d); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reading workbook back: %v", err)
	}
	defer f.Close()

	want := []string{SheetSummary, SheetCustomers, SheetItems, SheetSales, SheetTopProducts, SheetTopDebtors}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}

	rows, err := f.GetRows(SheetItems)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][1] != "Name" || rows[1][1] != "Widget" || rows[1][4] != "8" {
		t.Errorf("items sheet = %v", rows)
	}

	rows, err = f.GetRows(SheetSales)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][2] != "Ana" || rows[1][4] != "19.98" {
		t.Errorf("sales sheet = %v", rows)
	}
}
