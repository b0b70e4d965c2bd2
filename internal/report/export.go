package report

import (
	"fmt"
	"io"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetSummary     = "Summary"
	SheetCustomers   = "Customers"
	SheetItems       = "Items"
	SheetSales       = "Sales"
	SheetTopProducts = "Top products"
	SheetTopDebtors  = "Top debtors"
)

// WriteXLSX writes the dashboard as a workbook with one sheet per list.
func WriteXLSX(w io.Writer, d *Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SheetSummary, []any{"Metric", "Value"}, summaryRows(d)},
		{SheetCustomers, []any{"ID", "Name", "Email", "Phone", "Address"}, customerRows(d.Customers)},
		{SheetItems, []any{"ID", "Name", "Description", "Price", "Stock"}, itemRows(d.Items)},
		{SheetSales, []any{"ID", "Date", "Customer", "Lines", "Total", "Paid"}, saleRows(d.Sales)},
		{SheetTopProducts, []any{"ID", "Name", "Quantity", "Amount"}, topProductRows(d.TopProducts)},
		{SheetTopDebtors, []any{"ID", "Name", "Debt"}, topDebtorRows(d.TopDebtors)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("renaming first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", s.name, err)
		}

		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return fmt.Errorf("writing %s header: %w", s.name, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
		if err := f.SetCellStyle(s.name, "A1", last, bold); err != nil {
			return fmt.Errorf("styling %s header: %w", s.name, err)
		}
		for r, row := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", s.name, r+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func summaryRows(d *Dashboard) [][]any {
	return [][]any{
		{"Total sales", d.Summary.TotalSales},
		{"Total revenue", d.Summary.TotalRevenue.InexactFloat64()},
		{"Customers", d.Summary.TotalCustomers},
		{"Items", d.Summary.TotalItems},
		{"Sales this month", d.Monthly.TotalSales},
		{"Income this month", d.Monthly.TotalIncome.InexactFloat64()},
	}
}

func customerRows(cs []model.Customer) [][]any {
	rows := make([][]any, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []any{c.ID, c.Name, c.Email, c.Phone, c.Address})
	}
	return rows
}

func itemRows(items []model.Item) [][]any {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.ID, it.Name, it.Description, it.Price.InexactFloat64(), it.Stock})
	}
	return rows
}

func saleRows(sales []model.Sale) [][]any {
	rows := make([][]any, 0, len(sales))
	for _, s := range sales {
		customer := ""
		if s.Customer != nil {
			customer = s.Customer.Name
		}
		rows = append(rows, []any{s.ID, s.CreatedAt.Format("2006-01-02 15:04"), customer, len(s.Items), s.TotalAmount.InexactFloat64(), s.Paid})
	}
	return rows
}

func topProductRows(ps []model.TopProduct) [][]any {
	rows := make([][]any, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []any{p.ID, p.Name, p.TotalQuantity, p.TotalAmount.InexactFloat64()})
	}
	return rows
}

func topDebtorRows(ds []model.TopDebtor) [][]any {
	rows := make([][]any, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []any{d.ID, d.Name, d.TotalDebt.InexactFloat64()})
	}
	return rows
}
