// Package report builds the dashboard: headline counters over the full
// lists, backend statistics, and spreadsheet export.
package report

import (
	"context"
	"fmt"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

// StatsAPI serves the backend's aggregated statistics.
type StatsAPI interface {
	MonthlyStats(ctx context.Context) (*model.MonthlyStats, error)
	TopProducts(ctx context.Context) ([]model.TopProduct, error)
	TopDebtors(ctx context.Context) ([]model.TopDebtor, error)
}

// Lister fetches every record of a resource. api.Resource implements it.
type Lister[T any] interface {
	All(ctx context.Context) ([]T, error)
}

// Dashboard is everything the dashboard screen shows.
type Dashboard struct {
	Summary     model.DashboardSummary
	Monthly     model.MonthlyStats
	TopProducts []model.TopProduct
	TopDebtors  []model.TopDebtor

	// The lists the summary was computed from, kept for export.
	Customers []model.Customer
	Items     []model.Item
	Sales     []model.Sale
}

// Service loads dashboard data.
type Service struct {
	Stats     StatsAPI
	Customers Lister[model.Customer]
	Items     Lister[model.Item]
	Sales     Lister[model.Sale]
}

// Summarize counts records and sums sale totals.
func Summarize(customers []model.Customer, items []model.Item, sales []model.Sale) model.DashboardSummary {
	revenue := decimal.Zero
	for _, s := range sales {
		revenue = revenue.Add(s.TotalAmount)
	}
	return model.DashboardSummary{
		TotalSales:     len(sales),
		TotalRevenue:   revenue,
		TotalCustomers: len(customers),
		TotalItems:     len(items),
	}
}

// Load fetches the full lists and the backend statistics.
func (s *Service) Load(ctx context.Context) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Customers, err = s.Customers.All(ctx); err != nil {
		return nil, fmt.Errorf("fetching customers: %w", err)
	}
	if d.Items, err = s.Items.All(ctx); err != nil {
		return nil, fmt.Errorf("fetching items: %w", err)
	}
	if d.Sales, err = s.Sales.All(ctx); err != nil {
		return nil, fmt.Errorf("fetching sales: %w", err)
	}
	d.Summary = Summarize(d.Customers, d.Items, d.Sales)

	monthly, err := s.Stats.MonthlyStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching monthly stats: %w", err)
	}
	d.Monthly = *monthly
	if d.TopProducts, err = s.Stats.TopProducts(ctx); err != nil {
		return nil, fmt.Errorf("fetching top products: %w", err)
	}
	if d.TopDebtors, err = s.Stats.TopDebtors(ctx); err != nil {
		return nil, fmt.Errorf("fetching top debtors: %w", err)
	}
	return &d, nil
}

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

// FormatCurrency renders an amount compactly: $1.2M, $3.4K, $12.50.
func FormatCurrency(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	switch {
	case d.GreaterThanOrEqual(million):
		return sign + "$" + d.Div(million).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(thousand):
		return sign + "$" + d.Div(thousand).StringFixed(1) + "K"
	}
	return sign + "$" + d.StringFixed(2)
}
