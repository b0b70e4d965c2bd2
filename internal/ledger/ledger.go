// Package ledger tracks customer accounts receivable: unpaid sales, payments
// received, and the balance between them. Balances are always derived, never
// stored.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

// API is the part of the backend client the ledger needs.
type API interface {
	PendingSales(ctx context.Context, customerID int64) ([]model.Sale, error)
	CustomerPayments(ctx context.Context, customerID int64) ([]model.Payment, error)
	CreatePayment(ctx context.Context, in model.PaymentInput) (*model.Payment, error)
}

// Balance is what the customer still owes: the pending sale totals minus the
// payments that count against them. Payments tied to a sale that is no
// longer pending are already settled and do not count. A negative balance is
// credit in the customer's favour.
func Balance(pending []model.Sale, payments []model.Payment) decimal.Decimal {
	open := make(map[int64]bool, len(pending))
	owed := decimal.Zero
	for _, s := range pending {
		open[s.ID] = true
		owed = owed.Add(s.TotalAmount)
	}
	for _, p := range payments {
		if p.SaleID == nil || open[*p.SaleID] {
			owed = owed.Sub(p.Amount)
		}
	}
	return owed
}

// Range is an optional date range. Zero bounds are open; To covers its
// whole day.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls in the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() {
		y, m, d := r.To.Date()
		end := time.Date(y, m, d, 0, 0, 0, 0, r.To.Location()).AddDate(0, 0, 1)
		if !t.Before(end) {
			return false
		}
	}
	return true
}

// Statement is a customer's account over a date range.
type Statement struct {
	CustomerID int64
	Range      Range
	// Sales and Payments are those inside Range.
	Sales    []model.Sale
	Payments []model.Payment
	// TotalDebt sums the unpaid sales inside Range.
	TotalDebt decimal.Decimal
	// Balance covers the whole account regardless of Range.
	Balance decimal.Decimal
}

// Service reads and writes customer accounts.
type Service struct {
	API API
}

// Statement fetches the customer's unpaid sales and payments and restricts
// them to r.
func (s *Service) Statement(ctx context.Context, customerID int64, r Range) (*Statement, error) {
	pending, err := s.API.PendingSales(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetching pending sales of customer %d: %w", customerID, err)
	}
	payments, err := s.API.CustomerPayments(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetching payments of customer %d: %w", customerID, err)
	}

	st := &Statement{
		CustomerID: customerID,
		Range:      r,
		TotalDebt:  decimal.Zero,
		Balance:    Balance(pending, payments),
	}
	for _, sale := range pending {
		if !sale.Paid && r.Contains(sale.CreatedAt) {
			st.Sales = append(st.Sales, sale)
			st.TotalDebt = st.TotalDebt.Add(sale.TotalAmount)
		}
	}
	for _, p := range payments {
		if r.Contains(p.PaymentDate) {
			st.Payments = append(st.Payments, p)
		}
	}
	return st, nil
}

// Pay registers a payment. Invalid payments never reach the backend.
func (s *Service) Pay(ctx context.Context, in model.PaymentInput) (*model.Payment, error) {
	if err := model.ValidatePayment(in); err != nil {
		return nil, err
	}
	p, err := s.API.CreatePayment(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("registering payment: %w", err)
	}
	return p, nil
}
