package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// Sale is a multi-line sale to a customer.
type Sale struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	Items       []SaleLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Paid        bool            `json:"paid"`
	CreatedAt   time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	Customer *Customer `json:"customer,omitempty"`
	Payments []Payment `json:"payments,omitempty"`
}

// SaleLine is one product line of a sale.
type SaleLine struct {
	ID        int64           `json:"id,omitempty"`
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`

	// Joined field (not always populated).
	Item *Item `json:"item,omitempty"`
}

// SaleInput is the create/update payload for a sale.
type SaleInput struct {
	CustomerID  int64           `json:"customer_id,omitempty"`
	Items       []SaleLineInput `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Paid        bool            `json:"paid"`
}

// SaleLineInput is one line of a sale payload.
type SaleLineInput struct {
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns quantity × unit price.
func (l SaleLineInput) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns the sum of line subtotals.
func SumLines(lines []SaleLineInput) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Payment is money received from a customer, optionally against one sale.
type Payment struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id,omitempty"`
	SaleID      *int64          `json:"sale_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	PaymentDate time.Time       `json:"payment_date"`
}

// PaymentInput is the payload for registering a payment.
type PaymentInput struct {
	CustomerID  int64           `json:"customer_id"`
	SaleID      *int64          `json:"sale_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// ValidatePayment checks a payment payload.
func ValidatePayment(in PaymentInput) error {
	if in.CustomerID <= 0 {
		return &ValidationError{Field: "customer_id", Message: "required"}
	}
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "must be positive"}
	}
	return nil
}
