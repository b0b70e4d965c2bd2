package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a product with a unit price and a stock count. Stock changes only
// through StockUpdate deltas and sales; the client never writes it directly
// after creation.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// ItemInput is the create/update payload for an item.
type ItemInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ValidateItem checks an item payload.
func ValidateItem(in ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	if in.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "must not be negative"}
	}
	return nil
}

// StockUpdate is a signed delta applied to an item's stock.
type StockUpdate struct {
	ID        int64      `json:"id"`
	ItemID    int64      `json:"item_id"`
	Quantity  int        `json:"quantity"`
	CreatedAt *time.Time `json:"created_at,omitempty"`

	// Joined field (not always populated).
	Item *Item `json:"item,omitempty"`
}

// StockUpdateInput is the payload for a stock delta.
type StockUpdateInput struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// ValidateStockUpdate rejects empty deltas and missing items.
func ValidateStockUpdate(in StockUpdateInput) error {
	if in.ItemID <= 0 {
		return &ValidationError{Field: "item_id", Message: "required"}
	}
	if in.Quantity == 0 {
		return &ValidationError{Field: "quantity", Message: "must be non-zero"}
	}
	return nil
}

// LowStockThreshold is the stock level below which an item counts as low.
type LowStockThreshold struct {
	Threshold int `json:"threshold"`
}

// DefaultLowStockThreshold matches the backend default.
const DefaultLowStockThreshold = 3

// ValidateThreshold checks a low-stock threshold value.
func ValidateThreshold(t int) error {
	if t < 1 {
		return &ValidationError{Field: "threshold", Message: "must be at least 1"}
	}
	return nil
}
