// Package sale composes multi-line sales: product selection, quantity
// clamping against available stock, totals, and submission with a final
// stock re-check.
package sale

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

// ItemGetter fetches the current state of one item.
type ItemGetter interface {
	Get(ctx context.Context, id int64) (*model.Item, error)
}

// SaleWriter stores sales.
type SaleWriter interface {
	Create(ctx context.Context, in model.SaleInput) (*model.Sale, error)
	Update(ctx context.Context, id int64, in model.SaleInput) (*model.Sale, error)
}

// Line is one product line being composed.
type Line struct {
	ItemID      int64
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	MaxQuantity int
}

// Subtotal returns quantity × unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Warning reports a quantity that was clamped to the available stock. It is
// advisory: the clamped value has already been applied.
type Warning struct {
	Item      string
	Requested int
	Available int
}

func (w *Warning) Error() string {
	return fmt.Sprintf("only %d of %s available, quantity set to %d (requested %d)", w.Available, w.Item, w.Available, w.Requested)
}

// StockError is returned by Submit when the final re-check finds less stock
// than the sale needs.
type StockError struct {
	ItemID    int64
	Item      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.Item, e.Requested, e.Available)
}

// Composer builds a sale. It is not safe for concurrent use.
type Composer struct {
	items  ItemGetter
	sales  SaleWriter
	logger *slog.Logger

	saleID     int64 // 0 while composing a new sale
	customerID int64
	paid       bool
	lines      []Line
	committed  map[int64]int // quantity per item already held by the sale being edited
}

// New creates an empty composer for a new sale.
func New(items ItemGetter, sales SaleWriter, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{items: items, sales: sales, logger: logger, committed: map[int64]int{}}
}

// Edit loads an existing sale. Each line's ceiling is the item's current
// stock plus the quantity this sale already holds.
func (c *Composer) Edit(s model.Sale) {
	c.saleID = s.ID
	c.customerID = s.CustomerID
	c.paid = s.Paid
	c.lines = nil
	c.committed = make(map[int64]int)

	for _, l := range s.Items {
		c.committed[l.ItemID] += l.Quantity
	}
	for _, l := range s.Items {
		line := Line{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, MaxQuantity: c.committed[l.ItemID]}
		if l.Item != nil {
			line.Name = l.Item.Name
			line.MaxQuantity += l.Item.Stock
		}
		c.lines = append(c.lines, line)
	}
}

// Editing reports whether the composer holds an existing sale.
func (c *Composer) Editing() bool { return c.saleID != 0 }

// SetCustomer selects the buyer.
func (c *Composer) SetCustomer(id int64) { c.customerID = id }

// SetPaid marks the sale as paid up front.
func (c *Composer) SetPaid(paid bool) { c.paid = paid }

// AddLine appends an empty line with quantity 1 and returns its index.
func (c *Composer) AddLine() int {
	c.lines = append(c.lines, Line{Quantity: 1})
	return len(c.lines) - 1
}

// RemoveLine drops line i.
func (c *Composer) RemoveLine(i int) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// Lines returns a copy of the lines.
func (c *Composer) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// SelectProduct puts item on line i, taking its name and price. The ceiling
// becomes the item's stock, plus what this sale already holds when editing.
// A quantity above the new ceiling is clamped and reported.
func (c *Composer) SelectProduct(i int, item model.Item) (*Warning, error) {
	if err := c.checkIndex(i); err != nil {
		return nil, err
	}
	ceiling := item.Stock + c.committed[item.ID]
	if ceiling < 1 {
		return nil, &model.ValidationError{Field: "item", Message: item.Name + " is out of stock"}
	}

	l := &c.lines[i]
	l.ItemID, l.Name, l.UnitPrice, l.MaxQuantity = item.ID, item.Name, item.Price, ceiling
	if l.Quantity > ceiling {
		w := &Warning{Item: item.Name, Requested: l.Quantity, Available: ceiling}
		l.Quantity = ceiling
		return w, nil
	}
	if l.Quantity < 1 {
		l.Quantity = 1
	}
	return nil, nil
}

// SetQuantity sets line i's quantity, clamped to [1, MaxQuantity]. Values
// above the ceiling return a Warning; values of zero or less become 1.
func (c *Composer) SetQuantity(i, q int) (*Warning, error) {
	if err := c.checkIndex(i); err != nil {
		return nil, err
	}
	l := &c.lines[i]
	if l.ItemID == 0 {
		return nil, &model.ValidationError{Field: "item", Message: fmt.Sprintf("line %d: select a product first", i+1)}
	}

	switch {
	case q <= 0:
		l.Quantity = 1
	case q > l.MaxQuantity:
		l.Quantity = l.MaxQuantity
		return &Warning{Item: l.Name, Requested: q, Available: l.MaxQuantity}, nil
	default:
		l.Quantity = q
	}
	return nil, nil
}

// Total is the sum of line subtotals.
func (c *Composer) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Validate checks the sale can be submitted.
func (c *Composer) Validate() error {
	if !c.Editing() && c.customerID == 0 {
		return &model.ValidationError{Field: "customer_id", Message: "select a customer"}
	}
	if len(c.lines) == 0 {
		return &model.ValidationError{Field: "items", Message: "add at least one product"}
	}
	for i, l := range c.lines {
		if l.ItemID == 0 {
			return &model.ValidationError{Field: "items", Message: fmt.Sprintf("line %d: select a product", i+1)}
		}
		if l.Quantity < 1 || l.Quantity > l.MaxQuantity {
			return &model.ValidationError{Field: "items", Message: fmt.Sprintf("line %d: quantity must be between 1 and %d", i+1, l.MaxQuantity)}
		}
	}
	return nil
}

// Input builds the payload for the backend.
func (c *Composer) Input() model.SaleInput {
	in := model.SaleInput{CustomerID: c.customerID, Paid: c.paid}
	for _, l := range c.lines {
		in.Items = append(in.Items, model.SaleLineInput{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	in.TotalAmount = model.SumLines(in.Items)
	return in
}

// Submit validates, re-reads each item's stock, and stores the sale. The
// re-check is best effort; the backend still rejects oversells. The returned
// sale is the backend's version and its total is authoritative.
func (c *Composer) Submit(ctx context.Context) (*model.Sale, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.recheckStock(ctx); err != nil {
		return nil, err
	}

	in := c.Input()
	var (
		saved *model.Sale
		err   error
	)
	if c.Editing() {
		saved, err = c.sales.Update(ctx, c.saleID, in)
	} else {
		saved, err = c.sales.Create(ctx, in)
	}
	if err != nil {
		return nil, fmt.Errorf("saving sale: %w", err)
	}

	if !saved.TotalAmount.Equal(in.TotalAmount) {
		c.logger.Warn("backend total differs from composed total",
			"sale_id", saved.ID, "composed", in.TotalAmount.StringFixed(2), "stored", saved.TotalAmount.StringFixed(2))
	}
	c.logger.Info("sale saved", "sale_id", saved.ID, "lines", len(saved.Items), "total", saved.TotalAmount.StringFixed(2))
	return saved, nil
}

// recheckStock fetches every item once and compares the summed quantity per
// item with its stock plus what this sale already holds.
func (c *Composer) recheckStock(ctx context.Context) error {
	wanted := make(map[int64]int)
	var order []int64
	for _, l := range c.lines {
		if _, seen := wanted[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		wanted[l.ItemID] += l.Quantity
	}

	for _, id := range order {
		item, err := c.items.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("checking stock of item %d: %w", id, err)
		}
		available := item.Stock + c.committed[id]
		for i := range c.lines {
			if c.lines[i].ItemID == id {
				c.lines[i].MaxQuantity = available
			}
		}
		if wanted[id] > available {
			return &StockError{ItemID: id, Item: item.Name, Requested: wanted[id], Available: available}
		}
	}
	return nil
}

func (c *Composer) checkIndex(i int) error {
	if i < 0 || i >= len(c.lines) {
		return fmt.Errorf("line %d does not exist", i+1)
	}
	return nil
}
