// Package inventory covers stock: signed stock updates, the low-stock set,
// and its configurable threshold.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/resource"
)

// API is the part of the backend client inventory needs.
type API interface {
	CreateStockUpdate(ctx context.Context, in model.StockUpdateInput) (*model.StockUpdate, error)
	LowStockItems(ctx context.Context) ([]model.Item, error)
	LowStockThreshold(ctx context.Context) (int, error)
	SetLowStockThreshold(ctx context.Context, threshold int) error
}

// Service applies stock changes and keeps the item and history lists in
// step with them. Either list may be nil.
type Service struct {
	API     API
	Items   *resource.List[model.Item, model.ItemInput]
	History *resource.List[model.StockUpdate, model.StockUpdateInput]
	Logger  *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// SubmitStockUpdate applies delta to an item's stock and re-fetches the item
// list and the stock-update history. A zero delta never reaches the backend.
func (s *Service) SubmitStockUpdate(ctx context.Context, itemID int64, delta int) (*model.StockUpdate, error) {
	in := model.StockUpdateInput{ItemID: itemID, Quantity: delta}
	if err := model.ValidateStockUpdate(in); err != nil {
		return nil, err
	}

	u, err := s.API.CreateStockUpdate(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("updating stock of item %d: %w", itemID, err)
	}
	s.logger().Info("stock updated", "item_id", itemID, "delta", delta)

	if s.Items != nil {
		s.reload(ctx, "items", s.Items.Load)
	}
	if s.History != nil {
		s.reload(ctx, "stock history", s.History.Load)
	}
	return u, nil
}

func (s *Service) reload(ctx context.Context, what string, load func(context.Context) error) {
	if err := load(ctx); err != nil && !errors.Is(err, resource.ErrSuperseded) {
		s.logger().Warn("reloading after stock update", "list", what, "error", err)
	}
}

// LowStock returns the items whose stock is strictly below threshold.
func LowStock(items []model.Item, threshold int) []model.Item {
	return resource.Filter(items, func(it model.Item) bool { return it.Stock < threshold })
}

// FetchLowStock asks the backend for the low-stock set. Failures degrade to
// an empty list; the alert feed is advisory and must not break its screen.
func (s *Service) FetchLowStock(ctx context.Context) ([]model.Item, error) {
	items, err := s.API.LowStockItems(ctx)
	if err != nil {
		s.logger().Warn("fetching low-stock items", "error", err)
		return []model.Item{}, nil
	}
	return items, nil
}

// Threshold returns the configured low-stock threshold.
func (s *Service) Threshold(ctx context.Context) (int, error) {
	t, err := s.API.LowStockThreshold(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching low-stock threshold: %w", err)
	}
	return t, nil
}

// SetThreshold stores a new threshold. It takes effect on the next fetch of
// the low-stock set.
func (s *Service) SetThreshold(ctx context.Context, threshold int) error {
	if err := model.ValidateThreshold(threshold); err != nil {
		return err
	}
	if err := s.API.SetLowStockThreshold(ctx, threshold); err != nil {
		return fmt.Errorf("setting low-stock threshold: %w", err)
	}
	s.logger().Info("low-stock threshold changed", "threshold", threshold)
	return nil
}
