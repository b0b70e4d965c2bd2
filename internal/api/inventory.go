package api

import (
	"context"
	"net/http"

	"github.com/erazemk/blagajna/internal/model"
)

// LowStockItems fetches items below the backend's configured threshold.
func (c *Client) LowStockItems(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/items/low-stock"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LowStockThreshold fetches the configured threshold.
func (c *Client) LowStockThreshold(ctx context.Context) (int, error) {
	var t model.LowStockThreshold
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/config/low-stock-threshold"}, &t); err != nil {
		return 0, err
	}
	return t.Threshold, nil
}

// SetLowStockThreshold stores a new threshold. It must be at least 1.
func (c *Client) SetLowStockThreshold(ctx context.Context, threshold int) error {
	if err := model.ValidateThreshold(threshold); err != nil {
		return err
	}
	body := model.LowStockThreshold{Threshold: threshold}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/config/low-stock-threshold", body: body}, nil)
	return err
}

// CreateStockUpdate posts a signed stock delta.
func (c *Client) CreateStockUpdate(ctx context.Context, in model.StockUpdateInput) (*model.StockUpdate, error) {
	return c.StockUpdates().Create(ctx, in)
}
