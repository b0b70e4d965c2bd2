package api

import (
	"context"
	"net/http"

	"github.com/erazemk/blagajna/internal/model"
)

// MonthlyStats fetches sale count and income for the current month.
func (c *Client) MonthlyStats(ctx context.Context) (*model.MonthlyStats, error) {
	var s model.MonthlyStats
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/stats/monthly"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TopProducts fetches the best-selling products.
func (c *Client) TopProducts(ctx context.Context) ([]model.TopProduct, error) {
	var out []model.TopProduct
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/stats/top-products"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TopDebtors fetches the customers with the largest outstanding balance.
func (c *Client) TopDebtors(ctx context.Context) ([]model.TopDebtor, error) {
	var out []model.TopDebtor
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/stats/top-debtors"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
