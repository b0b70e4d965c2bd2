package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/blagajna/internal/model"
)

// PendingSales fetches a customer's unpaid sales.
func (c *Client) PendingSales(ctx context.Context, customerID int64) ([]model.Sale, error) {
	var out []model.Sale
	path := fmt.Sprintf("/customers/%d/pending-sales/", customerID)
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CustomerPayments fetches a customer's payment history.
func (c *Client) CustomerPayments(ctx context.Context, customerID int64) ([]model.Payment, error) {
	var out []model.Payment
	path := fmt.Sprintf("/customers/%d/payments/", customerID)
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePayment registers a payment from a customer.
func (c *Client) CreatePayment(ctx context.Context, in model.PaymentInput) (*model.Payment, error) {
	if err := model.ValidatePayment(in); err != nil {
		return nil, err
	}
	return c.Payments().Create(ctx, in)
}
