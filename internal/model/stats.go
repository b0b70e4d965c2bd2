package model

import "github.com/shopspring/decimal"

// MonthlyStats summarises sales of the last 30 days.
type MonthlyStats struct {
	TotalSales  int             `json:"total_sales"`
	TotalIncome decimal.Decimal `json:"total_income"`
}

// TopProduct is a best-selling product.
type TopProduct struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// TopDebtor is a customer with outstanding debt.
type TopDebtor struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	TotalDebt decimal.Decimal `json:"total_debt"`
}

// DashboardSummary holds the headline counters of the dashboard.
type DashboardSummary struct {
	TotalSales     int             `json:"total_sales"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCustomers int             `json:"total_customers"`
	TotalItems     int             `json:"total_items"`
}
