package backendtest

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

func (s *Server) findSale(id int64) *model.Sale {
	for i := range s.sales {
		if s.sales[i].ID == id {
			return &s.sales[i]
		}
	}
	return nil
}

// expandSale fills in the joined customer, line items and payments.
func (s *Server) expandSale(sale model.Sale) model.Sale {
	if c := s.findCustomer(sale.CustomerID); c != nil {
		cp := *c
		sale.Customer = &cp
	}
	lines := make([]model.SaleLine, len(sale.Items))
	for i, l := range sale.Items {
		if it := s.findItem(l.ItemID); it != nil {
			cp := *it
			l.Item = &cp
		}
		lines[i] = l
	}
	sale.Items = lines
	sale.Payments = nil
	for _, p := range s.payments {
		if p.SaleID != nil && *p.SaleID == sale.ID {
			sale.Payments = append(sale.Payments, p)
		}
	}
	return sale
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("search")
	out := []model.Sale{}
	for i := len(s.sales) - 1; i >= 0; i-- {
		sale := s.expandSale(s.sales[i])
		if q != "" {
			name := ""
			if sale.Customer != nil {
				name = sale.Customer.Name
			}
			if !containsFold(name, q) && strconv.FormatInt(sale.ID, 10) != q {
				continue
			}
		}
		out = append(out, sale)
	}
	writeList(s, w, r, out)
}

func (s *Server) getSale(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	sale := s.findSale(id)
	if sale == nil {
		jsonError(w, http.StatusNotFound, "Sale not found")
		return
	}
	jsonResponse(w, http.StatusOK, s.expandSale(*sale))
}

// buildLines checks stock for in against the current stock plus credit (the
// quantities a sale being edited already holds) and prices the lines.
func (s *Server) buildLines(in model.SaleInput, credit map[int64]int) ([]model.SaleLine, decimal.Decimal, error) {
	if len(in.Items) == 0 {
		return nil, decimal.Zero, fmt.Errorf("Sale must have at least one item")
	}

	wanted := make(map[int64]int)
	for _, l := range in.Items {
		if l.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("Quantity must be positive")
		}
		wanted[l.ItemID] += l.Quantity
	}
	for id, q := range wanted {
		it := s.findItem(id)
		if it == nil {
			return nil, decimal.Zero, fmt.Errorf("Item %d not found", id)
		}
		if it.Stock+credit[id] < q {
			return nil, decimal.Zero, fmt.Errorf("Not enough stock for %s", it.Name)
		}
	}

	total := decimal.Zero
	lines := make([]model.SaleLine, len(in.Items))
	for i, l := range in.Items {
		price := l.UnitPrice
		if !price.IsPositive() {
			price = s.findItem(l.ItemID).Price
		}
		sub := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines[i] = model.SaleLine{ID: s.id(), ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: price, Subtotal: sub}
		total = total.Add(sub)
	}
	return lines, total, nil
}

func (s *Server) adjustStock(lines []model.SaleLine, sign int) {
	for _, l := range lines {
		if it := s.findItem(l.ItemID); it != nil {
			it.Stock += sign * l.Quantity
		}
	}
}

func (s *Server) createSale(w http.ResponseWriter, r *http.Request) {
	var in model.SaleInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if s.findCustomer(in.CustomerID) == nil {
		jsonError(w, http.StatusBadRequest, "Customer not found")
		return
	}
	lines, total, err := s.buildLines(in, nil)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.adjustStock(lines, -1)

	sale := model.Sale{ID: s.id(), CustomerID: in.CustomerID, Items: lines, TotalAmount: total, Paid: in.Paid, CreatedAt: s.now()}
	s.sales = append(s.sales, sale)
	jsonResponse(w, http.StatusCreated, s.expandSale(sale))
}

func (s *Server) updateSale(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	sale := s.findSale(id)
	if sale == nil {
		jsonError(w, http.StatusNotFound, "Sale not found")
		return
	}
	var in model.SaleInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if in.CustomerID == 0 {
		in.CustomerID = sale.CustomerID
	}
	if s.findCustomer(in.CustomerID) == nil {
		jsonError(w, http.StatusBadRequest, "Customer not found")
		return
	}

	credit := make(map[int64]int)
	for _, l := range sale.Items {
		credit[l.ItemID] += l.Quantity
	}
	lines, total, err := s.buildLines(in, credit)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.adjustStock(sale.Items, 1)
	s.adjustStock(lines, -1)

	sale.CustomerID, sale.Items, sale.TotalAmount, sale.Paid = in.CustomerID, lines, total, in.Paid
	jsonResponse(w, http.StatusOK, s.expandSale(*sale))
}

func (s *Server) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	sale := s.findSale(id)
	if sale == nil {
		jsonError(w, http.StatusNotFound, "Sale not found")
		return
	}
	s.adjustStock(sale.Items, 1)
	s.sales = slices.DeleteFunc(s.sales, func(x model.Sale) bool { return x.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

// Payments.

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	writeList(s, w, r, s.payments)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var in model.PaymentInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidatePayment(in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if s.findCustomer(in.CustomerID) == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}

	var sale *model.Sale
	if in.SaleID != nil {
		if sale = s.findSale(*in.SaleID); sale == nil || sale.CustomerID != in.CustomerID {
			jsonError(w, http.StatusBadRequest, "Sale does not belong to customer")
			return
		}
	}

	p := model.Payment{ID: s.id(), CustomerID: in.CustomerID, SaleID: in.SaleID, Amount: in.Amount, Description: in.Description, PaymentDate: s.now()}
	s.payments = append(s.payments, p)

	if sale != nil {
		paid := decimal.Zero
		for _, x := range s.payments {
			if x.SaleID != nil && *x.SaleID == sale.ID {
				paid = paid.Add(x.Amount)
			}
		}
		if paid.GreaterThanOrEqual(sale.TotalAmount) {
			sale.Paid = true
		}
	}
	jsonResponse(w, http.StatusCreated, p)
}

// Stats.

func (s *Server) monthlyStats(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-30 * 24 * time.Hour)
	stats := model.MonthlyStats{TotalIncome: decimal.Zero}
	for _, sale := range s.sales {
		if sale.CreatedAt.After(since) {
			stats.TotalSales++
			stats.TotalIncome = stats.TotalIncome.Add(sale.TotalAmount)
		}
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) topProducts(w http.ResponseWriter, r *http.Request) {
	byItem := make(map[int64]*model.TopProduct)
	for _, sale := range s.sales {
		for _, l := range sale.Items {
			tp, ok := byItem[l.ItemID]
			if !ok {
				tp = &model.TopProduct{ID: l.ItemID, TotalAmount: decimal.Zero}
				if it := s.findItem(l.ItemID); it != nil {
					tp.Name = it.Name
				}
				byItem[l.ItemID] = tp
			}
			tp.TotalQuantity += l.Quantity
			tp.TotalAmount = tp.TotalAmount.Add(l.Subtotal)
		}
	}

	out := make([]model.TopProduct, 0, len(byItem))
	for _, tp := range byItem {
		out = append(out, *tp)
	}
	slices.SortFunc(out, func(a, b model.TopProduct) int {
		return cmp.Or(b.TotalQuantity-a.TotalQuantity, cmp.Compare(a.ID, b.ID))
	})
	jsonResponse(w, http.StatusOK, out[:min(3, len(out))])
}

func (s *Server) topDebtors(w http.ResponseWriter, r *http.Request) {
	debt := make(map[int64]decimal.Decimal)
	for _, sale := range s.sales {
		if !sale.Paid {
			debt[sale.CustomerID] = debt[sale.CustomerID].Add(sale.TotalAmount)
		}
	}
	for _, p := range s.payments {
		if _, ok := debt[p.CustomerID]; ok && p.SaleID != nil {
			if sale := s.findSale(*p.SaleID); sale != nil && !sale.Paid {
				debt[p.CustomerID] = debt[p.CustomerID].Sub(p.Amount)
			}
		}
	}

	out := []model.TopDebtor{}
	for id, d := range debt {
		if !d.IsPositive() {
			continue
		}
		td := model.TopDebtor{ID: id, TotalDebt: d}
		if c := s.findCustomer(id); c != nil {
			td.Name = c.Name
		}
		out = append(out, td)
	}
	slices.SortFunc(out, func(a, b model.TopDebtor) int {
		return cmp.Or(b.TotalDebt.Cmp(a.TotalDebt), cmp.Compare(a.ID, b.ID))
	})
	jsonResponse(w, http.StatusOK, out[:min(5, len(out))])
}
