package backendtest

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/erazemk/blagajna/internal/model"
)

// writeList pages records and optionally reports the pre-paging total.
func writeList[T any](s *Server, w http.ResponseWriter, r *http.Request, records []T) {
	if s.reportTotal {
		w.Header().Set("X-Total-Count", strconv.Itoa(len(records)))
	}
	jsonResponse(w, http.StatusOK, paginate(r, records))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func descending(r *http.Request) bool {
	return r.URL.Query().Get("sort_order") == "desc"
}

// Customers.

func (s *Server) findCustomer(id int64) *model.Customer {
	for i := range s.customers {
		if s.customers[i].ID == id {
			return &s.customers[i]
		}
	}
	return nil
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("search")
	out := []model.Customer{}
	for _, c := range s.customers {
		if q == "" || containsFold(c.Name, q) || containsFold(c.Email, q) || containsFold(c.Phone, q) {
			out = append(out, c)
		}
	}
	if r.URL.Query().Get("sort_by") == "name" {
		slices.SortStableFunc(out, func(a, b model.Customer) int { return strings.Compare(a.Name, b.Name) })
	}
	if descending(r) {
		slices.Reverse(out)
	}
	writeList(s, w, r, out)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	c := s.findCustomer(id)
	if c == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in model.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateCustomer(in, s.customers, 0); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now()
	c := model.Customer{ID: s.id(), Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, CreatedAt: &now}
	s.customers = append(s.customers, c)
	jsonResponse(w, http.StatusCreated, c)
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	c := s.findCustomer(id)
	if c == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}
	var in model.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateCustomer(in, s.customers, id); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now()
	c.Name, c.Email, c.Phone, c.Address, c.UpdatedAt = in.Name, in.Email, in.Phone, in.Address, &now
	jsonResponse(w, http.StatusOK, c)
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if s.findCustomer(id) == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}
	for _, sale := range s.sales {
		if sale.CustomerID == id {
			jsonError(w, http.StatusBadRequest, "Customer has sales")
			return
		}
	}
	s.customers = slices.DeleteFunc(s.customers, func(c model.Customer) bool { return c.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pendingSales(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if s.findCustomer(id) == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}
	out := []model.Sale{}
	for _, sale := range s.sales {
		if sale.CustomerID == id && !sale.Paid {
			out = append(out, s.expandSale(sale))
		}
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) customerPayments(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if s.findCustomer(id) == nil {
		jsonError(w, http.StatusNotFound, "Customer not found")
		return
	}
	out := []model.Payment{}
	for _, p := range s.payments {
		if p.CustomerID == id {
			out = append(out, p)
		}
	}
	jsonResponse(w, http.StatusOK, out)
}

// Items.

func (s *Server) findItem(id int64) *model.Item {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i]
		}
	}
	return nil
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("search")
	out := []model.Item{}
	for _, it := range s.items {
		if q == "" || containsFold(it.Name, q) || containsFold(it.Description, q) {
			out = append(out, it)
		}
	}
	switch r.URL.Query().Get("sort_by") {
	case "name":
		slices.SortStableFunc(out, func(a, b model.Item) int { return strings.Compare(a.Name, b.Name) })
	case "stock":
		slices.SortStableFunc(out, func(a, b model.Item) int { return a.Stock - b.Stock })
	case "price":
		slices.SortStableFunc(out, func(a, b model.Item) int { return a.Price.Cmp(b.Price) })
	}
	if descending(r) {
		slices.Reverse(out)
	}
	writeList(s, w, r, out)
}

func (s *Server) lowStock(w http.ResponseWriter, r *http.Request) {
	out := []model.Item{}
	for _, it := range s.items {
		if it.Stock < s.threshold {
			out = append(out, it)
		}
	}
	jsonResponse(w, http.StatusOK, out)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	it := s.findItem(id)
	if it == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	jsonResponse(w, http.StatusOK, it)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in model.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateItem(in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	now := s.now()
	it := model.Item{ID: s.id(), Name: in.Name, Description: in.Description, Price: in.Price, Stock: in.Stock, CreatedAt: &now}
	s.items = append(s.items, it)
	jsonResponse(w, http.StatusCreated, it)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	it := s.findItem(id)
	if it == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	var in model.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateItem(in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	now := s.now()
	it.Name, it.Description, it.Price, it.Stock, it.UpdatedAt = in.Name, in.Description, in.Price, in.Stock, &now
	jsonResponse(w, http.StatusOK, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	if s.findItem(id) == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	s.items = slices.DeleteFunc(s.items, func(it model.Item) bool { return it.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

// Stock updates.

func (s *Server) listStockUpdates(w http.ResponseWriter, r *http.Request) {
	out := make([]model.StockUpdate, 0, len(s.stockUpdates))
	for i := len(s.stockUpdates) - 1; i >= 0; i-- {
		u := s.stockUpdates[i]
		if it := s.findItem(u.ItemID); it != nil {
			cp := *it
			u.Item = &cp
		}
		out = append(out, u)
	}
	writeList(s, w, r, out)
}

func (s *Server) createStockUpdate(w http.ResponseWriter, r *http.Request) {
	var in model.StockUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateStockUpdate(in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	it := s.findItem(in.ItemID)
	if it == nil {
		jsonError(w, http.StatusNotFound, "Item not found")
		return
	}
	if it.Stock+in.Quantity < 0 {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("Stock of %s cannot go below zero", it.Name))
		return
	}
	it.Stock += in.Quantity

	now := s.now()
	u := model.StockUpdate{ID: s.id(), ItemID: in.ItemID, Quantity: in.Quantity, CreatedAt: &now}
	s.stockUpdates = append(s.stockUpdates, u)
	cp := *it
	u.Item = &cp
	jsonResponse(w, http.StatusCreated, u)
}

// Config.

func (s *Server) getThreshold(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, model.LowStockThreshold{Threshold: s.threshold})
}

func (s *Server) setThreshold(w http.ResponseWriter, r *http.Request) {
	var in model.LowStockThreshold
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateThreshold(in.Threshold); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.threshold = in.Threshold
	jsonResponse(w, http.StatusOK, in)
}
