// Package backendtest provides an in-memory stand-in for the POS backend API,
// for use in tests of packages that talk to it.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erazemk/blagajna/internal/auth"
	"github.com/erazemk/blagajna/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Secret signs the tokens the fake backend hands out.
const Secret = "backendtest-secret"

// Request is a request the server received.
type Request struct {
	Method string
	Path   string
}

type user struct {
	profile model.UserProfile
	hash    []byte
}

// Server is a fake backend. Its state is only touched under mu, so tests may
// seed and inspect it while clients are running.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	reportTotal  bool
	omitUser     bool
	now          func() time.Time
	nextID       int64
	users        map[string]*user
	customers    []model.Customer
	items        []model.Item
	sales        []model.Sale
	stockUpdates []model.StockUpdate
	payments     []model.Payment
	threshold    int
	revoked      bool
	failures     map[string]int
	requests     []Request
}

// New starts a fake backend with an admin ("admin"/"admin-pass") and a
// regular user ("clerk"/"clerk-pass"). It is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		now:       time.Now,
		users:     make(map[string]*user),
		threshold: model.DefaultLowStockThreshold,
		failures:  make(map[string]int),
	}
	s.AddUser("admin", "admin-pass", true)
	s.AddUser("clerk", "clerk-pass", false)

	s.Server = httptest.NewServer(s.recordRequests(s.routes()))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	authed := s.requireAuth
	admin := func(h http.HandlerFunc) http.Handler { return s.requireAuth(s.requireAdmin(h)) }

	mux.HandleFunc("POST /token", s.login)
	mux.Handle("GET /users/me", authed(http.HandlerFunc(s.me)))

	mux.Handle("GET /users/{$}", admin(s.listUsers))
	mux.Handle("POST /users/{$}", admin(s.createUser))
	mux.Handle("GET /users/{id}", admin(s.getUser))
	mux.Handle("PUT /users/{id}", admin(s.updateUser))
	mux.Handle("DELETE /users/{id}", admin(s.deleteUser))

	mux.Handle("GET /customers/{$}", authed(http.HandlerFunc(s.listCustomers)))
	mux.Handle("POST /customers/{$}", authed(http.HandlerFunc(s.createCustomer)))
	mux.Handle("GET /customers/{id}", authed(http.HandlerFunc(s.getCustomer)))
	mux.Handle("PUT /customers/{id}", authed(http.HandlerFunc(s.updateCustomer)))
	mux.Handle("DELETE /customers/{id}", authed(http.HandlerFunc(s.deleteCustomer)))
	mux.Handle("GET /customers/{id}/pending-sales/", authed(http.HandlerFunc(s.pendingSales)))
	mux.Handle("GET /customers/{id}/payments/", authed(http.HandlerFunc(s.customerPayments)))

	mux.Handle("GET /items/{$}", authed(http.HandlerFunc(s.listItems)))
	mux.Handle("POST /items/{$}", authed(http.HandlerFunc(s.createItem)))
	mux.Handle("GET /items/low-stock", authed(http.HandlerFunc(s.lowStock)))
	mux.Handle("GET /items/{id}", authed(http.HandlerFunc(s.getItem)))
	mux.Handle("PUT /items/{id}", authed(http.HandlerFunc(s.updateItem)))
	mux.Handle("DELETE /items/{id}", authed(http.HandlerFunc(s.deleteItem)))

	mux.Handle("GET /stock-updates/{$}", authed(http.HandlerFunc(s.listStockUpdates)))
	mux.Handle("POST /stock-updates/{$}", authed(http.HandlerFunc(s.createStockUpdate)))

	mux.Handle("GET /sales/{$}", authed(http.HandlerFunc(s.listSales)))
	mux.Handle("POST /sales/{$}", authed(http.HandlerFunc(s.createSale)))
	mux.Handle("GET /sales/{id}", authed(http.HandlerFunc(s.getSale)))
	mux.Handle("PUT /sales/{id}", authed(http.HandlerFunc(s.updateSale)))
	mux.Handle("DELETE /sales/{id}", authed(http.HandlerFunc(s.deleteSale)))

	mux.Handle("GET /payments/{$}", authed(http.HandlerFunc(s.listPayments)))
	mux.Handle("POST /payments/{$}", authed(http.HandlerFunc(s.createPayment)))

	mux.Handle("GET /stats/monthly", authed(http.HandlerFunc(s.monthlyStats)))
	mux.Handle("GET /stats/top-products", authed(http.HandlerFunc(s.topProducts)))
	mux.Handle("GET /stats/top-debtors", authed(http.HandlerFunc(s.topDebtors)))

	mux.Handle("GET /config/low-stock-threshold", authed(http.HandlerFunc(s.getThreshold)))
	mux.Handle("POST /config/low-stock-threshold", authed(http.HandlerFunc(s.setThreshold)))

	return mux
}

type ctxUser struct{}

// recordRequests logs every request, applies injected failures and
// serialises handlers so they can share state without finer locking.
func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path})
		if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
			jsonError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token, like the real backend's
// get_current_user dependency.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || s.revoked {
			jsonError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		claims, err := auth.ValidateToken(Secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		u, ok := s.users[claims.Subject]
		if !ok || !u.profile.IsActive {
			jsonError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r.Context()); u == nil || !u.profile.IsAdmin {
			jsonError(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser creates an active account.
func (s *Server) AddUser(username, password string, admin bool) model.UserProfile {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.UserProfile{ID: s.id(), Username: username, IsActive: true, IsAdmin: admin}
	s.users[username] = &user{profile: p, hash: hash}
	return p
}

// Token mints a valid token for username without going through /token.
func (s *Server) Token(username string) string {
	tok, err := auth.GenerateToken(Secret, username, auth.TokenExpiry)
	if err != nil {
		panic(err)
	}
	return tok
}

// ReportTotal makes list endpoints send an X-Total-Count header.
func (s *Server) ReportTotal(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportTotal = on
}

// OmitLoginUser leaves the user out of the POST /token response, so clients
// have to call /users/me.
func (s *Server) OmitLoginUser(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitUser = on
}

// RevokeTokens makes every authenticated endpoint answer 401, as if all
// sessions had expired server-side.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

// Fail makes method+path answer with status until cleared with status 0.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method+" "+path)
		return
	}
	s.failures[method+" "+path] = status
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path exactly.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// SeedCustomer stores a customer without going through the API.
func (s *Server) SeedCustomer(in model.CustomerInput) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c := model.Customer{ID: s.id(), Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, CreatedAt: &now}
	s.customers = append(s.customers, c)
	return c
}

// SeedItem stores an item without going through the API.
func (s *Server) SeedItem(in model.ItemInput) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	it := model.Item{ID: s.id(), Name: in.Name, Description: in.Description, Price: in.Price, Stock: in.Stock, CreatedAt: &now}
	s.items = append(s.items, it)
	return it
}

// SetStock overwrites an item's stock, simulating another terminal selling it.
func (s *Server) SetStock(itemID int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.findItem(itemID); it != nil {
		it.Stock = stock
	}
}

// Item returns the stored item.
func (s *Server) Item(itemID int64) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it := s.findItem(itemID); it != nil {
		return *it, true
	}
	return model.Item{}, false
}

// StockUpdates returns the stored stock-update history.
func (s *Server) StockUpdates() []model.StockUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StockUpdate(nil), s.stockUpdates...)
}

// Sales returns the stored sales.
func (s *Server) Sales() []model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Sale(nil), s.sales...)
}

// Threshold returns the configured low-stock threshold.
func (s *Server) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold
}
