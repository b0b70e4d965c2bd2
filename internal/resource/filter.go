package resource

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/blagajna/internal/model"
)

// Filter returns the records keep accepts, in order.
func Filter[T any](records []T, keep func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortBy returns a sorted copy of records ordered by key. The sort is stable.
func SortBy[T any, K cmp.Ordered](records []T, key func(T) K, desc bool) []T {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b T) int {
		if desc {
			return cmp.Compare(key(b), key(a))
		}
		return cmp.Compare(key(a), key(b))
	})
	return out
}

// SaleQuery filters already loaded sales the way the sales screen does:
// free text over id, customer name and amount, plus an optional date range.
// Zero From or To leaves that side open. To is inclusive of the whole day.
type SaleQuery struct {
	Text string
	From time.Time
	To   time.Time
}

// Match reports whether s passes the query.
func (q SaleQuery) Match(s model.Sale) bool {
	if !q.From.IsZero() && s.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !s.CreatedAt.Before(endOfDay(q.To)) {
		return false
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return true
	}
	if strconv.FormatInt(s.ID, 10) == text {
		return true
	}
	if s.Customer != nil && strings.Contains(strings.ToLower(s.Customer.Name), text) {
		return true
	}
	return strings.Contains(s.TotalAmount.StringFixed(2), text)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}
