// Package view renders screens as aligned plain text.
package view

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/erazemk/blagajna/internal/report"
	webembed "github.com/erazemk/blagajna/web"
	"github.com/shopspring/decimal"
)

// Page names.
const (
	WhoAmI    = "whoami.tmpl"
	Customers = "customers.tmpl"
	Items     = "items.tmpl"
	Users     = "users.tmpl"
	Sales     = "sales.tmpl"
	Sale      = "sale.tmpl"
	Stock     = "stock.tmpl"
	LowStock  = "lowstock.tmpl"
	Dashboard = "dashboard.tmpl"
	Statement = "statement.tmpl"
)

var pages = []string{WhoAmI, Customers, Items, Users, Sales, Sale, Stock, LowStock, Dashboard, Statement}

const dateLayout = "2006-01-02"

// Page is the data passed to every template. Data is page specific.
type Page struct {
	Title  string
	Notice string
	Data   any
}

// Templates holds parsed page templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return report.FormatCurrency(d) },
		"date":  formatDate,
		"period": func(from, to time.Time) string {
			if from.IsZero() && to.IsZero() {
				return "all time"
			}
			return formatDate(from) + " .. " + formatDate(to)
		},
		"yesno": func(b bool) string {
			if b {
				return "yes"
			}
			return "no"
		},
		"signed": func(n int) string {
			if n > 0 {
				return "+" + strconv.Itoa(n)
			}
			return strconv.Itoa(n)
		},
		"mark": func(highlighted, id int64) string {
			if highlighted != 0 && highlighted == id {
				return "*"
			}
			return " "
		},
		"pager": Pager,
	}
}

// Pager describes the 1-based page position, marking estimated totals
// with "~".
func Pager(page, pageSize, total int, exact bool) string {
	pages := 1
	if pageSize > 0 && total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	approx := ""
	if !exact {
		approx = "~"
	}
	return fmt.Sprintf("page %d/%s%d, %s%d records", max(page, 1), approx, pages, approx, total)
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format(dateLayout)
	case *time.Time:
		if t == nil {
			return "-"
		}
		return formatDate(*t)
	default:
		return fmt.Sprint(v)
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	return parse(webembed.TemplatesFS())
}

func parse(tfs fs.FS) (*Templates, error) {
	layout, err := fs.ReadFile(tfs, "layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		body, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}
		tmpl, err := template.New(page).Funcs(FuncMap()).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		ts.templates[page] = tmpl
	}
	return ts, nil
}

// Render writes a page to w with tab separated columns aligned.
func (ts *Templates) Render(w io.Writer, name string, p Page) error {
	tmpl, ok := ts.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := tmpl.ExecuteTemplate(tw, "layout", p); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return tw.Flush()
}
