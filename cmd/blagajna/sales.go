package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/blagajna/internal/ledger"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/resource"
	"github.com/erazemk/blagajna/internal/sale"
	"github.com/erazemk/blagajna/internal/view"
)

const salesUsage = `Usage: blagajna sales [list|show|new|edit|delete] [flags]

  list   [-p page] [-q search] [-from YYYY-MM-DD] [-to YYYY-MM-DD]
  show   <id>
  new    -c <customer-id> [-paid] <item-id>[:qty] ...
  edit   <id> [-paid=bool] <item-id>[:qty] ...   (qty 0 removes the item)
  delete [-y] <id>
`

// lineArg is one "<item-id>[:qty]" argument.
type lineArg struct {
	itemID   int64
	quantity int
}

func parseLineArgs(args []string) ([]lineArg, error) {
	lines := make([]lineArg, 0, len(args))
	for _, arg := range args {
		idPart, qtyPart, hasQty := strings.Cut(arg, ":")
		id, err := parseID("item_id", idPart)
		if err != nil {
			return nil, err
		}
		qty := 1
		if hasQty {
			if qty, err = strconv.Atoi(qtyPart); err != nil || qty < 0 {
				return nil, &model.ValidationError{Field: "quantity", Message: fmt.Sprintf("%q is not a valid quantity", qtyPart)}
			}
		}
		lines = append(lines, lineArg{itemID: id, quantity: qty})
	}
	return lines, nil
}

func cmdSales(ctx context.Context, a *app, args []string) error {
	sub, args := subcommand(args, "list")
	fs := newFlagSet(a, "sales "+sub, salesUsage)

	switch sub {
	case "list":
		page, search := listFlags(fs)
		var from, to string
		fs.StringVar(&from, "from", "", "")
		fs.StringVar(&to, "to", "", "")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if from == "" && to == "" {
			return showList(ctx, a, resource.SaleConfig(a.client.Sales()), *page, *search, view.Sales, "Sales")
		}
		q := resource.SaleQuery{Text: *search}
		var err error
		if q.From, err = parseDate("from", from); err != nil {
			return err
		}
		if q.To, err = parseDate("to", to); err != nil {
			return err
		}
		return showFilteredSales(ctx, a, q, *page)

	case "show":
		if len(args) != 1 {
			return usagef("blagajna sales show <id>")
		}
		id, err := parseID("id", args[0])
		if err != nil {
			return err
		}
		s, err := a.client.Sales().Get(ctx, id)
		if err != nil {
			return err
		}
		return a.render(view.Sale, view.Page{Data: s})

	case "new":
		var customer string
		var paid bool
		fs.StringVar(&customer, "customer", "", "")
		fs.StringVar(&customer, "c", "", "")
		fs.BoolVar(&paid, "paid", false, "")
		if err := fs.Parse(args); err != nil {
			return err
		}
		c := sale.New(a.client.Items(), a.client.Sales(), a.logger)
		if customer != "" {
			id, err := parseID("customer_id", customer)
			if err != nil {
				return err
			}
			c.SetCustomer(id)
		}
		c.SetPaid(paid)
		return composeSale(ctx, a, c, fs.Args())

	case "edit":
		if len(args) == 0 {
			return usagef("blagajna sales edit <id> [-paid=bool] <item-id>[:qty] ...")
		}
		id, err := parseID("id", args[0])
		if err != nil {
			return err
		}
		existing, err := a.client.Sales().Get(ctx, id)
		if err != nil {
			return err
		}
		paid := existing.Paid
		fs.BoolVar(&paid, "paid", paid, "")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		c := sale.New(a.client.Items(), a.client.Sales(), a.logger)
		c.Edit(*existing)
		c.SetPaid(paid)
		return composeSale(ctx, a, c, fs.Args())

	case "delete":
		return deleteRecord(ctx, a, resource.SaleConfig(a.client.Sales()), args, view.Sales, "Sales")
	}
	fs.Usage()
	return usagef("unknown subcommand %q", sub)
}

// showFilteredSales filters every sale locally by text and date range,
// newest first.
func showFilteredSales(ctx context.Context, a *app, q resource.SaleQuery, page int) error {
	all, err := a.client.Sales().All(ctx)
	if err != nil {
		return err
	}
	matched := resource.SortBy(resource.Filter(all, q.Match), func(s model.Sale) int64 { return s.CreatedAt.UnixNano() }, true)

	page = max(page, 1)
	start := min((page-1)*a.cfg.PageSize, len(matched))
	end := min(start+a.cfg.PageSize, len(matched))
	return a.render(view.Sales, view.Page{Title: "Sales", Data: resource.Snapshot[model.Sale]{
		Records:    matched[start:end],
		Page:       page,
		PageSize:   a.cfg.PageSize,
		Total:      len(matched),
		TotalExact: true,
		Search:     q.Text,
	}})
}

// composeSale applies line arguments to c and submits it. Clamped
// quantities are reported as warnings and do not stop the sale.
func composeSale(ctx context.Context, a *app, c *sale.Composer, args []string) error {
	lines, err := parseLineArgs(args)
	if err != nil {
		return err
	}

	for _, la := range lines {
		i := lineIndex(c, la.itemID)
		if la.quantity == 0 {
			if i >= 0 {
				if err := c.RemoveLine(i); err != nil {
					return err
				}
			}
			continue
		}
		if i < 0 {
			item, err := a.client.Items().Get(ctx, la.itemID)
			if err != nil {
				return err
			}
			i = c.AddLine()
			if _, err := c.SelectProduct(i, *item); err != nil {
				return err
			}
		}
		w, err := c.SetQuantity(i, la.quantity)
		if err != nil {
			return err
		}
		if w != nil {
			fmt.Fprintf(a.errOut, "warning: %s\n", w)
		}
	}

	fmt.Fprintf(a.out, "Total: %s\n", c.Total().StringFixed(2))
	saved, err := c.Submit(ctx)
	if err != nil {
		return err
	}
	notice := fmt.Sprintf("Sale #%d saved.", saved.ID)
	if c.Editing() {
		notice = fmt.Sprintf("Sale #%d updated.", saved.ID)
	}
	return a.render(view.Sale, view.Page{Data: saved, Notice: notice})
}

func lineIndex(c *sale.Composer, itemID int64) int {
	for i, l := range c.Lines() {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func cmdAccount(ctx context.Context, a *app, args []string) error {
	const usage = "blagajna account <customer-id> [-from YYYY-MM-DD] [-to YYYY-MM-DD]"
	if len(args) == 0 {
		return usagef(usage)
	}
	id, err := parseID("customer_id", args[0])
	if err != nil {
		return err
	}

	fs := newFlagSet(a, "account", "Usage: "+usage+"\n")
	var from, to string
	fs.StringVar(&from, "from", "", "")
	fs.StringVar(&to, "to", "", "")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	var r ledger.Range
	if r.From, err = parseDate("from", from); err != nil {
		return err
	}
	if r.To, err = parseDate("to", to); err != nil {
		return err
	}

	svc := &ledger.Service{API: a.client}
	st, err := svc.Statement(ctx, id, r)
	if err != nil {
		return err
	}
	return a.render(view.Statement, view.Page{Title: "Account", Data: st})
}

func cmdPay(ctx context.Context, a *app, args []string) error {
	const usage = "blagajna pay <customer-id> <amount> [-sale id] [-d description]"
	if len(args) < 2 {
		return usagef(usage)
	}
	customerID, err := parseID("customer_id", args[0])
	if err != nil {
		return err
	}
	amount, err := parseMoney("amount", args[1])
	if err != nil {
		return err
	}

	fs := newFlagSet(a, "pay", "Usage: "+usage+"\n")
	var saleID, desc string
	fs.StringVar(&saleID, "sale", "", "")
	fs.StringVar(&desc, "description", "", "")
	fs.StringVar(&desc, "d", "", "")
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	in := model.PaymentInput{CustomerID: customerID, Amount: amount, Description: desc}
	if saleID != "" {
		id, err := parseID("sale_id", saleID)
		if err != nil {
			return err
		}
		in.SaleID = &id
	}

	svc := &ledger.Service{API: a.client}
	p, err := svc.Pay(ctx, in)
	if err != nil {
		return err
	}
	st, err := svc.Statement(ctx, customerID, ledger.Range{})
	if err != nil {
		return err
	}
	return a.render(view.Statement, view.Page{
		Title:  "Account",
		Notice: fmt.Sprintf("Payment #%d of %s registered.", p.ID, p.Amount.StringFixed(2)),
		Data:   st,
	})
}
