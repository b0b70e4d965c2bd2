package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/resource"
	"github.com/erazemk/blagajna/internal/view"
)

// subcommand splits off the first argument unless it is a flag.
func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func listFlags(fs *flag.FlagSet) (page *int, search *string) {
	page, search = new(int), new(string)
	fs.IntVar(page, "page", 1, "")
	fs.IntVar(page, "p", 1, "")
	fs.StringVar(search, "search", "", "")
	fs.StringVar(search, "q", "", "")
	return page, search
}

// showList loads one page of a list and renders it. A search goes through
// the list's debounced search and waits for its result.
func showList[T, In any](ctx context.Context, a *app, cfg resource.Config[T, In], page int, search, tmpl, title string) error {
	changes := make(chan resource.Snapshot[T], 1)
	cfg = listConfig(a, cfg)
	cfg.OnChange = func(s resource.Snapshot[T]) {
		select {
		case changes <- s:
		default:
		}
	}
	l := resource.New(cfg)
	defer l.Close()

	if search != "" {
		l.SetSearch(ctx, search)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-changes:
			if s.Err != nil {
				return s.Err
			}
		}
	}
	if search == "" || page > 1 {
		if err := l.SetPage(ctx, page); err != nil {
			return err
		}
	}
	return a.render(tmpl, view.Page{Title: title, Data: l.Snapshot()})
}

// createRecord loads the first page so validation can see it, creates the
// record, and renders the list with the new record highlighted.
func createRecord[T, In any](ctx context.Context, a *app, cfg resource.Config[T, In], in In, tmpl, title string) error {
	l := resource.New(listConfig(a, cfg))
	defer l.Close()

	if err := l.Load(ctx); err != nil {
		return err
	}
	rec, err := l.Create(ctx, in)
	if err != nil {
		return err
	}
	return a.render(tmpl, view.Page{
		Title:  title,
		Notice: fmt.Sprintf("Created #%d.", cfg.ID(*rec)),
		Data:   l.Snapshot(),
	})
}

func updateRecord[T, In any](ctx context.Context, a *app, cfg resource.Config[T, In], id int64, in In, tmpl, title string) error {
	l := resource.New(listConfig(a, cfg))
	defer l.Close()

	if err := l.Load(ctx); err != nil {
		return err
	}
	if _, err := l.Update(ctx, id, in); err != nil {
		return err
	}
	return a.render(tmpl, view.Page{Title: title, Notice: fmt.Sprintf("Updated #%d.", id), Data: l.Snapshot()})
}

func deleteRecord[T, In any](ctx context.Context, a *app, cfg resource.Config[T, In], args []string, tmpl, title string) error {
	fs := newFlagSet(a, "delete", "Usage: blagajna <resource> delete [-y] <id>\n")
	var yes bool
	fs.BoolVar(&yes, "yes", false, "")
	fs.BoolVar(&yes, "y", false, "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("blagajna <resource> delete [-y] <id>")
	}
	id, err := parseID("id", fs.Arg(0))
	if err != nil {
		return err
	}

	l := resource.New(listConfig(a, cfg))
	defer l.Close()
	if err := l.Load(ctx); err != nil {
		return err
	}
	if err := l.Delete(ctx, id, a.confirmer(yes)); err != nil {
		return err
	}
	return a.render(tmpl, view.Page{Title: title, Notice: fmt.Sprintf("Deleted #%d.", id), Data: l.Snapshot()})
}

// editTarget parses "<id> [flags]" and fetches the record being edited.
func editTarget[T any](ctx context.Context, args []string, get func(context.Context, int64) (*T, error)) (int64, *T, []string, error) {
	if len(args) == 0 {
		return 0, nil, nil, usagef("edit needs a record id")
	}
	id, err := parseID("id", args[0])
	if err != nil {
		return 0, nil, nil, err
	}
	rec, err := get(ctx, id)
	if err != nil {
		return 0, nil, nil, err
	}
	return id, rec, args[1:], nil
}

const customersUsage = `Usage: blagajna customers [list|add|edit|delete] [flags]

  list   [-p page] [-q search]
  add    -name <name> [-email e] [-phone p] [-address a]
  edit   <id> [-name n] [-email e] [-phone p] [-address a]
  delete [-y] <id>
`

func customerFlags(fs *flag.FlagSet, in *model.CustomerInput) {
	fs.StringVar(&in.Name, "name", in.Name, "")
	fs.StringVar(&in.Email, "email", in.Email, "")
	fs.StringVar(&in.Phone, "phone", in.Phone, "")
	fs.StringVar(&in.Address, "address", in.Address, "")
}

func cmdCustomers(ctx context.Context, a *app, args []string) error {
	const title = "Customers"
	cfg := resource.CustomerConfig(a.client.Customers())
	sub, args := subcommand(args, "list")
	fs := newFlagSet(a, "customers "+sub, customersUsage)

	switch sub {
	case "list":
		page, search := listFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return showList(ctx, a, cfg, *page, *search, view.Customers, title)

	case "add":
		var in model.CustomerInput
		customerFlags(fs, &in)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return createRecord(ctx, a, cfg, in, view.Customers, title)

	case "edit":
		id, c, rest, err := editTarget(ctx, args, a.client.Customers().Get)
		if err != nil {
			return err
		}
		in := model.CustomerInput{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
		customerFlags(fs, &in)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return updateRecord(ctx, a, cfg, id, in, view.Customers, title)

	case "delete":
		return deleteRecord(ctx, a, cfg, args, view.Customers, title)
	}
	fs.Usage()
	return usagef("unknown subcommand %q", sub)
}

const itemsUsage = `Usage: blagajna items [list|add|edit|delete] [flags]

  list   [-p page] [-q search]
  add    -name <name> -price <amount> [-stock n] [-desc text]
  edit   <id> [-name n] [-price amount] [-stock n] [-desc text]
  delete [-y] <id>
`

// priceFlag lets a decimal price be set from the command line.
type priceFlag struct{ in *model.ItemInput }

func (p priceFlag) String() string {
	if p.in == nil {
		return ""
	}
	return p.in.Price.String()
}

func (p priceFlag) Set(s string) error {
	d, err := parseMoney("price", s)
	if err != nil {
		return err
	}
	p.in.Price = d
	return nil
}

func itemFlags(fs *flag.FlagSet, in *model.ItemInput) {
	fs.StringVar(&in.Name, "name", in.Name, "")
	fs.StringVar(&in.Description, "desc", in.Description, "")
	fs.Var(priceFlag{in}, "price", "")
	fs.IntVar(&in.Stock, "stock", in.Stock, "")
}

func cmdItems(ctx context.Context, a *app, args []string) error {
	const title = "Items"
	cfg := resource.ItemConfig(a.client.Items())
	sub, args := subcommand(args, "list")
	fs := newFlagSet(a, "items "+sub, itemsUsage)

	switch sub {
	case "list":
		page, search := listFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return showList(ctx, a, cfg, *page, *search, view.Items, title)

	case "add":
		var in model.ItemInput
		itemFlags(fs, &in)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return createRecord(ctx, a, cfg, in, view.Items, title)

	case "edit":
		id, it, rest, err := editTarget(ctx, args, a.client.Items().Get)
		if err != nil {
			return err
		}
		in := model.ItemInput{Name: it.Name, Description: it.Description, Price: it.Price, Stock: it.Stock}
		itemFlags(fs, &in)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return updateRecord(ctx, a, cfg, id, in, view.Items, title)

	case "delete":
		return deleteRecord(ctx, a, cfg, args, view.Items, title)
	}
	fs.Usage()
	return usagef("unknown subcommand %q", sub)
}

const usersUsage = `Usage: blagajna users [list|add|edit|delete] [flags]

  list   [-p page]
  add    -username <name> -password <pw> [-email e] [-admin] [-active=false]
  edit   <id> [-username n] [-password pw] [-email e] [-admin=bool] [-active=bool]
  delete [-y] <id>
`

func userFlags(fs *flag.FlagSet, in *model.UserInput) {
	fs.StringVar(&in.Username, "username", in.Username, "")
	fs.StringVar(&in.Email, "email", in.Email, "")
	fs.StringVar(&in.Password, "password", in.Password, "")
	fs.BoolVar(&in.IsAdmin, "admin", in.IsAdmin, "")
	fs.BoolVar(&in.IsActive, "active", in.IsActive, "")
}

func cmdUsers(ctx context.Context, a *app, args []string) error {
	const title = "Users"
	cfg := resource.UserConfig(a.client.Users())
	sub, args := subcommand(args, "list")
	fs := newFlagSet(a, "users "+sub, usersUsage)

	switch sub {
	case "list":
		page, _ := listFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return showList(ctx, a, cfg, *page, "", view.Users, title)

	case "add":
		in := model.UserInput{IsActive: true}
		userFlags(fs, &in)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return createRecord(ctx, a, cfg, in, view.Users, title)

	case "edit":
		id, u, rest, err := editTarget(ctx, args, a.client.Users().Get)
		if err != nil {
			return err
		}
		in := model.UserInput{Username: u.Username, Email: u.Email, IsActive: u.IsActive, IsAdmin: u.IsAdmin}
		userFlags(fs, &in)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return updateRecord(ctx, a, cfg, id, in, view.Users, title)

	case "delete":
		return deleteRecord(ctx, a, cfg, args, view.Users, title)
	}
	fs.Usage()
	return usagef("unknown subcommand %q", sub)
}
