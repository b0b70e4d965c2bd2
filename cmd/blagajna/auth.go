package main

import (
	"context"

	"github.com/erazemk/blagajna/internal/view"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login", `Usage: blagajna login [flags] <username>

Flags:
  -p, -password <pw>   password (default: read from stdin)
`)
	var password string
	fs.StringVar(&password, "password", "", "")
	fs.StringVar(&password, "p", "", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("blagajna login [-p password] <username>")
	}

	if password == "" {
		var err error
		if password, err = a.readLine("Password: "); err != nil {
			return err
		}
	}
	if err := a.sess.Login(ctx, fs.Arg(0), password); err != nil {
		return err
	}
	return a.render(view.WhoAmI, view.Page{Data: a.sess.User(), Notice: "Logged in."})
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sess.Logout(ctx); err != nil {
		return err
	}
	return a.render(view.WhoAmI, view.Page{Notice: "Logged out."})
}

func cmdWhoAmI(_ context.Context, a *app, _ []string) error {
	return a.render(view.WhoAmI, view.Page{Data: a.sess.User()})
}
