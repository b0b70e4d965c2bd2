package main

import (
	"context"
	"fmt"
	"os"

	"github.com/erazemk/blagajna/internal/chart"
	"github.com/erazemk/blagajna/internal/report"
	"github.com/erazemk/blagajna/internal/view"
)

func (a *app) reports() *report.Service {
	return &report.Service{
		Stats:     a.client,
		Customers: a.client.Customers(),
		Items:     a.client.Items(),
		Sales:     a.client.Sales(),
	}
}

func cmdStats(ctx context.Context, a *app, _ []string) error {
	d, err := a.reports().Load(ctx)
	if err != nil {
		return err
	}
	return a.render(view.Dashboard, view.Page{Title: "Dashboard", Data: d})
}

// writeFile creates path and hands it to write, removing it if write fails.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("blagajna export <file.xlsx>")
	}
	d, err := a.reports().Load(ctx)
	if err != nil {
		return err
	}
	if err := writeFile(args[0], func(f *os.File) error { return report.WriteXLSX(f, d) }); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported dashboard to %s.\n", args[0])
	return nil
}

func cmdChart(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usagef("blagajna chart products|debtors <file.png>")
	}

	var (
		title string
		bars  []chart.Bar
	)
	switch args[0] {
	case "products":
		ps, err := a.client.TopProducts(ctx)
		if err != nil {
			return err
		}
		title, bars = "Top products by quantity", chart.TopProducts(ps)
	case "debtors":
		ds, err := a.client.TopDebtors(ctx)
		if err != nil {
			return err
		}
		title, bars = "Top debtors", chart.TopDebtors(ds)
	default:
		return usagef("unknown chart %q, want products or debtors", args[0])
	}

	if err := writeFile(args[1], func(f *os.File) error { return chart.WritePNG(f, title, bars) }); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s.\n", args[1])
	return nil
}
