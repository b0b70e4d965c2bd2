package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/erazemk/blagajna/internal/inventory"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/notify"
	"github.com/erazemk/blagajna/internal/poll"
	"github.com/erazemk/blagajna/internal/resource"
	"github.com/erazemk/blagajna/internal/session"
	"github.com/erazemk/blagajna/internal/view"
)

// lowStockPage is the data of the low-stock view.
type lowStockPage struct {
	Threshold int
	Items     []model.Item
}

func (a *app) inventory() *inventory.Service {
	return &inventory.Service{API: a.client, Logger: a.logger}
}

func cmdStock(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 && args[0] == "history" {
		fs := newFlagSet(a, "stock history", "Usage: blagajna stock history [-p page]\n")
		page, _ := listFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		cfg := resource.StockUpdateConfig(a.client.StockUpdates())
		return showList(ctx, a, cfg, *page, "", view.Stock, "Stock updates")
	}

	if len(args) != 2 {
		return usagef("blagajna stock <item-id> <delta> | blagajna stock history")
	}
	itemID, err := parseID("item_id", args[0])
	if err != nil {
		return err
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return &model.ValidationError{Field: "quantity", Message: fmt.Sprintf("%q is not a whole number", args[1])}
	}

	items := resource.New(listConfig(a, resource.ItemConfig(a.client.Items())))
	defer items.Close()
	history := resource.New(listConfig(a, resource.StockUpdateConfig(a.client.StockUpdates())))
	defer history.Close()

	svc := a.inventory()
	svc.Items = items
	svc.History = history
	if _, err := svc.SubmitStockUpdate(ctx, itemID, delta); err != nil {
		return err
	}
	if err := a.render(view.Items, view.Page{
		Title:  "Items",
		Notice: fmt.Sprintf("Stock of item #%d changed by %+d.", itemID, delta),
		Data:   items.Snapshot(),
	}); err != nil {
		return err
	}
	return a.render(view.Stock, view.Page{Title: "Stock updates", Data: history.Snapshot()})
}

func cmdLowStock(ctx context.Context, a *app, _ []string) error {
	svc := a.inventory()
	threshold, err := svc.Threshold(ctx)
	if err != nil {
		return err
	}
	items, _ := svc.FetchLowStock(ctx)
	return a.render(view.LowStock, view.Page{Title: "Low stock", Data: lowStockPage{Threshold: threshold, Items: items}})
}

func cmdThreshold(ctx context.Context, a *app, args []string) error {
	svc := a.inventory()
	switch len(args) {
	case 0:
		t, err := svc.Threshold(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Low-stock threshold: %d\n", t)
		return nil
	case 1:
		if !a.sess.IsAdmin() {
			return errForbidden
		}
		t, err := strconv.Atoi(args[0])
		if err != nil {
			return &model.ValidationError{Field: "threshold", Message: fmt.Sprintf("%q is not a whole number", args[0])}
		}
		if err := svc.SetThreshold(ctx, t); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Low-stock threshold set to %d.\n", t)
		return nil
	}
	return usagef("blagajna threshold [n]")
}

// cmdWatch polls the low-stock set, printing every change and forwarding it
// to Telegram when configured. It stops on interrupt or when the session ends.
func cmdWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "watch", `Usage: blagajna watch

Polls low stock every -interval and prints each result. Alerts go to Telegram
when TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are set.
`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := a.inventory()
	hub := poll.NewHub[[]model.Item]("low-stock", svc.FetchLowStock, a.cfg.PollInterval, a.logger)

	if a.cfg.TelegramEnabled() {
		notifier, err := notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.logger)
		if err != nil {
			return err
		}
		alerts, unsubscribe := hub.Subscribe()
		defer unsubscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			notifier.Run(ctx, alerts)
		}()
	}

	events, stopEvents := a.sess.Subscribe()
	defer stopEvents()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.State == session.LoggedOut {
					a.logger.Warn("session ended, stopping watch")
					cancel()
					return
				}
			}
		}
	}()

	updates, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("polling stopped", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if !a.sess.IsAuthenticated() {
				return errNotLoggedIn
			}
			return nil
		case items := <-updates:
			threshold, err := svc.Threshold(ctx)
			if err != nil {
				a.logger.Warn("fetching low-stock threshold", "error", err)
			}
			if err := a.render(view.LowStock, view.Page{Title: "Low stock", Data: lowStockPage{Threshold: threshold, Items: items}}); err != nil {
				return err
			}
		}
	}
}
