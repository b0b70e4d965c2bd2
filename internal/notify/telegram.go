// Package notify pushes low-stock alerts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/erazemk/blagajna/internal/model"
)

// Sender delivers a Telegram message. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// LowStockNotifier sends an alert whenever items newly drop below the
// low-stock threshold. An item that recovers and drops again alerts again.
type LowStockNotifier struct {
	sender Sender
	chatID int64
	logger *slog.Logger
	known  map[int64]bool
}

// NewTelegram connects to the bot API with token and alerts chatID.
func NewTelegram(token string, chatID int64, logger *slog.Logger) (*LowStockNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return NewLowStockNotifier(bot, chatID, logger), nil
}

// NewLowStockNotifier alerts chatID through sender.
func NewLowStockNotifier(sender Sender, chatID int64, logger *slog.Logger) *LowStockNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockNotifier{sender: sender, chatID: chatID, logger: logger, known: make(map[int64]bool)}
}

// Notify compares items, the current low-stock set, with the previous one
// and sends one message listing the items that are new to it.
func (n *LowStockNotifier) Notify(items []model.Item) error {
	var fresh []model.Item
	current := make(map[int64]bool, len(items))
	for _, it := range items {
		current[it.ID] = true
		if !n.known[it.ID] {
			fresh = append(fresh, it)
		}
	}
	if len(fresh) == 0 {
		n.known = current
		return nil
	}

	// On failure the previous set is kept, so the next update retries.
	msg := tgbotapi.NewMessage(n.chatID, FormatLowStock(fresh))
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("sending low-stock alert: %w", err)
	}
	n.known = current
	n.logger.Info("low-stock alert sent", "items", len(fresh))
	return nil
}

// Run alerts on every low-stock set received until ctx is done or updates
// is closed.
func (n *LowStockNotifier) Run(ctx context.Context, updates <-chan []model.Item) {
	for {
		select {
		case <-ctx.Done():
			return
		case items, ok := <-updates:
			if !ok {
				return
			}
			if err := n.Notify(items); err != nil {
				n.logger.Warn("low-stock alert failed", "error", err)
			}
		}
	}
}

// FormatLowStock renders the alert text.
func FormatLowStock(items []model.Item) string {
	var b strings.Builder
	b.WriteString("Low stock:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n- %s: %d left", it.Name, it.Stock)
	}
	return b.String()
}
