// Package poll refreshes shared data on a timer and fans each result out to
// every interested screen, so N viewers cost one request per tick.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Interval bounds. Values outside are clamped.
const (
	MinInterval     = 5 * time.Second
	MaxInterval     = 30 * time.Second
	DefaultInterval = 30 * time.Second
)

// ClampInterval limits d to [MinInterval, MaxInterval]. Zero selects the default.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultInterval
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	}
	return d
}

// Fetcher loads the current value.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Hub polls one fetcher and publishes results to subscribers.
type Hub[T any] struct {
	name     string
	fetch    Fetcher[T]
	interval time.Duration
	logger   *slog.Logger
	refresh  chan struct{}

	mu        sync.Mutex
	subs      map[int]chan T
	nextSub   int
	latest    T
	hasLatest bool
	issued    uint64 // fetches started
	published uint64 // generation of latest
}

// NewHub creates a hub polling fetch every interval (clamped).
func NewHub[T any](name string, fetch Fetcher[T], interval time.Duration, logger *slog.Logger) *Hub[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub[T]{
		name:     name,
		fetch:    fetch,
		interval: ClampInterval(interval),
		logger:   logger.With("feed", name),
		refresh:  make(chan struct{}, 1),
		subs:     make(map[int]chan T),
	}
}

// Run fetches immediately and then on every tick or Refresh until ctx is
// done. It waits for in-flight fetches before returning.
func (h *Hub[T]) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.poll(ctx)
		}()
	}

	h.logger.Debug("polling started", "interval", h.interval)
	start()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("polling stopped")
			return ctx.Err()
		case <-ticker.C:
			start()
		case <-h.refresh:
			start()
		}
	}
}

// Refresh asks Run for an immediate fetch. Calls made while one is already
// pending are merged.
func (h *Hub[T]) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel of results and a func to unsubscribe. The
// latest result, if any, is delivered immediately. A subscriber that falls
// behind only ever sees the newest value.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan T, 1)
	if h.hasLatest {
		ch <- h.latest
	}
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Latest returns the most recently published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.hasLatest
}

func (h *Hub[T]) poll(ctx context.Context) {
	h.mu.Lock()
	h.issued++
	gen := h.issued
	h.mu.Unlock()

	v, err := h.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn("poll failed", "error", err)
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen < h.published {
		h.logger.Debug("dropping stale poll result", "generation", gen, "published", h.published)
		return
	}
	h.published = gen
	h.latest, h.hasLatest = v, true

	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
