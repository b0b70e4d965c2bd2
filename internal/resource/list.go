// Package resource implements the list-screen controller shared by customers,
// items, sales and users: paging, debounced search, validated writes, and
// re-fetch after every write.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/blagajna/internal/api"
)

// Defaults for Config fields left zero.
const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultHighlight = 3 * time.Second
)

var (
	// ErrCancelled is returned by Delete when the confirmer declines.
	ErrCancelled = errors.New("cancelled")
	// ErrSuperseded is returned by a Load whose result was discarded because
	// a newer fetch started after it.
	ErrSuperseded = errors.New("superseded by a newer fetch")
)

// Backend is the CRUD surface a list needs. api.Resource implements it.
type Backend[T, In any] interface {
	List(ctx context.Context, p api.ListParams) (api.Page[T], error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, in In) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Config wires a List to a backend and a record type.
type Config[T, In any] struct {
	Backend Backend[T, In]
	ID      func(T) int64
	// Validate checks a payload against the loaded records before any
	// request. selfID is 0 on create.
	Validate func(in In, loaded []T, selfID int64) error
	// Describe names a record in the delete confirmation prompt.
	Describe func(T) string

	PageSize  int
	Debounce  time.Duration
	Highlight time.Duration
	Logger    *slog.Logger
	// OnChange is called, without locks held, after every change to the
	// visible state, including ones caused by timers.
	OnChange func(Snapshot[T])
}

// Snapshot is the visible state of a list.
type Snapshot[T any] struct {
	Records     []T
	Page        int
	PageSize    int
	Total       int
	TotalExact  bool
	Search      string
	Highlighted int64 // ID of the highlighted record, or 0
	Err         error // last fetch error, cleared by a successful fetch
}

// List is a paged, searchable list of records.
type List[T, In any] struct {
	cfg Config[T, In]

	mu          sync.Mutex
	records     []T
	page        int
	total       int
	totalExact  bool
	search      string
	lastErr     error
	gen         uint64
	cancelFetch context.CancelFunc
	pinned      *T // created record kept at the head until a fetch contains it
	highlighted int64
	hlTimer     *time.Timer
	debTimer    *time.Timer
	closed      bool
}

// New creates a list on page 1 with an empty search.
func New[T, In any](cfg Config[T, In]) *List[T, In] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = api.DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Highlight <= 0 {
		cfg.Highlight = DefaultHighlight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &List[T, In]{cfg: cfg, page: 1}
}

// Load fetches the current page. If another fetch starts before this one
// returns, this one is cancelled and its result discarded.
func (l *List[T, In]) Load(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancelFetch != nil {
		l.cancelFetch()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancelFetch = cancel
	params := api.ListParams{Page: l.page, PageSize: l.cfg.PageSize, Search: l.search}
	l.mu.Unlock()
	defer cancel()

	page, err := l.cfg.Backend.List(ctx, params)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return ErrSuperseded
	}
	l.cancelFetch = nil
	if err != nil {
		l.lastErr = err
		snap := l.snapshotLocked()
		l.mu.Unlock()
		l.notify(snap)
		return fmt.Errorf("loading page %d: %w", params.Page, err)
	}
	l.applyLocked(page)
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.notify(snap)
	return nil
}

func (l *List[T, In]) applyLocked(page api.Page[T]) {
	l.lastErr = nil
	l.records = slices.Clone(page.Records)
	l.total, l.totalExact = page.Total, page.TotalExact

	if l.pinned == nil {
		return
	}
	pinnedID := l.cfg.ID(*l.pinned)
	if slices.ContainsFunc(l.records, func(r T) bool { return l.cfg.ID(r) == pinnedID }) {
		l.pinned = nil
		return
	}
	l.records = slices.Insert(l.records, 0, *l.pinned)
}

// Create validates in, posts it, shows the stored record at the head of the
// list with a highlight, and re-fetches.
func (l *List[T, In]) Create(ctx context.Context, in In) (*T, error) {
	if err := l.validate(in, 0); err != nil {
		return nil, err
	}

	created, err := l.cfg.Backend.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}
	id := l.cfg.ID(*created)

	l.mu.Lock()
	rec := *created
	l.pinned = &rec
	l.records = slices.Insert(slices.Clone(l.records), 0, rec)
	l.startHighlightLocked(id)
	snap := l.snapshotLocked()
	l.mu.Unlock()
	l.notify(snap)

	l.refetch(ctx, "create")
	return created, nil
}

// Update validates in, replaces record id with it, and re-fetches.
func (l *List[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	if err := l.validate(in, id); err != nil {
		return nil, err
	}

	updated, err := l.cfg.Backend.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("updating record %d: %w", id, err)
	}

	l.mu.Lock()
	if l.pinned != nil && l.cfg.ID(*l.pinned) == id {
		rec := *updated
		l.pinned = &rec
	}
	l.mu.Unlock()

	l.refetch(ctx, "update")
	return updated, nil
}

// Delete removes record id once confirm agrees. If the request fails the
// loaded records are left as they were.
func (l *List[T, In]) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	prompt := fmt.Sprintf("Delete record %d?", id)
	if l.cfg.Describe != nil {
		if rec, ok := l.find(id); ok {
			prompt = fmt.Sprintf("Delete %s?", l.cfg.Describe(rec))
		}
	}
	if confirm == nil || !confirm.Confirm(prompt) {
		return ErrCancelled
	}

	if err := l.cfg.Backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting record %d: %w", id, err)
	}

	l.mu.Lock()
	if l.pinned != nil && l.cfg.ID(*l.pinned) == id {
		l.pinned = nil
	}
	if l.highlighted == id {
		l.stopHighlightLocked()
	}
	l.mu.Unlock()

	l.refetch(ctx, "delete")
	return nil
}

// SetSearch resets to page 1 and reloads after the debounce delay. Only the
// last call of a burst reaches the backend. Results arrive through OnChange.
func (l *List[T, In]) SetSearch(ctx context.Context, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	if text != l.search || l.page != 1 {
		l.releasePinLocked()
	}
	l.search = text
	l.page = 1
	if l.debTimer != nil {
		l.debTimer.Stop()
	}
	l.debTimer = time.AfterFunc(l.cfg.Debounce, func() {
		if err := l.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			l.cfg.Logger.Warn("search failed", "search", text, "error", err)
		}
	})
}

// SetPage moves to page (1-based) and loads it.
func (l *List[T, In]) SetPage(ctx context.Context, page int) error {
	l.mu.Lock()
	if page = max(page, 1); page != l.page {
		l.releasePinLocked()
	}
	l.page = page
	l.mu.Unlock()
	return l.Load(ctx)
}

// Snapshot returns a copy of the visible state.
func (l *List[T, In]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Close stops pending timers and cancels any in-flight fetch.
func (l *List[T, In]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.debTimer != nil {
		l.debTimer.Stop()
	}
	if l.hlTimer != nil {
		l.hlTimer.Stop()
	}
	if l.cancelFetch != nil {
		l.cancelFetch()
	}
}

func (l *List[T, In]) validate(in In, selfID int64) error {
	if l.cfg.Validate == nil {
		return nil
	}
	l.mu.Lock()
	loaded := slices.Clone(l.records)
	l.mu.Unlock()
	return l.cfg.Validate(in, loaded, selfID)
}

func (l *List[T, In]) find(id int64) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if l.cfg.ID(r) == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// refetch reloads after a write. The write already succeeded, so a failed
// reload is logged and kept in Snapshot().Err rather than returned.
func (l *List[T, In]) refetch(ctx context.Context, op string) {
	if err := l.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		l.cfg.Logger.Warn("reloading list", "after", op, "error", err)
	}
}

func (l *List[T, In]) startHighlightLocked(id int64) {
	l.stopHighlightLocked()
	l.highlighted = id
	if l.closed {
		return
	}
	l.hlTimer = time.AfterFunc(l.cfg.Highlight, func() {
		l.mu.Lock()
		if l.highlighted != id {
			l.mu.Unlock()
			return
		}
		l.highlighted = 0
		snap := l.snapshotLocked()
		l.mu.Unlock()
		l.notify(snap)
	})
}

// releasePinLocked forgets the created record kept at the head. It belongs
// to the page and search it was created on.
func (l *List[T, In]) releasePinLocked() {
	if l.pinned == nil {
		return
	}
	if l.highlighted == l.cfg.ID(*l.pinned) {
		l.stopHighlightLocked()
	}
	l.pinned = nil
}

func (l *List[T, In]) stopHighlightLocked() {
	if l.hlTimer != nil {
		l.hlTimer.Stop()
		l.hlTimer = nil
	}
	l.highlighted = 0
}

func (l *List[T, In]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Records:     slices.Clone(l.records),
		Page:        l.page,
		PageSize:    l.cfg.PageSize,
		Total:       l.total,
		TotalExact:  l.totalExact,
		Search:      l.search,
		Highlighted: l.highlighted,
		Err:         l.lastErr,
	}
}

func (l *List[T, In]) notify(s Snapshot[T]) {
	if l.cfg.OnChange != nil {
		l.cfg.OnChange(s)
	}
}
