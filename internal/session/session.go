// Package session holds the authenticated session: bearer token, resolved
// user profile, and the local storage copy of both.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/blagajna/internal/api"
	"github.com/erazemk/blagajna/internal/auth"
	"github.com/erazemk/blagajna/internal/model"
)

// State is the session lifecycle state.
type State int

const (
	LoggedOut State = iota
	Refreshing
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged out"
	case Refreshing:
		return "refreshing"
	case LoggedIn:
		return "logged in"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event is published to subscribers on every state change.
type Event struct {
	State State
	User  *model.UserProfile
}

// Authenticator talks to the backend's auth endpoints.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	MeWithToken(ctx context.Context, token string) (*model.UserProfile, error)
}

// Storage persists the session between runs.
type Storage interface {
	LoadSession(ctx context.Context) (string, *model.UserProfile, error)
	SaveSession(ctx context.Context, token string, user *model.UserProfile) error
	ClearSession(ctx context.Context) error
}

// ErrNoAuthenticator is returned by Login and Restore before SetAuthenticator.
var ErrNoAuthenticator = errors.New("session has no authenticator")

// Store is the single source of truth for the session. It implements
// api.TokenSource.
type Store struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	auth    Authenticator
	state   State
	token   string
	user    *model.UserProfile
	epoch   uint64 // bumped on every logout so in-flight logins can tell they lost
	subs    map[int]chan Event
	nextSub int
}

// New creates a logged-out store backed by storage.
func New(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]chan Event),
	}
}

// SetAuthenticator sets the backend used by Login and Restore. The API client
// needs the store as its token source, so the two are joined after construction.
func (s *Store) SetAuthenticator(a Authenticator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = a
}

func (s *Store) authenticator() Authenticator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// Login exchanges credentials for a token and resolves the profile. A failed
// login leaves any existing session untouched. A token whose profile cannot
// be resolved is discarded.
func (s *Store) Login(ctx context.Context, username, password string) error {
	a := s.authenticator()
	if a == nil {
		return ErrNoAuthenticator
	}

	resp, err := a.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("logging in: backend returned no token")
	}

	epoch := s.begin()
	user := resp.User
	if user == nil {
		user, err = a.MeWithToken(ctx, resp.AccessToken)
		if err != nil {
			s.abort(epoch)
			return fmt.Errorf("fetching profile: %w", err)
		}
	}

	if !s.commit(epoch, resp.AccessToken, user) {
		return fmt.Errorf("logging in: session ended while resolving profile")
	}
	if err := s.storage.SaveSession(ctx, resp.AccessToken, user); err != nil {
		s.logger.Warn("persisting session", "error", err)
	}
	s.logger.Info("logged in", "username", user.Username, "admin", user.IsAdmin)
	return nil
}

// Restore loads the persisted session. An expired JWT is discarded without a
// request; a token with no cached profile is refreshed via /users/me.
func (s *Store) Restore(ctx context.Context) error {
	token, user, err := s.storage.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if token == "" {
		return nil
	}
	if auth.Expired(token, s.now()) {
		s.logger.Info("stored session expired")
		if err := s.storage.ClearSession(ctx); err != nil {
			return fmt.Errorf("clearing expired session: %w", err)
		}
		return nil
	}

	epoch := s.begin()
	if user == nil {
		a := s.authenticator()
		if a == nil {
			s.abort(epoch)
			return ErrNoAuthenticator
		}
		user, err = a.MeWithToken(ctx, token)
		if err != nil {
			s.abort(epoch)
			// Keep the stored token across network failures; only a
			// rejected token is gone for good.
			if errors.Is(err, api.ErrUnauthorized) {
				if clearErr := s.storage.ClearSession(ctx); clearErr != nil {
					s.logger.Warn("clearing session", "error", clearErr)
				}
			}
			return fmt.Errorf("refreshing profile: %w", err)
		}
		if err := s.storage.SaveSession(ctx, token, user); err != nil {
			s.logger.Warn("persisting session", "error", err)
		}
	}

	if !s.commit(epoch, token, user) {
		return fmt.Errorf("restoring session: session ended while resolving profile")
	}
	return nil
}

// Logout clears the session from memory and local storage. It makes no
// backend call.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()

	if err := s.storage.ClearSession(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Expire invalidates the session after the backend rejected it. It reports
// whether anything changed, so a burst of 401s is handled once.
func (s *Store) Expire() bool {
	s.mu.Lock()
	changed := s.clearLocked()
	s.mu.Unlock()
	if !changed {
		return false
	}

	if err := s.storage.ClearSession(context.Background()); err != nil {
		s.logger.Warn("clearing expired session", "error", err)
	}
	return true
}

// IsAuthenticated reports whether a token is held and its profile resolved.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == LoggedIn && s.token != "" && s.user != nil
}

// IsAdmin reports whether the resolved profile has the admin flag.
func (s *Store) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.IsAdmin
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns a copy of the resolved profile, or nil.
func (s *Store) User() *model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving every subsequent state change and a
// func that unsubscribes and closes it. A slow subscriber only misses
// intermediate events; it always ends up with the latest one.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 4)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// begin enters Refreshing and returns the epoch the caller must commit under.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
	s.setStateLocked(Refreshing)
	return s.epoch
}

// commit enters LoggedIn unless the session was cleared since begin.
func (s *Store) commit(epoch uint64, token string, user *model.UserProfile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state != Refreshing {
		return false
	}
	u := *user
	s.token, s.user = token, &u
	s.setStateLocked(LoggedIn)
	return true
}

// abort returns to LoggedOut if nothing else changed the session since begin.
func (s *Store) abort(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.clearLocked()
	}
}

func (s *Store) clearLocked() bool {
	if s.state == LoggedOut && s.token == "" && s.user == nil {
		return false
	}
	s.epoch++
	s.token, s.user = "", nil
	s.setStateLocked(LoggedOut)
	return true
}

func (s *Store) setStateLocked(state State) {
	s.state = state
	ev := Event{State: state}
	if s.user != nil {
		u := *s.user
		ev.User = &u
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Full: drop the oldest so the latest state always arrives.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
