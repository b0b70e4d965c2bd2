package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/erazemk/blagajna/internal/api"
	"github.com/erazemk/blagajna/internal/auth"
	"github.com/erazemk/blagajna/internal/backendtest"
	"github.com/erazemk/blagajna/internal/db"
	"github.com/erazemk/blagajna/internal/model"
	"github.com/erazemk/blagajna/internal/store"
)

type fixture struct {
	srv      *backendtest.Server
	storage  *store.SessionStorage
	sess     *Store
	client   *api.Client
	navigate int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		srv:     backendtest.New(t),
		storage: &store.SessionStorage{DB: db.NewTestDB(t)},
	}
	f.sess = New(f.storage, nil)

	client, err := api.New(f.srv.URL,
		api.WithTokenSource(f.sess),
		api.WithUnauthorizedHandler(func() { f.navigate++ }),
	)
	if err != nil {
		t.Fatal(err)
	}
	f.client = client
	f.sess.SetAuthenticator(client)
	return f
}

func TestLoginAdminAndClerk(t *testing.T) {
	tests := []struct {
		username, password string
		admin              bool
	}{
		{"admin", "admin-pass", true},
		{"clerk", "clerk-pass", false},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()

			if err := f.sess.Login(ctx, tt.username, tt.password); err != nil {
				t.Fatalf("Login: %v", err)
			}
			if !f.sess.IsAuthenticated() {
				t.Error("expected authenticated")
			}
			if f.sess.IsAdmin() != tt.admin {
				t.Errorf("IsAdmin = %v, want %v", f.sess.IsAdmin(), tt.admin)
			}

			token, user, err := f.storage.LoadSession(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if token == "" || user == nil || user.Username != tt.username {
				t.Errorf("persisted session = %q, %+v", token, user)
			}
		})
	}
}

func TestLoginBadCredentialsStoresNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.sess.Login(ctx, "admin", "nope")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Detail != "Incorrect username or password" {
		t.Fatalf("expected backend detail, got %v", err)
	}
	if f.sess.Token() != "" || f.sess.State() != LoggedOut {
		t.Errorf("bad login changed session: token=%q state=%v", f.sess.Token(), f.sess.State())
	}
	if token, _, _ := f.storage.LoadSession(ctx); token != "" {
		t.Errorf("bad login persisted token %q", token)
	}
	if f.navigate != 0 {
		t.Error("bad login must not trigger the unauthorized handler")
	}
}

func TestLoginFetchesProfileWhenNotInline(t *testing.T) {
	f := setup(t)
	f.srv.OmitLoginUser(true)

	if err := f.sess.Login(context.Background(), "clerk", "clerk-pass"); err != nil {
		t.Fatal(err)
	}
	if n := f.srv.Count(http.MethodGet, "/users/me"); n != 1 {
		t.Errorf("expected 1 /users/me call, got %d", n)
	}
	if u := f.sess.User(); u == nil || u.Username != "clerk" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestLoginProfileFailureLeavesLoggedOut(t *testing.T) {
	f := setup(t)
	f.srv.OmitLoginUser(true)
	f.srv.Fail(http.MethodGet, "/users/me", http.StatusInternalServerError)
	ctx := context.Background()

	if err := f.sess.Login(ctx, "clerk", "clerk-pass"); err == nil {
		t.Fatal("expected error")
	}
	if f.sess.IsAuthenticated() || f.sess.Token() != "" || f.sess.State() != LoggedOut {
		t.Errorf("session should be logged out, state=%v", f.sess.State())
	}
	if token, _, _ := f.storage.LoadSession(ctx); token != "" {
		t.Error("token without profile was persisted")
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("cached profile", func(t *testing.T) {
		f := setup(t)
		f.storage.SaveSession(ctx, f.srv.Token("admin"), &model.UserProfile{ID: 1, Username: "admin", IsAdmin: true})

		if err := f.sess.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if !f.sess.IsAuthenticated() || !f.sess.IsAdmin() {
			t.Error("expected restored admin session")
		}
		if len(f.srv.Requests()) != 0 {
			t.Errorf("restore with cached profile made requests: %v", f.srv.Requests())
		}
	})

	t.Run("token only", func(t *testing.T) {
		f := setup(t)
		f.storage.SaveSession(ctx, f.srv.Token("clerk"), nil)

		if err := f.sess.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if u := f.sess.User(); u == nil || u.Username != "clerk" {
			t.Errorf("unexpected user %+v", u)
		}
		if _, user, _ := f.storage.LoadSession(ctx); user == nil {
			t.Error("refreshed profile not persisted")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		f := setup(t)
		expired, err := auth.GenerateToken(backendtest.Secret, "admin", -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		f.storage.SaveSession(ctx, expired, &model.UserProfile{Username: "admin"})

		if err := f.sess.Restore(ctx); err != nil {
			t.Fatal(err)
		}
		if f.sess.IsAuthenticated() {
			t.Error("expired session restored")
		}
		if token, _, _ := f.storage.LoadSession(ctx); token != "" {
			t.Error("expired token left in storage")
		}
		if len(f.srv.Requests()) != 0 {
			t.Error("expired token should be dropped without a request")
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		f := setup(t)
		f.storage.SaveSession(ctx, f.srv.Token("clerk"), nil)
		f.srv.RevokeTokens()

		if err := f.sess.Restore(ctx); !errors.Is(err, api.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if f.sess.State() != LoggedOut {
			t.Errorf("state = %v", f.sess.State())
		}
		if token, _, _ := f.storage.LoadSession(ctx); token != "" {
			t.Error("rejected token left in storage")
		}
	})
}

func TestIsAuthenticatedIsPure(t *testing.T) {
	s := New(&store.SessionStorage{DB: db.NewTestDB(t)}, nil)
	s.token = "orphan"
	s.state = LoggedIn

	for range 3 {
		if s.IsAuthenticated() {
			t.Fatal("token without profile must not count as authenticated")
		}
	}
	if s.Token() != "orphan" {
		t.Error("IsAuthenticated mutated the session")
	}
}

func TestExpireIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if err := f.sess.Login(ctx, "clerk", "clerk-pass"); err != nil {
		t.Fatal(err)
	}

	events, cancel := f.sess.Subscribe()
	defer cancel()

	if !f.sess.Expire() {
		t.Error("first Expire should report a change")
	}
	if f.sess.Expire() {
		t.Error("second Expire should be a no-op")
	}

	ev := <-events
	if ev.State != LoggedOut || ev.User != nil {
		t.Errorf("unexpected event %+v", ev)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected second event %+v", ev)
	default:
	}
}

func TestUnauthorizedResponseLogsOutOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if err := f.sess.Login(ctx, "admin", "admin-pass"); err != nil {
		t.Fatal(err)
	}
	f.srv.RevokeTokens()

	if _, err := f.client.Items().List(ctx, api.ListParams{}); !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("read: %v", err)
	}
	_, err := f.client.Items().Create(ctx, model.ItemInput{Name: "Widget"})
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("write: %v", err)
	}

	if f.sess.IsAuthenticated() || f.sess.Token() != "" {
		t.Error("session survived a 401")
	}
	if f.navigate != 1 {
		t.Errorf("navigated %d times, want 1", f.navigate)
	}
	if token, _, _ := f.storage.LoadSession(ctx); token != "" {
		t.Error("token left in storage after 401")
	}
}

func TestLogout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if err := f.sess.Login(ctx, "clerk", "clerk-pass"); err != nil {
		t.Fatal(err)
	}
	before := len(f.srv.Requests())

	if err := f.sess.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if f.sess.IsAuthenticated() || f.sess.IsAdmin() {
		t.Error("still authenticated after logout")
	}
	if len(f.srv.Requests()) != before {
		t.Error("logout made a backend call")
	}
	if token, user, _ := f.storage.LoadSession(ctx); token != "" || user != nil {
		t.Error("logout left session in storage")
	}
}

func TestSubscribeSeesLoginSequence(t *testing.T) {
	f := setup(t)
	events, cancel := f.sess.Subscribe()

	if err := f.sess.Login(context.Background(), "admin", "admin-pass"); err != nil {
		t.Fatal(err)
	}

	if ev := <-events; ev.State != Refreshing {
		t.Errorf("first event = %v, want refreshing", ev.State)
	}
	ev := <-events
	if ev.State != LoggedIn || ev.User == nil || !ev.User.IsAdmin {
		t.Errorf("second event = %+v", ev)
	}

	cancel()
	cancel()
	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}
}
