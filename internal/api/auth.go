package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/erazemk/blagajna/internal/model"
)

// LoginResponse is the body of a successful POST /token.
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	User        *model.UserProfile `json:"user,omitempty"`
}

// Login exchanges credentials for a bearer token. A 401 here means bad
// credentials and does not touch the session.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp LoginResponse
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/token", body: form, public: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*model.UserProfile, error) {
	var u model.UserProfile
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/users/me"}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// MeWithToken fetches the profile using an explicit token instead of the
// TokenSource, for use while a login is still in progress.
func (c *Client) MeWithToken(ctx context.Context, token string) (*model.UserProfile, error) {
	tc := *c
	tc.tokens = staticToken(token)
	tc.onUnauthorized = nil
	return tc.Me(ctx)
}

// staticToken never expires on 401; the caller owns the outcome.
type staticToken string

func (s staticToken) Token() string { return string(s) }
func (s staticToken) Expire() bool  { return false }
