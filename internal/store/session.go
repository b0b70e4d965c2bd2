package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/erazemk/blagajna/internal/model"
)

// Local storage keys of the persisted session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// SessionStorage persists the bearer token and cached profile in local storage.
type SessionStorage struct {
	DB *sql.DB
}

// LoadSession returns the persisted token and profile. Either may be empty.
// A cached profile that no longer decodes is treated as absent.
func (s *SessionStorage) LoadSession(ctx context.Context) (string, *model.UserProfile, error) {
	token, _, err := GetValue(ctx, s.DB, KeyToken)
	if err != nil {
		return "", nil, err
	}

	raw, ok, err := GetValue(ctx, s.DB, KeyUser)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return token, nil, nil
	}

	var user model.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return token, nil, nil
	}
	return token, &user, nil
}

// SaveSession persists the token and, if non-nil, the profile.
func (s *SessionStorage) SaveSession(ctx context.Context, token string, user *model.UserProfile) error {
	if err := SetValue(ctx, s.DB, KeyToken, token); err != nil {
		return err
	}
	if user == nil {
		return DeleteValues(ctx, s.DB, KeyUser)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return SetValue(ctx, s.DB, KeyUser, string(data))
}

// ClearSession removes the token and profile.
func (s *SessionStorage) ClearSession(ctx context.Context) error {
	return DeleteValues(ctx, s.DB, KeyToken, KeyUser)
}
