package backendtest

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/erazemk/blagajna/internal/auth"
	"github.com/erazemk/blagajna/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func withUser(ctx context.Context, u *user) context.Context {
	return context.WithValue(ctx, ctxUser{}, u)
}

func currentUser(ctx context.Context) *user {
	u, _ := ctx.Value(ctxUser{}).(*user)
	return u
}

type tokenResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	User        *model.UserProfile `json:"user,omitempty"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	u, ok := s.users[username]
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		jsonError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	if !u.profile.IsActive {
		jsonError(w, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := auth.GenerateToken(Secret, username, auth.TokenExpiry)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "could not create token")
		return
	}

	resp := tokenResponse{AccessToken: token, TokenType: "bearer"}
	if !s.omitUser {
		p := u.profile
		resp.User = &p
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, currentUser(r.Context()).profile)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, model.User{UserProfile: u.profile})
	}
	slices.SortFunc(users, func(a, b model.User) int { return int(a.ID - b.ID) })
	writeList(s, w, r, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := model.ValidateUser(in, true); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, exists := s.users[in.Username]; exists {
		jsonError(w, http.StatusBadRequest, "Username already registered")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "hashing password")
		return
	}
	now := s.now()
	p := model.UserProfile{ID: s.id(), Username: in.Username, Email: in.Email, IsActive: in.IsActive, IsAdmin: in.IsAdmin}
	s.users[in.Username] = &user{profile: p, hash: hash}
	jsonResponse(w, http.StatusCreated, model.User{UserProfile: p, CreatedAt: &now})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	for _, u := range s.users {
		if u.profile.ID == id {
			jsonResponse(w, http.StatusOK, model.User{UserProfile: u.profile})
			return
		}
	}
	jsonError(w, http.StatusNotFound, "User not found")
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in model.UserInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	var target *user
	for _, u := range s.users {
		if u.profile.ID == id {
			target = u
		}
	}
	if target == nil {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}

	if in.Username != "" && in.Username != target.profile.Username {
		if _, exists := s.users[in.Username]; exists {
			jsonError(w, http.StatusBadRequest, "Username already registered")
			return
		}
		delete(s.users, target.profile.Username)
		target.profile.Username = in.Username
		s.users[in.Username] = target
	}
	if strings.TrimSpace(in.Password) != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "hashing password")
			return
		}
		target.hash = hash
	}
	target.profile.Email = in.Email
	target.profile.IsActive = in.IsActive
	target.profile.IsAdmin = in.IsAdmin

	now := s.now()
	jsonResponse(w, http.StatusOK, model.User{UserProfile: target.profile, UpdatedAt: &now})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if currentUser(r.Context()).profile.ID == id {
		jsonError(w, http.StatusBadRequest, "Cannot delete yourself")
		return
	}
	for name, u := range s.users {
		if u.profile.ID == id {
			delete(s.users, name)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	jsonError(w, http.StatusNotFound, "User not found")
}
