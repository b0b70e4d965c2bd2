package model

import "time"

// UserProfile is the identity the backend resolves for a bearer token.
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsActive bool   `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

// User is a user account as listed on the admin screen.
type User struct {
	UserProfile
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UserInput is the create/update payload for a user account.
// Password is required on create and optional on update.
type UserInput struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	IsActive bool   `json:"is_active"`
	IsAdmin  bool   `json:"is_admin"`
}

// MinPasswordLength is the shortest password accepted for new accounts.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	return nil
}

// ValidateUser checks a user payload. creating selects whether the password is mandatory.
func ValidateUser(in UserInput, creating bool) error {
	if in.Username == "" {
		return &ValidationError{Field: "username", Message: "required"}
	}
	if in.Email != "" {
		if err := validateEmail(in.Email); err != nil {
			return err
		}
	}
	if creating || in.Password != "" {
		return ValidatePassword(in.Password)
	}
	return nil
}
