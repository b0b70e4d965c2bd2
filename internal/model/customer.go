package model

import (
	"strings"
	"time"
)

// Customer is a buyer that sales and payments are recorded against.
type Customer struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CustomerInput is the create/update payload for a customer.
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// ValidateCustomer checks a customer payload against the already loaded
// customers. selfID is the customer being edited (0 when creating) so that
// keeping one's own email is not a duplicate.
func ValidateCustomer(in CustomerInput, existing []Customer, selfID int64) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "required"}
	}
	if in.Email == "" {
		return nil
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	for _, c := range existing {
		if c.ID != selfID && strings.EqualFold(c.Email, in.Email) {
			return &ValidationError{Field: "email", Message: "already used by " + c.Name}
		}
	}
	return nil
}
