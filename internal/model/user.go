package model

import (
	"fmt"
	"strings"
	"time"
)

// User represents a registered account. The role is fixed at registration
// and never changes.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles.
const (
	RoleFarmer   = "farmer"
	RoleBusiness = "business"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleFarmer || role == RoleBusiness
}

// ValidateEmail performs a minimal sanity check on an email address.
func ValidateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword checks password requirements for new accounts.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

// ValidateFullName checks display name length for new accounts.
func ValidateFullName(name string) error {
	if len(name) < 2 || len(name) > 50 {
		return fmt.Errorf("full name must be 2-50 characters")
	}
	return nil
}
