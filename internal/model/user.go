package model

import (
	"errors"
	"strings"
	"time"
)

// User is an account that can report and claim items.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("Password must be at least 6 characters long")
	}
	return nil
}

// Signup holds the fields of the registration form.
type Signup struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate returns every problem with the form, in display order.
// Username uniqueness is checked by the caller against the store.
func (s Signup) Validate() []string {
	var errs []string
	if len(strings.TrimSpace(s.Username)) < 3 {
		errs = append(errs, "Username must be at least 3 characters long")
	}
	if len(strings.TrimSpace(s.FullName)) < 2 {
		errs = append(errs, "Full name must be at least 2 characters long")
	}
	if !strings.Contains(s.Email, "@") {
		errs = append(errs, "Please enter a valid email address")
	}
	if err := ValidatePassword(s.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if s.Password != s.ConfirmPassword {
		errs = append(errs, "Passwords do not match")
	}
	return errs
}
