package api

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 20
	passwordSpecials  = "@$!%*?&"
)

var (
	// ErrPasswordPolicy is returned when the new password does not satisfy the
	// server's password rules.
	ErrPasswordPolicy = errors.New("password does not satisfy policy")
	// ErrPasswordMismatch is returned when the confirmation differs from the
	// new password.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	// ErrPasswordRequired is returned when a password field is blank.
	ErrPasswordRequired = errors.New("password required")
)

// PasswordChange is the change-password form payload.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate applies the rules the server enforces so a bad form never leaves
// the client.
func (p PasswordChange) Validate() error {
	if strings.TrimSpace(p.OldPassword) == "" || strings.TrimSpace(p.NewPassword) == "" || strings.TrimSpace(p.ConfirmPassword) == "" {
		return ErrPasswordRequired
	}
	if err := CheckPasswordPolicy(p.NewPassword); err != nil {
		return err
	}
	if p.NewPassword != p.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// CheckPasswordPolicy reports whether pw is 8-20 characters drawn only from
// letters, digits and @$!%*?&, with at least one of each class.
func CheckPasswordPolicy(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLength || n > maxPasswordLength {
		return ErrPasswordPolicy
	}

	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return ErrPasswordPolicy
		}
	}
	if !lower || !upper || !digit || !special {
		return ErrPasswordPolicy
	}
	return nil
}
