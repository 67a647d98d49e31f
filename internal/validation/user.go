// Package validation holds input rules shared by the auth and admin surfaces.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

var (
	validate      = validator.New(validator.WithRequiredStructEnabled())
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

// ValidateUsername allows 3-30 letters, digits and underscores, not starting or ending with an underscore.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errors.New("username must be 3-30 characters and contain only letters, numbers, and underscores")
	}
	if strings.HasPrefix(username, "_") || strings.HasSuffix(username, "_") {
		return errors.New("username cannot start or end with an underscore")
	}
	return nil
}

// ValidateEmail checks address syntax and length.
func ValidateEmail(email string) error {
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return errors.New("password must contain an uppercase letter, a lowercase letter, a digit, and a special character")
	}
	return nil
}

// Registration is the payload accepted by user sign-up.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns per-field messages, or nil when the registration is acceptable.
func (r Registration) Validate() map[string][]string {
	fields := map[string][]string{}
	if err := ValidateUsername(r.Username); err != nil {
		fields["username"] = append(fields["username"], err.Error())
	}
	if err := ValidateEmail(r.Email); err != nil {
		fields["email"] = append(fields["email"], err.Error())
	}
	if err := ValidatePassword(r.Password); err != nil {
		fields["password"] = append(fields["password"], err.Error())
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
