package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Registration errors, checked in this order
var (
	ErrMissingFields    = errors.New("all fields are required")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWeakPassword     = errors.New("password is too weak")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

const (
	minPasswordLength    = 8
	strongPasswordLength = 12
	minPasswordStrength  = 3
)

// RegistrationInput is a new account request
type RegistrationInput struct {
	Email           string `json:"email" validate:"required,email"`
	Name            string `json:"nombre" validate:"required"`
	Phone           string `json:"telefono" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRegistration checks a registration request before it is sent
func ValidateRegistration(in RegistrationInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return ErrMissingFields
				}
			}
			return ErrInvalidEmail
		}
		return err
	}

	if len([]rune(in.Password)) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if PasswordStrength(in.Password) < minPasswordStrength {
		return ErrWeakPassword
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// PasswordStrength scores a password from 0 to 5: one point each for reaching
// 8 characters, containing an uppercase letter, a digit, a character that is
// not an ASCII letter or digit, and reaching 12 characters
func PasswordStrength(password string) int {
	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			symbol = true
		}
	}

	length := len([]rune(password))
	score := 0
	for _, ok := range []bool{length >= minPasswordLength, upper, digit, symbol, length >= strongPasswordLength} {
		if ok {
			score++
		}
	}
	return score
}

// PasswordStrengthLabel describes a strength score
func PasswordStrengthLabel(score int) string {
	switch {
	case score <= 0:
		return ""
	case score <= 2:
		return "weak"
	case score == 3:
		return "moderate"
	default:
		return "strong"
	}
}
