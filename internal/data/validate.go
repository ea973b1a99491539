package data

import (
	"fmt"
	"regexp"
	"unicode"
)

const (
	usernameMin = 3
	usernameMax = 10
	passwordMin = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func validateUsername(username string) error {
	if len(username) < usernameMin {
		return fmt.Errorf("%w: username must be at least %d characters", ErrValidation, usernameMin)
	}
	if len(username) > usernameMax {
		return fmt.Errorf("%w: username must be at most %d characters", ErrValidation, usernameMax)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters, numbers, and underscore", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < passwordMin {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, passwordMin)
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: password must contain at least 1 uppercase letter", ErrValidation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least 1 number", ErrValidation)
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: please enter a valid email address", ErrValidation)
	}
	return nil
}
