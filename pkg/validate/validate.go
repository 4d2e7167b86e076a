// Package validate contains pure checks for form fields, run before any remote call.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 50

	minNameLength = 2
	maxNameLength = 50

	maxPostLength = 500
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRegex  = regexp.MustCompile(`^[a-zA-Z\s]*$`)
)

// Email checks that an address looks deliverable.
func Email(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}

	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return errors.New("please enter a valid email address")
	}

	return nil
}

// Password checks the length bounds enforced at sign up.
func Password(password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	if len(password) < minPasswordLength {
		return errors.New("password must be at least 6 characters long")
	}

	if len(password) > maxPasswordLength {
		return errors.New("password is too long")
	}

	return nil
}

// Name checks a display name, letters and spaces only.
func Name(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if len(trimmed) < minNameLength {
		return errors.New("name must be at least 2 characters long")
	}

	if len(trimmed) > maxNameLength {
		return errors.New("name is too long")
	}

	if !nameRegex.MatchString(trimmed) {
		return errors.New("name can only contain letters and spaces")
	}

	return nil
}

// PostContent checks the text body of a post.
func PostContent(content string) error {
	trimmed := strings.TrimSpace(content)

	if trimmed == "" {
		return errors.New("post content cannot be empty")
	}

	if len([]rune(trimmed)) > maxPostLength {
		return errors.New("post content is too long (max 500 characters)")
	}

	return nil
}
