package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"givto/internal/models"
)

const (
	maxNameLength  = 100
	maxEmailLength = 320
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeEmail trims and lower-cases an email address. Emails compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > maxEmailLength {
		return ValidationError{Field: "email", Message: "email is too long"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName checks if a person's name is valid
func ValidateName(name string) error {
	return validateDisplayName("name", name)
}

// ValidateGroupName checks if a group name is valid
func ValidateGroupName(name string) error {
	return validateDisplayName("groupName", name)
}

func validateDisplayName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, maxNameLength)}
	}
	return nil
}

// ValidateUserInput checks the name and email of a participant
func ValidateUserInput(field string, input models.UserInput) error {
	if err := ValidateEmail(input.Email); err != nil {
		return ValidationError{Field: field + ".email", Message: err.(ValidationError).Message}
	}
	if err := ValidateName(input.Name); err != nil {
		return ValidationError{Field: field + ".name", Message: err.(ValidationError).Message}
	}
	return nil
}
