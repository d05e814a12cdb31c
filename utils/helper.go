package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email) && !strings.ContainsAny(email, " \t")
}

// ExtractEmail pulls the first email-looking token out of free text.
// Used when the POS leaves the account email field blank but an address
// is buried in the internal notes.
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"error": err.Error()}
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// CleanString trims and returns nil for empty, for optional columns.
func CleanString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
