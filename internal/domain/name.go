package domain

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

const (
	MinSpotNameLen = 3
	MaxSpotNameLen = 50
)

// SanitizeName trims the name and escapes HTML special characters. Spot names
// are stored in this escaped form; DisplayName reverses it.
func SanitizeName(name string) string {
	return html.EscapeString(strings.TrimSpace(name))
}

// DisplayName returns the text a stored name stands for.
func DisplayName(name string) string {
	return html.UnescapeString(name)
}

// ValidateSpotName checks the trimmed length bounds in characters of the
// displayed text, so escaping does not count against the limit.
func ValidateSpotName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(DisplayName(name)))
	if n < MinSpotNameLen {
		return &InvalidNameError{Name: name, Reason: fmt.Sprintf("too short (min %d chars)", MinSpotNameLen)}
	}
	if n > MaxSpotNameLen {
		return &InvalidNameError{Name: name, Reason: fmt.Sprintf("too long (max %d chars)", MaxSpotNameLen)}
	}
	return nil
}
