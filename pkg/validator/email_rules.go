package validator

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

// IsEmail reports whether s is a syntactically acceptable address: a non-empty
// local part, a single "@" and dot-separated domain labels.
func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// Email fails when value is not an e-mail address.
func Email(field, value string) Rule {
	return Rule{
		Check: func() bool { return IsEmail(value) },
		Error: ValidationError{Field: field, Message: "Please enter a valid email address"},
	}
}
