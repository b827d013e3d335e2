package validator

import (
	"strings"
	"unicode/utf8"
)

// Required fails on empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "This field is required"},
	}
}

// MinLen fails when value holds fewer than min characters after trimming.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(strings.TrimSpace(value)) >= min },
		Error: ValidationError{Field: field, Message: "Value is too short"},
	}
}

// Equal fails when value differs from other.
func Equal(field, value, other string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Error: ValidationError{Field: field, Message: "Values do not match"},
	}
}
