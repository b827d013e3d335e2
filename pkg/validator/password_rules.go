package validator

import (
	"regexp"
	"unicode/utf8"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// PasswordCriterion is one independently checkable password requirement.
type PasswordCriterion struct {
	Key     string
	Label   string
	Message string
	Check   func(password string) bool
}

// PasswordCriteria lists the requirements in the order their messages are reported.
var PasswordCriteria = []PasswordCriterion{
	{
		Key:     "uppercase",
		Label:   "Uppercase letter",
		Message: "Password must contain at least one uppercase letter",
		Check:   HasUppercase,
	},
	{
		Key:     "lowercase",
		Label:   "Lowercase letter",
		Message: "Password must contain at least one lowercase letter",
		Check:   HasLowercase,
	},
	{
		Key:     "number",
		Label:   "Number",
		Message: "Password must contain at least one number",
		Check:   HasDigit,
	},
	{
		Key:     "special",
		Label:   "Special character (e.g. !?<>@#$%)",
		Message: "Password must contain at least one special character",
		Check:   HasSpecialChar,
	},
	{
		Key:     "length",
		Label:   "8 characters or more",
		Message: "Password must be at least 8 characters long",
		Check:   HasMinLength,
	},
}

func HasUppercase(p string) bool   { return uppercaseRegex.MatchString(p) }
func HasLowercase(p string) bool   { return lowercaseRegex.MatchString(p) }
func HasDigit(p string) bool       { return digitRegex.MatchString(p) }
func HasSpecialChar(p string) bool { return specialCharRegex.MatchString(p) }
func HasMinLength(p string) bool   { return utf8.RuneCountInString(p) >= PasswordMinLength }

// IsStrongPassword reports whether p satisfies every criterion.
func IsStrongPassword(p string) bool {
	for _, c := range PasswordCriteria {
		if !c.Check(p) {
			return false
		}
	}
	return true
}

// PasswordRules returns one rule per criterion, in PasswordCriteria order.
func PasswordRules(field, value string) []Rule {
	rules := make([]Rule, 0, len(PasswordCriteria))
	for _, c := range PasswordCriteria {
		rules = append(rules, Rule{
			Check: func() bool { return c.Check(value) },
			Error: ValidationError{Field: field, Message: c.Message},
		})
	}
	return rules
}

// StrongPassword is a single rule covering every criterion.
func StrongPassword(field, value string) Rule {
	return Rule{
		Check: func() bool { return IsStrongPassword(value) },
		Error: ValidationError{Field: field, Message: "Please ensure your password meets all the requirements"},
	}
}
