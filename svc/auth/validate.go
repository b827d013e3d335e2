package auth

import "github.com/dmitrymomot/authkit/pkg/validator"

// IsValidEmail reports whether email has a non-empty local part and a domain.
func IsValidEmail(email string) bool {
	return validator.IsEmail(email)
}

// IsStrongPassword reports whether p has at least 8 characters and contains
// an uppercase letter, a lowercase letter, a digit and a special character.
func IsStrongPassword(p string) bool {
	return validator.IsStrongPassword(p)
}

// CriterionStatus is one line of the password strength checklist.
type CriterionStatus struct {
	Key   string
	Label string
	Met   bool
}

// PasswordChecklist evaluates every strength criterion against p.
func PasswordChecklist(p string) []CriterionStatus {
	out := make([]CriterionStatus, 0, len(validator.PasswordCriteria))
	for _, c := range validator.PasswordCriteria {
		out = append(out, CriterionStatus{Key: c.Key, Label: c.Label, Met: c.Check(p)})
	}
	return out
}
