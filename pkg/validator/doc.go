// Package validator provides rule-based input validation.
//
// A Rule pairs a check with the ValidationError reported when the check
// fails. Apply collects every failure; ApplyFirst keeps only the first failure
// per field, which is what forms display. Rule constructors carry
// user-facing default messages that can be replaced with Rule.WithMessage.
//
//	err := validator.ApplyFirst(
//		validator.Required("email", email),
//		validator.Email("email", email),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve != nil {
//		msg := ve.Get("email")
//	}
package validator
