package binder

import "errors"

var (
	// ErrBinderNotApplicable is returned when a binder does not handle the
	// request's content type. handler.Wrap skips such binders.
	ErrBinderNotApplicable = errors.New("binder not applicable")

	ErrInvalidForm  = errors.New("invalid form data")
	ErrInvalidQuery = errors.New("invalid query parameters")
)
